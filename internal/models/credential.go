package models

import "time"

// Credential is the sign-in record of a locally managed account.
// Admin plays the role of an identity-provider custom claim; TokenGeneration is
// bumped on every revocation so previously issued tokens stop verifying.
type Credential struct {
	UID             string
	Email           string
	DisplayName     string
	PasswordHash    string
	Admin           bool
	TokenGeneration int
	CreatedAt       time.Time
}
