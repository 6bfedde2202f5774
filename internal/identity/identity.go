package identity

import (
	"context"
	"errors"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrEmailTaken         = errors.New("email already registered")
)

// User is the signed-in principal as seen by the rest of the service.
type User struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
	IsAdmin     bool   `json:"isAdmin"`
}

// Provider verifies bearer tokens and ends remote sessions.
type Provider interface {
	Verify(ctx context.Context, token string) (*User, error)
	Revoke(ctx context.Context, uid string) error
}

func claimString(claims map[string]interface{}, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

// claimTrue reports whether claims[key] is the boolean true. Any other value,
// including the string "true", does not grant the claim.
func claimTrue(claims map[string]interface{}, key string) bool {
	v, ok := claims[key].(bool)
	return ok && v
}
