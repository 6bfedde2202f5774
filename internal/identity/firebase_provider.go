package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"
)

// TokenClient is the subset of *auth.Client the Firebase provider calls.
type TokenClient interface {
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*firebaseauth.Token, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// FirebaseProvider verifies Firebase ID tokens. A user is an administrator iff the
// token carries the boolean custom claim named by adminClaim.
type FirebaseProvider struct {
	client     TokenClient
	adminClaim string
}

func NewFirebaseProvider(client TokenClient, adminClaim string) *FirebaseProvider {
	if adminClaim == "" {
		adminClaim = "admin"
	}
	return &FirebaseProvider{client: client, adminClaim: adminClaim}
}

func (p *FirebaseProvider) Verify(ctx context.Context, token string) (*User, error) {
	if p == nil || p.client == nil {
		return nil, errors.New("firebase provider: auth client is nil")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	tok, err := p.client.VerifyIDTokenAndCheckRevoked(ctx, token)
	if err != nil {
		log.Printf("Firebase token verification failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if tok == nil || strings.TrimSpace(tok.UID) == "" {
		return nil, ErrInvalidToken
	}

	return &User{
		UID:         tok.UID,
		Email:       claimString(tok.Claims, "email"),
		DisplayName: claimString(tok.Claims, "name"),
		PhotoURL:    claimString(tok.Claims, "picture"),
		IsAdmin:     claimTrue(tok.Claims, p.adminClaim),
	}, nil
}

// Revoke invalidates every refresh token of uid; ID tokens minted before now
// fail the revocation check from then on.
func (p *FirebaseProvider) Revoke(ctx context.Context, uid string) error {
	if p == nil || p.client == nil {
		return errors.New("firebase provider: auth client is nil")
	}
	if err := p.client.RevokeRefreshTokens(ctx, uid); err != nil {
		return fmt.Errorf("failed to revoke refresh tokens: %w", err)
	}
	return nil
}
