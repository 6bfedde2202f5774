package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"

	"shopwave/internal/cart"
	"shopwave/internal/identity"
)

// HomePath is where the client lands after signing out.
const HomePath = "/"

// ErrLocalAuthDisabled is returned by Register and Login when identities are
// managed by an external provider.
var ErrLocalAuthDisabled = errors.New("local sign-in is disabled")

// RegisterRequest is the body of a local sign-up.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	DisplayName string `json:"displayName" validate:"omitempty,max=100"`
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult is a signed-in user and its bearer token.
type AuthResult struct {
	User  *identity.User `json:"user"`
	Token string         `json:"token"`
}

// AuthService resolves bearer tokens and runs sign-in and sign-out.
type AuthService struct {
	provider identity.Provider
	local    *identity.LocalProvider // nil unless identities are local
	validate *validator.Validate
}

// NewAuthService creates a new AuthService. local may be nil.
func NewAuthService(provider identity.Provider, local *identity.LocalProvider) *AuthService {
	return &AuthService{
		provider: provider,
		local:    local,
		validate: NewValidator(),
	}
}

// Authenticate verifies a bearer token. An empty token is an anonymous caller.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*identity.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	return s.provider.Verify(ctx, token)
}

// Register creates a local account and signs it in.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if s.local == nil {
		return nil, ErrLocalAuthDisabled
	}
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	user, token, err := s.local.Register(ctx, strings.TrimSpace(req.Email), req.Password, req.DisplayName)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

// Login signs in a local account.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	if s.local == nil {
		return nil, ErrLocalAuthDisabled
	}
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	user, token, err := s.local.Login(ctx, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

// Logout ends the remote session of the signed-in user and settles the browser
// session back to anonymous. On failure the identity is left as it was.
func (s *AuthService) Logout(ctx context.Context, session *cart.Session) error {
	session.Identity.Begin()

	if user := session.Identity.User(); user != nil {
		if err := s.provider.Revoke(ctx, user.UID); err != nil {
			session.Identity.Abort()
			log.Printf("Error logging out %s: %v", user.UID, err)
			session.Inbox.Notify(cart.Failure("Logout Error", "Failed to log out. Please try again."))
			return fmt.Errorf("failed to revoke session: %w", err)
		}
	}

	session.Resolve(ctx, nil)
	session.Inbox.Notify(cart.Info("Logged Out", "You have been successfully logged out."))
	return nil
}
