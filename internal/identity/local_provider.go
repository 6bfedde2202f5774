package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"

	"shopwave/internal/models"
	"shopwave/internal/repositories"
)

// LocalProvider is a self-hosted identity provider: bcrypt password hashes and
// HS256 tokens. The admin claim lives on the credential record.
type LocalProvider struct {
	creds      repositories.CredentialRepository
	jwtSecret  []byte
	tokenTTL   time.Duration
	adminClaim string
}

// NewLocalProvider creates a LocalProvider.
func NewLocalProvider(creds repositories.CredentialRepository, jwtSecret string, tokenTTL time.Duration, adminClaim string) *LocalProvider {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	if adminClaim == "" {
		adminClaim = "admin"
	}
	return &LocalProvider{
		creds:      creds,
		jwtSecret:  []byte(jwtSecret),
		tokenTTL:   tokenTTL,
		adminClaim: adminClaim,
	}
}

// Register creates an account, hashes the password and signs the user in.
func (p *LocalProvider) Register(ctx context.Context, email, password, displayName string) (*User, string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	cred := &models.Credential{
		Email:        email,
		DisplayName:  strings.TrimSpace(displayName),
		PasswordHash: string(hashedPassword),
	}
	if err := p.creds.Create(ctx, cred); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", fmt.Errorf("failed to register user: %w", err)
	}

	token, err := p.issue(cred)
	if err != nil {
		return nil, "", err
	}
	return userFromCredential(cred), token, nil
}

// Login authenticates a user and returns a signed token if successful.
func (p *LocalProvider) Login(ctx context.Context, email, password string) (*User, string, error) {
	cred, err := p.creds.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up credentials: %w", err)
	}
	// same answer for unknown email and wrong password
	if cred == nil {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := p.issue(cred)
	if err != nil {
		return nil, "", err
	}
	return userFromCredential(cred), token, nil
}

func (p *LocalProvider) issue(cred *models.Credential) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid":        cred.UID,
		"email":      cred.Email,
		"name":       cred.DisplayName,
		p.adminClaim: cred.Admin,
		"gen":        cred.TokenGeneration,
		"exp":        now.Add(p.tokenTTL).Unix(),
		"iat":        now.Unix(),
	})

	tokenString, err := token.SignedString(p.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// Verify parses and validates a token. Tokens minted before the last Revoke of
// their user are rejected.
func (p *LocalProvider) Verify(ctx context.Context, tokenString string) (*User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.jwtSecret, nil
	})
	if err != nil {
		log.Printf("Token validation error: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	uid := claimString(claims, "uid")
	if uid == "" {
		return nil, ErrInvalidToken
	}

	cred, err := p.creds.GetByUID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}
	if cred == nil {
		return nil, ErrInvalidToken
	}
	gen, ok := claims["gen"].(float64)
	if !ok || int(gen) != cred.TokenGeneration {
		return nil, fmt.Errorf("%w: token revoked", ErrInvalidToken)
	}

	return userFromCredential(cred), nil
}

// Revoke invalidates every token issued to uid so far.
func (p *LocalProvider) Revoke(ctx context.Context, uid string) error {
	if _, err := p.creds.BumpGeneration(ctx, uid); err != nil {
		return fmt.Errorf("failed to revoke tokens: %w", err)
	}
	return nil
}

// SetAdminClaim grants or withdraws the administrator claim.
func (p *LocalProvider) SetAdminClaim(ctx context.Context, uid string, admin bool) error {
	if err := p.creds.SetAdmin(ctx, uid, admin); err != nil {
		return fmt.Errorf("failed to set %s claim: %w", p.adminClaim, err)
	}
	return nil
}

// EnsureAdmin registers email if needed and grants it the admin claim.
func (p *LocalProvider) EnsureAdmin(ctx context.Context, email, password string) (*User, error) {
	cred, err := p.creds.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		user, _, err := p.Register(ctx, email, password, "Administrator")
		if err != nil {
			return nil, err
		}
		cred = &models.Credential{UID: user.UID, Email: user.Email, DisplayName: user.DisplayName}
	}
	if err := p.SetAdminClaim(ctx, cred.UID, true); err != nil {
		return nil, err
	}
	cred.Admin = true
	return userFromCredential(cred), nil
}

func userFromCredential(c *models.Credential) *User {
	return &User{
		UID:         c.UID,
		Email:       c.Email,
		DisplayName: c.DisplayName,
		IsAdmin:     c.Admin,
	}
}
