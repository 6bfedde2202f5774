package middleware

import (
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"

	"shopwave/internal/cart"
	"shopwave/internal/identity"
	"shopwave/internal/services"
)

// SessionCookie names the browser session cookie; guest carts are keyed by it.
const SessionCookie = "shopwave_session"

// Error codes of the responses written here.
const (
	CodeSessionUnavailable = "session_unavailable"
	CodeInvalidToken       = "invalid_token"
	CodeAuthRequired       = "auth_required"
	CodeForbidden          = "forbidden"
)

const (
	localsSession   = "session"
	localsUser      = "user"
	localsAuthError = "auth_error"
)

// Identify resolves the bearer token (if any) and the browser session of every
// request. An invalid token is treated as an anonymous caller; guarded routes
// reject it with 401.
func Identify(authService *services.AuthService, sessions *cart.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// the session id outlives the request as a registry key
		sessionID := utils.CopyString(c.Cookies(SessionCookie))
		if _, err := uuid.Parse(sessionID); err != nil {
			sessionID = uuid.New().String()
			c.Cookie(&fiber.Cookie{
				Name:     SessionCookie,
				Value:    sessionID,
				Path:     "/",
				HTTPOnly: true,
				SameSite: fiber.CookieSameSiteLaxMode,
				Expires:  time.Now().Add(30 * 24 * time.Hour),
			})
		}

		token, err := bearerToken(c.Get(fiber.HeaderAuthorization))
		var user *identity.User
		if err == nil {
			user, err = authService.Authenticate(c.UserContext(), token)
		}
		if err != nil {
			log.Printf("JWT validation failed: %v", err)
			c.Locals(localsAuthError, err)
			user = nil
		}

		session, err := sessions.Acquire(c.UserContext(), sessionID, user)
		if err != nil {
			log.Printf("Error opening session %s: %v", sessionID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Could not open session",
				"error":   CodeSessionUnavailable,
			})
		}

		c.Locals(localsSession, session)
		if user != nil {
			c.Locals(localsUser, user)
		}
		return c.Next()
	}
}

// bearerToken extracts the token of a "Bearer <token>" header. An absent header
// yields an empty token.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", nil
	}
	parts := strings.SplitN(header, " ", 2)
	if !(len(parts) == 2 && parts[0] == "Bearer") {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Authorization header format must be 'Bearer <token>'")
	}
	return parts[1], nil
}

// AuthRequired rejects requests without a verified identity.
func AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if UserFrom(c) != nil {
			return c.Next()
		}
		if _, ok := c.Locals(localsAuthError).(error); ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
				"error":   CodeInvalidToken,
			})
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Authorization header is required",
			"error":   CodeAuthRequired,
		})
	}
}

// AdminRequired admits only users holding the admin claim. Mount it after
// AuthRequired.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := UserFrom(c)
		if user != nil && user.IsAdmin {
			return c.Next()
		}
		notifications := []cart.Notification{
			cart.Failure("Access Denied", "You do not have permission to access the admin panel."),
		}
		if session := SessionFrom(c); session != nil {
			notifications = append(session.Inbox.Drain(), notifications...)
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message":       "Access Denied",
			"error":         CodeForbidden,
			"redirect":      services.HomePath,
			"notifications": notifications,
		})
	}
}

// SessionFrom returns the browser session resolved by Identify.
func SessionFrom(c *fiber.Ctx) *cart.Session {
	session, _ := c.Locals(localsSession).(*cart.Session)
	return session
}

// UserFrom returns the verified user, or nil for anonymous callers.
func UserFrom(c *fiber.Ctx) *identity.User {
	user, _ := c.Locals(localsUser).(*identity.User)
	return user
}
