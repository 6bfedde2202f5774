package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"shopwave/internal/identity"
	"shopwave/internal/middleware"
	"shopwave/internal/services"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Post("/logout", h.HandleLogout)
}

// HandleRegister creates a local account and signs the session in.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req services.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	result, err := h.authService.Register(c.UserContext(), req)
	if err != nil {
		if handled, resp := validationFailed(c, err); handled {
			return resp
		}
		log.Printf("Error registering user: %v", err)
		switch {
		case errors.Is(err, identity.ErrEmailTaken):
			return respond(c, fiber.StatusConflict, fiber.Map{
				"message": "Registration failed",
				"error":   codeEmailTaken,
			})
		case errors.Is(err, services.ErrLocalAuthDisabled):
			return respond(c, fiber.StatusNotFound, fiber.Map{
				"message": "Local sign-in is disabled",
				"error":   codeLocalAuthDisabled,
			})
		}
		return serverError(c, "Could not register user", err)
	}

	middleware.SessionFrom(c).Resolve(c.UserContext(), result.User)
	return respond(c, fiber.StatusCreated, fiber.Map{
		"message": "User registered successfully",
		"user":    result.User,
		"token":   result.Token,
	})
}

// HandleLogin signs a local account in; a guest cart on the session is merged
// into the account cart.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req services.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	result, err := h.authService.Login(c.UserContext(), req)
	if err != nil {
		if handled, resp := validationFailed(c, err); handled {
			return resp
		}
		log.Printf("Error during login for %s: %v", req.Email, err)
		switch {
		case errors.Is(err, identity.ErrInvalidCredentials):
			return respond(c, fiber.StatusUnauthorized, fiber.Map{
				"message": "Authentication failed",
				"error":   codeInvalidCredentials,
			})
		case errors.Is(err, services.ErrLocalAuthDisabled):
			return respond(c, fiber.StatusNotFound, fiber.Map{
				"message": "Local sign-in is disabled",
				"error":   codeLocalAuthDisabled,
			})
		}
		return serverError(c, "Could not sign in", err)
	}

	middleware.SessionFrom(c).Resolve(c.UserContext(), result.User)
	return respond(c, fiber.StatusOK, fiber.Map{
		"message": "Login successful",
		"user":    result.User,
		"token":   result.Token,
	})
}

// HandleLogout ends the remote session and settles the browser session to guest.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	if err := h.authService.Logout(c.UserContext(), middleware.SessionFrom(c)); err != nil {
		return respond(c, fiber.StatusBadGateway, fiber.Map{
			"message": "Logout failed",
			"error":   codeLogoutFailed,
		})
	}
	return respond(c, fiber.StatusOK, fiber.Map{
		"message":  "Logged out",
		"redirect": services.HomePath,
	})
}
