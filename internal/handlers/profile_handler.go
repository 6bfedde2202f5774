package handlers

import (
	"github.com/gofiber/fiber/v2"

	"shopwave/internal/cart"
	"shopwave/internal/middleware"
	"shopwave/internal/services"
)

var profileLoadFailed = cart.Failure("Error", "Could not load profile data.")

// ProfileHandler serves the signed-in user's profile.
type ProfileHandler struct {
	service *services.ProfileService
}

func NewProfileHandler(service *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{service: service}
}

func (h *ProfileHandler) RegisterRoutes(router fiber.Router) {
	profileRoutes := router.Group("/profile", middleware.AuthRequired())
	profileRoutes.Get("/", h.HandleGetProfile)
	profileRoutes.Put("/", h.HandleUpdateProfile)
}

func (h *ProfileHandler) HandleGetProfile(c *fiber.Ctx) error {
	profile, err := h.service.GetProfile(c.UserContext(), middleware.UserFrom(c))
	if err != nil {
		middleware.SessionFrom(c).Inbox.Notify(profileLoadFailed)
		return serverError(c, "Could not load profile", err)
	}
	return respond(c, fiber.StatusOK, fiber.Map{"profile": profile})
}

func (h *ProfileHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var form services.ProfileForm
	if err := c.BodyParser(&form); err != nil {
		return badBody(c, err)
	}
	profile, err := h.service.UpdateProfile(c.UserContext(), middleware.UserFrom(c), form, middleware.SessionFrom(c).Inbox)
	if err != nil {
		if handled, resp := validationFailed(c, err); handled {
			return resp
		}
		return serverError(c, "Could not save profile", err)
	}
	return respond(c, fiber.StatusOK, fiber.Map{
		"message": "Profile updated successfully",
		"profile": profile,
	})
}
