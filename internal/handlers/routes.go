package handlers

import (
	"github.com/gofiber/fiber/v2"

	"shopwave/internal/cart"
	"shopwave/internal/metrics"
	"shopwave/internal/middleware"
	"shopwave/internal/services"
)

// Services are the dependencies of the HTTP layer.
type Services struct {
	Auth     *services.AuthService
	Products *services.ProductService
	Profiles *services.ProfileService
	Orders   *services.OrderService
	Sessions *cart.Manager
	Metrics  *metrics.AppMetrics
}

// SetupRoutes mounts every API route under /api/v1.
func SetupRoutes(app *fiber.App, svc Services) {
	apiV1 := app.Group("/api/v1", middleware.Metrics(svc.Metrics), middleware.Identify(svc.Auth, svc.Sessions))

	NewAuthHandler(svc.Auth).RegisterRoutes(apiV1)
	NewProductHandler(svc.Products).RegisterRoutes(apiV1)
	NewCartHandler(svc.Products).RegisterRoutes(apiV1)
	NewOrderHandler(svc.Orders).RegisterRoutes(apiV1)
	NewProfileHandler(svc.Profiles).RegisterRoutes(apiV1)
	NewAdminProductHandler(svc.Products).RegisterRoutes(apiV1)
}
