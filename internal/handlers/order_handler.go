package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"shopwave/internal/middleware"
	"shopwave/internal/services"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service *services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service: service,
	}
}

// RegisterRoutes registers the order routes; all of them need a signed-in user.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders", middleware.AuthRequired())
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Post("/", h.HandleCreateOrder)
}

// HandleGetOrders lists the caller's orders, newest first.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	user := middleware.UserFrom(c)
	orders, err := h.service.ListOrders(c.UserContext(), user.UID)
	if err != nil {
		return serverError(c, "Could not retrieve orders", err)
	}
	return respond(c, fiber.StatusOK, fiber.Map{"orders": orders})
}

// HandleGetOrderByID retrieves one of the caller's orders.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	orderID := c.Params("id")
	order, err := h.service.GetOrder(c.UserContext(), middleware.UserFrom(c).UID, orderID)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			return respond(c, fiber.StatusNotFound, fiber.Map{
				"message": fmt.Sprintf("Order with ID %s not found", orderID),
				"error":   codeNotFound,
			})
		}
		return serverError(c, "Could not retrieve order", err)
	}
	return respond(c, fiber.StatusOK, fiber.Map{"order": order})
}

// HandleCreateOrder checks out the session cart.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req services.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	session := middleware.SessionFrom(c)
	order, err := h.service.Checkout(c.UserContext(), middleware.UserFrom(c), session.Cart, req, session.Inbox)
	if err != nil {
		if handled, resp := validationFailed(c, err); handled {
			return resp
		}
		if errors.Is(err, services.ErrEmptyCart) {
			return respond(c, fiber.StatusBadRequest, fiber.Map{"message": "Your cart is empty"})
		}
		return serverError(c, "Could not create order", err)
	}

	return respond(c, fiber.StatusCreated, fiber.Map{
		"message":  "Order created successfully",
		"order":    order,
		"redirect": services.OrdersPath,
	})
}
