package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"shopwave/internal/cart"
	"shopwave/internal/middleware"
	"shopwave/internal/services"
)

// CartHandler exposes the session cart to guests and signed-in users alike.
type CartHandler struct {
	products *services.ProductService
}

func NewCartHandler(products *services.ProductService) *CartHandler {
	return &CartHandler{products: products}
}

// RegisterRoutes registers the cart routes.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Delete("/", h.HandleClearCart)
	cartRoutes.Post("/items", h.HandleAddItem)
	cartRoutes.Patch("/items/:productId", h.HandleUpdateItem)
	cartRoutes.Delete("/items/:productId", h.HandleRemoveItem)
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// productID copies the path parameter; queued remote writes keep it after the
// request ends.
func productID(c *fiber.Ctx) string {
	return utils.CopyString(c.Params("productId"))
}

func cartView(c *fiber.Ctx, status int, container *cart.Container) error {
	return respond(c, status, fiber.Map{
		"items":   container.Items(),
		"total":   container.Total(),
		"count":   container.ItemCount(),
		"loading": container.Loading(),
	})
}

func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	return cartView(c, fiber.StatusOK, middleware.SessionFrom(c).Cart)
}

// HandleAddItem snapshots the catalog product into the cart.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req addItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if req.ProductID == "" {
		return respond(c, fiber.StatusBadRequest, fiber.Map{"message": "productId is required"})
	}

	product, err := h.products.GetProduct(c.UserContext(), req.ProductID)
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			return respond(c, fiber.StatusNotFound, fiber.Map{
				"message": "Product not found",
				"error":   codeNotFound,
			})
		}
		return serverError(c, "Could not retrieve product", err)
	}

	container := middleware.SessionFrom(c).Cart
	container.AddToCart(*product, req.Quantity)
	return cartView(c, fiber.StatusOK, container)
}

// HandleUpdateItem sets the quantity of a row; zero or less removes it.
func (h *CartHandler) HandleUpdateItem(c *fiber.Ctx) error {
	var req updateItemRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	container := middleware.SessionFrom(c).Cart
	container.UpdateQuantity(productID(c), req.Quantity)
	return cartView(c, fiber.StatusOK, container)
}

func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	container := middleware.SessionFrom(c).Cart
	container.RemoveFromCart(productID(c))
	return cartView(c, fiber.StatusOK, container)
}

func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	container := middleware.SessionFrom(c).Cart
	container.ClearCart()
	return cartView(c, fiber.StatusOK, container)
}
