package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"shopwave/internal/models"
	"shopwave/internal/services"
)

// ProductHandler serves the public catalog.
type ProductHandler struct {
	service *services.ProductService
}

func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{service: service}
}

// RegisterRoutes registers the catalog routes.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleListProducts)
	productRoutes.Get("/search", h.HandleSearchProducts)
	productRoutes.Get("/:id", h.HandleGetProduct)
}

// HandleListProducts lists products; featured, category and condition filter,
// limit caps the result.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	var filter models.ProductFilter
	if raw := c.Query("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			return respond(c, fiber.StatusBadRequest, fiber.Map{"message": "featured must be true or false"})
		}
		filter.Featured = &featured
	}
	filter.Category = c.Query("category")
	if raw := c.Query("condition"); raw != "" {
		filter.Condition = models.Condition(raw)
		if !filter.Condition.Valid() {
			return respond(c, fiber.StatusBadRequest, fiber.Map{"message": "condition must be new or used"})
		}
	}

	products, err := h.service.ListProducts(c.UserContext(), filter, c.QueryInt("limit", 0))
	if err != nil {
		return serverError(c, "Could not retrieve products", err)
	}
	return respond(c, fiber.StatusOK, fiber.Map{"products": products})
}

// HandleSearchProducts answers ?q= with up to 20 products.
func (h *ProductHandler) HandleSearchProducts(c *fiber.Ctx) error {
	products, err := h.service.SearchProducts(c.UserContext(), c.Query("q"))
	if err != nil {
		return serverError(c, "Could not search products", err)
	}
	return respond(c, fiber.StatusOK, fiber.Map{"products": products})
}

func (h *ProductHandler) HandleGetProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	product, err := h.service.GetProduct(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			return respond(c, fiber.StatusNotFound, fiber.Map{
				"message": fmt.Sprintf("Product with ID %s not found", id),
				"error":   codeNotFound,
			})
		}
		return serverError(c, "Could not retrieve product", err)
	}
	return respond(c, fiber.StatusOK, fiber.Map{"product": product})
}
