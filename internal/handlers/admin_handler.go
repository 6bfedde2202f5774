package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"shopwave/internal/middleware"
	"shopwave/internal/services"
)

// AdminProductHandler serves the product admin workflow.
type AdminProductHandler struct {
	service *services.ProductService
}

func NewAdminProductHandler(service *services.ProductService) *AdminProductHandler {
	return &AdminProductHandler{service: service}
}

// RegisterRoutes registers the admin product routes behind the auth and admin guards.
func (h *AdminProductHandler) RegisterRoutes(router fiber.Router) {
	adminRoutes := router.Group("/admin/products", middleware.AuthRequired(), middleware.AdminRequired())
	adminRoutes.Get("/", h.HandleListProducts)
	adminRoutes.Post("/", h.HandleCreateProduct)
	adminRoutes.Get("/:id", h.HandleGetProduct)
	adminRoutes.Put("/:id", h.HandleUpdateProduct)
	adminRoutes.Patch("/:id", h.HandlePatchProduct)
	adminRoutes.Delete("/:id", h.HandleDeleteProduct)
}

func (h *AdminProductHandler) HandleListProducts(c *fiber.Ctx) error {
	products, err := h.service.ListAllProducts(c.UserContext())
	if err != nil {
		return serverError(c, "Could not retrieve products", err)
	}
	return respond(c, fiber.StatusOK, fiber.Map{"products": products})
}

func (h *AdminProductHandler) HandleGetProduct(c *fiber.Ctx) error {
	product, err := h.service.GetProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.writeFailed(c, err)
	}
	return respond(c, fiber.StatusOK, fiber.Map{"product": product})
}

func (h *AdminProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var form services.ProductForm
	if err := c.BodyParser(&form); err != nil {
		return badBody(c, err)
	}
	product, err := h.service.CreateProduct(c.UserContext(), form, middleware.SessionFrom(c).Inbox)
	if err != nil {
		return h.writeFailed(c, err)
	}
	return respond(c, fiber.StatusCreated, fiber.Map{
		"message":  "Product created successfully",
		"product":  product,
		"redirect": services.AdminProductsPath,
	})
}

// HandleUpdateProduct replaces the product with the full form.
func (h *AdminProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var form services.ProductForm
	if err := c.BodyParser(&form); err != nil {
		return badBody(c, err)
	}
	product, err := h.service.UpdateProduct(c.UserContext(), c.Params("id"), form, middleware.SessionFrom(c).Inbox)
	if err != nil {
		return h.writeFailed(c, err)
	}
	return respond(c, fiber.StatusOK, fiber.Map{
		"message":  "Product updated successfully",
		"product":  product,
		"redirect": services.AdminProductsPath,
	})
}

// HandlePatchProduct writes only the fields present in the body.
func (h *AdminProductHandler) HandlePatchProduct(c *fiber.Ctx) error {
	var patch services.ProductPatch
	if err := c.BodyParser(&patch); err != nil {
		return badBody(c, err)
	}
	product, err := h.service.PatchProduct(c.UserContext(), c.Params("id"), patch, middleware.SessionFrom(c).Inbox)
	if err != nil {
		return h.writeFailed(c, err)
	}
	return respond(c, fiber.StatusOK, fiber.Map{
		"message":  "Product updated successfully",
		"product":  product,
		"redirect": services.AdminProductsPath,
	})
}

// HandleDeleteProduct deletes only with ?confirm=true; otherwise it answers 428
// with the confirmation prompt and writes nothing.
func (h *AdminProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	id := c.Params("id")
	if c.QueryBool("confirm", false) {
		if err := h.service.DeleteProduct(c.UserContext(), id, middleware.SessionFrom(c).Inbox); err != nil {
			return h.writeFailed(c, err)
		}
		return respond(c, fiber.StatusOK, fiber.Map{
			"message":  "Product deleted successfully",
			"redirect": services.AdminProductsPath,
		})
	}

	product, err := h.service.GetProduct(c.UserContext(), id)
	if err != nil {
		return h.writeFailed(c, err)
	}
	return respond(c, fiber.StatusPreconditionRequired, fiber.Map{
		"message": fmt.Sprintf("Are you sure you want to delete %q? This action cannot be undone.", product.Name),
		"confirm": c.Path() + "?confirm=true",
	})
}

func (h *AdminProductHandler) writeFailed(c *fiber.Ctx, err error) error {
	if handled, resp := validationFailed(c, err); handled {
		return resp
	}
	if errors.Is(err, services.ErrProductNotFound) {
		return respond(c, fiber.StatusNotFound, fiber.Map{
			"message": fmt.Sprintf("Product with ID %s not found", c.Params("id")),
			"error":   codeNotFound,
		})
	}
	return serverError(c, "Could not save the product", err)
}
