package handler

import (
	"net/http"
	"strconv"

	"farmmarket/marketplace-service/internal/app/marketplace/entity"
	"farmmarket/marketplace-service/internal/app/marketplace/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ProductHandler каталог товаров фермеров
type ProductHandler struct {
	productService service.ProductServiceInterface
	validator      *validator.Validate
}

// NewProductHandler создает обработчик товаров
func NewProductHandler(productService service.ProductServiceInterface) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		validator:      validator.New(),
	}
}

// CreateProduct обрабатывает POST /products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req entity.CreateProductRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), principal, &req)
	if err != nil {
		respondError(c, err, "Failed to create product")
		return
	}

	c.JSON(http.StatusCreated, product)
}

// GetProduct обрабатывает GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	productID, ok := uuidParam(c, "id", "Invalid product ID")
	if !ok {
		return
	}

	product, err := h.productService.GetProduct(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err, "Failed to get product")
		return
	}

	c.JSON(http.StatusOK, product)
}

// Availability обрабатывает GET /products/:id/availability?quantity=
func (h *ProductHandler) Availability(c *gin.Context) {
	productID, ok := uuidParam(c, "id", "Invalid product ID")
	if !ok {
		return
	}
	quantity, err := strconv.Atoi(c.DefaultQuery("quantity", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid quantity"})
		return
	}

	available, err := h.productService.CanFulfill(c.Request.Context(), productID, quantity)
	if err != nil {
		respondError(c, err, "Failed to check availability")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product_id": productID,
		"quantity":   quantity,
		"available":  available,
	})
}

// UpdateProduct обрабатывает PATCH /products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	productID, ok := uuidParam(c, "id", "Invalid product ID")
	if !ok {
		return
	}

	var req entity.UpdateProductRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), principal, productID, &req)
	if err != nil {
		respondError(c, err, "Failed to update product")
		return
	}

	c.JSON(http.StatusOK, product)
}

// DeleteProduct обрабатывает DELETE /products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	productID, ok := uuidParam(c, "id", "Invalid product ID")
	if !ok {
		return
	}

	if err := h.productService.DeleteProduct(c.Request.Context(), principal, productID); err != nil {
		respondError(c, err, "Failed to delete product")
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{Message: "Product deleted successfully"})
}
