package handler

import (
	"net/http"

	"farmmarket/marketplace-service/internal/app/marketplace/service"

	"github.com/gin-gonic/gin"
)

// FarmerHandler рейтинг и товары фермера
type FarmerHandler struct {
	ratingService  service.RatingServiceInterface
	productService service.ProductServiceInterface
}

// NewFarmerHandler создает обработчик фермерских эндпоинтов
func NewFarmerHandler(ratingService service.RatingServiceInterface, productService service.ProductServiceInterface) *FarmerHandler {
	return &FarmerHandler{
		ratingService:  ratingService,
		productService: productService,
	}
}

// GetRating обрабатывает GET /farmers/:id/rating
func (h *FarmerHandler) GetRating(c *gin.Context) {
	farmerID, ok := uuidParam(c, "id", "Invalid farmer ID")
	if !ok {
		return
	}

	rating, err := h.ratingService.GetFarmerRating(c.Request.Context(), farmerID)
	if err != nil {
		respondError(c, err, "Failed to get farmer rating")
		return
	}

	c.JSON(http.StatusOK, rating)
}

// ListProducts обрабатывает GET /farmers/:id/products
func (h *FarmerHandler) ListProducts(c *gin.Context) {
	farmerID, ok := uuidParam(c, "id", "Invalid farmer ID")
	if !ok {
		return
	}

	products, err := h.productService.ListFarmerProducts(c.Request.Context(), farmerID)
	if err != nil {
		respondError(c, err, "Failed to list products")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"total":    len(products),
	})
}

// RecomputeRating обрабатывает POST /admin/farmers/:user_id/rating
// Ручной пересчет по пользователю-владельцу фермы
func (h *FarmerHandler) RecomputeRating(c *gin.Context) {
	userID, ok := uuidParam(c, "user_id", "Invalid user ID")
	if !ok {
		return
	}

	rating, err := h.ratingService.RecomputeRating(c.Request.Context(), userID, service.TriggerReconcile)
	if err != nil {
		respondError(c, err, "Failed to recompute rating")
		return
	}

	c.JSON(http.StatusOK, rating)
}

// Reconcile обрабатывает POST /admin/ratings/reconcile
func (h *FarmerHandler) Reconcile(c *gin.Context) {
	processed, err := h.ratingService.ReconcileAll(c.Request.Context())
	if err != nil {
		respondError(c, err, "Rating reconciliation finished with errors")
		return
	}

	c.JSON(http.StatusOK, gin.H{"processed": processed})
}
