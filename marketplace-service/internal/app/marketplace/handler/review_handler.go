package handler

import (
	"net/http"

	"farmmarket/marketplace-service/internal/app/marketplace/entity"
	"farmmarket/marketplace-service/internal/app/marketplace/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ReviewHandler обрабатывает HTTP запросы для отзывов и их модерации
type ReviewHandler struct {
	reviewService service.ReviewServiceInterface
	validator     *validator.Validate
}

// NewReviewHandler создает новый обработчик отзывов
func NewReviewHandler(reviewService service.ReviewServiceInterface) *ReviewHandler {
	return &ReviewHandler{
		reviewService: reviewService,
		validator:     validator.New(),
	}
}

// CanReview обрабатывает GET /reviews/eligibility?order_id=&role=
func (h *ReviewHandler) CanReview(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	orderID, err := uuid.Parse(c.Query("order_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid order ID"})
		return
	}
	role := principal.Role
	if r := c.Query("role"); r != "" {
		role = entity.UserRole(r)
	}

	canReview, err := h.reviewService.CanReview(c.Request.Context(), orderID, principal.UserID, role)
	if err != nil {
		respondError(c, err, "Failed to check review eligibility")
		return
	}

	c.JSON(http.StatusOK, entity.ReviewEligibility{
		OrderID:   orderID,
		Role:      role,
		CanReview: canReview,
	})
}

// CreateReview обрабатывает POST /reviews
// Отзыв создается на модерации и не виден публично до одобрения
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req entity.CreateReviewRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}

	review, err := h.reviewService.CreateReview(c.Request.Context(), principal, &req)
	if err != nil {
		respondError(c, err, "Failed to create review")
		return
	}

	c.JSON(http.StatusCreated, review)
}

// GetReview обрабатывает GET /reviews/:id
func (h *ReviewHandler) GetReview(c *gin.Context) {
	reviewID, ok := uuidParam(c, "id", "Invalid review ID")
	if !ok {
		return
	}

	review, err := h.reviewService.GetReview(c.Request.Context(), viewerFrom(c), reviewID)
	if err != nil {
		respondError(c, err, "Failed to get review")
		return
	}

	c.JSON(http.StatusOK, review)
}

// UpdateReview обрабатывает PUT /reviews/:id
func (h *ReviewHandler) UpdateReview(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	reviewID, ok := uuidParam(c, "id", "Invalid review ID")
	if !ok {
		return
	}

	var req entity.UpdateReviewRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}

	review, err := h.reviewService.UpdateReview(c.Request.Context(), principal, reviewID, &req)
	if err != nil {
		respondError(c, err, "Failed to update review")
		return
	}

	c.JSON(http.StatusOK, review)
}

// DeleteReview обрабатывает DELETE /reviews/:id
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	reviewID, ok := uuidParam(c, "id", "Invalid review ID")
	if !ok {
		return
	}

	if err := h.reviewService.DeleteReview(c.Request.Context(), principal, reviewID); err != nil {
		respondError(c, err, "Failed to delete review")
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{Message: "Review deleted successfully"})
}

// ListFarmerReviews обрабатывает GET /farmers/:id/reviews
// Аноним видит только одобренные отзывы
func (h *ReviewHandler) ListFarmerReviews(c *gin.Context) {
	farmerID, ok := uuidParam(c, "id", "Invalid farmer ID")
	if !ok {
		return
	}
	limit, offset := pagination(c, 20)

	reviews, err := h.reviewService.ListFarmerReviews(c.Request.Context(), viewerFrom(c), farmerID, limit, offset)
	if err != nil {
		respondError(c, err, "Failed to list reviews")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reviews": reviews,
		"total":   len(reviews),
	})
}

// ListPending обрабатывает GET /admin/reviews/pending
func (h *ReviewHandler) ListPending(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	limit, offset := pagination(c, 50)

	reviews, err := h.reviewService.ListPending(c.Request.Context(), principal, limit, offset)
	if err != nil {
		respondError(c, err, "Failed to list pending reviews")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reviews": reviews,
		"total":   len(reviews),
	})
}

// Moderate обрабатывает POST /admin/reviews/:id/moderate
func (h *ReviewHandler) Moderate(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	reviewID, ok := uuidParam(c, "id", "Invalid review ID")
	if !ok {
		return
	}

	var req entity.ModerateReviewRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}

	review, err := h.reviewService.Moderate(c.Request.Context(), principal, reviewID, req.Action)
	if err != nil {
		respondError(c, err, "Failed to moderate review")
		return
	}

	c.JSON(http.StatusOK, review)
}
