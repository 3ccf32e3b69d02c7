package handler

import (
	"net/http"

	"farmmarket/marketplace-service/internal/app/marketplace/entity"
	"farmmarket/marketplace-service/internal/app/marketplace/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// OrderHandler обрабатывает HTTP запросы для заказов
type OrderHandler struct {
	orderService service.OrderServiceInterface
	validator    *validator.Validate
}

// NewOrderHandler создает новый обработчик заказов
func NewOrderHandler(orderService service.OrderServiceInterface) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		validator:    validator.New(),
	}
}

// CreateOrder обрабатывает POST /orders
// Цены фиксируются по текущему каталогу, остатки списываются сразу
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req entity.CreateOrderRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), principal.UserID, &req)
	if err != nil {
		respondError(c, err, "Failed to create order")
		return
	}

	c.JSON(http.StatusCreated, order)
}

// GetOrder обрабатывает GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	orderID, ok := uuidParam(c, "id", "Invalid order ID")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), principal, orderID)
	if err != nil {
		respondError(c, err, "Failed to get order")
		return
	}

	c.JSON(http.StatusOK, order)
}

// ListOrders обрабатывает GET /orders?status=&limit=&offset=
func (h *OrderHandler) ListOrders(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	limit, offset := pagination(c, 50)
	filter := entity.OrderFilter{
		Status: entity.OrderStatus(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	}
	if farmerID := c.Query("farmer_id"); farmerID != "" {
		id, err := uuid.Parse(farmerID)
		if err != nil {
			c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid farmer ID"})
			return
		}
		filter.FarmerID = id
	}

	orders, err := h.orderService.ListOrders(c.Request.Context(), principal, filter)
	if err != nil {
		respondError(c, err, "Failed to list orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"total":  len(orders),
	})
}

// UpdateOrderStatus обрабатывает PATCH /orders/:id/status
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	orderID, ok := uuidParam(c, "id", "Invalid order ID")
	if !ok {
		return
	}

	var req entity.UpdateOrderStatusRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(), principal, orderID, req.Status)
	if err != nil {
		respondError(c, err, "Failed to update order status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     order.ID,
		"status": order.Status,
	})
}

// CancelOrder обрабатывает POST /orders/:id/cancel
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	orderID, ok := uuidParam(c, "id", "Invalid order ID")
	if !ok {
		return
	}

	order, err := h.orderService.CancelOrder(c.Request.Context(), principal, orderID)
	if err != nil {
		respondError(c, err, "Failed to cancel order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     order.ID,
		"status": order.Status,
	})
}
