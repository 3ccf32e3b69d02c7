package handler

import (
	"net/http"
	"strconv"

	"farmmarket/marketplace-service/internal/app/marketplace/entity"
	"farmmarket/marketplace-service/internal/app/marketplace/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// MessageHandler переписка покупателей и фермеров
type MessageHandler struct {
	messageService service.MessageServiceInterface
	validator      *validator.Validate
}

// NewMessageHandler создает обработчик сообщений
func NewMessageHandler(messageService service.MessageServiceInterface) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		validator:      validator.New(),
	}
}

// SendMessage обрабатывает POST /messages
func (h *MessageHandler) SendMessage(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req entity.SendMessageRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}

	message, err := h.messageService.SendMessage(c.Request.Context(), principal, &req)
	if err != nil {
		respondError(c, err, "Failed to send message")
		return
	}

	c.JSON(http.StatusCreated, message)
}

// ListConversation обрабатывает GET /messages?with=<user_id>&limit=
func (h *MessageHandler) ListConversation(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	counterpartyID, err := uuid.Parse(c.Query("with"))
	if err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid counterparty ID"})
		return
	}

	messages, err := h.messageService.ListConversation(c.Request.Context(), principal, counterpartyID, messageLimit(c))
	if err != nil {
		respondError(c, err, "Failed to list messages")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"total":    len(messages),
	})
}

// MarkRead обрабатывает POST /messages/:id/read
func (h *MessageHandler) MarkRead(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	if err := h.messageService.MarkRead(c.Request.Context(), principal, c.Param("id")); err != nil {
		respondError(c, err, "Failed to mark message as read")
		return
	}

	c.JSON(http.StatusOK, entity.SuccessResponse{Message: "Message marked as read"})
}

// ListPending обрабатывает GET /admin/messages/pending
func (h *MessageHandler) ListPending(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	messages, err := h.messageService.ListPending(c.Request.Context(), principal, messageLimit(c))
	if err != nil {
		respondError(c, err, "Failed to list pending messages")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"total":    len(messages),
	})
}

// Moderate обрабатывает POST /admin/messages/:id/moderate
func (h *MessageHandler) Moderate(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}

	var req entity.ModerateMessageRequest
	if !bindAndValidate(c, h.validator, &req) {
		return
	}

	message, err := h.messageService.Moderate(c.Request.Context(), principal, c.Param("id"), req.Flag)
	if err != nil {
		respondError(c, err, "Failed to moderate message")
		return
	}

	c.JSON(http.StatusOK, message)
}

func messageLimit(c *gin.Context) int64 {
	limit, err := strconv.ParseInt(c.Query("limit"), 10, 64)
	if err != nil || limit <= 0 || limit > 100 {
		return 100
	}
	return limit
}
