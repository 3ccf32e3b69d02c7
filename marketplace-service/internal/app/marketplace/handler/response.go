package handler

import (
	"errors"
	"net/http"
	"strconv"

	"farmmarket/marketplace-service/internal/app/marketplace/entity"
	"farmmarket/marketplace-service/internal/app/marketplace/service"
	"farmmarket/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// errorStatus HTTP статус для ошибки ядра
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrInvalidStatusTransition),
		errors.Is(err, service.ErrOrderNotCancellable),
		errors.Is(err, service.ErrAlreadyModerated),
		errors.Is(err, service.ErrAlreadyApproved),
		errors.Is(err, service.ErrCannotRejectApproved):
		return http.StatusConflict
	case errors.Is(err, service.ErrIneligibleReviewer):
		return http.StatusForbidden
	case errors.Is(err, service.ErrProductUnavailable),
		errors.Is(err, service.ErrProductNotFromFarmer),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrEmptyOrder),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrInvalidModeration),
		errors.Is(err, service.ErrInvalidParticipants),
		errors.Is(err, service.ErrInvariantViolation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrStore):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError отвечает клиенту по ошибке ядра
// Для серверных ошибок текст не раскрывается, в лог уходит полная ошибка
func respondError(c *gin.Context, err error, fallback string) {
	status := errorStatus(err)

	if status >= http.StatusInternalServerError {
		logger.Ctx(c.Request.Context()).Error().
			Err(err).
			Str("path", c.FullPath()).
			Msg(fallback)
		c.JSON(status, entity.ErrorResponse{Error: fallback})
		return
	}

	response := gin.H{"error": err.Error()}
	var itemErr *service.ItemError
	if errors.As(err, &itemErr) {
		response["product_id"] = itemErr.ProductID
	}
	c.JSON(status, response)
}

// formatValidationError форматирует ошибки валидации
func formatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fieldError := range validationErrors {
			return fieldError.Field() + " is " + fieldError.Tag()
		}
	}
	return "Validation failed"
}

// pagination читает limit и offset из query, некорректные значения заменяются значениями по умолчанию
func pagination(c *gin.Context, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit <= 0 || limit > 100 {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

// bindAndValidate разбирает JSON тело и проверяет теги validate, при ошибке отвечает 400
func bindAndValidate(c *gin.Context, v *validator.Validate, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: "Invalid request body"})
		return false
	}
	if err := v.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: formatValidationError(err)})
		return false
	}
	return true
}

// requirePrincipal пользователь из контекста, иначе 401
func requirePrincipal(c *gin.Context) (entity.Principal, bool) {
	principal, ok := principalFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, entity.ErrorResponse{Error: "Unauthorized"})
		return entity.Principal{}, false
	}
	return principal, true
}

// uuidParam разбирает UUID из пути, иначе 400
func uuidParam(c *gin.Context, name, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, entity.ErrorResponse{Error: message})
		return uuid.Nil, false
	}
	return id, true
}
