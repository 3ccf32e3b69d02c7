package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound общий корень для всех "не найдено"
var ErrNotFound = errors.New("not found")

var (
	// Ошибки бизнес-логики для обработки в handlers
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)
	ErrFarmerNotFound  = fmt.Errorf("farmer %w", ErrNotFound)
	ErrProductNotFound = fmt.Errorf("product %w", ErrNotFound)
	ErrOrderNotFound   = fmt.Errorf("order %w", ErrNotFound)
	ErrReviewNotFound  = fmt.Errorf("review %w", ErrNotFound)
	ErrMessageNotFound = fmt.Errorf("message %w", ErrNotFound)

	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrProductUnavailable      = errors.New("product is not available for ordering")
	ErrProductNotFromFarmer    = errors.New("product does not belong to the farmer")
	ErrInvalidQuantity         = errors.New("quantity must be at least 1")
	ErrEmptyOrder              = errors.New("order has no items")
	ErrInvalidPrice            = errors.New("price must be positive with at most 2 decimal places")
	ErrOrderNotCancellable     = errors.New("order cannot be cancelled in its current status")

	ErrIneligibleReviewer = errors.New("reviewer is not eligible to review this order")
	ErrInvalidRating      = errors.New("rating must be between 1 and 5")

	ErrAlreadyModerated     = errors.New("already moderated")
	ErrAlreadyApproved      = errors.New("already approved")
	ErrCannotRejectApproved = errors.New("cannot reject an approved review")
	ErrInvalidModeration    = errors.New("invalid moderation action")

	ErrInvariantViolation  = errors.New("invariant violation")
	ErrInvalidParticipants = errors.New("messages are allowed only between a buyer and a farmer")
	ErrForbidden           = errors.New("forbidden")

	// ErrStore инфраструктурная ошибка хранилища, операцию можно повторить
	ErrStore = errors.New("storage failure")
)

// domainErrors ошибки, которые возвращаются вызывающему как есть
var domainErrors = []error{
	ErrNotFound,
	ErrInvalidStatusTransition,
	ErrInsufficientStock,
	ErrProductUnavailable,
	ErrProductNotFromFarmer,
	ErrInvalidQuantity,
	ErrEmptyOrder,
	ErrInvalidPrice,
	ErrOrderNotCancellable,
	ErrIneligibleReviewer,
	ErrInvalidRating,
	ErrAlreadyModerated,
	ErrAlreadyApproved,
	ErrCannotRejectApproved,
	ErrInvalidModeration,
	ErrInvariantViolation,
	ErrInvalidParticipants,
	ErrForbidden,
	ErrStore,
}

// ItemError ошибка конкретной позиции заказа
type ItemError struct {
	ProductID uuid.UUID
	Err       error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("product %s: %v", e.ProductID, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// StoreError ошибка хранилища с именем операции
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is позволяет проверять errors.Is(err, ErrStore)
func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

// storeErr оборачивает ошибку хранилища, бизнес-ошибки пропускает без изменений
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, domain := range domainErrors {
		if errors.Is(err, domain) {
			return err
		}
	}
	return &StoreError{Op: op, Err: err}
}
