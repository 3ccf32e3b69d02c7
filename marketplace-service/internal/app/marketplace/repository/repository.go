package repository

import (
	"context"
	"errors"

	"farmmarket/marketplace-service/internal/app/marketplace/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// Стандартные ошибки репозитория для обработки в service layer
	ErrUserNotFound      = errors.New("user not found")
	ErrFarmerNotFound    = errors.New("farmer not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrReviewNotFound    = errors.New("review not found")
	ErrMessageNotFound   = errors.New("message not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrConflict          = errors.New("record was modified concurrently")
)

// Transactor выполняет функцию в одной транзакции БД
// Репозитории берут транзакцию из контекста, поэтому все вызовы внутри fn атомарны
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
}

type FarmerRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Farmer, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*entity.Farmer, error)
	ListUserIDs(ctx context.Context) ([]uuid.UUID, error)
	UpdateRating(ctx context.Context, userID uuid.UUID, rating decimal.Decimal, count int) error
}

type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error)
	ListByFarmer(ctx context.Context, farmerID uuid.UUID) ([]entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	// AdjustStock атомарно изменяет остаток на delta и возвращает новый остаток
	// Возвращает ErrInsufficientStock если результат был бы отрицательным
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (int, error)
}

type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error)
	// GetByIDForUpdate блокирует строку заказа до конца текущей транзакции
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Order, error)
	GetWithItems(ctx context.Context, id uuid.UUID) (*entity.Order, error)
	List(ctx context.Context, filter entity.OrderFilter) ([]entity.Order, error)
	// UpdateStatus меняет статус только если текущий статус равен from
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.OrderStatus) error
}

type OrderItemRepository interface {
	CreateBatch(ctx context.Context, items []entity.OrderItem) error
	GetByOrderID(ctx context.Context, orderID uuid.UUID) ([]entity.OrderItem, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, review *entity.Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Review, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Review, error)
	Exists(ctx context.Context, orderID, reviewerID uuid.UUID, role entity.UserRole) (bool, error)
	List(ctx context.Context, filter entity.ReviewFilter) ([]entity.Review, error)
	Update(ctx context.Context, review *entity.Review) error
	UpdateModeration(ctx context.Context, review *entity.Review) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ApprovedRatings возвращает оценки всех одобренных отзывов о пользователе от заданной роли
	ApprovedRatings(ctx context.Context, revieweeID uuid.UUID, role entity.UserRole) ([]int, error)
}

type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	GetByID(ctx context.Context, id string) (*entity.Message, error)
	List(ctx context.Context, filter entity.MessageFilter) ([]entity.Message, error)
	// UpdateModeration сохраняет решение модератора, если флаг не менялся с момента чтения
	UpdateModeration(ctx context.Context, message *entity.Message, expected entity.ModerationFlag) error
	MarkRead(ctx context.Context, id string, receiverID uuid.UUID) error
}
