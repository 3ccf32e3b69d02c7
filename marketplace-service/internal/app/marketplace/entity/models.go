package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UserRole роль пользователя, выдается Auth Service и приходит в JWT
type UserRole string

const (
	RoleBuyer  UserRole = "BUYER"
	RoleFarmer UserRole = "FARMER"
	RoleAdmin  UserRole = "ADMIN" // Модератор контента
)

// User представляет пользователя маркетплейса (только чтение, владелец - Auth Service)
type User struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Email     string    `json:"email" gorm:"type:varchar(255);not null"`
	Name      string    `json:"name" gorm:"type:varchar(255)"`
	Role      UserRole  `json:"role" gorm:"type:varchar(20);not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName указывает имя таблицы для GORM
func (User) TableName() string {
	return "users"
}

// Farmer профиль фермера
// Rating и ReviewCount - производный агрегат, пересчитывается только через RatingService
type Farmer struct {
	ID          uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID       `json:"user_id" gorm:"type:uuid;not null;uniqueIndex"` // Пользователь-владелец фермы
	FarmName    string          `json:"farm_name" gorm:"type:varchar(255);not null"`
	Rating      decimal.Decimal `json:"rating" gorm:"type:decimal(2,1);not null;default:0"`
	ReviewCount int             `json:"review_count" gorm:"not null;default:0"`
	CreatedAt   time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName указывает имя таблицы для GORM
func (Farmer) TableName() string {
	return "farmers"
}

// ProductStatus статус товара, переходы задает фермер или администратор
type ProductStatus string

const (
	ProductStatusDraft     ProductStatus = "DRAFT"
	ProductStatusPublished ProductStatus = "PUBLISHED"
	ProductStatusInactive  ProductStatus = "INACTIVE"
)

// Product представляет товар фермера
type Product struct {
	ID          uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	FarmerID    uuid.UUID       `json:"farmer_id" gorm:"type:uuid;not null;index"`
	Name        string          `json:"name" gorm:"type:varchar(200);not null"`
	Description string          `json:"description" gorm:"type:text"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Stock       int             `json:"stock" gorm:"not null;default:0;check:stock >= 0"` // Никогда не отрицательный
	Status      ProductStatus   `json:"status" gorm:"type:varchar(20);not null;default:'DRAFT'"`
	CreatedAt   time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt   gorm.DeletedAt  `json:"-" gorm:"index"`
}

// TableName указывает имя таблицы для GORM
func (Product) TableName() string {
	return "products"
}

// IsOrderable проверяет что товар можно заказать (опубликован и не удален)
func (p *Product) IsOrderable() bool {
	return p.Status == ProductStatusPublished && !p.DeletedAt.Valid
}

// OrderStatus представляет статусы заказа
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"   // Ожидает подтверждения фермером
	OrderStatusAccepted  OrderStatus = "ACCEPTED"  // Принят фермером
	OrderStatusCompleted OrderStatus = "COMPLETED" // Выполнен (финальный)
	OrderStatusCancelled OrderStatus = "CANCELLED" // Отменен (финальный)
)

// Order представляет заказ покупателя у одного фермера
type Order struct {
	ID              uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	BuyerID         uuid.UUID       `json:"buyer_id" gorm:"type:uuid;not null;index"`
	FarmerID        uuid.UUID       `json:"farmer_id" gorm:"type:uuid;not null;index"`
	TotalAmount     decimal.Decimal `json:"total_amount" gorm:"type:decimal(12,2);not null"` // Сумма subtotal всех позиций
	Status          OrderStatus     `json:"status" gorm:"type:varchar(20);not null;default:'PENDING'"`
	DeliveryAddress string          `json:"delivery_address" gorm:"type:text;not null"`
	Notes           *string         `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt       time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
	Items           []OrderItem     `json:"items,omitempty" gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName указывает имя таблицы для GORM
func (Order) TableName() string {
	return "orders"
}

// OrderItem представляет позицию в заказе
// Price фиксируется при создании заказа и больше не пересчитывается
type OrderItem struct {
	ID        uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID       `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `json:"product_id" gorm:"type:uuid;not null"`
	Quantity  int             `json:"quantity" gorm:"not null;check:quantity > 0"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`     // Цена за единицу на момент заказа
	Subtotal  decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);not null"` // Quantity * Price
}

// TableName указывает имя таблицы для GORM
func (OrderItem) TableName() string {
	return "order_items"
}

// Review отзыв одной стороны заказа о другой
type Review struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	OrderID      uuid.UUID  `json:"order_id" gorm:"type:uuid;not null;uniqueIndex:reviews_order_reviewer_role_idx"`
	ReviewerID   uuid.UUID  `json:"reviewer_id" gorm:"type:uuid;not null;uniqueIndex:reviews_order_reviewer_role_idx"`
	RevieweeID   uuid.UUID  `json:"reviewee_id" gorm:"type:uuid;not null;index"`
	ReviewerRole UserRole   `json:"reviewer_role" gorm:"type:varchar(20);not null;uniqueIndex:reviews_order_reviewer_role_idx"`
	Rating       int        `json:"rating" gorm:"not null;check:rating BETWEEN 1 AND 5"`
	Comment      string     `json:"comment" gorm:"type:text"`
	Approved     bool       `json:"approved" gorm:"not null;default:false"`
	ModeratedBy  *uuid.UUID `json:"moderated_by,omitempty" gorm:"type:uuid"`
	ModeratedAt  *time.Time `json:"moderated_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName указывает имя таблицы для GORM
func (Review) TableName() string {
	return "reviews"
}

// Principal аутентифицированный пользователь, от имени которого вызывается ядро
type Principal struct {
	UserID uuid.UUID
	Role   UserRole
}

// IsModerator проверяет право модерации
func (p Principal) IsModerator() bool {
	return p.Role == RoleAdmin
}
