package service

import (
	"context"
	"errors"

	"farmmarket/marketplace-service/internal/app/marketplace/entity"
	"farmmarket/marketplace-service/internal/app/marketplace/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductService управление товарами фермера
type ProductService struct {
	tx          repository.Transactor
	productRepo repository.ProductRepository
	farmerRepo  repository.FarmerRepository
	ledger      *InventoryLedger
}

func NewProductService(
	tx repository.Transactor,
	productRepo repository.ProductRepository,
	farmerRepo repository.FarmerRepository,
	ledger *InventoryLedger,
) *ProductService {
	return &ProductService{
		tx:          tx,
		productRepo: productRepo,
		farmerRepo:  farmerRepo,
		ledger:      ledger,
	}
}

// validatePrice цена положительная и не более 2 знаков после запятой
func validatePrice(price decimal.Decimal) error {
	if !price.IsPositive() || !price.Equal(price.Truncate(2)) {
		return ErrInvalidPrice
	}
	return nil
}

// CreateProduct создает товар фермера в статусе DRAFT
func (s *ProductService) CreateProduct(ctx context.Context, principal entity.Principal, req *entity.CreateProductRequest) (*entity.Product, error) {
	if err := validatePrice(req.Price); err != nil {
		return nil, err
	}
	if req.Stock < 0 {
		return nil, ErrInvalidQuantity
	}

	farmer, err := s.farmerRepo.GetByUserID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrFarmerNotFound) {
			return nil, ErrFarmerNotFound
		}
		return nil, storeErr("get farmer", err)
	}

	product := &entity.Product{
		ID:          uuid.New(),
		FarmerID:    farmer.ID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Status:      entity.ProductStatusDraft,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, storeErr("create product", err)
	}
	return product, nil
}

// GetProduct получает товар по ID
func (s *ProductService) GetProduct(ctx context.Context, productID uuid.UUID) (*entity.Product, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, storeErr("get product", err)
	}
	return product, nil
}

// ListFarmerProducts товары фермы
func (s *ProductService) ListFarmerProducts(ctx context.Context, farmerID uuid.UUID) ([]entity.Product, error) {
	products, err := s.productRepo.ListByFarmer(ctx, farmerID)
	if err != nil {
		return nil, storeErr("list products", err)
	}
	return products, nil
}

// UpdateProduct меняет поля товара, доступно владельцу и администратору
// Остаток меняется только приращением через InventoryLedger, чтобы не затереть параллельные списания
func (s *ProductService) UpdateProduct(ctx context.Context, principal entity.Principal, productID uuid.UUID, req *entity.UpdateProductRequest) (*entity.Product, error) {
	if req.Price != nil {
		if err := validatePrice(*req.Price); err != nil {
			return nil, err
		}
	}

	var product *entity.Product
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		product, err = s.authorizedProduct(ctx, principal, productID)
		if err != nil {
			return err
		}

		if req.Name != nil {
			product.Name = *req.Name
		}
		if req.Description != nil {
			product.Description = *req.Description
		}
		if req.Price != nil {
			product.Price = *req.Price
		}
		if req.Status != nil {
			product.Status = *req.Status
		}

		if err := s.productRepo.Update(ctx, product); err != nil {
			return storeErr("update product", err)
		}

		if req.StockDelta != nil && *req.StockDelta != 0 {
			stock, err := s.ledger.AdjustStock(ctx, product.ID, *req.StockDelta)
			if err != nil {
				return err
			}
			product.Stock = stock
		}
		return nil
	})
	if err != nil {
		return nil, storeErr("update product", err)
	}

	return product, nil
}

// DeleteProduct мягко удаляет товар, позиции старых заказов на него продолжают ссылаться
func (s *ProductService) DeleteProduct(ctx context.Context, principal entity.Principal, productID uuid.UUID) error {
	if _, err := s.authorizedProduct(ctx, principal, productID); err != nil {
		return err
	}

	if err := s.productRepo.Delete(ctx, productID); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return ErrProductNotFound
		}
		return storeErr("delete product", err)
	}
	return nil
}

// authorizedProduct загружает товар и проверяет, что пользователь владелец или администратор
func (s *ProductService) authorizedProduct(ctx context.Context, principal entity.Principal, productID uuid.UUID) (*entity.Product, error) {
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if principal.IsModerator() {
		return product, nil
	}

	farmer, err := s.farmerRepo.GetByUserID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrFarmerNotFound) {
			return nil, ErrForbidden
		}
		return nil, storeErr("get farmer", err)
	}
	if farmer.ID != product.FarmerID {
		return nil, ErrForbidden
	}
	return product, nil
}

// CanFulfill можно ли сейчас заказать товар в указанном количестве
func (s *ProductService) CanFulfill(ctx context.Context, productID uuid.UUID, quantity int) (bool, error) {
	return s.ledger.CanFulfill(ctx, productID, quantity)
}
