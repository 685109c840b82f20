package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/marketplace/internal/domain/models"
	"github.com/linemk/marketplace/internal/storage"
	"github.com/shopspring/decimal"
)

type CartService interface {
	Add(ctx context.Context, userID, variantID int64, quantity int) (*models.CartItem, error)
	// Update задаёт новое количество; quantity <= 0 удаляет строку
	Update(ctx context.Context, userID, itemID int64, quantity int) error
	Remove(ctx context.Context, userID, itemID int64) error
	List(ctx context.Context, userID int64) (*Cart, error)
}

// Cart — корзина с посчитанной суммой товаров (без доставки)
type Cart struct {
	Lines []*models.CartLine `json:"lines"`
	Total decimal.Decimal    `json:"total"`
}

type cartService struct {
	log         *slog.Logger
	cartRepo    storage.CartStorage
	productRepo storage.ProductStorage
}

func NewCartService(log *slog.Logger, cartRepo storage.CartStorage, productRepo storage.ProductStorage) CartService {
	return &cartService{
		log:         log,
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

func (s *cartService) Add(ctx context.Context, userID, variantID int64, quantity int) (*models.CartItem, error) {
	const op = "service.CartService.Add"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("variantID", variantID))

	if quantity <= 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidQuantity)
	}

	variant, err := s.productRepo.GetVariantDetails(ctx, variantID)
	if err != nil {
		if errors.Is(err, storage.ErrVariantNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidVariant)
		}
		logger.Error("failed to get variant", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !variant.OnSale() {
		logger.Warn("variant is not on sale",
			slog.String("productStatus", string(variant.ProductStatus)),
			slog.String("vendorStatus", string(variant.VendorStatus)))
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidVariant)
	}

	item, err := s.cartRepo.UpsertItem(ctx, &models.CartItem{
		UserID:    userID,
		ProductID: variant.ProductID,
		VariantID: variant.ID,
		Quantity:  quantity,
	})
	if err != nil {
		logger.Error("failed to add cart item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("cart item added", slog.Int("quantity", item.Quantity))
	return item, nil
}

func (s *cartService) Update(ctx context.Context, userID, itemID int64, quantity int) error {
	const op = "service.CartService.Update"

	if quantity <= 0 {
		return s.Remove(ctx, userID, itemID)
	}

	if err := s.cartRepo.UpdateQuantity(ctx, userID, itemID, quantity); err != nil {
		if errors.Is(err, storage.ErrCartItemNotFound) {
			return fmt.Errorf("%s: %w", op, ErrCartItemNotFound)
		}
		s.log.Error("failed to update cart item", slog.String("op", op), slog.Int64("itemID", itemID), slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *cartService) Remove(ctx context.Context, userID, itemID int64) error {
	const op = "service.CartService.Remove"

	if err := s.cartRepo.DeleteItem(ctx, userID, itemID); err != nil {
		if errors.Is(err, storage.ErrCartItemNotFound) {
			return fmt.Errorf("%s: %w", op, ErrCartItemNotFound)
		}
		s.log.Error("failed to remove cart item", slog.String("op", op), slog.Int64("itemID", itemID), slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *cartService) List(ctx context.Context, userID int64) (*Cart, error) {
	const op = "service.CartService.List"

	lines, err := s.cartRepo.ListLines(ctx, userID)
	if err != nil {
		s.log.Error("failed to list cart", slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cart := &Cart{Lines: lines, Total: decimal.Zero}
	if cart.Lines == nil {
		cart.Lines = []*models.CartLine{}
	}
	for _, l := range lines {
		cart.Total = cart.Total.Add(l.Subtotal())
	}
	return cart, nil
}
