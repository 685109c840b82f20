package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/linemk/marketplace/internal/clients/courier"
	"github.com/linemk/marketplace/internal/domain/models"
	"github.com/linemk/marketplace/internal/storage"
	"github.com/shopspring/decimal"
)

// RateQuoter — запрос тарифов курьерских служб
type RateQuoter interface {
	Serviceability(ctx context.Context, req courier.RateRequest) ([]courier.Option, error)
}

type CheckoutService interface {
	// Checkout превращает корзину пользователя в заказ с одной посылкой на продавца
	Checkout(ctx context.Context, userID, addressID int64) (*models.Order, error)
	// BuyNow оформляет заказ на один вариант, минуя корзину
	BuyNow(ctx context.Context, userID int64, in BuyNowInput) (*models.Order, error)
}

type BuyNowInput struct {
	VariantID int64
	Quantity  int
	AddressID int64
}

type checkoutService struct {
	log         *slog.Logger
	db          *sql.DB
	cartRepo    storage.CartStorage
	addressRepo storage.AddressStorage
	vendorRepo  storage.VendorStorage
	productRepo storage.ProductStorage
	orderRepo   storage.OrderStorage
	shipRepo    storage.ShipmentStorage
	quoter      RateQuoter
	notifier    *notifier
}

func NewCheckoutService(
	log *slog.Logger,
	db *sql.DB,
	cartRepo storage.CartStorage,
	addressRepo storage.AddressStorage,
	vendorRepo storage.VendorStorage,
	productRepo storage.ProductStorage,
	orderRepo storage.OrderStorage,
	shipRepo storage.ShipmentStorage,
	outboxRepo storage.OutboxStorage,
	quoter RateQuoter,
) CheckoutService {
	return &checkoutService{
		log:         log,
		db:          db,
		cartRepo:    cartRepo,
		addressRepo: addressRepo,
		vendorRepo:  vendorRepo,
		productRepo: productRepo,
		orderRepo:   orderRepo,
		shipRepo:    shipRepo,
		quoter:      quoter,
		notifier:    &notifier{log: log, outbox: outboxRepo},
	}
}

// NewOrderReference генерирует ссылку вида ORD-XXXXXXXXXXXX
func NewOrderReference() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORD-" + strings.ToUpper(id[:12])
}

// Checkout оформляет корзину целиком в одной транзакции.
// Любая ошибка откатывает всё: заказ, списание остатков и очистку корзины.
func (s *checkoutService) Checkout(ctx context.Context, userID, addressID int64) (*models.Order, error) {
	const op = "service.CheckoutService.Checkout"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("addressID", addressID))
	logger.Info("starting checkout transaction")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	// строки корзины и варианты блокируются до коммита, чтобы остаток не ушёл параллельному заказу
	lines, err := s.cartRepo.LockLinesTx(ctx, tx, userID)
	if err != nil {
		rollback(tx, logger)
		logger.Error("failed to lock cart", slog.Any("error", err))
		if errors.Is(err, storage.ErrResourceLocked) {
			return nil, fmt.Errorf("%s: %w", op, ErrResourceBusy)
		}
		return nil, fmt.Errorf("%s: failed to lock cart: %w", op, err)
	}
	if len(lines) == 0 {
		rollback(tx, logger)
		logger.Warn("cart is empty")
		return nil, fmt.Errorf("%s: %w", op, ErrCartEmpty)
	}
	for _, l := range lines {
		if !l.OnSale() {
			rollback(tx, logger)
			logger.Warn("cart line is no longer on sale", slog.Int64("variantID", l.VariantID))
			return nil, fmt.Errorf("%s: variant %d: %w", op, l.VariantID, ErrInvalidVariant)
		}
		if l.Quantity > l.Stock {
			rollback(tx, logger)
			logger.Warn("insufficient stock", slog.Int64("variantID", l.VariantID),
				slog.Int("quantity", l.Quantity), slog.Int("stock", l.Stock))
			return nil, fmt.Errorf("%s: variant %d: %w", op, l.VariantID, ErrOutOfStock)
		}
	}

	address, err := s.addressRepo.GetAddress(ctx, userID, addressID)
	if err != nil {
		rollback(tx, logger)
		if errors.Is(err, storage.ErrAddressNotFound) {
			logger.Warn("address not found")
			return nil, fmt.Errorf("%s: %w", op, ErrAddressNotFound)
		}
		logger.Error("failed to get address", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get address: %w", op, err)
	}

	groups := GroupByVendor(lines)
	itemsTotal := decimal.Zero
	shippingTotal := decimal.Zero
	shipments := make([]*models.Shipment, 0, len(groups))
	for _, g := range groups {
		shipment, err := s.quoteGroup(ctx, logger, g, address)
		if err != nil {
			rollback(tx, logger)
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		itemsTotal = itemsTotal.Add(g.Subtotal)
		shippingTotal = shippingTotal.Add(shipment.ShippingCharges)
		shipments = append(shipments, shipment)
	}

	order := &models.Order{
		Reference:          NewOrderReference(),
		UserID:             userID,
		AddressID:          address.ID,
		TotalAmount:        itemsTotal.Add(shippingTotal),
		Status:             models.OrderPending,
		CancellationStatus: models.CancellationNone,
	}
	if err := s.orderRepo.CreateOrderTx(ctx, tx, order); err != nil {
		rollback(tx, logger)
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create order: %w", op, err)
	}

	items := make([]*models.OrderItem, 0, len(lines))
	for _, g := range groups {
		for _, l := range g.Lines {
			item := &models.OrderItem{
				OrderID:     order.ID,
				ProductID:   l.ProductID,
				VariantID:   l.VariantID,
				VendorID:    l.VendorID,
				ProductName: l.ProductName,
				SKU:         l.SKU,
				Quantity:    l.Quantity,
				Price:       l.Price,
			}
			if err := s.placeItem(ctx, tx, item); err != nil {
				rollback(tx, logger)
				logger.Error("failed to place order item", slog.Int64("variantID", l.VariantID), slog.Any("error", err))
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			items = append(items, item)
		}
	}

	for _, sh := range shipments {
		sh.OrderID = order.ID
		if err := s.shipRepo.CreateShipmentTx(ctx, tx, sh); err != nil {
			rollback(tx, logger)
			logger.Error("failed to create shipment", slog.Int64("vendorID", sh.VendorID), slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to create shipment: %w", op, err)
		}
	}

	if err := s.cartRepo.ClearTx(ctx, tx, userID); err != nil {
		rollback(tx, logger)
		logger.Error("failed to clear cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to clear cart: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	order.Items = items
	order.Shipments = shipments
	s.notifier.send(ctx, fmt.Sprintf("order:%d:placed", order.ID), orderNotification(EventOrderPlaced, order))

	logger.Info("checkout completed",
		slog.Int64("orderID", order.ID),
		slog.String("reference", order.Reference),
		slog.String("total", order.TotalAmount.String()),
		slog.Int("shipments", len(shipments)),
	)
	return order, nil
}

// quoteGroup подбирает курьера для посылки одного продавца
func (s *checkoutService) quoteGroup(ctx context.Context, logger *slog.Logger, g *VendorGroup, address *models.Address) (*models.Shipment, error) {
	logger = logger.With(slog.Int64("vendorID", g.VendorID))

	vendor, err := s.vendorRepo.GetVendorByID(ctx, g.VendorID)
	if err != nil && !errors.Is(err, storage.ErrVendorNotFound) {
		logger.Error("failed to get vendor", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get vendor %d: %w", g.VendorID, err)
	}
	if vendor == nil || !vendor.HasPickupAddress() {
		logger.Warn("vendor has no pickup address")
		return nil, fmt.Errorf("vendor %d: %w", g.VendorID, ErrVendorAddressMissing)
	}

	opts, err := s.quoter.Serviceability(ctx, courier.RateRequest{
		PickupPincode:   vendor.PickupPin,
		DeliveryPincode: address.Pincode,
		WeightKg:        g.WeightKg,
		LengthCm:        g.LengthCm,
		BreadthCm:       g.BreadthCm,
		HeightCm:        g.HeightCm,
	})
	if err != nil {
		logger.Error("serviceability request failed", slog.Any("error", err))
		return nil, fmt.Errorf("vendor %d: %w", g.VendorID, ErrNotServiceable)
	}
	best, ok := CheapestOption(opts)
	if !ok {
		logger.Warn("no courier serves the route", slog.String("pickup", vendor.PickupPin), slog.String("delivery", address.Pincode))
		return nil, fmt.Errorf("vendor %d: %w", g.VendorID, ErrNotServiceable)
	}

	return &models.Shipment{
		VendorID:        g.VendorID,
		WeightKg:        g.WeightKg,
		LengthCm:        g.LengthCm,
		BreadthCm:       g.BreadthCm,
		HeightCm:        g.HeightCm,
		CourierID:       best.CourierID,
		CourierName:     best.CourierName,
		ShippingCharges: best.TotalCharges,
		TransitDays:     best.TransitDays,
		Status:          models.ShipmentAwaitingPayment,
	}, nil
}

// placeItem списывает остаток и сохраняет позицию заказа
func (s *checkoutService) placeItem(ctx context.Context, tx *sql.Tx, item *models.OrderItem) error {
	if err := s.productRepo.DecrementStockTx(ctx, tx, item.VariantID, item.Quantity); err != nil {
		if errors.Is(err, storage.ErrInsufficientStock) {
			return fmt.Errorf("variant %d: %w", item.VariantID, ErrOutOfStock)
		}
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	if err := s.orderRepo.CreateOrderItemTx(ctx, tx, item); err != nil {
		return fmt.Errorf("failed to create order item: %w", err)
	}
	return nil
}

// BuyNow оформляет один вариант. Посылка создаётся без тарифа: курьер назначается при оформлении отправления.
func (s *checkoutService) BuyNow(ctx context.Context, userID int64, in BuyNowInput) (*models.Order, error) {
	const op = "service.CheckoutService.BuyNow"
	logger := s.log.With(
		slog.String("op", op),
		slog.Int64("userID", userID),
		slog.Int64("variantID", in.VariantID),
		slog.Int("quantity", in.Quantity),
	)
	logger.Info("starting buy-now transaction")

	if in.Quantity <= 0 {
		logger.Warn("invalid quantity")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidQuantity)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	variant, err := s.productRepo.LockVariantTx(ctx, tx, in.VariantID)
	if err != nil {
		rollback(tx, logger)
		switch {
		case errors.Is(err, storage.ErrVariantNotFound):
			logger.Warn("variant not found")
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidVariant)
		case errors.Is(err, storage.ErrResourceLocked):
			return nil, fmt.Errorf("%s: %w", op, ErrResourceBusy)
		}
		logger.Error("failed to lock variant", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to lock variant: %w", op, err)
	}
	if !variant.OnSale() {
		rollback(tx, logger)
		logger.Warn("variant is not on sale")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidVariant)
	}
	if in.Quantity > variant.Stock {
		rollback(tx, logger)
		logger.Warn("insufficient stock", slog.Int("stock", variant.Stock))
		return nil, fmt.Errorf("%s: %w", op, ErrOutOfStock)
	}

	address, err := s.addressRepo.GetAddress(ctx, userID, in.AddressID)
	if err != nil {
		rollback(tx, logger)
		if errors.Is(err, storage.ErrAddressNotFound) {
			logger.Warn("address not found")
			return nil, fmt.Errorf("%s: %w", op, ErrAddressNotFound)
		}
		logger.Error("failed to get address", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get address: %w", op, err)
	}

	item := &models.OrderItem{
		ProductID:   variant.ProductID,
		VariantID:   variant.ID,
		VendorID:    variant.VendorID,
		ProductName: variant.ProductName,
		SKU:         variant.SKU,
		Quantity:    in.Quantity,
		Price:       variant.Price,
	}
	order := &models.Order{
		Reference:          NewOrderReference(),
		UserID:             userID,
		AddressID:          address.ID,
		TotalAmount:        item.Subtotal(),
		Status:             models.OrderPending,
		CancellationStatus: models.CancellationNone,
	}
	if err := s.orderRepo.CreateOrderTx(ctx, tx, order); err != nil {
		rollback(tx, logger)
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create order: %w", op, err)
	}

	item.OrderID = order.ID
	if err := s.placeItem(ctx, tx, item); err != nil {
		rollback(tx, logger)
		logger.Error("failed to place order item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	qty := float64(in.Quantity)
	shipment := &models.Shipment{
		OrderID:         order.ID,
		VendorID:        variant.VendorID,
		WeightKg:        variant.WeightKg * qty,
		LengthCm:        variant.LengthCm,
		BreadthCm:       variant.BreadthCm,
		HeightCm:        variant.HeightCm * qty,
		ShippingCharges: decimal.Zero,
		Status:          models.ShipmentAwaitingPayment,
	}
	if err := s.shipRepo.CreateShipmentTx(ctx, tx, shipment); err != nil {
		rollback(tx, logger)
		logger.Error("failed to create shipment", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create shipment: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	order.Items = []*models.OrderItem{item}
	order.Shipments = []*models.Shipment{shipment}
	s.notifier.send(ctx, fmt.Sprintf("order:%d:placed", order.ID), orderNotification(EventOrderPlaced, order))

	logger.Info("buy-now completed", slog.Int64("orderID", order.ID), slog.String("reference", order.Reference))
	return order, nil
}
