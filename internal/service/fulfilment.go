package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/linemk/marketplace/internal/clients/courier"
	"github.com/linemk/marketplace/internal/domain/models"
	lredis "github.com/linemk/marketplace/internal/lib/redis"
	"github.com/linemk/marketplace/internal/storage"
	"golang.org/x/sync/errgroup"
)

// ShipmentBooker — оформление и отмена отправлений у курьера
type ShipmentBooker interface {
	CreateShipment(ctx context.Context, req *courier.BookingRequest) (*courier.BookingResult, error)
	CancelShipment(ctx context.Context, shipmentID string) error
}

// Locker — распределённая блокировка; acquired == false, если ключ занят
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, acquired bool, err error)
}

type FulfilmentService interface {
	// BookOrderShipments оформляет у курьера все ожидающие посылки оплаченного заказа
	BookOrderShipments(ctx context.Context, orderID int64) error
	CancelOrder(ctx context.Context, userID, orderID int64) (*models.Order, error)
	UpdateShipmentStatus(ctx context.Context, shipmentID int64, status models.ShipmentStatus) (*models.Shipment, error)
	ListShipments(ctx context.Context, status models.ShipmentStatus) ([]*models.Shipment, error)
}

type FulfilmentConfig struct {
	LockTTL     time.Duration
	Concurrency int
}

type fulfilmentService struct {
	log         *slog.Logger
	db          *sql.DB
	orderRepo   storage.OrderStorage
	shipRepo    storage.ShipmentStorage
	vendorRepo  storage.VendorStorage
	addressRepo storage.AddressStorage
	productRepo storage.ProductStorage
	booker      ShipmentBooker
	locker      Locker
	notifier    *notifier
	cfg         FulfilmentConfig
}

func NewFulfilmentService(
	log *slog.Logger,
	db *sql.DB,
	orderRepo storage.OrderStorage,
	shipRepo storage.ShipmentStorage,
	vendorRepo storage.VendorStorage,
	addressRepo storage.AddressStorage,
	productRepo storage.ProductStorage,
	outboxRepo storage.OutboxStorage,
	booker ShipmentBooker,
	locker Locker,
	cfg FulfilmentConfig,
) FulfilmentService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 30 * time.Second
	}
	return &fulfilmentService{
		log:         log,
		db:          db,
		orderRepo:   orderRepo,
		shipRepo:    shipRepo,
		vendorRepo:  vendorRepo,
		addressRepo: addressRepo,
		productRepo: productRepo,
		booker:      booker,
		locker:      locker,
		notifier:    &notifier{log: log, outbox: outboxRepo},
		cfg:         cfg,
	}
}

// переходы статусов, которые может выполнить склад
var warehouseTransitions = map[models.ShipmentStatus][]models.ShipmentStatus{
	models.ShipmentBooked:    {models.ShipmentInTransit, models.ShipmentCancelled},
	models.ShipmentInTransit: {models.ShipmentDelivered, models.ShipmentRTO},
}

func (s *fulfilmentService) BookOrderShipments(ctx context.Context, orderID int64) error {
	const op = "service.FulfilmentService.BookOrderShipments"
	logger := s.log.With(slog.String("op", op), slog.Int64("orderID", orderID))

	order, err := s.orderRepo.GetOrder(ctx, orderID)
	if err != nil {
		logger.Error("failed to get order", slog.Any("error", err))
		return fmt.Errorf("%s: failed to get order: %w", op, err)
	}
	if order.Status != models.OrderPaid {
		logger.Info("order is not paid, nothing to book", slog.String("status", string(order.Status)))
		return nil
	}

	shipments, err := s.shipRepo.ListShipmentsByOrder(ctx, orderID)
	if err != nil {
		logger.Error("failed to list shipments", slog.Any("error", err))
		return fmt.Errorf("%s: failed to list shipments: %w", op, err)
	}
	var pending []*models.Shipment
	for _, sh := range shipments {
		if sh.Status == models.ShipmentPending {
			pending = append(pending, sh)
		}
	}
	if len(pending) == 0 {
		logger.Info("no pending shipments")
		return nil
	}

	items, err := s.orderRepo.ListOrderItems(ctx, orderID)
	if err != nil {
		logger.Error("failed to list order items", slog.Any("error", err))
		return fmt.Errorf("%s: failed to list order items: %w", op, err)
	}
	address, err := s.addressRepo.GetAddress(ctx, order.UserID, order.AddressID)
	if err != nil {
		logger.Error("failed to get delivery address", slog.Any("error", err))
		return fmt.Errorf("%s: failed to get delivery address: %w", op, err)
	}

	// ошибка одной посылки не прерывает остальные: каждая бронируется независимо
	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for _, sh := range pending {
		sh := sh
		g.Go(func() error {
			return s.bookShipment(ctx, logger, order, address, vendorItems(items, sh.VendorID), sh)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("order shipments booked", slog.Int("count", len(pending)))
	return nil
}

func (s *fulfilmentService) bookShipment(ctx context.Context, logger *slog.Logger, order *models.Order,
	address *models.Address, items []*models.OrderItem, sh *models.Shipment) error {
	logger = logger.With(slog.Int64("shipmentID", sh.ID), slog.Int64("vendorID", sh.VendorID))

	unlock, acquired, err := s.locker.TryLock(ctx, lredis.ShipmentBookingKey(sh.ID), s.cfg.LockTTL)
	if err != nil {
		logger.Error("failed to acquire booking lock", slog.Any("error", err))
		return fmt.Errorf("shipment %d: failed to acquire lock: %w", sh.ID, err)
	}
	if !acquired {
		logger.Info("shipment is being booked by another worker")
		return nil
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("failed to release booking lock", slog.Any("error", err))
		}
	}()

	claimed, err := s.shipRepo.ClaimForBooking(ctx, sh.ID)
	if err != nil {
		logger.Error("failed to claim shipment", slog.Any("error", err))
		return fmt.Errorf("shipment %d: failed to claim: %w", sh.ID, err)
	}
	if !claimed {
		logger.Info("shipment already claimed")
		return nil
	}

	vendor, err := s.vendorRepo.GetVendorByID(ctx, sh.VendorID)
	if err != nil {
		s.releaseClaim(ctx, logger, sh.ID)
		logger.Error("failed to get vendor", slog.Any("error", err))
		return fmt.Errorf("shipment %d: failed to get vendor: %w", sh.ID, err)
	}

	req := BuildBookingRequest(order, address, vendor, items, sh)
	res, err := s.booker.CreateShipment(ctx, req)
	if err != nil {
		s.releaseClaim(ctx, logger, sh.ID)
		logger.Error("courier booking failed", slog.Any("error", err))
		return fmt.Errorf("shipment %d: %w: %v", sh.ID, ErrCourier, err)
	}

	booking := &models.ShipmentBookingInfo{
		CourierShipmentID: res.ShipmentID,
		AWBNumber:         res.AWBNumber,
		CourierName:       res.CourierName,
		LabelURL:          res.LabelURL,
	}
	if err := s.shipRepo.MarkBooked(ctx, sh.ID, booking); err != nil {
		// курьер посылку уже принял; статус не откатываем, чтобы не забронировать её второй раз
		logger.Error("failed to persist booking", slog.String("awb", res.AWBNumber), slog.Any("error", err))
		return fmt.Errorf("shipment %d: failed to persist booking: %w", sh.ID, err)
	}

	s.notifier.send(ctx, fmt.Sprintf("shipment:%d:booked", sh.ID), models.Notification{
		Event:      EventShipmentBooked,
		UserID:     order.UserID,
		OrderID:    order.ID,
		Reference:  order.Reference,
		ShipmentID: sh.ID,
		OccurredAt: time.Now().UTC(),
	})

	logger.Info("shipment booked", slog.String("awb", res.AWBNumber))
	return nil
}

func (s *fulfilmentService) releaseClaim(ctx context.Context, logger *slog.Logger, shipmentID int64) {
	if err := s.shipRepo.ReleaseClaim(context.WithoutCancel(ctx), shipmentID); err != nil {
		logger.Error("failed to release shipment claim", slog.Any("error", err))
	}
}

// CancelOrder отменяет заказ, пока ни одна посылка не ушла к курьеру, и возвращает остатки на склад
func (s *fulfilmentService) CancelOrder(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	const op = "service.FulfilmentService.CancelOrder"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("orderID", orderID))
	logger.Info("starting order cancellation")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	order, err := s.orderRepo.LockOrderTx(ctx, tx, orderID)
	if err != nil {
		rollback(tx, logger)
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrOrderNotFound)
		}
		logger.Error("failed to lock order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to lock order: %w", op, err)
	}
	if order.UserID != userID {
		rollback(tx, logger)
		logger.Warn("order belongs to another user")
		return nil, fmt.Errorf("%s: %w", op, ErrOrderNotFound)
	}
	if order.Status != models.OrderPending && order.Status != models.OrderPaid {
		rollback(tx, logger)
		logger.Warn("order is not cancellable", slog.String("status", string(order.Status)))
		return nil, fmt.Errorf("%s: %w", op, ErrOrderNotCancellable)
	}

	shipments, err := s.shipRepo.LockShipmentsByOrderTx(ctx, tx, orderID)
	if err != nil {
		rollback(tx, logger)
		logger.Error("failed to lock shipments", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to lock shipments: %w", op, err)
	}
	for _, sh := range shipments {
		if sh.Status != models.ShipmentAwaitingPayment && sh.Status != models.ShipmentPending {
			rollback(tx, logger)
			logger.Warn("shipment already handed to courier", slog.Int64("shipmentID", sh.ID), slog.String("status", string(sh.Status)))
			return nil, fmt.Errorf("%s: %w", op, ErrOrderNotCancellable)
		}
	}

	items, err := s.orderRepo.ListOrderItemsTx(ctx, tx, orderID)
	if err != nil {
		rollback(tx, logger)
		logger.Error("failed to list order items", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list order items: %w", op, err)
	}
	for _, it := range items {
		if err := s.productRepo.IncrementStockTx(ctx, tx, it.VariantID, it.Quantity); err != nil {
			rollback(tx, logger)
			logger.Error("failed to restock variant", slog.Int64("variantID", it.VariantID), slog.Any("error", err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := s.shipRepo.CancelShipmentsTx(ctx, tx, orderID); err != nil {
		rollback(tx, logger)
		logger.Error("failed to cancel shipments", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.orderRepo.CancelOrderTx(ctx, tx, orderID); err != nil {
		rollback(tx, logger)
		logger.Error("failed to cancel order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	wasPaid := order.Status == models.OrderPaid
	order.Status = models.OrderCancelled
	order.CancellationStatus = models.CancellationCancelled
	s.notifier.send(ctx, fmt.Sprintf("order:%d:cancelled", order.ID), orderNotification(EventOrderCancelled, order))

	logger.Info("order cancelled", slog.Bool("refundRequired", wasPaid))
	return order, nil
}

func (s *fulfilmentService) UpdateShipmentStatus(ctx context.Context, shipmentID int64, status models.ShipmentStatus) (*models.Shipment, error) {
	const op = "service.FulfilmentService.UpdateShipmentStatus"
	logger := s.log.With(slog.String("op", op), slog.Int64("shipmentID", shipmentID), slog.String("to", string(status)))

	sh, err := s.shipRepo.GetShipment(ctx, shipmentID)
	if err != nil {
		if errors.Is(err, storage.ErrShipmentNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrShipmentNotFound)
		}
		logger.Error("failed to get shipment", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get shipment: %w", op, err)
	}
	logger = logger.With(slog.String("from", string(sh.Status)))

	if !slices.Contains(warehouseTransitions[sh.Status], status) {
		logger.Warn("status transition is not allowed")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidStatusTransition)
	}

	// отмену у курьера делаем до смены статуса: при ошибке посылка остаётся booked
	if status == models.ShipmentCancelled && sh.CourierShipmentID != "" {
		if err := s.booker.CancelShipment(ctx, sh.CourierShipmentID); err != nil {
			logger.Error("courier cancellation failed", slog.Any("error", err))
			return nil, fmt.Errorf("%s: %w: %v", op, ErrCourier, err)
		}
	}

	if err := s.shipRepo.UpdateStatus(ctx, sh.ID, sh.Status, status); err != nil {
		if errors.Is(err, storage.ErrStatusChanged) {
			logger.Warn("shipment status changed concurrently")
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidStatusTransition)
		}
		logger.Error("failed to update shipment status", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	sh.Status = status

	if status == models.ShipmentDelivered {
		completed, err := s.orderRepo.CompleteIfDelivered(ctx, sh.OrderID)
		if err != nil {
			// статус посылки уже сохранён; заказ завершится при следующей доставке
			logger.Error("failed to complete order", slog.Any("error", err))
		} else if completed {
			logger.Info("order completed", slog.Int64("orderID", sh.OrderID))
		}
	}

	if order, err := s.orderRepo.GetOrder(ctx, sh.OrderID); err == nil {
		s.notifier.send(ctx, fmt.Sprintf("shipment:%d:%s", sh.ID, status), models.Notification{
			Event:      EventShipmentUpdated,
			UserID:     order.UserID,
			OrderID:    order.ID,
			Reference:  order.Reference,
			ShipmentID: sh.ID,
			OccurredAt: time.Now().UTC(),
		})
	} else {
		logger.Warn("failed to load order for notification", slog.Any("error", err))
	}

	logger.Info("shipment status updated")
	return sh, nil
}

var knownShipmentStatuses = []models.ShipmentStatus{
	models.ShipmentAwaitingPayment,
	models.ShipmentPending,
	models.ShipmentBooking,
	models.ShipmentBooked,
	models.ShipmentInTransit,
	models.ShipmentDelivered,
	models.ShipmentRTO,
	models.ShipmentCancelled,
}

// ListShipments — список для складской панели; без фильтра показываются оформленные посылки
func (s *fulfilmentService) ListShipments(ctx context.Context, status models.ShipmentStatus) ([]*models.Shipment, error) {
	const op = "service.FulfilmentService.ListShipments"

	if status == "" {
		status = models.ShipmentBooked
	}
	if !slices.Contains(knownShipmentStatuses, status) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidStatus)
	}

	shipments, err := s.shipRepo.ListShipmentsByStatus(ctx, status)
	if err != nil {
		s.log.Error("failed to list shipments", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if shipments == nil {
		shipments = []*models.Shipment{}
	}
	return shipments, nil
}
