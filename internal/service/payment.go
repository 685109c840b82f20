package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/marketplace/internal/clients/razorpay"
	"github.com/linemk/marketplace/internal/domain/models"
	"github.com/linemk/marketplace/internal/storage"
	"github.com/shopspring/decimal"
)

// PaymentGateway — создание заказа на стороне платёжного шлюза
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (*razorpay.Order, error)
	KeyID() string
}

type PaymentService interface {
	CreatePayment(ctx context.Context, userID, orderID int64) (*PaymentIntent, error)
	// HandleWebhook проверяет подпись и применяет событие шлюза
	HandleWebhook(ctx context.Context, body []byte, signature string) error
}

// PaymentIntent — всё, что нужно фронтенду, чтобы открыть форму оплаты
type PaymentIntent struct {
	OrderID        int64           `json:"order_id"`
	GatewayOrderID string          `json:"gateway_order_id"`
	Amount         decimal.Decimal `json:"amount"`
	AmountMinor    int64           `json:"amount_minor"`
	Currency       string          `json:"currency"`
	KeyID          string          `json:"key_id"`
}

type paymentService struct {
	log           *slog.Logger
	db            *sql.DB
	orderRepo     storage.OrderStorage
	paymentRepo   storage.PaymentStorage
	shipRepo      storage.ShipmentStorage
	outboxRepo    storage.OutboxStorage
	gateway       PaymentGateway
	webhookSecret string
	currency      string
}

func NewPaymentService(
	log *slog.Logger,
	db *sql.DB,
	orderRepo storage.OrderStorage,
	paymentRepo storage.PaymentStorage,
	shipRepo storage.ShipmentStorage,
	outboxRepo storage.OutboxStorage,
	gateway PaymentGateway,
	webhookSecret, currency string,
) PaymentService {
	return &paymentService{
		log:           log,
		db:            db,
		orderRepo:     orderRepo,
		paymentRepo:   paymentRepo,
		shipRepo:      shipRepo,
		outboxRepo:    outboxRepo,
		gateway:       gateway,
		webhookSecret: webhookSecret,
		currency:      currency,
	}
}

func (s *paymentService) CreatePayment(ctx context.Context, userID, orderID int64) (*PaymentIntent, error) {
	const op = "service.PaymentService.CreatePayment"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("orderID", orderID))

	order, err := s.orderRepo.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrOrderNotFound)
		}
		logger.Error("failed to get order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order: %w", op, err)
	}
	if order.UserID != userID {
		logger.Warn("order belongs to another user")
		return nil, fmt.Errorf("%s: %w", op, ErrOrderNotFound)
	}
	if order.Status != models.OrderPending {
		logger.Warn("order is not payable", slog.String("status", string(order.Status)))
		return nil, fmt.Errorf("%s: %w", op, ErrOrderNotPayable)
	}

	gwOrder, err := s.gateway.CreateOrder(ctx, order.TotalAmount, s.currency, order.Reference)
	if err != nil {
		logger.Error("gateway order creation failed", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, ErrPaymentGateway)
	}

	payment, err := s.paymentRepo.CreatePayment(ctx, &models.Payment{
		OrderID:        order.ID,
		GatewayOrderID: gwOrder.ID,
		Amount:         order.TotalAmount,
		Currency:       s.currency,
		Status:         models.PaymentCreated,
	})
	if err != nil {
		logger.Error("failed to save payment", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to save payment: %w", op, err)
	}

	logger.Info("payment created", slog.String("gatewayOrderID", payment.GatewayOrderID))
	return &PaymentIntent{
		OrderID:        order.ID,
		GatewayOrderID: payment.GatewayOrderID,
		Amount:         payment.Amount,
		AmountMinor:    razorpay.ToMinorUnits(payment.Amount),
		Currency:       payment.Currency,
		KeyID:          s.gateway.KeyID(),
	}, nil
}

func (s *paymentService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	const op = "service.PaymentService.HandleWebhook"
	logger := s.log.With(slog.String("op", op))

	// до проверки подписи в БД не ходим
	if !razorpay.VerifySignature(body, signature, s.webhookSecret) {
		logger.Warn("invalid webhook signature")
		return fmt.Errorf("%s: %w", op, ErrInvalidSignature)
	}

	event, err := razorpay.ParseWebhookEvent(body)
	if err != nil {
		logger.Warn("invalid webhook payload", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, ErrInvalidPayload)
	}

	entity := event.Payload.Payment.Entity
	logger = logger.With(
		slog.String("event", event.Event),
		slog.String("gatewayOrderID", entity.OrderID),
		slog.String("gatewayPaymentID", entity.ID),
	)

	switch event.Event {
	case razorpay.EventPaymentCaptured:
		err = s.capture(ctx, logger, entity, body)
	case razorpay.EventPaymentFailed:
		err = s.fail(ctx, logger, entity, body)
	default:
		logger.Info("ignoring webhook event")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// capture переводит оплату в success, заказ в paid и ставит в outbox бронирование посылок.
// Повторный вебхук по уже успешной оплате ничего не меняет; захват после failed принимается.
func (s *paymentService) capture(ctx context.Context, logger *slog.Logger, entity razorpay.PaymentEntity, raw []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	payment, err := s.paymentRepo.LockByGatewayOrderIDTx(ctx, tx, entity.OrderID)
	if err != nil {
		rollback(tx, logger)
		if errors.Is(err, storage.ErrPaymentNotFound) {
			logger.Warn("payment for webhook not found")
			return nil
		}
		logger.Error("failed to lock payment", slog.Any("error", err))
		return fmt.Errorf("failed to lock payment: %w", err)
	}
	if payment.Status == models.PaymentSuccess {
		rollback(tx, logger)
		logger.Info("payment already captured")
		return nil
	}

	if err := s.paymentRepo.MarkSuccessTx(ctx, tx, payment.ID, entity.ID, raw); err != nil {
		rollback(tx, logger)
		logger.Error("failed to mark payment success", slog.Any("error", err))
		return fmt.Errorf("failed to mark payment success: %w", err)
	}

	order, err := s.orderRepo.LockOrderTx(ctx, tx, payment.OrderID)
	if err != nil {
		rollback(tx, logger)
		logger.Error("failed to lock order", slog.Any("error", err))
		return fmt.Errorf("failed to lock order: %w", err)
	}
	if order.Status != models.OrderPending {
		// деньги списаны, но заказ уже отменён; возврат делается вручную
		if err := tx.Commit(); err != nil {
			logger.Error("failed to commit transaction", slog.Any("error", err))
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		logger.Warn("payment captured for non-pending order", slog.String("orderStatus", string(order.Status)))
		return nil
	}

	if err := s.orderRepo.UpdateOrderStatusTx(ctx, tx, order.ID, models.OrderPending, models.OrderPaid); err != nil {
		rollback(tx, logger)
		logger.Error("failed to mark order paid", slog.Any("error", err))
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	order.Status = models.OrderPaid

	if _, err := s.shipRepo.ActivateAwaitingTx(ctx, tx, order.ID); err != nil {
		rollback(tx, logger)
		logger.Error("failed to activate shipments", slog.Any("error", err))
		return fmt.Errorf("failed to activate shipments: %w", err)
	}

	bookMsg, err := bookShipmentsMessage(order.ID)
	if err == nil {
		err = s.outboxRepo.EnqueueTx(ctx, tx, bookMsg)
	}
	if err == nil {
		err = enqueueNotificationTx(ctx, tx, s.outboxRepo, fmt.Sprintf("order:%d:paid", order.ID),
			orderNotification(EventOrderPaid, order))
	}
	if err != nil {
		rollback(tx, logger)
		logger.Error("failed to enqueue post-payment work", slog.Any("error", err))
		return fmt.Errorf("failed to enqueue post-payment work: %w", err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Info("payment captured", slog.Int64("orderID", order.ID))
	return nil
}

// fail отмечает неуспешную попытку; успешная оплата никогда не понижается
func (s *paymentService) fail(ctx context.Context, logger *slog.Logger, entity razorpay.PaymentEntity, raw []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	payment, err := s.paymentRepo.LockByGatewayOrderIDTx(ctx, tx, entity.OrderID)
	if err != nil {
		rollback(tx, logger)
		if errors.Is(err, storage.ErrPaymentNotFound) {
			logger.Warn("payment for webhook not found")
			return nil
		}
		logger.Error("failed to lock payment", slog.Any("error", err))
		return fmt.Errorf("failed to lock payment: %w", err)
	}
	if payment.Status != models.PaymentCreated {
		rollback(tx, logger)
		logger.Info("payment already final", slog.String("status", string(payment.Status)))
		return nil
	}

	if err := s.paymentRepo.MarkFailedTx(ctx, tx, payment.ID, entity.ID, raw); err != nil {
		rollback(tx, logger)
		logger.Error("failed to mark payment failed", slog.Any("error", err))
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Info("payment failed", slog.Int64("orderID", payment.OrderID), slog.String("reason", entity.ErrorDescription))
	return nil
}
