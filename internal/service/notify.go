package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/linemk/marketplace/internal/domain/models"
	"github.com/linemk/marketplace/internal/storage"
)

// события для внешнего отправителя уведомлений
const (
	EventOrderPlaced     = "order.placed"
	EventOrderPaid       = "order.paid"
	EventOrderCancelled  = "order.cancelled"
	EventShipmentBooked  = "shipment.booked"
	EventShipmentUpdated = "shipment.updated"
)

// notificationMessage собирает строку outbox для уведомления
func notificationMessage(dedupKey string, n models.Notification) (*models.OutboxMessage, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	return &models.OutboxMessage{
		Kind:     models.OutboxNotification,
		DedupKey: dedupKey,
		Payload:  payload,
	}, nil
}

func orderNotification(event string, order *models.Order) models.Notification {
	return models.Notification{
		Event:      event,
		UserID:     order.UserID,
		OrderID:    order.ID,
		Reference:  order.Reference,
		Amount:     order.TotalAmount.StringFixed(2),
		OccurredAt: time.Now().UTC(),
	}
}

func bookShipmentsMessage(orderID int64) (*models.OutboxMessage, error) {
	payload, err := json.Marshal(models.BookShipmentsPayload{OrderID: orderID})
	if err != nil {
		return nil, err
	}
	return &models.OutboxMessage{
		Kind:     models.OutboxBookShipments,
		DedupKey: fmt.Sprintf("order:%d:book", orderID),
		Payload:  payload,
	}, nil
}

// notifier ставит уведомления в outbox уже после коммита; ошибки только логируются
type notifier struct {
	log    *slog.Logger
	outbox storage.OutboxStorage
}

func (n *notifier) send(ctx context.Context, dedupKey string, msg models.Notification) {
	logger := n.log.With(slog.String("event", msg.Event), slog.String("dedupKey", dedupKey))

	m, err := notificationMessage(dedupKey, msg)
	if err == nil {
		err = n.outbox.Enqueue(ctx, m)
	}
	if err != nil {
		logger.Error("failed to enqueue notification", slog.Any("error", err))
	}
}

// enqueueNotificationTx ставит уведомление в outbox в рамках уже открытой транзакции
func enqueueNotificationTx(ctx context.Context, tx *sql.Tx, outbox storage.OutboxStorage, dedupKey string, msg models.Notification) error {
	m, err := notificationMessage(dedupKey, msg)
	if err != nil {
		return err
	}
	return outbox.EnqueueTx(ctx, tx, m)
}
