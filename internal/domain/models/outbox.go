package models

import "time"

// OutboxKind определяет обработчик сообщения в воркере
type OutboxKind string

const (
	OutboxBookShipments OutboxKind = "shipment.book"
	OutboxNotification  OutboxKind = "notification"
)

type OutboxStatus string

const (
	OutboxPending OutboxStatus = "pending"
	OutboxDone    OutboxStatus = "done"
	OutboxFailed  OutboxStatus = "failed"
)

// OutboxMessage — отложенный побочный эффект, записанный в той же транзакции, что и изменение данных
type OutboxMessage struct {
	ID          int64        `json:"id"`
	Kind        OutboxKind   `json:"kind"`
	DedupKey    string       `json:"dedup_key"`
	Payload     []byte       `json:"payload"`
	Attempts    int          `json:"attempts"`
	Status      OutboxStatus `json:"status"`
	LastError   string       `json:"last_error,omitempty"`
	AvailableAt time.Time    `json:"available_at"`
	CreatedAt   time.Time    `json:"created_at"`
}

// BookShipmentsPayload — тело сообщения shipment.book
type BookShipmentsPayload struct {
	OrderID int64 `json:"order_id"`
}

// Notification — событие для внешнего отправителя уведомлений (WhatsApp, email)
type Notification struct {
	Event      string    `json:"event"`
	UserID     int64     `json:"user_id"`
	OrderID    int64     `json:"order_id"`
	Reference  string    `json:"reference"`
	Amount     string    `json:"amount,omitempty"`
	ShipmentID int64     `json:"shipment_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
