package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus — статус попытки оплаты: created -> success | failed
type PaymentStatus string

const (
	PaymentCreated PaymentStatus = "created"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// Payment — одна попытка оплаты через платёжный шлюз; RawPayload хранит последний вебхук для аудита
type Payment struct {
	ID               int64           `json:"id"`
	OrderID          int64           `json:"order_id"`
	GatewayOrderID   string          `json:"gateway_order_id"`
	GatewayPaymentID string          `json:"gateway_payment_id,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Status           PaymentStatus   `json:"status"`
	RawPayload       []byte          `json:"-"`
	CreatedAt        time.Time       `json:"created_at"`
}
