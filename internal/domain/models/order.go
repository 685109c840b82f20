package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus — жизненный цикл заказа
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// CancellationStatus хранится отдельно от статуса заказа
type CancellationStatus string

const (
	CancellationNone      CancellationStatus = "none"
	CancellationCancelled CancellationStatus = "cancelled"
)

// Order представляет заказ покупателя; Items и Shipments заполняются только при детальном чтении
type Order struct {
	ID                 int64              `json:"id"`
	Reference          string             `json:"reference"`
	UserID             int64              `json:"user_id"`
	CompanyID          *int64             `json:"company_id,omitempty"`
	AddressID          int64              `json:"address_id"`
	TotalAmount        decimal.Decimal    `json:"total_amount"`
	Status             OrderStatus        `json:"status"`
	CancellationStatus CancellationStatus `json:"cancellation_status"`
	CreatedAt          time.Time          `json:"created_at"`
	Items              []*OrderItem       `json:"items,omitempty"`
	Shipments          []*Shipment        `json:"shipments,omitempty"`
}

// OrderItem — неизменяемый снимок позиции на момент покупки
type OrderItem struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	ProductID   int64           `json:"product_id"`
	VariantID   int64           `json:"variant_id"`
	VendorID    int64           `json:"vendor_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// Subtotal возвращает стоимость позиции
func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
