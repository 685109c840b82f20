package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product — карточка товара продавца, видна покупателям только после одобрения
type Product struct {
	ID              int64        `json:"id"`
	VendorID        int64        `json:"vendor_id"`
	Name            string       `json:"name"`
	Description     string       `json:"description"`
	Status          ReviewStatus `json:"status"`
	RejectionReason string       `json:"rejection_reason,omitempty"`
	Variants        []*Variant   `json:"variants"`
	CreatedAt       time.Time    `json:"created_at"`
}

// Variant — конкретная позиция товара (размер, цвет) со своей ценой, остатком и габаритами
type Variant struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	SKU       string          `json:"sku"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	WeightKg  float64         `json:"weight_kg"`
	LengthCm  float64         `json:"length_cm"`
	BreadthCm float64         `json:"breadth_cm"`
	HeightCm  float64         `json:"height_cm"`
}

// VariantDetails — вариант вместе с данными товара и продавца, нужными для продажи
type VariantDetails struct {
	Variant
	ProductName   string       `json:"product_name"`
	VendorID      int64        `json:"vendor_id"`
	ProductStatus ReviewStatus `json:"product_status"`
	VendorStatus  ReviewStatus `json:"vendor_status"`
}

// OnSale сообщает, можно ли положить вариант в корзину
func (d *VariantDetails) OnSale() bool {
	return d.ProductStatus == ReviewApproved && d.VendorStatus == ReviewApproved
}
