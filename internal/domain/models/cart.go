package models

import "github.com/shopspring/decimal"

// CartItem — строка корзины пользователя
type CartItem struct {
	ID        int64 `json:"id"`
	UserID    int64 `json:"user_id"`
	ProductID int64 `json:"product_id"`
	VariantID int64 `json:"variant_id"`
	Quantity  int   `json:"quantity"`
}

// CartLine — строка корзины, соединённая с вариантом и продавцом (JOIN)
type CartLine struct {
	CartItemID  int64           `json:"cart_item_id"`
	ProductID   int64           `json:"product_id"`
	VariantID   int64           `json:"variant_id"`
	VendorID    int64           `json:"vendor_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	Quantity    int             `json:"quantity"`
	Stock       int             `json:"stock"`
	Price       decimal.Decimal `json:"price"`
	WeightKg    float64         `json:"weight_kg"`
	LengthCm    float64         `json:"length_cm"`
	BreadthCm   float64         `json:"breadth_cm"`
	HeightCm    float64         `json:"height_cm"`

	ProductStatus ReviewStatus `json:"-"`
	VendorStatus  ReviewStatus `json:"-"`
}

// OnSale сообщает, можно ли ещё купить строку: товар и продавец одобрены
func (l *CartLine) OnSale() bool {
	return l.ProductStatus == ReviewApproved && l.VendorStatus == ReviewApproved
}

// Subtotal возвращает стоимость строки
func (l *CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
