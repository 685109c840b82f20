package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ShipmentStatus — статус отправления одного продавца в рамках заказа
type ShipmentStatus string

const (
	ShipmentAwaitingPayment ShipmentStatus = "awaiting_payment"
	ShipmentPending         ShipmentStatus = "pending"
	ShipmentBooking         ShipmentStatus = "booking"
	ShipmentBooked          ShipmentStatus = "booked"
	ShipmentInTransit       ShipmentStatus = "in_transit"
	ShipmentDelivered       ShipmentStatus = "delivered"
	ShipmentRTO             ShipmentStatus = "rto"
	ShipmentCancelled       ShipmentStatus = "cancelled"
)

// Shipment — одна посылка на пару (заказ, продавец)
type Shipment struct {
	ID                int64           `json:"id"`
	OrderID           int64           `json:"order_id"`
	VendorID          int64           `json:"vendor_id"`
	WeightKg          float64         `json:"weight_kg"`
	LengthCm          float64         `json:"length_cm"`
	BreadthCm         float64         `json:"breadth_cm"`
	HeightCm          float64         `json:"height_cm"`
	CourierID         int64           `json:"courier_id"`
	CourierName       string          `json:"courier_name"`
	ShippingCharges   decimal.Decimal `json:"shipping_charges"`
	TransitDays       int             `json:"transit_days"`
	CourierShipmentID string          `json:"courier_shipment_id,omitempty"`
	AWBNumber         string          `json:"awb_number,omitempty"`
	LabelURL          string          `json:"label_url,omitempty"`
	Status            ShipmentStatus  `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ShipmentBookingInfo — данные, которые курьерская служба вернула при оформлении отправления
type ShipmentBookingInfo struct {
	CourierShipmentID string
	AWBNumber         string
	CourierName       string
	LabelURL          string
}
