package service

import (
	"fmt"

	"github.com/linemk/marketplace/internal/clients/courier"
	"github.com/linemk/marketplace/internal/domain/models"
	"github.com/shopspring/decimal"
)

const (
	paymentMethodPrepaid = "Prepaid"
	defaultCountry       = "India"
)

// BuildBookingRequest собирает запрос на оформление одного отправления продавца.
// Заказ уже оплачен, поэтому сумма к получению при доставке всегда 0.
func BuildBookingRequest(order *models.Order, delivery *models.Address, vendor *models.Vendor,
	items []*models.OrderItem, shipment *models.Shipment) *courier.BookingRequest {
	declared := decimal.Zero
	lines := make([]courier.Item, 0, len(items))
	for _, it := range items {
		declared = declared.Add(it.Subtotal())
		lines = append(lines, courier.Item{
			Name:  it.ProductName,
			SKU:   it.SKU,
			Units: it.Quantity,
			Price: it.Price,
		})
	}

	return &courier.BookingRequest{
		// у заказа может быть несколько посылок, поэтому ссылка уникальна на продавца
		OrderReference: fmt.Sprintf("%s-%d", order.Reference, shipment.VendorID),
		OrderDate:      order.CreatedAt.Format("2006-01-02 15:04"),
		PaymentMethod:  paymentMethodPrepaid,
		Consignee: courier.Address{
			Name:    delivery.Name,
			Phone:   delivery.Phone,
			Line1:   delivery.Line1,
			Line2:   delivery.Line2,
			City:    delivery.City,
			State:   delivery.State,
			Pincode: delivery.Pincode,
			Country: defaultCountry,
		},
		Pickup: courier.Address{
			Name:    vendor.BusinessName,
			Phone:   vendor.Phone,
			Line1:   vendor.PickupLine1,
			Line2:   vendor.PickupLine2,
			City:    vendor.PickupCity,
			State:   vendor.PickupState,
			Pincode: vendor.PickupPin,
			Country: defaultCountry,
		},
		Package: courier.Package{
			WeightKg:  shipment.WeightKg,
			LengthCm:  shipment.LengthCm,
			BreadthCm: shipment.BreadthCm,
			HeightCm:  shipment.HeightCm,
		},
		Items:            lines,
		CollectableValue: decimal.Zero,
		DeclaredValue:    declared,
		CourierID:        shipment.CourierID,
	}
}

// vendorItems оставляет позиции заказа одного продавца
func vendorItems(items []*models.OrderItem, vendorID int64) []*models.OrderItem {
	var out []*models.OrderItem
	for _, it := range items {
		if it.VendorID == vendorID {
			out = append(out, it)
		}
	}
	return out
}
