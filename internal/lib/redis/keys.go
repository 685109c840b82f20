package redis

import "fmt"

const keyPrefix = "marketplace"

// ShipmentBookingKey — ключ блокировки оформления отправления у курьера
func ShipmentBookingKey(shipmentID int64) string {
	return fmt.Sprintf("%s:shipment:book:%d", keyPrefix, shipmentID)
}

// RateLimitKey — ключ скользящего окна для маршрута и субъекта (user:<id> или ip:<addr>)
func RateLimitKey(route, subject string) string {
	return fmt.Sprintf("%s:rate_limit:%s:%s", keyPrefix, route, subject)
}
