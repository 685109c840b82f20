package storage

import (
	"errors"

	"github.com/lib/pq"
)

// Ошибки слоя хранения. ErrStatusChanged означает, что условное обновление
// не нашло строку в ожидаемом статусе (её уже изменил кто-то другой).
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailTaken        = errors.New("email already registered")
	ErrVendorNotFound    = errors.New("vendor not found")
	ErrVendorExists      = errors.New("vendor already exists")
	ErrProductNotFound   = errors.New("product not found")
	ErrVariantNotFound   = errors.New("variant not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrCartItemNotFound  = errors.New("cart item not found")
	ErrAddressNotFound   = errors.New("address not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrShipmentNotFound  = errors.New("shipment not found")
	ErrStatusChanged     = errors.New("status changed concurrently")
	ErrPaymentNotFound   = errors.New("payment not found")
	ErrResourceLocked    = errors.New("resource is locked, please try again")
)

// коды ошибок postgres
const (
	pqUniqueViolation  = "23505"
	pqLockNotAvailable = "55P03"
)

func isPQCode(err error, code string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == code
	}
	return false
}

func isUniqueViolation(err error) bool {
	return isPQCode(err, pqUniqueViolation)
}

func isLockNotAvailable(err error) bool {
	return isPQCode(err, pqLockNotAvailable)
}
