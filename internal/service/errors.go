package service

import "errors"

// Ошибки бизнес-логики. Текст ошибки — машинный код, который уходит клиенту в поле message.
var (
	ErrCartEmpty               = errors.New("CART_EMPTY")
	ErrCartItemNotFound        = errors.New("CART_ITEM_NOT_FOUND")
	ErrOutOfStock              = errors.New("OUT_OF_STOCK")
	ErrInvalidVariant          = errors.New("INVALID_VARIANT")
	ErrInvalidQuantity         = errors.New("INVALID_QUANTITY")
	ErrInvalidPayload          = errors.New("INVALID_PAYLOAD")
	ErrAddressNotFound         = errors.New("ADDRESS_NOT_FOUND")
	ErrOrderNotFound           = errors.New("ORDER_NOT_FOUND")
	ErrOrderNotPayable         = errors.New("ORDER_NOT_PAYABLE")
	ErrOrderNotCancellable     = errors.New("ORDER_NOT_CANCELLABLE")
	ErrNotServiceable          = errors.New("NOT_SERVICEABLE")
	ErrVendorAddressMissing    = errors.New("VENDOR_ADDRESS_MISSING")
	ErrVendorExists            = errors.New("VENDOR_EXISTS")
	ErrVendorNotFound          = errors.New("VENDOR_NOT_FOUND")
	ErrVendorNotApproved       = errors.New("VENDOR_NOT_APPROVED")
	ErrProductNotFound         = errors.New("PRODUCT_NOT_FOUND")
	ErrShipmentNotFound        = errors.New("SHIPMENT_NOT_FOUND")
	ErrInvalidStatus           = errors.New("INVALID_STATUS")
	ErrInvalidStatusTransition = errors.New("INVALID_STATUS_TRANSITION")
	ErrInvalidSignature        = errors.New("INVALID_SIGNATURE")
	ErrInvalidRole             = errors.New("INVALID_ROLE")
	ErrEmailTaken              = errors.New("EMAIL_TAKEN")
	ErrInvalidCredentials      = errors.New("INVALID_CREDENTIALS")
	ErrPaymentGateway          = errors.New("PAYMENT_GATEWAY_ERROR")
	ErrCourier                 = errors.New("COURIER_ERROR")
	ErrResourceBusy            = errors.New("RESOURCE_BUSY")
)
