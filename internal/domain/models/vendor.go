package models

import "time"

// ReviewStatus — статус прохождения модерации (продавец или товар)
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// Vendor представляет продавца вместе с адресом склада, откуда курьер забирает посылки
type Vendor struct {
	ID           int64        `json:"id"`
	UserID       int64        `json:"user_id"`
	BusinessName string       `json:"business_name"`
	Phone        string       `json:"phone"`
	Status       ReviewStatus `json:"status"`
	PickupLine1  string       `json:"pickup_line1"`
	PickupLine2  string       `json:"pickup_line2"`
	PickupCity   string       `json:"pickup_city"`
	PickupState  string       `json:"pickup_state"`
	PickupPin    string       `json:"pickup_pincode"`
	CreatedAt    time.Time    `json:"created_at"`
}

// HasPickupAddress сообщает, можно ли отправлять посылки от этого продавца
func (v *Vendor) HasPickupAddress() bool {
	return v.PickupLine1 != "" && v.PickupPin != ""
}
