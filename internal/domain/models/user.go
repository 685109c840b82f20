package models

import "time"

// Role определяет набор доступных пользователю разделов API
type Role string

const (
	RoleCustomer      Role = "customer"
	RoleVendor        Role = "vendor"
	RoleVendorManager Role = "vendor_manager"
	RoleWarehouse     Role = "warehouse"
)

// User представляет пользователя площадки
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	PassHash  []byte    `json:"-"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
