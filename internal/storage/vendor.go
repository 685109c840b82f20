package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/marketplace/internal/domain/models"
)

// VendorStorage описывает методы для работы с продавцами.
type VendorStorage interface {
	CreateVendor(ctx context.Context, vendor *models.Vendor) (*models.Vendor, error)
	GetVendorByID(ctx context.Context, id int64) (*models.Vendor, error)
	GetVendorByUserID(ctx context.Context, userID int64) (*models.Vendor, error)
	ListVendorsByStatus(ctx context.Context, status models.ReviewStatus) ([]*models.Vendor, error)
	UpdateVendorStatus(ctx context.Context, id int64, status models.ReviewStatus) error
}

type vendorRepository struct {
	db *sql.DB
}

func NewVendorRepository(db *sql.DB) VendorStorage {
	return &vendorRepository{db: db}
}

const vendorColumns = `id, user_id, business_name, phone, status, pickup_line1, pickup_line2,
	pickup_city, pickup_state, pickup_pincode, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVendor(row rowScanner) (*models.Vendor, error) {
	v := &models.Vendor{}
	err := row.Scan(&v.ID, &v.UserID, &v.BusinessName, &v.Phone, &v.Status, &v.PickupLine1, &v.PickupLine2,
		&v.PickupCity, &v.PickupState, &v.PickupPin, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// CreateVendor регистрирует профиль продавца; у пользователя может быть только один профиль
func (r *vendorRepository) CreateVendor(ctx context.Context, vendor *models.Vendor) (*models.Vendor, error) {
	query := `INSERT INTO vendors (user_id, business_name, phone, status, pickup_line1, pickup_line2,
	          pickup_city, pickup_state, pickup_pincode)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		vendor.UserID, vendor.BusinessName, vendor.Phone, vendor.Status, vendor.PickupLine1, vendor.PickupLine2,
		vendor.PickupCity, vendor.PickupState, vendor.PickupPin,
	).Scan(&vendor.ID, &vendor.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrVendorExists
		}
		return nil, fmt.Errorf("failed to create vendor: %w", err)
	}
	return vendor, nil
}

func (r *vendorRepository) GetVendorByID(ctx context.Context, id int64) (*models.Vendor, error) {
	v, err := scanVendor(r.db.QueryRowContext(ctx, "SELECT "+vendorColumns+" FROM vendors WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVendorNotFound
	}
	return v, err
}

func (r *vendorRepository) GetVendorByUserID(ctx context.Context, userID int64) (*models.Vendor, error) {
	v, err := scanVendor(r.db.QueryRowContext(ctx, "SELECT "+vendorColumns+" FROM vendors WHERE user_id = $1", userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVendorNotFound
	}
	return v, err
}

func (r *vendorRepository) ListVendorsByStatus(ctx context.Context, status models.ReviewStatus) ([]*models.Vendor, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+vendorColumns+" FROM vendors WHERE status = $1 ORDER BY created_at", status)
	if err != nil {
		return nil, fmt.Errorf("failed to query vendors: %w", err)
	}
	defer rows.Close()

	var vendors []*models.Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vendor: %w", err)
		}
		vendors = append(vendors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vendors, nil
}

func (r *vendorRepository) UpdateVendorStatus(ctx context.Context, id int64, status models.ReviewStatus) error {
	res, err := r.db.ExecContext(ctx, "UPDATE vendors SET status = $1 WHERE id = $2", status, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrVendorNotFound
	}
	return nil
}
