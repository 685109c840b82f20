package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/marketplace/internal/domain/models"
)

type AddressStorage interface {
	CreateAddress(ctx context.Context, address *models.Address) (*models.Address, error)
	ListAddresses(ctx context.Context, userID int64) ([]*models.Address, error)
	// GetAddress возвращает адрес, только если он принадлежит пользователю
	GetAddress(ctx context.Context, userID, id int64) (*models.Address, error)
}

type addressRepository struct {
	db *sql.DB
}

func NewAddressRepository(db *sql.DB) AddressStorage {
	return &addressRepository{db: db}
}

const addressColumns = "id, user_id, name, phone, line1, line2, city, state, pincode"

func scanAddress(row rowScanner) (*models.Address, error) {
	a := &models.Address{}
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Phone, &a.Line1, &a.Line2, &a.City, &a.State, &a.Pincode); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *addressRepository) CreateAddress(ctx context.Context, a *models.Address) (*models.Address, error) {
	query := `INSERT INTO addresses (user_id, name, phone, line1, line2, city, state, pincode)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := r.db.QueryRowContext(ctx, query, a.UserID, a.Name, a.Phone, a.Line1, a.Line2, a.City, a.State, a.Pincode).
		Scan(&a.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create address: %w", err)
	}
	return a, nil
}

func (r *addressRepository) ListAddresses(ctx context.Context, userID int64) ([]*models.Address, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+addressColumns+" FROM addresses WHERE user_id = $1 ORDER BY id", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query addresses: %w", err)
	}
	defer rows.Close()

	var addresses []*models.Address
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return addresses, nil
}

func (r *addressRepository) GetAddress(ctx context.Context, userID, id int64) (*models.Address, error) {
	a, err := scanAddress(r.db.QueryRowContext(ctx,
		"SELECT "+addressColumns+" FROM addresses WHERE id = $1 AND user_id = $2", id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAddressNotFound
	}
	return a, err
}
