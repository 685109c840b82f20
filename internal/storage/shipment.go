package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/marketplace/internal/domain/models"
)

// ShipmentStorage описывает методы для работы с отправлениями.
// Все переходы статусов условные: UPDATE ... WHERE status = from.
type ShipmentStorage interface {
	CreateShipmentTx(ctx context.Context, tx *sql.Tx, shipment *models.Shipment) error
	GetShipment(ctx context.Context, id int64) (*models.Shipment, error)
	ListShipmentsByOrder(ctx context.Context, orderID int64) ([]*models.Shipment, error)
	LockShipmentsByOrderTx(ctx context.Context, tx *sql.Tx, orderID int64) ([]*models.Shipment, error)
	ListShipmentsByStatus(ctx context.Context, status models.ShipmentStatus) ([]*models.Shipment, error)
	// ActivateAwaitingTx переводит отправления оплаченного заказа awaiting_payment -> pending.
	ActivateAwaitingTx(ctx context.Context, tx *sql.Tx, orderID int64) (int64, error)
	// ClaimForBooking атомарно забирает отправление pending -> booking; false, если его уже забрали.
	ClaimForBooking(ctx context.Context, id int64) (bool, error)
	MarkBooked(ctx context.Context, id int64, booking *models.ShipmentBookingInfo) error
	// ReleaseClaim возвращает отправление booking -> pending после неудачной попытки.
	ReleaseClaim(ctx context.Context, id int64) error
	UpdateStatus(ctx context.Context, id int64, from, to models.ShipmentStatus) error
	CancelShipmentsTx(ctx context.Context, tx *sql.Tx, orderID int64) error
}

type shipmentRepository struct {
	db *sql.DB
}

func NewShipmentRepository(db *sql.DB) ShipmentStorage {
	return &shipmentRepository{db: db}
}

const shipmentColumns = `id, order_id, vendor_id, weight_kg, length_cm, breadth_cm, height_cm, courier_id, courier_name,
	shipping_charges, transit_days, courier_shipment_id, awb_number, label_url, status, created_at, updated_at`

func scanShipment(row rowScanner) (*models.Shipment, error) {
	s := &models.Shipment{}
	err := row.Scan(&s.ID, &s.OrderID, &s.VendorID, &s.WeightKg, &s.LengthCm, &s.BreadthCm, &s.HeightCm,
		&s.CourierID, &s.CourierName, &s.ShippingCharges, &s.TransitDays, &s.CourierShipmentID, &s.AWBNumber,
		&s.LabelURL, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShipmentNotFound
		}
		return nil, err
	}
	return s, nil
}

func scanShipments(rows *sql.Rows) ([]*models.Shipment, error) {
	defer rows.Close()

	var shipments []*models.Shipment
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		shipments = append(shipments, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return shipments, nil
}

func (r *shipmentRepository) CreateShipmentTx(ctx context.Context, tx *sql.Tx, s *models.Shipment) error {
	query := `INSERT INTO shipments (order_id, vendor_id, weight_kg, length_cm, breadth_cm, height_cm,
	          courier_id, courier_name, shipping_charges, transit_days, status)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id, created_at, updated_at`
	err := tx.QueryRowContext(ctx, query, s.OrderID, s.VendorID, s.WeightKg, s.LengthCm, s.BreadthCm, s.HeightCm,
		s.CourierID, s.CourierName, s.ShippingCharges, s.TransitDays, s.Status).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create shipment: %w", err)
	}
	return nil
}

func (r *shipmentRepository) GetShipment(ctx context.Context, id int64) (*models.Shipment, error) {
	return scanShipment(r.db.QueryRowContext(ctx, "SELECT "+shipmentColumns+" FROM shipments WHERE id = $1", id))
}

func (r *shipmentRepository) ListShipmentsByOrder(ctx context.Context, orderID int64) ([]*models.Shipment, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+shipmentColumns+" FROM shipments WHERE order_id = $1 ORDER BY vendor_id", orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query shipments: %w", err)
	}
	return scanShipments(rows)
}

func (r *shipmentRepository) LockShipmentsByOrderTx(ctx context.Context, tx *sql.Tx, orderID int64) ([]*models.Shipment, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT "+shipmentColumns+" FROM shipments WHERE order_id = $1 ORDER BY vendor_id FOR UPDATE", orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock shipments: %w", err)
	}
	return scanShipments(rows)
}

func (r *shipmentRepository) ListShipmentsByStatus(ctx context.Context, status models.ShipmentStatus) ([]*models.Shipment, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+shipmentColumns+" FROM shipments WHERE status = $1 ORDER BY id", status)
	if err != nil {
		return nil, fmt.Errorf("failed to query shipments: %w", err)
	}
	return scanShipments(rows)
}

func (r *shipmentRepository) ActivateAwaitingTx(ctx context.Context, tx *sql.Tx, orderID int64) (int64, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE shipments SET status = 'pending', updated_at = NOW() WHERE order_id = $1 AND status = 'awaiting_payment'", orderID)
	if err != nil {
		return 0, fmt.Errorf("failed to activate shipments: %w", err)
	}
	return res.RowsAffected()
}

func (r *shipmentRepository) ClaimForBooking(ctx context.Context, id int64) (bool, error) {
	var claimed int64
	err := r.db.QueryRowContext(ctx,
		"UPDATE shipments SET status = 'booking', updated_at = NOW() WHERE id = $1 AND status = 'pending' RETURNING id", id).
		Scan(&claimed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to claim shipment: %w", err)
	}
	return true, nil
}

func (r *shipmentRepository) MarkBooked(ctx context.Context, id int64, b *models.ShipmentBookingInfo) error {
	query := `UPDATE shipments SET status = 'booked', courier_shipment_id = $1, awb_number = $2,
	          courier_name = COALESCE(NULLIF($3::text, ''), courier_name), label_url = $4, updated_at = NOW()
	          WHERE id = $5 AND status = 'booking'`
	res, err := r.db.ExecContext(ctx, query, b.CourierShipmentID, b.AWBNumber, b.CourierName, b.LabelURL, id)
	if err != nil {
		return fmt.Errorf("failed to mark shipment booked: %w", err)
	}
	return expectAffected(res, ErrStatusChanged)
}

func (r *shipmentRepository) ReleaseClaim(ctx context.Context, id int64) error {
	return r.UpdateStatus(ctx, id, models.ShipmentBooking, models.ShipmentPending)
}

func (r *shipmentRepository) UpdateStatus(ctx context.Context, id int64, from, to models.ShipmentStatus) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE shipments SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3", to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update shipment status: %w", err)
	}
	return expectAffected(res, ErrStatusChanged)
}

func (r *shipmentRepository) CancelShipmentsTx(ctx context.Context, tx *sql.Tx, orderID int64) error {
	_, err := tx.ExecContext(ctx, "UPDATE shipments SET status = 'cancelled', updated_at = NOW() WHERE order_id = $1", orderID)
	if err != nil {
		return fmt.Errorf("failed to cancel shipments: %w", err)
	}
	return nil
}
