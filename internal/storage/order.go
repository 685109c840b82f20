package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/marketplace/internal/domain/models"
)

// OrderStorage описывает методы для работы с заказами.
type OrderStorage interface {
	// CreateOrderTx вставляет заказ в рамках транзакции оформления.
	CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) error
	// CreateOrderItemTx вставляет снимок позиции заказа.
	CreateOrderItemTx(ctx context.Context, tx *sql.Tx, item *models.OrderItem) error
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	// LockOrderTx блокирует строку заказа до конца транзакции.
	LockOrderTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error)
	// ListOrdersByUser возвращает заказы пользователя, новые первыми.
	ListOrdersByUser(ctx context.Context, userID int64) ([]*models.Order, error)
	ListOrderItems(ctx context.Context, orderID int64) ([]*models.OrderItem, error)
	ListOrderItemsTx(ctx context.Context, tx *sql.Tx, orderID int64) ([]*models.OrderItem, error)
	// UpdateOrderStatusTx переводит заказ from -> to; если статус уже другой, возвращает ErrStatusChanged.
	UpdateOrderStatusTx(ctx context.Context, tx *sql.Tx, id int64, from, to models.OrderStatus) error
	CancelOrderTx(ctx context.Context, tx *sql.Tx, id int64) error
	// CompleteIfDelivered завершает оплаченный заказ, когда все его отправления доставлены.
	CompleteIfDelivered(ctx context.Context, id int64) (bool, error)
}

// orderRepository — конкретная реализация OrderStorage.
type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт новый репозиторий заказов.
func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

const (
	orderColumns     = "id, reference, user_id, company_id, address_id, total_amount, status, cancellation_status, created_at"
	orderItemColumns = "id, order_id, product_id, variant_id, vendor_id, product_name, sku, quantity, price"
)

func scanOrder(row rowScanner) (*models.Order, error) {
	o := &models.Order{}
	err := row.Scan(&o.ID, &o.Reference, &o.UserID, &o.CompanyID, &o.AddressID, &o.TotalAmount, &o.Status,
		&o.CancellationStatus, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return o, nil
}

func (r *orderRepository) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	query := `INSERT INTO orders (reference, user_id, company_id, address_id, total_amount, status, cancellation_status)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`
	err := tx.QueryRowContext(ctx, query, order.Reference, order.UserID, order.CompanyID, order.AddressID,
		order.TotalAmount, order.Status, order.CancellationStatus).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *orderRepository) CreateOrderItemTx(ctx context.Context, tx *sql.Tx, item *models.OrderItem) error {
	query := `INSERT INTO order_items (order_id, product_id, variant_id, vendor_id, product_name, sku, quantity, price)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := tx.QueryRowContext(ctx, query, item.OrderID, item.ProductID, item.VariantID, item.VendorID,
		item.ProductName, item.SKU, item.Quantity, item.Price).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("failed to create order item: %w", err)
	}
	return nil
}

func (r *orderRepository) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	return scanOrder(r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id))
}

func (r *orderRepository) LockOrderTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	return scanOrder(tx.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1 FOR UPDATE", id))
}

func (r *orderRepository) ListOrdersByUser(ctx context.Context, userID int64) ([]*models.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) ListOrderItems(ctx context.Context, orderID int64) ([]*models.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+orderItemColumns+" FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	if err != nil {
		return nil, err
	}
	return scanOrderItems(rows)
}

func (r *orderRepository) ListOrderItemsTx(ctx context.Context, tx *sql.Tx, orderID int64) ([]*models.OrderItem, error) {
	rows, err := tx.QueryContext(ctx, "SELECT "+orderItemColumns+" FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	if err != nil {
		return nil, err
	}
	return scanOrderItems(rows)
}

func scanOrderItems(rows *sql.Rows) ([]*models.OrderItem, error) {
	defer rows.Close()

	var items []*models.OrderItem
	for rows.Next() {
		i := &models.OrderItem{}
		err := rows.Scan(&i.ID, &i.OrderID, &i.ProductID, &i.VariantID, &i.VendorID, &i.ProductName, &i.SKU,
			&i.Quantity, &i.Price)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *orderRepository) UpdateOrderStatusTx(ctx context.Context, tx *sql.Tx, id int64, from, to models.OrderStatus) error {
	res, err := tx.ExecContext(ctx, "UPDATE orders SET status = $1 WHERE id = $2 AND status = $3", to, id, from)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	return expectAffected(res, ErrStatusChanged)
}

func (r *orderRepository) CancelOrderTx(ctx context.Context, tx *sql.Tx, id int64) error {
	query := `UPDATE orders SET status = 'cancelled', cancellation_status = 'cancelled'
	          WHERE id = $1 AND status IN ('pending', 'paid')`
	res, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to cancel order: %w", err)
	}
	return expectAffected(res, ErrStatusChanged)
}

func (r *orderRepository) CompleteIfDelivered(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE orders SET status = 'completed'
	          WHERE id = $1 AND status = 'paid'
	          AND NOT EXISTS (SELECT 1 FROM shipments s WHERE s.order_id = $1 AND s.status <> 'delivered')`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to complete order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
