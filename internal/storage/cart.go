package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/linemk/marketplace/internal/domain/models"
)

// CartStorage описывает методы для работы с корзиной.
type CartStorage interface {
	// UpsertItem добавляет количество к существующей строке или создаёт новую
	UpsertItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error)
	UpdateQuantity(ctx context.Context, userID, itemID int64, quantity int) error
	DeleteItem(ctx context.Context, userID, itemID int64) error
	ListLines(ctx context.Context, userID int64) ([]*models.CartLine, error)
	// LockLinesTx читает корзину и блокирует строки корзины и вариантов
	LockLinesTx(ctx context.Context, tx *sql.Tx, userID int64) ([]*models.CartLine, error)
	ClearTx(ctx context.Context, tx *sql.Tx, userID int64) error
}

type cartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) CartStorage {
	return &cartRepository{db: db}
}

const cartLinesQuery = `SELECT c.id, c.product_id, c.variant_id, p.vendor_id, p.name, v.sku, c.quantity, v.stock, v.price,
	v.weight_kg, v.length_cm, v.breadth_cm, v.height_cm, p.status, vn.status
	FROM cart_items c
	JOIN product_variants v ON v.id = c.variant_id
	JOIN products p ON p.id = c.product_id
	JOIN vendors vn ON vn.id = p.vendor_id
	WHERE c.user_id = $1
	ORDER BY c.id`

func (r *cartRepository) UpsertItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	query := `INSERT INTO cart_items (user_id, product_id, variant_id, quantity)
	          VALUES ($1, $2, $3, $4)
	          ON CONFLICT (user_id, variant_id) DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
	          RETURNING id, quantity`
	err := r.db.QueryRowContext(ctx, query, item.UserID, item.ProductID, item.VariantID, item.Quantity).
		Scan(&item.ID, &item.Quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert cart item: %w", err)
	}
	return item, nil
}

func (r *cartRepository) UpdateQuantity(ctx context.Context, userID, itemID int64, quantity int) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE cart_items SET quantity = $1 WHERE id = $2 AND user_id = $3", quantity, itemID, userID)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrCartItemNotFound)
}

func (r *cartRepository) DeleteItem(ctx context.Context, userID, itemID int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM cart_items WHERE id = $1 AND user_id = $2", itemID, userID)
	if err != nil {
		return err
	}
	return expectAffected(res, ErrCartItemNotFound)
}

func (r *cartRepository) ListLines(ctx context.Context, userID int64) ([]*models.CartLine, error) {
	rows, err := r.db.QueryContext(ctx, cartLinesQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	return scanCartLines(rows)
}

// LockLinesTx не ждёт чужую блокировку: занятая корзина или вариант дают ErrResourceLocked
func (r *cartRepository) LockLinesTx(ctx context.Context, tx *sql.Tx, userID int64) ([]*models.CartLine, error) {
	rows, err := tx.QueryContext(ctx, cartLinesQuery+" FOR UPDATE OF c, v NOWAIT", userID)
	if err != nil {
		if isLockNotAvailable(err) {
			return nil, ErrResourceLocked
		}
		return nil, fmt.Errorf("failed to lock cart: %w", err)
	}
	return scanCartLines(rows)
}

func scanCartLines(rows *sql.Rows) ([]*models.CartLine, error) {
	defer rows.Close()

	var lines []*models.CartLine
	for rows.Next() {
		l := &models.CartLine{}
		err := rows.Scan(&l.CartItemID, &l.ProductID, &l.VariantID, &l.VendorID, &l.ProductName, &l.SKU, &l.Quantity,
			&l.Stock, &l.Price, &l.WeightKg, &l.LengthCm, &l.BreadthCm, &l.HeightCm, &l.ProductStatus, &l.VendorStatus)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *cartRepository) ClearTx(ctx context.Context, tx *sql.Tx, userID int64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE user_id = $1", userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// expectAffected превращает пустое обновление в notFound
func expectAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
