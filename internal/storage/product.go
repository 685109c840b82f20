package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/linemk/marketplace/internal/domain/models"
)

// ProductStorage описывает методы для работы с товарами и их вариантами.
type ProductStorage interface {
	CreateProductTx(ctx context.Context, tx *sql.Tx, product *models.Product) error
	CreateVariantTx(ctx context.Context, tx *sql.Tx, variant *models.Variant) error
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	ListApprovedProducts(ctx context.Context, limit, offset int) ([]*models.Product, error)
	ListProductsByStatus(ctx context.Context, status models.ReviewStatus) ([]*models.Product, error)
	ListProductsByVendor(ctx context.Context, vendorID int64) ([]*models.Product, error)
	UpdateProductStatus(ctx context.Context, id int64, status models.ReviewStatus, reason string) error
	GetVariantDetails(ctx context.Context, variantID int64) (*models.VariantDetails, error)
	// LockVariantTx блокирует строку варианта до конца транзакции
	LockVariantTx(ctx context.Context, tx *sql.Tx, variantID int64) (*models.VariantDetails, error)
	DecrementStockTx(ctx context.Context, tx *sql.Tx, variantID int64, quantity int) error
	IncrementStockTx(ctx context.Context, tx *sql.Tx, variantID int64, quantity int) error
	UpdateStock(ctx context.Context, vendorID, variantID int64, stock int) error
}

type productRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) ProductStorage {
	return &productRepository{db: db}
}

const (
	productColumns = "id, vendor_id, name, description, status, rejection_reason, created_at"
	variantColumns = "id, product_id, sku, price, stock, weight_kg, length_cm, breadth_cm, height_cm"
	detailsQuery   = `SELECT v.id, v.product_id, v.sku, v.price, v.stock, v.weight_kg, v.length_cm, v.breadth_cm, v.height_cm,
	                  p.name, p.vendor_id, p.status, vn.status
	                  FROM product_variants v
	                  JOIN products p ON p.id = v.product_id
	                  JOIN vendors vn ON vn.id = p.vendor_id
	                  WHERE v.id = $1`
)

func scanProduct(row rowScanner) (*models.Product, error) {
	p := &models.Product{}
	if err := row.Scan(&p.ID, &p.VendorID, &p.Name, &p.Description, &p.Status, &p.RejectionReason, &p.CreatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

func scanVariant(row rowScanner) (*models.Variant, error) {
	v := &models.Variant{}
	if err := row.Scan(&v.ID, &v.ProductID, &v.SKU, &v.Price, &v.Stock, &v.WeightKg, &v.LengthCm, &v.BreadthCm, &v.HeightCm); err != nil {
		return nil, err
	}
	return v, nil
}

func scanDetails(row rowScanner) (*models.VariantDetails, error) {
	d := &models.VariantDetails{}
	err := row.Scan(&d.ID, &d.ProductID, &d.SKU, &d.Price, &d.Stock, &d.WeightKg, &d.LengthCm, &d.BreadthCm, &d.HeightCm,
		&d.ProductName, &d.VendorID, &d.ProductStatus, &d.VendorStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVariantNotFound
		}
		return nil, err
	}
	return d, nil
}

func (r *productRepository) CreateProductTx(ctx context.Context, tx *sql.Tx, product *models.Product) error {
	query := `INSERT INTO products (vendor_id, name, description, status)
	          VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	err := tx.QueryRowContext(ctx, query, product.VendorID, product.Name, product.Description, product.Status).
		Scan(&product.ID, &product.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *productRepository) CreateVariantTx(ctx context.Context, tx *sql.Tx, variant *models.Variant) error {
	query := `INSERT INTO product_variants (product_id, sku, price, stock, weight_kg, length_cm, breadth_cm, height_cm)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := tx.QueryRowContext(ctx, query, variant.ProductID, variant.SKU, variant.Price, variant.Stock,
		variant.WeightKg, variant.LengthCm, variant.BreadthCm, variant.HeightCm).Scan(&variant.ID)
	if err != nil {
		return fmt.Errorf("failed to create variant: %w", err)
	}
	return nil
}

func (r *productRepository) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	if err := r.attachVariants(ctx, []*models.Product{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// ListApprovedProducts — публичный каталог: только одобренные товары одобренных продавцов
func (r *productRepository) ListApprovedProducts(ctx context.Context, limit, offset int) ([]*models.Product, error) {
	query := `SELECT p.id, p.vendor_id, p.name, p.description, p.status, p.rejection_reason, p.created_at
	          FROM products p
	          JOIN vendors v ON v.id = p.vendor_id
	          WHERE p.status = 'approved' AND v.status = 'approved'
	          ORDER BY p.id
	          LIMIT $1 OFFSET $2`
	return r.listProducts(ctx, query, limit, offset)
}

func (r *productRepository) ListProductsByStatus(ctx context.Context, status models.ReviewStatus) ([]*models.Product, error) {
	return r.listProducts(ctx, "SELECT "+productColumns+" FROM products WHERE status = $1 ORDER BY id", status)
}

func (r *productRepository) ListProductsByVendor(ctx context.Context, vendorID int64) ([]*models.Product, error) {
	return r.listProducts(ctx, "SELECT "+productColumns+" FROM products WHERE vendor_id = $1 ORDER BY id", vendorID)
}

func (r *productRepository) listProducts(ctx context.Context, query string, args ...any) ([]*models.Product, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return products, nil
	}
	if err := r.attachVariants(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// attachVariants подгружает варианты одним запросом для всех товаров
func (r *productRepository) attachVariants(ctx context.Context, products []*models.Product) error {
	ids := make([]int64, 0, len(products))
	byID := make(map[int64]*models.Product, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
		byID[p.ID] = p
		p.Variants = []*models.Variant{}
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+variantColumns+" FROM product_variants WHERE product_id = ANY($1) ORDER BY id", pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return fmt.Errorf("failed to scan variant: %w", err)
		}
		if p, ok := byID[v.ProductID]; ok {
			p.Variants = append(p.Variants, v)
		}
	}
	return rows.Err()
}

func (r *productRepository) UpdateProductStatus(ctx context.Context, id int64, status models.ReviewStatus, reason string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE products SET status = $1, rejection_reason = $2 WHERE id = $3", status, reason, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *productRepository) GetVariantDetails(ctx context.Context, variantID int64) (*models.VariantDetails, error) {
	return scanDetails(r.db.QueryRowContext(ctx, detailsQuery, variantID))
}

func (r *productRepository) LockVariantTx(ctx context.Context, tx *sql.Tx, variantID int64) (*models.VariantDetails, error) {
	d, err := scanDetails(tx.QueryRowContext(ctx, detailsQuery+" FOR UPDATE OF v NOWAIT", variantID))
	if err != nil && isLockNotAvailable(err) {
		return nil, ErrResourceLocked
	}
	return d, err
}

// DecrementStockTx списывает остаток только если его хватает
func (r *productRepository) DecrementStockTx(ctx context.Context, tx *sql.Tx, variantID int64, quantity int) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE product_variants SET stock = stock - $1 WHERE id = $2 AND stock >= $1", quantity, variantID)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (r *productRepository) IncrementStockTx(ctx context.Context, tx *sql.Tx, variantID int64, quantity int) error {
	_, err := tx.ExecContext(ctx, "UPDATE product_variants SET stock = stock + $1 WHERE id = $2", quantity, variantID)
	if err != nil {
		return fmt.Errorf("failed to restock variant: %w", err)
	}
	return nil
}

// UpdateStock меняет остаток варианта, если он принадлежит продавцу
func (r *productRepository) UpdateStock(ctx context.Context, vendorID, variantID int64, stock int) error {
	query := `UPDATE product_variants v SET stock = $1
	          FROM products p
	          WHERE v.product_id = p.id AND v.id = $2 AND p.vendor_id = $3`
	res, err := r.db.ExecContext(ctx, query, stock, variantID, vendorID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrVariantNotFound
	}
	return nil
}
