package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/marketplace/internal/domain/models"
	"github.com/linemk/marketplace/internal/storage"
)

// CatalogService объединяет онбординг продавцов, модерацию и публичный каталог.
type CatalogService interface {
	Onboard(ctx context.Context, userID int64, vendor *models.Vendor) (*models.Vendor, error)
	CreateProduct(ctx context.Context, userID int64, product *models.Product) (*models.Product, error)
	ListVendorProducts(ctx context.Context, userID int64) ([]*models.Product, error)
	UpdateStock(ctx context.Context, userID, variantID int64, stock int) error

	ListPendingVendors(ctx context.Context) ([]*models.Vendor, error)
	ReviewVendor(ctx context.Context, vendorID int64, approve bool) error
	ListPendingProducts(ctx context.Context) ([]*models.Product, error)
	ReviewProduct(ctx context.Context, productID int64, approve bool, reason string) error

	ListProducts(ctx context.Context, limit, offset int) ([]*models.Product, error)
	GetProduct(ctx context.Context, productID int64) (*models.Product, error)
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type catalogService struct {
	log         *slog.Logger
	db          *sql.DB
	vendorRepo  storage.VendorStorage
	productRepo storage.ProductStorage
}

func NewCatalogService(log *slog.Logger, db *sql.DB, vendorRepo storage.VendorStorage, productRepo storage.ProductStorage) CatalogService {
	return &catalogService{
		log:         log,
		db:          db,
		vendorRepo:  vendorRepo,
		productRepo: productRepo,
	}
}

func (s *catalogService) Onboard(ctx context.Context, userID int64, vendor *models.Vendor) (*models.Vendor, error) {
	const op = "service.CatalogService.Onboard"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	vendor.UserID = userID
	vendor.Status = models.ReviewPending
	created, err := s.vendorRepo.CreateVendor(ctx, vendor)
	if err != nil {
		if errors.Is(err, storage.ErrVendorExists) {
			logger.Warn("vendor profile already exists")
			return nil, fmt.Errorf("%s: %w", op, ErrVendorExists)
		}
		logger.Error("failed to create vendor", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("vendor onboarded", slog.Int64("vendorID", created.ID))
	return created, nil
}

// vendorOf возвращает профиль продавца текущего пользователя
func (s *catalogService) vendorOf(ctx context.Context, userID int64) (*models.Vendor, error) {
	vendor, err := s.vendorRepo.GetVendorByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrVendorNotFound) {
			return nil, ErrVendorNotFound
		}
		return nil, err
	}
	return vendor, nil
}

// CreateProduct создаёт товар со всеми вариантами в одной транзакции; товар уходит на модерацию
func (s *catalogService) CreateProduct(ctx context.Context, userID int64, product *models.Product) (*models.Product, error) {
	const op = "service.CatalogService.CreateProduct"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))

	vendor, err := s.vendorOf(ctx, userID)
	if err != nil {
		logger.Warn("failed to resolve vendor", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if vendor.Status != models.ReviewApproved {
		logger.Warn("vendor is not approved", slog.String("status", string(vendor.Status)))
		return nil, fmt.Errorf("%s: %w", op, ErrVendorNotApproved)
	}
	if len(product.Variants) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidPayload)
	}

	product.VendorID = vendor.ID
	product.Status = models.ReviewPending

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	if err := s.productRepo.CreateProductTx(ctx, tx, product); err != nil {
		rollback(tx, logger)
		logger.Error("failed to create product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for _, v := range product.Variants {
		v.ProductID = product.ID
		if err := s.productRepo.CreateVariantTx(ctx, tx, v); err != nil {
			rollback(tx, logger)
			logger.Error("failed to create variant", slog.String("sku", v.SKU), slog.Any("error", err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	logger.Info("product created", slog.Int64("productID", product.ID), slog.Int("variants", len(product.Variants)))
	return product, nil
}

func (s *catalogService) ListVendorProducts(ctx context.Context, userID int64) ([]*models.Product, error) {
	const op = "service.CatalogService.ListVendorProducts"

	vendor, err := s.vendorOf(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	products, err := s.productRepo.ListProductsByVendor(ctx, vendor.ID)
	if err != nil {
		s.log.Error("failed to list vendor products", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return nonNilProducts(products), nil
}

func (s *catalogService) UpdateStock(ctx context.Context, userID, variantID int64, stock int) error {
	const op = "service.CatalogService.UpdateStock"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("variantID", variantID))

	if stock < 0 {
		return fmt.Errorf("%s: %w", op, ErrInvalidQuantity)
	}
	vendor, err := s.vendorOf(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	// чужой вариант не обновится и вернётся как несуществующий
	if err := s.productRepo.UpdateStock(ctx, vendor.ID, variantID, stock); err != nil {
		if errors.Is(err, storage.ErrVariantNotFound) {
			return fmt.Errorf("%s: %w", op, ErrInvalidVariant)
		}
		logger.Error("failed to update stock", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("stock updated", slog.Int("stock", stock))
	return nil
}

func (s *catalogService) ListPendingVendors(ctx context.Context) ([]*models.Vendor, error) {
	const op = "service.CatalogService.ListPendingVendors"

	vendors, err := s.vendorRepo.ListVendorsByStatus(ctx, models.ReviewPending)
	if err != nil {
		s.log.Error("failed to list vendors", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if vendors == nil {
		vendors = []*models.Vendor{}
	}
	return vendors, nil
}

func (s *catalogService) ReviewVendor(ctx context.Context, vendorID int64, approve bool) error {
	const op = "service.CatalogService.ReviewVendor"
	logger := s.log.With(slog.String("op", op), slog.Int64("vendorID", vendorID), slog.Bool("approve", approve))

	if err := s.vendorRepo.UpdateVendorStatus(ctx, vendorID, reviewStatus(approve)); err != nil {
		if errors.Is(err, storage.ErrVendorNotFound) {
			return fmt.Errorf("%s: %w", op, ErrVendorNotFound)
		}
		logger.Error("failed to review vendor", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("vendor reviewed")
	return nil
}

func (s *catalogService) ListPendingProducts(ctx context.Context) ([]*models.Product, error) {
	const op = "service.CatalogService.ListPendingProducts"

	products, err := s.productRepo.ListProductsByStatus(ctx, models.ReviewPending)
	if err != nil {
		s.log.Error("failed to list products", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return nonNilProducts(products), nil
}

func (s *catalogService) ReviewProduct(ctx context.Context, productID int64, approve bool, reason string) error {
	const op = "service.CatalogService.ReviewProduct"
	logger := s.log.With(slog.String("op", op), slog.Int64("productID", productID), slog.Bool("approve", approve))

	// причина хранится только у отклонённых товаров
	if approve {
		reason = ""
	}
	if err := s.productRepo.UpdateProductStatus(ctx, productID, reviewStatus(approve), reason); err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return fmt.Errorf("%s: %w", op, ErrProductNotFound)
		}
		logger.Error("failed to review product", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("product reviewed")
	return nil
}

func (s *catalogService) ListProducts(ctx context.Context, limit, offset int) ([]*models.Product, error) {
	const op = "service.CatalogService.ListProducts"

	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	products, err := s.productRepo.ListApprovedProducts(ctx, limit, offset)
	if err != nil {
		s.log.Error("failed to list products", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return nonNilProducts(products), nil
}

// GetProduct отдаёт только товары, которые видны в каталоге
func (s *catalogService) GetProduct(ctx context.Context, productID int64) (*models.Product, error) {
	const op = "service.CatalogService.GetProduct"

	product, err := s.productRepo.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, storage.ErrProductNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrProductNotFound)
		}
		s.log.Error("failed to get product", slog.String("op", op), slog.Int64("productID", productID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if product.Status != models.ReviewApproved {
		return nil, fmt.Errorf("%s: %w", op, ErrProductNotFound)
	}

	vendor, err := s.vendorRepo.GetVendorByID(ctx, product.VendorID)
	if err != nil {
		if errors.Is(err, storage.ErrVendorNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrProductNotFound)
		}
		s.log.Error("failed to get vendor", slog.String("op", op), slog.Int64("vendorID", product.VendorID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if vendor.Status != models.ReviewApproved {
		return nil, fmt.Errorf("%s: %w", op, ErrProductNotFound)
	}
	return product, nil
}

func reviewStatus(approve bool) models.ReviewStatus {
	if approve {
		return models.ReviewApproved
	}
	return models.ReviewRejected
}

func nonNilProducts(products []*models.Product) []*models.Product {
	if products == nil {
		return []*models.Product{}
	}
	return products
}
