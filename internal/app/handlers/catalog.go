package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/marketplace/internal/domain/models"
	"github.com/linemk/marketplace/internal/lib/api/response"
	"github.com/linemk/marketplace/internal/service"
	"github.com/shopspring/decimal"
)

// ListProductsHandler — публичный каталог: GET /api/products?limit=&offset=
func ListProductsHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListProductsHandler"
		logger := log.With(slog.String("op", op))

		products, err := catalogService.ListProducts(r.Context(), queryInt(r, "limit", 0), queryInt(r, "offset", 0))
		if err != nil {
			renderError(w, r, logger, err)
			return
		}
		response.Render(w, r, http.StatusOK, response.OK(products))
	}
}

// GetProductHandler обрабатывает запрос GET /api/products/{id}
func GetProductHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetProductHandler"
		logger := log.With(slog.String("op", op))

		productID, ok := idParam(w, r, logger, "id")
		if !ok {
			return
		}

		product, err := catalogService.GetProduct(r.Context(), productID)
		if err != nil {
			renderError(w, r, logger, err)
			return
		}
		response.Render(w, r, http.StatusOK, response.OK(product))
	}
}

// ---------- продавец ----------

type OnboardRequest struct {
	BusinessName string `json:"business_name" validate:"required"`
	Phone        string `json:"phone" validate:"required,min=10,max=15"`
	PickupLine1  string `json:"pickup_line1" validate:"required"`
	PickupLine2  string `json:"pickup_line2"`
	PickupCity   string `json:"pickup_city" validate:"required"`
	PickupState  string `json:"pickup_state" validate:"required"`
	PickupPin    string `json:"pickup_pincode" validate:"required,numeric,len=6"`
}

type VariantRequest struct {
	SKU       string          `json:"sku" validate:"required"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock" validate:"gte=0"`
	WeightKg  float64         `json:"weight_kg" validate:"gt=0"`
	LengthCm  float64         `json:"length_cm" validate:"gt=0"`
	BreadthCm float64         `json:"breadth_cm" validate:"gt=0"`
	HeightCm  float64         `json:"height_cm" validate:"gt=0"`
}

type CreateProductRequest struct {
	Name        string           `json:"name" validate:"required"`
	Description string           `json:"description"`
	Variants    []VariantRequest `json:"variants" validate:"required,min=1,dive"`
}

type UpdateStockRequest struct {
	Stock *int `json:"stock" validate:"required,gte=0"`
}

// OnboardVendorHandler обрабатывает запрос POST /api/vendor/onboard
func OnboardVendorHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.OnboardVendorHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}
		var req OnboardRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		vendor, err := catalogService.Onboard(r.Context(), userID, &models.Vendor{
			BusinessName: req.BusinessName,
			Phone:        req.Phone,
			PickupLine1:  req.PickupLine1,
			PickupLine2:  req.PickupLine2,
			PickupCity:   req.PickupCity,
			PickupState:  req.PickupState,
			PickupPin:    req.PickupPin,
		})
		if err != nil {
			renderError(w, r, logger, err)
			return
		}
		response.Render(w, r, http.StatusCreated, response.OK(vendor))
	}
}

// CreateProductHandler обрабатывает запрос POST /api/vendor/products
func CreateProductHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateProductHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}
		var req CreateProductRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		product := &models.Product{Name: req.Name, Description: req.Description}
		for _, v := range req.Variants {
			// decimal не проверяется тегами validator
			if !v.Price.IsPositive() {
				logger.Warn("invalid request: non-positive price", slog.String("sku", v.SKU))
				response.Render(w, r, http.StatusBadRequest, response.Error("VALIDATION_ERROR"))
				return
			}
			product.Variants = append(product.Variants, &models.Variant{
				SKU:       v.SKU,
				Price:     v.Price,
				Stock:     v.Stock,
				WeightKg:  v.WeightKg,
				LengthCm:  v.LengthCm,
				BreadthCm: v.BreadthCm,
				HeightCm:  v.HeightCm,
			})
		}

		created, err := catalogService.CreateProduct(r.Context(), userID, product)
		if err != nil {
			renderError(w, r, logger, err)
			return
		}
		response.Render(w, r, http.StatusCreated, response.OK(created))
	}
}

// ListVendorProductsHandler обрабатывает запрос GET /api/vendor/products
func ListVendorProductsHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListVendorProductsHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}

		products, err := catalogService.ListVendorProducts(r.Context(), userID)
		if err != nil {
			renderError(w, r, logger, err)
			return
		}
		response.Render(w, r, http.StatusOK, response.OK(products))
	}
}

// UpdateStockHandler обрабатывает запрос PATCH /api/vendor/variants/{id}/stock
func UpdateStockHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateStockHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}
		variantID, ok := idParam(w, r, logger, "id")
		if !ok {
			return
		}
		var req UpdateStockRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		if err := catalogService.UpdateStock(r.Context(), userID, variantID, *req.Stock); err != nil {
			renderError(w, r, logger, err)
			return
		}
		response.Render(w, r, http.StatusOK, response.OK(nil))
	}
}

// ---------- менеджер продавцов ----------

type ReviewRequest struct {
	Approve *bool  `json:"approve" validate:"required"`
	Reason  string `json:"reason" validate:"max=500"`
}

func ListPendingVendorsHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListPendingVendorsHandler"
		logger := log.With(slog.String("op", op))

		vendors, err := catalogService.ListPendingVendors(r.Context())
		if err != nil {
			renderError(w, r, logger, err)
			return
		}
		response.Render(w, r, http.StatusOK, response.OK(vendors))
	}
}

func ReviewVendorHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ReviewVendorHandler"
		logger := log.With(slog.String("op", op))

		vendorID, ok := idParam(w, r, logger, "id")
		if !ok {
			return
		}
		var req ReviewRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		if err := catalogService.ReviewVendor(r.Context(), vendorID, *req.Approve); err != nil {
			renderError(w, r, logger, err)
			return
		}
		response.Render(w, r, http.StatusOK, response.OK(nil))
	}
}

func ListPendingProductsHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListPendingProductsHandler"
		logger := log.With(slog.String("op", op))

		products, err := catalogService.ListPendingProducts(r.Context())
		if err != nil {
			renderError(w, r, logger, err)
			return
		}
		response.Render(w, r, http.StatusOK, response.OK(products))
	}
}

func ReviewProductHandler(log *slog.Logger, catalogService service.CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ReviewProductHandler"
		logger := log.With(slog.String("op", op))

		productID, ok := idParam(w, r, logger, "id")
		if !ok {
			return
		}
		var req ReviewRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		if err := catalogService.ReviewProduct(r.Context(), productID, *req.Approve, req.Reason); err != nil {
			renderError(w, r, logger, err)
			return
		}
		response.Render(w, r, http.StatusOK, response.OK(nil))
	}
}
