package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/marketplace/internal/domain/models"
	"github.com/linemk/marketplace/internal/lib/api/response"
	"github.com/linemk/marketplace/internal/service"
)

type AddToCartRequest struct {
	VariantID int64 `json:"variant_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
}

type UpdateCartItemRequest struct {
	// 0 удаляет строку
	Quantity *int `json:"quantity" validate:"required,gte=0"`
}

type AddressRequest struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone" validate:"required,min=10,max=15"`
	Line1   string `json:"line1" validate:"required"`
	Line2   string `json:"line2"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	Pincode string `json:"pincode" validate:"required,numeric,len=6"`
}

// GetCartHandler обрабатывает запрос GET /api/cart
func GetCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}

		cart, err := cartService.List(r.Context(), userID)
		if err != nil {
			renderError(w, r, logger, err)
			return
		}
		response.Render(w, r, http.StatusOK, response.OK(cart))
	}
}

// AddToCartHandler обрабатывает запрос POST /api/cart
func AddToCartHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.AddToCartHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}
		var req AddToCartRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		item, err := cartService.Add(r.Context(), userID, req.VariantID, req.Quantity)
		if err != nil {
			renderError(w, r, logger, err)
			return
		}
		response.Render(w, r, http.StatusOK, response.OK(item))
	}
}

// UpdateCartItemHandler обрабатывает запрос PATCH /api/cart/{itemID}
func UpdateCartItemHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateCartItemHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}
		itemID, ok := idParam(w, r, logger, "itemID")
		if !ok {
			return
		}
		var req UpdateCartItemRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		if err := cartService.Update(r.Context(), userID, itemID, *req.Quantity); err != nil {
			renderError(w, r, logger, err)
			return
		}
		response.Render(w, r, http.StatusOK, response.OK(nil))
	}
}

// RemoveCartItemHandler обрабатывает запрос DELETE /api/cart/{itemID}
func RemoveCartItemHandler(log *slog.Logger, cartService service.CartService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RemoveCartItemHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}
		itemID, ok := idParam(w, r, logger, "itemID")
		if !ok {
			return
		}

		if err := cartService.Remove(r.Context(), userID, itemID); err != nil {
			renderError(w, r, logger, err)
			return
		}
		response.Render(w, r, http.StatusOK, response.OK(nil))
	}
}

// ListAddressesHandler обрабатывает запрос GET /api/addresses
func ListAddressesHandler(log *slog.Logger, addressService service.AddressService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListAddressesHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}

		addresses, err := addressService.List(r.Context(), userID)
		if err != nil {
			renderError(w, r, logger, err)
			return
		}
		response.Render(w, r, http.StatusOK, response.OK(addresses))
	}
}

// CreateAddressHandler обрабатывает запрос POST /api/addresses
func CreateAddressHandler(log *slog.Logger, addressService service.AddressService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateAddressHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}
		var req AddressRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		address, err := addressService.Create(r.Context(), userID, &models.Address{
			Name:    req.Name,
			Phone:   req.Phone,
			Line1:   req.Line1,
			Line2:   req.Line2,
			City:    req.City,
			State:   req.State,
			Pincode: req.Pincode,
		})
		if err != nil {
			renderError(w, r, logger, err)
			return
		}
		response.Render(w, r, http.StatusCreated, response.OK(address))
	}
}
