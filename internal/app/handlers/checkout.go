package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/marketplace/internal/lib/api/response"
	"github.com/linemk/marketplace/internal/service"
)

type CheckoutRequest struct {
	AddressID int64 `json:"address_id" validate:"required,gt=0"`
}

type BuyNowRequest struct {
	VariantID int64 `json:"variant_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,gt=0"`
	AddressID int64 `json:"address_id" validate:"required,gt=0"`
}

// CheckoutHandler обрабатывает запрос POST /api/checkout
func CheckoutHandler(log *slog.Logger, checkoutService service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CheckoutHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}
		var req CheckoutRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		order, err := checkoutService.Checkout(r.Context(), userID, req.AddressID)
		if err != nil {
			renderError(w, r, logger, err)
			return
		}

		response.Render(w, r, http.StatusCreated, response.OK(order))
	}
}

// BuyNowHandler обрабатывает запрос POST /api/buy-now
func BuyNowHandler(log *slog.Logger, checkoutService service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.BuyNowHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}
		var req BuyNowRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		order, err := checkoutService.BuyNow(r.Context(), userID, service.BuyNowInput{
			VariantID: req.VariantID,
			Quantity:  req.Quantity,
			AddressID: req.AddressID,
		})
		if err != nil {
			renderError(w, r, logger, err)
			return
		}

		response.Render(w, r, http.StatusCreated, response.OK(order))
	}
}
