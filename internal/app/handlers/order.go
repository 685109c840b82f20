package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/marketplace/internal/lib/api/response"
	"github.com/linemk/marketplace/internal/service"
)

// ListOrdersHandler обрабатывает запрос GET /api/orders
func ListOrdersHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListOrdersHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}

		orders, err := orderService.List(r.Context(), userID)
		if err != nil {
			renderError(w, r, logger, err)
			return
		}
		response.Render(w, r, http.StatusOK, response.OK(orders))
	}
}

// GetOrderHandler обрабатывает запрос GET /api/orders/{id}
func GetOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetOrderHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}
		orderID, ok := idParam(w, r, logger, "id")
		if !ok {
			return
		}

		order, err := orderService.Get(r.Context(), userID, orderID)
		if err != nil {
			renderError(w, r, logger, err)
			return
		}
		response.Render(w, r, http.StatusOK, response.OK(order))
	}
}

// PayOrderHandler создаёт заказ в платёжном шлюзе: POST /api/orders/{id}/pay
func PayOrderHandler(log *slog.Logger, paymentService service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PayOrderHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}
		orderID, ok := idParam(w, r, logger, "id")
		if !ok {
			return
		}

		intent, err := paymentService.CreatePayment(r.Context(), userID, orderID)
		if err != nil {
			renderError(w, r, logger, err)
			return
		}
		response.Render(w, r, http.StatusCreated, response.OK(intent))
	}
}

// CancelOrderHandler обрабатывает запрос POST /api/orders/{id}/cancel
func CancelOrderHandler(log *slog.Logger, fulfilmentService service.FulfilmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CancelOrderHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := currentUser(w, r, logger)
		if !ok {
			return
		}
		orderID, ok := idParam(w, r, logger, "id")
		if !ok {
			return
		}

		order, err := fulfilmentService.CancelOrder(r.Context(), userID, orderID)
		if err != nil {
			renderError(w, r, logger, err)
			return
		}
		response.Render(w, r, http.StatusOK, response.OK(order))
	}
}
