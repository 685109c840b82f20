package handlers

import (
	"log/slog"
	"net/http"

	"github.com/linemk/marketplace/internal/domain/models"
	"github.com/linemk/marketplace/internal/lib/api/response"
	"github.com/linemk/marketplace/internal/service"
)

type UpdateShipmentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=in_transit delivered rto cancelled"`
}

// ListShipmentsHandler — складская панель: GET /api/warehouse/shipments?status=
func ListShipmentsHandler(log *slog.Logger, fulfilmentService service.FulfilmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListShipmentsHandler"
		logger := log.With(slog.String("op", op))

		status := models.ShipmentStatus(r.URL.Query().Get("status"))
		shipments, err := fulfilmentService.ListShipments(r.Context(), status)
		if err != nil {
			renderError(w, r, logger, err)
			return
		}
		response.Render(w, r, http.StatusOK, response.OK(shipments))
	}
}

// UpdateShipmentStatusHandler обрабатывает запрос PATCH /api/warehouse/shipments/{id}/status
func UpdateShipmentStatusHandler(log *slog.Logger, fulfilmentService service.FulfilmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateShipmentStatusHandler"
		logger := log.With(slog.String("op", op))

		shipmentID, ok := idParam(w, r, logger, "id")
		if !ok {
			return
		}
		var req UpdateShipmentStatusRequest
		if !decodeRequest(w, r, logger, &req) {
			return
		}

		shipment, err := fulfilmentService.UpdateShipmentStatus(r.Context(), shipmentID, models.ShipmentStatus(req.Status))
		if err != nil {
			renderError(w, r, logger, err)
			return
		}
		response.Render(w, r, http.StatusOK, response.OK(shipment))
	}
}
