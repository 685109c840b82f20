package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/linemk/marketplace/internal/lib/api/response"
	"github.com/linemk/marketplace/internal/security/jwtmiddleware"
	"github.com/linemk/marketplace/internal/service"
)

var validate = validator.New()

// статусы для ошибок бизнес-логики; всё остальное — 500 INTERNAL_ERROR
var errorStatuses = []struct {
	err    error
	status int
}{
	{service.ErrCartEmpty, http.StatusBadRequest},
	{service.ErrOutOfStock, http.StatusBadRequest},
	{service.ErrInvalidVariant, http.StatusBadRequest},
	{service.ErrInvalidQuantity, http.StatusBadRequest},
	{service.ErrInvalidPayload, http.StatusBadRequest},
	{service.ErrInvalidStatus, http.StatusBadRequest},
	{service.ErrInvalidRole, http.StatusBadRequest},
	{service.ErrInvalidSignature, http.StatusBadRequest},
	{service.ErrVendorAddressMissing, http.StatusBadRequest},
	{service.ErrInvalidCredentials, http.StatusUnauthorized},
	{service.ErrVendorNotApproved, http.StatusForbidden},
	{service.ErrAddressNotFound, http.StatusNotFound},
	{service.ErrOrderNotFound, http.StatusNotFound},
	{service.ErrVendorNotFound, http.StatusNotFound},
	{service.ErrProductNotFound, http.StatusNotFound},
	{service.ErrShipmentNotFound, http.StatusNotFound},
	{service.ErrCartItemNotFound, http.StatusNotFound},
	{service.ErrEmailTaken, http.StatusConflict},
	{service.ErrVendorExists, http.StatusConflict},
	{service.ErrOrderNotPayable, http.StatusConflict},
	{service.ErrOrderNotCancellable, http.StatusConflict},
	{service.ErrInvalidStatusTransition, http.StatusConflict},
	{service.ErrResourceBusy, http.StatusConflict},
	{service.ErrPaymentGateway, http.StatusBadGateway},
	{service.ErrCourier, http.StatusBadGateway},
	{service.ErrNotServiceable, http.StatusInternalServerError},
}

// errorResponse подбирает HTTP-статус и код ошибки для клиента
func errorResponse(err error) (int, string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status, e.err.Error()
		}
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

func renderError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code := errorResponse(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", slog.Any("error", err))
	} else {
		logger.Warn("request rejected", slog.String("code", code), slog.Any("error", err))
	}
	response.Render(w, r, status, response.Error(code))
}

// decodeRequest читает JSON и проверяет его тегами validate; при ошибке сам отвечает 400
func decodeRequest(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Warn("invalid request: decoding error", slog.Any("error", err))
		response.Render(w, r, http.StatusBadRequest, response.Error("INVALID_REQUEST"))
		return false
	}
	if err := validate.Struct(dst); err != nil {
		logger.Warn("invalid request: validation error", slog.Any("error", err))
		response.Render(w, r, http.StatusBadRequest, response.Error("VALIDATION_ERROR"))
		return false
	}
	return true
}

// currentUser достаёт userID, положенный JWT middleware
func currentUser(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (int64, bool) {
	userID, ok := jwtmiddleware.FromContext(r.Context())
	if !ok {
		logger.Error("userID not found in context")
		response.Render(w, r, http.StatusUnauthorized, response.Error("UNAUTHORIZED"))
		return 0, false
	}
	return userID, true
}

// idParam читает положительный числовой параметр пути
func idParam(w http.ResponseWriter, r *http.Request, logger *slog.Logger, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		logger.Warn("invalid path parameter", slog.String("param", name), slog.String("value", chi.URLParam(r, name)))
		response.Render(w, r, http.StatusBadRequest, response.Error("INVALID_ID"))
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}
