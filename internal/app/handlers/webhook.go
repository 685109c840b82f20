package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/linemk/marketplace/internal/clients/razorpay"
	"github.com/linemk/marketplace/internal/service"
)

const maxWebhookBody = 1 << 20

// WebhookHandler принимает вебхуки платёжного шлюза: POST /webhook.
// Подпись считается по сырому телу, поэтому оно читается целиком до разбора.
// Ответ всегда без тела: 200, 400 при неверной подписи или теле, 500 при внутренней ошибке.
func WebhookHandler(log *slog.Logger, paymentService service.PaymentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.WebhookHandler"
		logger := log.With(slog.String("op", op))

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			logger.Warn("failed to read webhook body", slog.Any("error", err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		err = paymentService.HandleWebhook(r.Context(), body, r.Header.Get(razorpay.SignatureHeader))
		switch {
		case err == nil:
			w.WriteHeader(http.StatusOK)
		case errors.Is(err, service.ErrInvalidSignature), errors.Is(err, service.ErrInvalidPayload):
			logger.Warn("webhook rejected", slog.Any("error", err))
			w.WriteHeader(http.StatusBadRequest)
		default:
			// шлюз повторит доставку
			logger.Error("webhook processing failed", slog.Any("error", err))
			w.WriteHeader(http.StatusInternalServerError)
		}
	}
}
