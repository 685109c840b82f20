package urllog_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/linemk/marketplace/internal/lib/logger/handlers/urllog"
	"github.com/stretchr/testify/assert"
)

func TestCustomLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	h := middleware.RequestID(urllog.CustomLoggerMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/checkout?x=1", nil))

	out := buf.String()
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, out, `"msg":"request completed"`)
	assert.Contains(t, out, `"path":"/api/checkout"`)
	assert.Contains(t, out, `"status":409`)
	assert.Contains(t, out, `"request_id":`)
}
