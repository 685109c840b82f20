package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/linemk/marketplace/internal/lib/api/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_Error(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()

	response.Render(rr, req, http.StatusConflict, response.Error("OUT_OF_STOCK"))

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "OUT_OF_STOCK", body["message"])
	_, hasData := body["data"]
	assert.False(t, hasData)
}

func TestRender_OK(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()

	response.Render(rr, req, http.StatusCreated, response.OK(map[string]int64{"order_id": 7}))

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.JSONEq(t, `{"success":true,"data":{"order_id":7}}`, rr.Body.String())
}
