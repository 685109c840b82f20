package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/linemk/marketplace/internal/lib/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONCarriesServiceAndEnv(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, logger.EnvProd, logger.ServiceWorker)

	log.Info("batch processed", "count", 3)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "batch processed", rec["msg"])
	assert.Equal(t, "outbox-worker", rec["service"])
	assert.Equal(t, "prod", rec["env"])
	assert.EqualValues(t, 3, rec["count"])
}

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		env       string
		wantDebug bool
	}{
		{logger.EnvDev, true},
		{logger.EnvProd, false},
		{"staging", false},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			var buf bytes.Buffer
			log := logger.New(&buf, tt.env, logger.ServiceAPI)

			log.Debug("cart loaded")
			assert.Equal(t, tt.wantDebug, buf.Len() > 0)
		})
	}
}

func TestNew_LocalPretty(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(&buf, logger.EnvLocal, logger.ServiceAPI)

	log.Debug("starting app")

	out := buf.String()
	assert.Contains(t, out, "starting app")
	assert.Contains(t, out, `"service": "api"`)
	assert.Contains(t, out, `"env": "local"`)
}
