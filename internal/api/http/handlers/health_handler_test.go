package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

type stubSequence struct {
	stubPinger
	mode string
}

func (s stubSequence) SequenceMode() string { return s.mode }

func TestHealthReady(t *testing.T) {
	down := errors.New("connection refused")

	tests := []struct {
		name       string
		postgres   Pinger
		redis      SequenceReporter
		wantCode   int
		wantStatus string
		wantMode   string
	}{
		{name: "all up with redis sequencing", postgres: stubPinger{}, redis: stubSequence{mode: "redis"}, wantCode: http.StatusOK, wantStatus: "ready", wantMode: "redis"},
		{name: "redis sequencing disabled", postgres: stubPinger{}, redis: stubSequence{mode: "database"}, wantCode: http.StatusOK, wantStatus: "ready", wantMode: "database"},
		{name: "redis down degrades", postgres: stubPinger{}, redis: stubSequence{stubPinger: stubPinger{err: down}, mode: "redis"}, wantCode: http.StatusOK, wantStatus: "degraded", wantMode: "database"},
		{name: "no redis configured", postgres: stubPinger{}, wantCode: http.StatusOK, wantStatus: "ready", wantMode: "database"},
		{name: "postgres down", postgres: stubPinger{err: down}, redis: stubSequence{mode: "redis"}, wantCode: http.StatusServiceUnavailable},
		{name: "postgres not configured", wantCode: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/ready", NewHealthHandlerWith("saos", "test", tt.postgres, tt.redis).Ready)

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ready", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, resp.StatusCode)

			var body struct {
				Status         string `json:"status"`
				ReferenceCodes string `json:"reference_codes"`
				Error          *struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			if tt.wantCode != http.StatusOK {
				require.NotNil(t, body.Error)
				assert.Equal(t, "DEPENDENCY_UNAVAILABLE", body.Error.Code)
				return
			}
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, tt.wantMode, body.ReferenceCodes)
		})
	}
}

func TestNewHealthHandlerWithoutDependencies(t *testing.T) {
	h := NewHealthHandler("saos", "test", nil, nil)
	assert.Nil(t, h.postgres)
	assert.Nil(t, h.redis)
}
