package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uns-cex/matricula-api/internal/service"
	"github.com/uns-cex/matricula-api/pkg/response"
)

func TestMetricsHandlerSnapshot(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	metrics.RecordSeatReservation(true)
	metrics.RecordSeatReservation(false)
	h := NewMetricsHandler(metrics)

	r := gin.New()
	r.GET("/metrics/summary", h.Snapshot)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics/summary", nil)
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var env response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotNil(t, env.Data)
	payload, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), payload["seat_reservations"])
	assert.Equal(t, float64(1), payload["seat_rejections"])
}
