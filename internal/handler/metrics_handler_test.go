package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/shift-roster-api/internal/models"
	"github.com/noah-isme/shift-roster-api/internal/service"
)

type pingerMock struct{ err error }

func (p pingerMock) PingContext(context.Context) error { return p.err }

func metricsRouter(db Pinger) (*gin.Engine, *service.MetricsService) {
	metrics := service.NewMetricsService()
	sessions := service.NewScheduleSessionService(nil, nil, service.NewMemorySessionStore(time.Hour), nil, nil)
	h := NewMetricsHandler(metrics, db, sessions)
	return newTestRouter(models.RoleViewer, func(r *gin.Engine) {
		r.GET("/metrics", h.Prometheus)
		r.GET("/metrics/summary", h.Summary)
		r.GET("/health", h.Health)
		r.GET("/ready", h.Ready)
	}), metrics
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	r, metrics := metricsRouter(nil)
	metrics.ObserveBatch("bulk", "completed", 3, time.Millisecond)

	w := doJSON(t, r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "roster_batches_total")
}

func TestMetricsHandlerSummary(t *testing.T) {
	r, metrics := metricsRouter(nil)
	metrics.ObserveBatch("bulk", "failed", 0, time.Millisecond)

	w := doJSON(t, r, http.MethodGet, "/metrics/summary", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := string(decode(t, w).Data)
	assert.Contains(t, data, `"batches_failed":1`)
	assert.Contains(t, data, `"active_sessions":0`)
}

func TestMetricsHandlerReady(t *testing.T) {
	r, _ := metricsRouter(pingerMock{})
	assert.Equal(t, http.StatusOK, doJSON(t, r, http.MethodGet, "/ready", nil).Code)

	r, _ = metricsRouter(pingerMock{err: errors.New("connection refused")})
	assert.Equal(t, http.StatusServiceUnavailable, doJSON(t, r, http.MethodGet, "/ready", nil).Code)

	assert.Equal(t, http.StatusOK, doJSON(t, r, http.MethodGet, "/health", nil).Code)
}
