package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shift-roster-api/internal/service"
	appErrors "github.com/noah-isme/shift-roster-api/pkg/errors"
	"github.com/noah-isme/shift-roster-api/pkg/response"
)

type metricsProvider interface {
	Handler() http.Handler
	Snapshot() service.MetricsSnapshot
}

type sessionCounter interface {
	ActiveCount(ctx context.Context) (int, error)
}

type metricsSummary struct {
	service.MetricsSnapshot
	ActiveSessions int `json:"active_sessions"`
}

// Pinger is satisfied by *sqlx.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// MetricsHandler exposes Prometheus metrics and service health.
type MetricsHandler struct {
	metrics  metricsProvider
	db       Pinger
	sessions sessionCounter
}

// NewMetricsHandler constructs the handler. sessions may be nil.
func NewMetricsHandler(metrics *service.MetricsService, db Pinger, sessions *service.ScheduleSessionService) *MetricsHandler {
	h := &MetricsHandler{metrics: metrics, db: db}
	if sessions != nil {
		h.sessions = sessions
	}
	return h
}

// Prometheus godoc
// @Summary Prometheus metrics
// @Tags Metrics
// @Produce plain
// @Success 200 {string} string "metrics"
// @Router /metrics [get]
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Summary godoc
// @Summary Compact counter summary
// @Tags Metrics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /metrics/summary [get]
func (h *MetricsHandler) Summary(c *gin.Context) {
	summary := metricsSummary{MetricsSnapshot: h.metrics.Snapshot()}
	if h.sessions != nil {
		count, err := h.sessions.ActiveCount(c.Request.Context())
		if err != nil {
			response.Error(c, err)
			return
		}
		summary.ActiveSessions = count
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Health godoc
// @Summary Liveness probe
// @Tags Metrics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /health [get]
func (h *MetricsHandler) Health(c *gin.Context) {
	response.JSON(c, http.StatusOK, gin.H{"status": "ok"}, nil)
}

// Ready godoc
// @Summary Readiness probe, checks the database
// @Tags Metrics
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /ready [get]
func (h *MetricsHandler) Ready(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			response.Error(c, appErrors.Persistence(err, "database unavailable"))
			return
		}
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "ready"}, nil)
}
