package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shift-roster-api/internal/dto"
	"github.com/noah-isme/shift-roster-api/internal/service"
	"github.com/noah-isme/shift-roster-api/pkg/response"
)

type sessionWorkflow interface {
	Start(ctx context.Context, staffID string, weekRef time.Time, actor string) (*service.SessionView, error)
	Get(ctx context.Context, id string) (*service.SessionView, error)
	Apply(ctx context.Context, id string, ev service.Event) (*service.SessionView, error)
	Cancel(ctx context.Context, id string) (*service.SessionView, error)
}

// SessionHandler drives the step-by-step weekly editing workflow.
type SessionHandler struct {
	service sessionWorkflow
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(svc *service.ScheduleSessionService) *SessionHandler {
	return &SessionHandler{service: svc}
}

// Start godoc
// @Summary Open an editing workflow for one staff member and week
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body dto.StartSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Start(c *gin.Context) {
	var req dto.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "session"))
		return
	}
	week, err := optionalDate(req.Week, "week")
	if err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.service.Start(c.Request.Context(), req.StaffID, week, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// Get godoc
// @Summary Current state of a workflow
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	view, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Event godoc
// @Summary Feed one event into a workflow
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.SessionEventRequest true "Event payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id}/events [post]
func (h *SessionHandler) Event(c *gin.Context) {
	var req dto.SessionEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "session event"))
		return
	}
	view, err := h.service.Apply(c.Request.Context(), c.Param("id"), service.Event{
		Kind:   service.EventKind(req.Kind),
		Day:    req.Day,
		Time:   req.Time,
		Target: req.Target,
	})
	if err != nil {
		response.ErrorWithData(c, err, view)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Cancel godoc
// @Summary Discard a workflow without writing anything
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Cancel(c *gin.Context) {
	view, err := h.service.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
