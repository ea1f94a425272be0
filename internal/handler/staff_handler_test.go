package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shift-roster-api/internal/models"
	"github.com/noah-isme/shift-roster-api/internal/service"
	appErrors "github.com/noah-isme/shift-roster-api/pkg/errors"
)

type staffServiceMock struct {
	includeInactive bool
	created         service.CreateStaffRequest
	actor           string
	activeSet       *bool
	deleted         string
	err             error
}

func (m *staffServiceMock) List(_ context.Context, includeInactive bool) ([]models.Staff, error) {
	m.includeInactive = includeInactive
	return []models.Staff{{ID: "s1", Name: "Alice", Active: true}}, m.err
}

func (m *staffServiceMock) Get(_ context.Context, id string) (*models.Staff, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.Staff{ID: id, Name: "Alice", Active: true}, nil
}

func (m *staffServiceMock) Create(_ context.Context, req service.CreateStaffRequest, actor string) (*models.Staff, error) {
	m.created = req
	m.actor = actor
	if m.err != nil {
		return nil, m.err
	}
	return &models.Staff{ID: "s2", Name: req.Name, Active: true, CreatedAt: time.Now()}, nil
}

func (m *staffServiceMock) SetActive(_ context.Context, id string, active bool, actor string) (*models.Staff, error) {
	m.activeSet = &active
	m.actor = actor
	return &models.Staff{ID: id, Active: active}, m.err
}

func (m *staffServiceMock) Delete(_ context.Context, id, actor string) error {
	m.deleted = id
	m.actor = actor
	return m.err
}

func staffRouter(mock *staffServiceMock) *gin.Engine {
	h := &StaffHandler{service: mock}
	return newTestRouter(models.RoleAdmin, func(r *gin.Engine) {
		r.GET("/staff", h.List)
		r.GET("/staff/:id", h.Get)
		r.POST("/staff", h.Create)
		r.PATCH("/staff/:id/status", h.UpdateStatus)
		r.DELETE("/staff/:id", h.Delete)
	})
}

func TestStaffHandlerList(t *testing.T) {
	mock := &staffServiceMock{}
	w := doJSON(t, staffRouter(mock), http.MethodGet, "/staff?include_inactive=true", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mock.includeInactive)
	var staff []models.Staff
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &staff))
	assert.Len(t, staff, 1)
}

func TestStaffHandlerCreate(t *testing.T) {
	mock := &staffServiceMock{}
	w := doJSON(t, staffRouter(mock), http.MethodPost, "/staff", map[string]string{"name": "Bob"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Bob", mock.created.Name)
	assert.Equal(t, "user-1", mock.actor)
}

func TestStaffHandlerCreateInvalidPayload(t *testing.T) {
	w := doJSON(t, staffRouter(&staffServiceMock{}), http.MethodPost, "/staff", "{}")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decode(t, w).Error.Code)
}

func TestStaffHandlerCreateConflict(t *testing.T) {
	mock := &staffServiceMock{err: appErrors.Clone(appErrors.ErrConflict, "staff name already exists")}
	w := doJSON(t, staffRouter(mock), http.MethodPost, "/staff", map[string]string{"name": "Alice"})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStaffHandlerUpdateStatus(t *testing.T) {
	mock := &staffServiceMock{}
	w := doJSON(t, staffRouter(mock), http.MethodPatch, "/staff/s1/status", map[string]bool{"active": false})

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mock.activeSet)
	assert.False(t, *mock.activeSet)
}

func TestStaffHandlerUpdateStatusRequiresFlag(t *testing.T) {
	w := doJSON(t, staffRouter(&staffServiceMock{}), http.MethodPatch, "/staff/s1/status", "{}")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStaffHandlerDelete(t *testing.T) {
	mock := &staffServiceMock{}
	w := doJSON(t, staffRouter(mock), http.MethodDelete, "/staff/s1", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "s1", mock.deleted)
}

func TestStaffHandlerGetNotFound(t *testing.T) {
	mock := &staffServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "staff member not found")}
	w := doJSON(t, staffRouter(mock), http.MethodGet, "/staff/missing", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
