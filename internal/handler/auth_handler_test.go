package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shift-roster-api/internal/models"
	"github.com/noah-isme/shift-roster-api/internal/service"
)

func authRouter() *gin.Engine {
	h := NewAuthHandler(service.NewAuthService(nil, service.AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour}))
	return newTestRouter(models.RoleAdmin, func(r *gin.Engine) {
		r.POST("/auth/tokens", h.IssueToken)
		r.GET("/auth/me", h.Me)
	})
}

func TestAuthHandlerIssueToken(t *testing.T) {
	w := doJSON(t, authRouter(), http.MethodPost, "/auth/tokens", map[string]string{"user_id": "u7", "role": "EDITOR"})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, string(decode(t, w).Data), "access_token")
}

func TestAuthHandlerIssueTokenRejectsRole(t *testing.T) {
	w := doJSON(t, authRouter(), http.MethodPost, "/auth/tokens", map[string]string{"user_id": "u7", "role": "ROOT"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlerMe(t *testing.T) {
	w := doJSON(t, authRouter(), http.MethodGet, "/auth/me", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), `"user_id":"user-1"`)
}
