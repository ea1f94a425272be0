package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shift-roster-api/internal/dto"
	"github.com/noah-isme/shift-roster-api/internal/middleware"
	"github.com/noah-isme/shift-roster-api/internal/service"
	appErrors "github.com/noah-isme/shift-roster-api/pkg/errors"
	"github.com/noah-isme/shift-roster-api/pkg/weekcal"
)

const systemActor = "system"

// actorFromContext names who is making the change for the change log.
func actorFromContext(c *gin.Context) string {
	if claims := middleware.Claims(c); claims != nil && claims.UserID != "" {
		return claims.UserID
	}
	return systemActor
}

func invalidPayload(err error, what string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid "+what+" payload")
}

// optionalDate parses a YYYY-MM-DD value; blank means zero time.
func optionalDate(raw, field string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	date, err := weekcal.ParseDate(raw)
	if err != nil {
		return time.Time{}, appErrors.Validation(field + " must be a YYYY-MM-DD date")
	}
	return date, nil
}

func requiredDate(raw, field string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, appErrors.Validation(field + " is required")
	}
	return optionalDate(raw, field)
}

func positiveIntQuery(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, appErrors.Validation(key + " must be a non-negative integer")
	}
	return value, nil
}

func entryInput(p dto.EntryPayload) service.EntryInput {
	in := service.EntryInput{StartTime: p.StartTime, EndTime: p.EndTime}
	if p.IsWorking != nil {
		in.IsWorking = *p.IsWorking
	}
	return in
}
