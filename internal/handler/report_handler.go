package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shift-roster-api/internal/dto"
	"github.com/noah-isme/shift-roster-api/internal/models"
	"github.com/noah-isme/shift-roster-api/internal/service"
	appErrors "github.com/noah-isme/shift-roster-api/pkg/errors"
	"github.com/noah-isme/shift-roster-api/pkg/response"
	"github.com/noah-isme/shift-roster-api/pkg/storage"
	"github.com/noah-isme/shift-roster-api/pkg/weekcal"
)

type reportBuilder interface {
	WeekMatrix(ctx context.Context, ref time.Time) ([]models.ReportRow, weekcal.Week, error)
	Export(ctx context.Context, ref time.Time, format service.ReportFormat) (*service.ReportFile, error)
	Archive(ctx context.Context, ref time.Time, format service.ReportFormat) (*service.ArchivedReport, error)
}

type downloadTokenParser interface {
	Parse(token string) (string, error)
}

type archiveOpener interface {
	Open(name string) (*os.File, error)
}

// ReportHandler serves the weekly roster report.
type ReportHandler struct {
	service reportBuilder
	tokens  downloadTokenParser
	files   archiveOpener
}

// NewReportHandler constructs the handler. signer and files may be nil when archiving is disabled.
func NewReportHandler(svc *service.ReportService, signer *storage.DownloadSigner, files *storage.LocalStorage) *ReportHandler {
	h := &ReportHandler{service: svc}
	if signer != nil {
		h.tokens = signer
	}
	if files != nil {
		h.files = files
	}
	return h
}

// Week godoc
// @Summary Weekly roster report
// @Tags Reports
// @Produce json
// @Produce text/csv
// @Produce application/pdf
// @Param date query string false "Any date in the week (YYYY-MM-DD), defaults to today"
// @Param format query string false "json, csv or pdf"
// @Success 200 {object} response.Envelope
// @Router /reports/week [get]
func (h *ReportHandler) Week(c *gin.Context) {
	ref, err := optionalDate(c.Query("date"), "date")
	if err != nil {
		response.Error(c, err)
		return
	}
	if ref.IsZero() {
		ref = time.Now()
	}

	format := c.DefaultQuery("format", "json")
	if format == "json" {
		rows, week, err := h.service.WeekMatrix(c.Request.Context(), ref)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, rows, nil, map[string]interface{}{
			"week_start": weekcal.FormatDate(week.Start),
			"label":      weekcal.FormatRange(week),
		})
		return
	}

	parsed, err := service.ParseReportFormat(format)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.service.Export(c.Request.Context(), ref, parsed)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

// Archive godoc
// @Summary Store a rendered report and return a signed download link
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.ArchiveReportRequest true "Archive payload"
// @Success 201 {object} response.Envelope
// @Router /reports/archive [post]
func (h *ReportHandler) Archive(c *gin.Context) {
	var req dto.ArchiveReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "report archive"))
		return
	}
	ref, err := optionalDate(req.Week, "week")
	if err != nil {
		response.Error(c, err)
		return
	}
	if ref.IsZero() {
		ref = time.Now()
	}
	format, err := service.ParseReportFormat(req.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	archived, err := h.service.Archive(c.Request.Context(), ref, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, archived)
}

// Download godoc
// @Summary Download an archived report
// @Tags Reports
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /reports/download [get]
func (h *ReportHandler) Download(c *gin.Context) {
	if h.tokens == nil || h.files == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "report archive is disabled"))
		return
	}
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Validation("token is required"))
		return
	}
	name, err := h.tokens.Parse(token)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token"))
		return
	}

	file, err := h.files.Open(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "archived report not found"))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to open archived report"))
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to read archived report"))
		return
	}
	contentType := "application/octet-stream"
	switch filepath.Ext(name) {
	case ".csv":
		contentType = "text/csv"
	case ".pdf":
		contentType = "application/pdf"
	}
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", filepath.Base(name)),
	})
}
