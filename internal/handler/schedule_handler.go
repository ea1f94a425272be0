package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shift-roster-api/internal/dto"
	"github.com/noah-isme/shift-roster-api/internal/models"
	"github.com/noah-isme/shift-roster-api/internal/service"
	appErrors "github.com/noah-isme/shift-roster-api/pkg/errors"
	"github.com/noah-isme/shift-roster-api/pkg/response"
	"github.com/noah-isme/shift-roster-api/pkg/weekcal"
)

const defaultChangePageSize = 50

type scheduleManager interface {
	Upsert(ctx context.Context, in service.UpsertEntryInput, actor string) (*service.UpsertOutcome, error)
	QuickEdit(ctx context.Context, staffID string, date time.Time, in service.EntryInput, actor string) (*service.UpsertOutcome, error)
	ListByStaff(ctx context.Context, staffID string) ([]models.ScheduleEntry, error)
	ListWeek(ctx context.Context, ref time.Time, staffID string) (weekcal.Week, []models.ScheduleEntry, error)
	ListHistory(ctx context.Context, staffID string, weeks int) ([]models.WeekSchedule, error)
	ListChanges(ctx context.Context, filter models.ChangeLogFilter) ([]models.ChangeLog, int, error)
}

type batchSaver interface {
	SaveBatch(ctx context.Context, req service.BatchRequest) (*service.BatchResult, error)
}

type coverageAnalyzer interface {
	AnalyzeWeek(ctx context.Context, ref time.Time) (*models.CoverageReport, error)
}

type weekMirror interface {
	Mirror(ctx context.Context, source, target time.Time, actor string) (*service.MirrorResult, error)
}

type weekResponse struct {
	Start   time.Time              `json:"start"`
	Label   string                 `json:"label"`
	Days    []weekcal.DayDate      `json:"days"`
	Entries []models.ScheduleEntry `json:"entries"`
}

// ScheduleHandler exposes schedule reads and writes.
type ScheduleHandler struct {
	schedule scheduleManager
	batches  batchSaver
	coverage coverageAnalyzer
	mirror   weekMirror
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(schedule *service.ScheduleService, batches *service.BulkSaveService, coverage *service.ConflictService, mirror *service.MirrorService) *ScheduleHandler {
	return &ScheduleHandler{schedule: schedule, batches: batches, coverage: coverage, mirror: mirror}
}

// Upsert godoc
// @Summary Write one schedule entry
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.UpsertEntryRequest true "Entry payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/entries [put]
func (h *ScheduleHandler) Upsert(c *gin.Context) {
	var req dto.UpsertEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "schedule entry"))
		return
	}
	date, err := requiredDate(req.Date, "date")
	if err != nil {
		response.Error(c, err)
		return
	}
	outcome, err := h.schedule.Upsert(c.Request.Context(), service.UpsertEntryInput{
		StaffID:    req.StaffID,
		DayOfWeek:  req.DayOfWeek,
		Date:       date,
		EntryInput: entryInput(req.EntryPayload),
	}, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}

// QuickEdit godoc
// @Summary Change a single day outside the editing workflow
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.QuickEditRequest true "Quick edit payload"
// @Success 200 {object} response.Envelope
// @Router /schedules/entries/quick [patch]
func (h *ScheduleHandler) QuickEdit(c *gin.Context) {
	var req dto.QuickEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "quick edit"))
		return
	}
	date, err := requiredDate(req.Date, "date")
	if err != nil {
		response.Error(c, err)
		return
	}
	outcome, err := h.schedule.QuickEdit(c.Request.Context(), req.StaffID, date, entryInput(req.EntryPayload), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}

// Week godoc
// @Summary Entries of one week
// @Tags Schedules
// @Produce json
// @Param date query string false "Any date in the week (YYYY-MM-DD), defaults to today"
// @Param staff_id query string false "Restrict to one staff member"
// @Success 200 {object} response.Envelope
// @Router /schedules/week [get]
func (h *ScheduleHandler) Week(c *gin.Context) {
	ref, err := optionalDate(c.Query("date"), "date")
	if err != nil {
		response.Error(c, err)
		return
	}
	week, entries, err := h.schedule.ListWeek(c.Request.Context(), ref, c.Query("staff_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if entries == nil {
		entries = []models.ScheduleEntry{}
	}
	response.JSON(c, http.StatusOK, weekResponse{
		Start:   week.Start,
		Label:   weekcal.FormatRange(week),
		Days:    week.Days(),
		Entries: entries,
	}, nil)
}

// History godoc
// @Summary Stored weeks, newest first
// @Tags Schedules
// @Produce json
// @Param staff_id query string false "Restrict to one staff member"
// @Param weeks query int false "Number of weeks to return (0 = all)"
// @Success 200 {object} response.Envelope
// @Router /schedules/history [get]
func (h *ScheduleHandler) History(c *gin.Context) {
	weeks, err := positiveIntQuery(c, "weeks", 0)
	if err != nil {
		response.Error(c, err)
		return
	}
	history, err := h.schedule.ListHistory(c.Request.Context(), c.Query("staff_id"), weeks)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}

// StaffEntries godoc
// @Summary Every entry stored for a staff member
// @Tags Schedules
// @Produce json
// @Param id path string true "Staff ID"
// @Success 200 {object} response.Envelope
// @Router /staff/{id}/schedules [get]
func (h *ScheduleHandler) StaffEntries(c *gin.Context) {
	entries, err := h.schedule.ListByStaff(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Batch godoc
// @Summary Save several staff weeks as one unit
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.BatchSaveRequest true "Batch payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /schedules/batch [post]
func (h *ScheduleHandler) Batch(c *gin.Context) {
	var req dto.BatchSaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "batch"))
		return
	}
	weekStart, err := requiredDate(req.WeekStart, "week_start")
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]service.BatchItem, 0, len(req.Items))
	for _, item := range req.Items {
		days := make(map[string]service.EntryInput, len(item.Days))
		for day, payload := range item.Days {
			days[day] = entryInput(payload)
		}
		items = append(items, service.BatchItem{StaffID: item.StaffID, Days: days})
	}

	result, err := h.batches.SaveBatch(c.Request.Context(), service.BatchRequest{
		Items:     items,
		WeekStart: weekStart,
		Actor:     actorFromContext(c),
		Kind:      models.SchedulingSessionBulk,
	})
	if err != nil {
		response.ErrorWithData(c, err, result)
		return
	}
	response.Created(c, result)
}

// Mirror godoc
// @Summary Copy one week into another, reconciling roster changes
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.MirrorRequest true "Mirror payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/mirror [post]
func (h *ScheduleHandler) Mirror(c *gin.Context) {
	var req dto.MirrorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "mirror"))
		return
	}
	source, err := requiredDate(req.SourceWeek, "source_week")
	if err != nil {
		response.Error(c, err)
		return
	}
	target, err := requiredDate(req.TargetWeek, "target_week")
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.mirror.Mirror(c.Request.Context(), source, target, actorFromContext(c))
	if err != nil {
		response.ErrorWithData(c, err, result)
		return
	}
	response.Created(c, result)
}

// Coverage godoc
// @Summary Advisory coverage warnings for a week
// @Tags Schedules
// @Produce json
// @Param date query string false "Any date in the week (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Router /schedules/coverage [get]
func (h *ScheduleHandler) Coverage(c *gin.Context) {
	ref, err := optionalDate(c.Query("date"), "date")
	if err != nil {
		response.Error(c, err)
		return
	}
	if ref.IsZero() {
		ref = time.Now()
	}
	report, err := h.coverage.AnalyzeWeek(c.Request.Context(), ref)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Changes godoc
// @Summary Browse the change log
// @Tags Schedules
// @Produce json
// @Param staff_id query string false "Staff ID"
// @Param action query string false "add_staff, remove_staff, add_schedule or update_schedule"
// @Param since query string false "From date (YYYY-MM-DD)"
// @Param until query string false "Before date (YYYY-MM-DD)"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /changes [get]
func (h *ScheduleHandler) Changes(c *gin.Context) {
	filter := models.ChangeLogFilter{StaffID: c.Query("staff_id")}
	if action := c.Query("action"); action != "" {
		filter.Action = models.ChangeAction(action)
		if !filter.Action.Valid() {
			response.Error(c, appErrors.Validation("unknown change action "+action))
			return
		}
	}
	since, err := optionalDate(c.Query("since"), "since")
	if err != nil {
		response.Error(c, err)
		return
	}
	until, err := optionalDate(c.Query("until"), "until")
	if err != nil {
		response.Error(c, err)
		return
	}
	if !since.IsZero() {
		filter.Since = &since
	}
	if !until.IsZero() {
		filter.Until = &until
	}

	page, err := positiveIntQuery(c, "page", 1)
	if err != nil {
		response.Error(c, err)
		return
	}
	size, err := positiveIntQuery(c, "page_size", defaultChangePageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultChangePageSize
	}
	filter.Limit = size
	filter.Offset = (page - 1) * size

	records, total, err := h.schedule.ListChanges(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, &models.Pagination{Page: page, PageSize: size, TotalCount: total})
}
