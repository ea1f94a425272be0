package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/shift-roster-api/internal/models"
	appErrors "github.com/noah-isme/shift-roster-api/pkg/errors"
	"github.com/noah-isme/shift-roster-api/pkg/weekcal"
)

// Working hours accepted for any shift. Times are zero-padded "HH:MM" so string order
// matches clock order.
const (
	EarliestStart = "09:45"
	LatestEnd     = "21:00"
)

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type staffLookup interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Staff, error)
}

type scheduleEntryRepository interface {
	FindByKey(ctx context.Context, exec sqlx.ExtContext, staffID, day string, date time.Time) (*models.ScheduleEntry, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, entry *models.ScheduleEntry) error
	ListByStaff(ctx context.Context, staffID string) ([]models.ScheduleEntry, error)
	ListAll(ctx context.Context) ([]models.ScheduleEntry, error)
	ListRange(ctx context.Context, exec sqlx.ExtContext, from, to time.Time, staffID string) ([]models.ScheduleEntry, error)
}

type changeLogRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, record *models.ChangeLog) error
	List(ctx context.Context, filter models.ChangeLogFilter) ([]models.ChangeLog, int, error)
}

// EntryInput is the full status and time pair written for one day.
type EntryInput struct {
	IsWorking bool    `json:"is_working"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
}

// UpsertEntryInput addresses one (staff, day, date) key.
type UpsertEntryInput struct {
	StaffID   string
	DayOfWeek string
	Date      time.Time
	EntryInput
}

// UpsertOutcome reports what a write did. Changed is false for identical re-saves.
type UpsertOutcome struct {
	Entry   models.ScheduleEntry `json:"entry"`
	Changed bool                 `json:"changed"`
	Action  models.ChangeAction  `json:"action,omitempty"`
}

// ScheduleService owns schedule entries and their change log.
type ScheduleService struct {
	tx      txProvider
	staff   staffLookup
	entries scheduleEntryRepository
	changes changeLogRepository
	loc     *time.Location
	logger  *zap.Logger
}

// NewScheduleService builds the service. loc decides which calendar day "today" is.
func NewScheduleService(tx txProvider, staff staffLookup, entries scheduleEntryRepository, changes changeLogRepository, loc *time.Location, logger *zap.Logger) *ScheduleService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		tx:      tx,
		staff:   staff,
		entries: entries,
		changes: changes,
		loc:     loc,
		logger:  logger,
	}
}

// Today returns the current calendar date in the configured timezone.
func (s *ScheduleService) Today() time.Time {
	return weekcal.Date(time.Now().In(s.loc))
}

// ValidateClock checks the "HH:MM" format.
func ValidateClock(value string) error {
	if !clockPattern.MatchString(value) {
		return appErrors.Validation("time must use HH:MM format")
	}
	return nil
}

// ValidateStartTime checks a start time on its own, before an end time is known.
func ValidateStartTime(start string) error {
	if err := ValidateClock(start); err != nil {
		return err
	}
	if start < EarliestStart {
		return appErrors.Validation("start time must be " + EarliestStart + " or later")
	}
	if start >= LatestEnd {
		return appErrors.Validation("start time must be before " + LatestEnd)
	}
	return nil
}

// ValidateTimeRange checks format, the 09:45-21:00 window and start < end.
func ValidateTimeRange(start, end string) error {
	if err := ValidateStartTime(start); err != nil {
		return err
	}
	if err := ValidateClock(end); err != nil {
		return err
	}
	if end > LatestEnd {
		return appErrors.Validation("end time must be " + LatestEnd + " or earlier")
	}
	if end <= start {
		return appErrors.Validation("end time must be after start time")
	}
	return nil
}

// ValidateEntry checks one day's payload against the entry invariants.
func ValidateEntry(in EntryInput) error {
	hasStart, hasEnd := in.StartTime != nil, in.EndTime != nil
	if !in.IsWorking {
		if hasStart || hasEnd {
			return appErrors.Validation("off days cannot carry times")
		}
		return nil
	}
	if hasStart != hasEnd {
		return appErrors.Validation("start and end time must be given together")
	}
	if !hasStart {
		return nil
	}
	return ValidateTimeRange(*in.StartTime, *in.EndTime)
}

func normalizeUpsertInput(in UpsertEntryInput) (UpsertEntryInput, error) {
	if in.StaffID == "" {
		return in, appErrors.Validation("staff_id is required")
	}
	day, ok := weekcal.NormalizeDay(in.DayOfWeek)
	if !ok {
		return in, appErrors.Validation("day_of_week must be one of Sunday..Saturday")
	}
	if in.Date.IsZero() {
		return in, appErrors.Validation("date is required")
	}
	in.Date = weekcal.Date(in.Date)
	if weekcal.DayForDate(in.Date) != day {
		return in, appErrors.Validation("date " + weekcal.FormatDate(in.Date) + " is not a " + day)
	}
	in.DayOfWeek = day
	if err := ValidateEntry(in.EntryInput); err != nil {
		return in, err
	}
	return in, nil
}

// Upsert writes a single entry in its own transaction.
func (s *ScheduleService) Upsert(ctx context.Context, in UpsertEntryInput, actor string) (*UpsertOutcome, error) {
	in, err := normalizeUpsertInput(in)
	if err != nil {
		return nil, err
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	outcome, err := s.WriteEntry(ctx, tx, in, actor)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Persistence(err, "failed to commit schedule entry")
	}
	return outcome, nil
}

// WriteEntry upserts an entry inside the caller's transaction and appends a change-log
// record when the stored content actually changes.
func (s *ScheduleService) WriteEntry(ctx context.Context, exec sqlx.ExtContext, in UpsertEntryInput, actor string) (*UpsertOutcome, error) {
	in, err := normalizeUpsertInput(in)
	if err != nil {
		return nil, err
	}

	staff, err := s.staff.FindByID(ctx, exec, in.StaffID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Reference("staff member not found")
		}
		return nil, appErrors.Persistence(err, "failed to load staff member")
	}

	existing, err := s.entries.FindByKey(ctx, exec, in.StaffID, in.DayOfWeek, in.Date)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Persistence(err, "failed to load schedule entry")
	}

	date := in.Date
	entry := models.ScheduleEntry{
		StaffID:      in.StaffID,
		StaffName:    staff.Name,
		DayOfWeek:    in.DayOfWeek,
		ScheduleDate: &date,
		IsWorking:    in.IsWorking,
		StartTime:    in.StartTime,
		EndTime:      in.EndTime,
	}

	action := models.ChangeActionAddSchedule
	if existing != nil {
		if existing.SameContent(entry) {
			return &UpsertOutcome{Entry: *existing, Changed: false}, nil
		}
		entry.ID = existing.ID
		action = models.ChangeActionUpdateSchedule
	}

	if err := s.entries.Upsert(ctx, exec, &entry); err != nil {
		return nil, appErrors.Persistence(err, "failed to write schedule entry")
	}

	record := &models.ChangeLog{
		StaffID:   in.StaffID,
		Action:    action,
		DayOfWeek: &entry.DayOfWeek,
		NewData:   snapshotJSON(&entry),
		ChangedBy: actor,
	}
	if existing != nil {
		record.OldData = snapshotJSON(existing)
	}
	if err := s.changes.Create(ctx, exec, record); err != nil {
		return nil, appErrors.Persistence(err, "failed to write change log")
	}

	s.logger.Debug("schedule entry written",
		zap.String("staff_id", entry.StaffID),
		zap.String("day", entry.DayOfWeek),
		zap.String("date", weekcal.FormatDate(date)),
		zap.String("action", string(action)),
	)
	return &UpsertOutcome{Entry: entry, Changed: true, Action: action}, nil
}

// QuickEdit changes one day outside any editing workflow and commits immediately.
func (s *ScheduleService) QuickEdit(ctx context.Context, staffID string, date time.Time, in EntryInput, actor string) (*UpsertOutcome, error) {
	if date.IsZero() {
		return nil, appErrors.Validation("date is required")
	}
	return s.Upsert(ctx, UpsertEntryInput{
		StaffID:    staffID,
		DayOfWeek:  weekcal.DayForDate(date),
		Date:       date,
		EntryInput: in,
	}, actor)
}

// ListByStaff returns every entry stored for one staff member.
func (s *ScheduleService) ListByStaff(ctx context.Context, staffID string) ([]models.ScheduleEntry, error) {
	if err := s.ensureStaff(ctx, staffID); err != nil {
		return nil, err
	}
	entries, err := s.entries.ListByStaff(ctx, staffID)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to list schedule entries")
	}
	return entries, nil
}

// ListAll returns every stored entry.
func (s *ScheduleService) ListAll(ctx context.Context) ([]models.ScheduleEntry, error) {
	entries, err := s.entries.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to list schedule entries")
	}
	return entries, nil
}

// ListWeek returns entries in the week containing ref, optionally for one staff member.
// A zero ref means the current week.
func (s *ScheduleService) ListWeek(ctx context.Context, ref time.Time, staffID string) (weekcal.Week, []models.ScheduleEntry, error) {
	if ref.IsZero() {
		ref = s.Today()
	}
	week := weekcal.Compute(ref)
	if staffID != "" {
		if err := s.ensureStaff(ctx, staffID); err != nil {
			return week, nil, err
		}
	}
	entries, err := s.entries.ListRange(ctx, nil, week.Start, week.End(), staffID)
	if err != nil {
		return week, nil, appErrors.Persistence(err, "failed to list week entries")
	}
	return week, entries, nil
}

// ListHistory groups dated entries into Sunday-start weeks, newest first. Legacy rows
// without a date cannot be placed in a week and are left out. weeks <= 0 returns all.
func (s *ScheduleService) ListHistory(ctx context.Context, staffID string, weeks int) ([]models.WeekSchedule, error) {
	var (
		entries []models.ScheduleEntry
		err     error
	)
	if staffID != "" {
		entries, err = s.ListByStaff(ctx, staffID)
	} else {
		entries, err = s.ListAll(ctx)
	}
	if err != nil {
		return nil, err
	}
	return groupByWeek(entries, weeks), nil
}

// ListChanges browses the change log.
func (s *ScheduleService) ListChanges(ctx context.Context, filter models.ChangeLogFilter) ([]models.ChangeLog, int, error) {
	records, total, err := s.changes.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Persistence(err, "failed to list change log")
	}
	return records, total, nil
}

func (s *ScheduleService) ensureStaff(ctx context.Context, staffID string) error {
	if _, err := s.staff.FindByID(ctx, nil, staffID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Reference("staff member not found")
		}
		return appErrors.Persistence(err, "failed to load staff member")
	}
	return nil
}

func groupByWeek(entries []models.ScheduleEntry, limit int) []models.WeekSchedule {
	byStart := make(map[time.Time][]models.ScheduleEntry)
	for _, entry := range entries {
		if entry.ScheduleDate == nil {
			continue
		}
		start := weekcal.StartOf(*entry.ScheduleDate)
		byStart[start] = append(byStart[start], entry)
	}

	starts := make([]time.Time, 0, len(byStart))
	for start := range byStart {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].After(starts[j]) })
	if limit > 0 && len(starts) > limit {
		starts = starts[:limit]
	}

	result := make([]models.WeekSchedule, 0, len(starts))
	for _, start := range starts {
		items := byStart[start]
		sort.SliceStable(items, func(i, j int) bool {
			di, dj := weekcal.Date(*items[i].ScheduleDate), weekcal.Date(*items[j].ScheduleDate)
			if !di.Equal(dj) {
				return di.Before(dj)
			}
			return items[i].StaffName < items[j].StaffName
		})
		result = append(result, models.WeekSchedule{
			WeekStart: start,
			Label:     weekcal.FormatRange(weekcal.Compute(start)),
			Entries:   items,
		})
	}
	return result
}

func snapshotJSON(entry *models.ScheduleEntry) types.NullJSONText {
	snap := models.ScheduleEntrySnapshot{
		IsWorking: entry.IsWorking,
		StartTime: entry.StartTime,
		EndTime:   entry.EndTime,
	}
	if entry.ScheduleDate != nil {
		date := weekcal.FormatDate(*entry.ScheduleDate)
		snap.ScheduleDate = &date
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return types.NullJSONText{}
	}
	return types.NullJSONText{JSONText: types.JSONText(raw), Valid: true}
}
