package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shift-roster-api/internal/models"
	"github.com/noah-isme/shift-roster-api/pkg/weekcal"
)

const scheduleEntryColumns = `e.id, e.staff_id, s.name AS staff_name, e.day_of_week, e.schedule_date, e.is_working, e.start_time, e.end_time, e.updated_at`

// ScheduleEntryRepository persists per-day schedule rows.
type ScheduleEntryRepository struct {
	db *sqlx.DB
}

// NewScheduleEntryRepository constructs the repository.
func NewScheduleEntryRepository(db *sqlx.DB) *ScheduleEntryRepository {
	return &ScheduleEntryRepository{db: db}
}

func (r *ScheduleEntryRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByKey loads the row for (staff, day, date). Returns sql.ErrNoRows when missing.
func (r *ScheduleEntryRepository) FindByKey(ctx context.Context, exec sqlx.ExtContext, staffID, day string, date time.Time) (*models.ScheduleEntry, error) {
	target := r.exec(exec)
	query := target.Rebind(`SELECT ` + scheduleEntryColumns + `
FROM schedule_entries e JOIN staff s ON s.id = e.staff_id
WHERE e.staff_id = ? AND e.day_of_week = ? AND e.schedule_date = ?`)
	var entry models.ScheduleEntry
	if err := sqlx.GetContext(ctx, target, &entry, query, staffID, day, weekcal.FormatDate(date)); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Upsert writes the full status and time pair for the entry key.
func (r *ScheduleEntryRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, entry *models.ScheduleEntry) error {
	if entry.ScheduleDate == nil {
		return fmt.Errorf("schedule entry requires a date")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.UpdatedAt = time.Now().UTC()

	target := r.exec(exec)
	query := target.Rebind(`INSERT INTO schedule_entries (id, staff_id, day_of_week, schedule_date, is_working, start_time, end_time, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (staff_id, day_of_week, schedule_date) DO UPDATE
SET is_working = EXCLUDED.is_working,
    start_time = EXCLUDED.start_time,
    end_time = EXCLUDED.end_time,
    updated_at = EXCLUDED.updated_at`)
	if _, err := target.ExecContext(ctx, query,
		entry.ID,
		entry.StaffID,
		entry.DayOfWeek,
		weekcal.FormatDate(*entry.ScheduleDate),
		entry.IsWorking,
		entry.StartTime,
		entry.EndTime,
		entry.UpdatedAt,
	); err != nil {
		return fmt.Errorf("upsert schedule entry: %w", err)
	}
	return nil
}

// ListByStaff returns every row for one staff member, newest dates first.
func (r *ScheduleEntryRepository) ListByStaff(ctx context.Context, staffID string) ([]models.ScheduleEntry, error) {
	query := r.db.Rebind(`SELECT ` + scheduleEntryColumns + `
FROM schedule_entries e JOIN staff s ON s.id = e.staff_id
WHERE e.staff_id = ?
ORDER BY e.schedule_date DESC, e.day_of_week`)
	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, staffID); err != nil {
		return nil, fmt.Errorf("list schedule entries by staff: %w", err)
	}
	return entries, nil
}

// ListAll returns every row for every staff member.
func (r *ScheduleEntryRepository) ListAll(ctx context.Context) ([]models.ScheduleEntry, error) {
	const query = `SELECT ` + scheduleEntryColumns + `
FROM schedule_entries e JOIN staff s ON s.id = e.staff_id
ORDER BY e.schedule_date DESC, LOWER(s.name)`
	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("list schedule entries: %w", err)
	}
	return entries, nil
}

// ListRange returns rows dated within [from, to], optionally for one staff member.
func (r *ScheduleEntryRepository) ListRange(ctx context.Context, exec sqlx.ExtContext, from, to time.Time, staffID string) ([]models.ScheduleEntry, error) {
	target := r.exec(exec)
	query := `SELECT ` + scheduleEntryColumns + `
FROM schedule_entries e JOIN staff s ON s.id = e.staff_id
WHERE e.schedule_date >= ? AND e.schedule_date <= ?`
	args := []interface{}{weekcal.FormatDate(from), weekcal.FormatDate(to)}
	if staffID != "" {
		query += ` AND e.staff_id = ?`
		args = append(args, staffID)
	}
	query += ` ORDER BY e.schedule_date, LOWER(s.name)`

	var entries []models.ScheduleEntry
	if err := sqlx.SelectContext(ctx, target, &entries, target.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list schedule entries in range: %w", err)
	}
	return entries, nil
}
