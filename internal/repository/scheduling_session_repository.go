package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shift-roster-api/internal/models"
	"github.com/noah-isme/shift-roster-api/pkg/weekcal"
)

// SchedulingSessionRepository stores batch-write audit records.
type SchedulingSessionRepository struct {
	db *sqlx.DB
}

// NewSchedulingSessionRepository constructs the repository.
func NewSchedulingSessionRepository(db *sqlx.DB) *SchedulingSessionRepository {
	return &SchedulingSessionRepository{db: db}
}

// Create inserts an in_progress session outside any batch transaction so its outcome
// survives a rollback.
func (r *SchedulingSessionRepository) Create(ctx context.Context, session *models.SchedulingSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.Status == "" {
		session.Status = models.SchedulingSessionInProgress
	}
	session.CreatedAt = time.Now().UTC()
	session.WeekStartDate = weekcal.Date(session.WeekStartDate)

	query := r.db.Rebind(`INSERT INTO scheduling_sessions (id, week_start_date, kind, status, created_by, created_at)
VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query,
		session.ID,
		weekcal.FormatDate(session.WeekStartDate),
		session.Kind,
		session.Status,
		session.CreatedBy,
		session.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert scheduling session: %w", err)
	}
	return nil
}

// Complete marks the session completed or failed and stamps completed_at.
func (r *SchedulingSessionRepository) Complete(ctx context.Context, id string, status models.SchedulingSessionStatus, reason *string) error {
	query := r.db.Rebind(`UPDATE scheduling_sessions SET status = ?, completed_at = ?, failure_reason = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), reason, id)
	if err != nil {
		return fmt.Errorf("update scheduling session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("scheduling session rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindByID loads a session.
func (r *SchedulingSessionRepository) FindByID(ctx context.Context, id string) (*models.SchedulingSession, error) {
	query := r.db.Rebind(`SELECT id, week_start_date, kind, status, created_by, created_at, completed_at, failure_reason
FROM scheduling_sessions WHERE id = ?`)
	var session models.SchedulingSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListByWeek returns sessions opened for a week, newest first.
func (r *SchedulingSessionRepository) ListByWeek(ctx context.Context, weekStart time.Time) ([]models.SchedulingSession, error) {
	query := r.db.Rebind(`SELECT id, week_start_date, kind, status, created_by, created_at, completed_at, failure_reason
FROM scheduling_sessions WHERE week_start_date = ? ORDER BY created_at DESC`)
	var sessions []models.SchedulingSession
	if err := r.db.SelectContext(ctx, &sessions, query, weekcal.FormatDate(weekStart)); err != nil {
		return nil, fmt.Errorf("list scheduling sessions: %w", err)
	}
	return sessions, nil
}

// MarkStaleFailed fails in_progress sessions created before the cutoff and returns how many
// were swept.
func (r *SchedulingSessionRepository) MarkStaleFailed(ctx context.Context, cutoff time.Time, reason string) (int64, error) {
	query := r.db.Rebind(`UPDATE scheduling_sessions SET status = ?, completed_at = ?, failure_reason = ?
WHERE status = ? AND created_at < ?`)
	result, err := r.db.ExecContext(ctx, query,
		models.SchedulingSessionFailed,
		time.Now().UTC(),
		reason,
		models.SchedulingSessionInProgress,
		cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("sweep scheduling sessions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("scheduling session rows affected: %w", err)
	}
	return affected, nil
}
