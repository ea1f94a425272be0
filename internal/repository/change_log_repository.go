package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shift-roster-api/internal/models"
)

const defaultChangeLogLimit = 100

// ChangeLogRepository appends and browses schedule audit records.
type ChangeLogRepository struct {
	db *sqlx.DB
}

// NewChangeLogRepository constructs the repository.
func NewChangeLogRepository(db *sqlx.DB) *ChangeLogRepository {
	return &ChangeLogRepository{db: db}
}

func (r *ChangeLogRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create appends a record. Records are never updated or deleted.
func (r *ChangeLogRepository) Create(ctx context.Context, exec sqlx.ExtContext, record *models.ChangeLog) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.ChangedAt.IsZero() {
		record.ChangedAt = time.Now().UTC()
	}

	const query = `INSERT INTO schedule_change_log (id, staff_id, action, day_of_week, old_data, new_data, changed_by, changed_at)
VALUES (:id, :staff_id, :action, :day_of_week, :old_data, :new_data, :changed_by, :changed_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, record); err != nil {
		return fmt.Errorf("insert change log: %w", err)
	}
	return nil
}

// List returns records matching the filter, newest first, with the total match count.
func (r *ChangeLogRepository) List(ctx context.Context, filter models.ChangeLogFilter) ([]models.ChangeLog, int, error) {
	where := sq.And{}
	if filter.StaffID != "" {
		where = append(where, sq.Eq{"staff_id": filter.StaffID})
	}
	if filter.Action != "" {
		where = append(where, sq.Eq{"action": string(filter.Action)})
	}
	if filter.Since != nil {
		where = append(where, sq.GtOrEq{"changed_at": filter.Since.UTC()})
	}
	if filter.Until != nil {
		where = append(where, sq.Lt{"changed_at": filter.Until.UTC()})
	}

	countQuery, countArgs, err := sq.Select("COUNT(*)").From("schedule_change_log").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build change log count: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count change log: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultChangeLogLimit
	}
	builder := sq.Select("id", "staff_id", "action", "day_of_week", "old_data", "new_data", "changed_by", "changed_at").
		From("schedule_change_log").
		Where(where).
		OrderBy("changed_at DESC", "id").
		Limit(uint64(limit))
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build change log query: %w", err)
	}

	var records []models.ChangeLog
	if err := r.db.SelectContext(ctx, &records, r.db.Rebind(query), args...); err != nil {
		return nil, 0, fmt.Errorf("list change log: %w", err)
	}
	return records, total, nil
}
