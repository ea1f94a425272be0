package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is portable between PostgreSQL and SQLite. Change-log rows carry no foreign key
// so they outlive the staff member they describe.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS staff (
	id VARCHAR(36) PRIMARY KEY,
	name VARCHAR(50) NOT NULL,
	active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_staff_name ON staff (LOWER(name))`,
	`CREATE TABLE IF NOT EXISTS schedule_entries (
	id VARCHAR(36) PRIMARY KEY,
	staff_id VARCHAR(36) NOT NULL REFERENCES staff(id) ON DELETE CASCADE,
	day_of_week VARCHAR(9) NOT NULL,
	schedule_date DATE,
	is_working BOOLEAN NOT NULL,
	start_time VARCHAR(5),
	end_time VARCHAR(5),
	updated_at TIMESTAMP NOT NULL,
	CHECK (is_working OR (start_time IS NULL AND end_time IS NULL))
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_schedule_entries_key ON schedule_entries (staff_id, day_of_week, schedule_date)`,
	`CREATE INDEX IF NOT EXISTS ix_schedule_entries_date ON schedule_entries (schedule_date)`,
	`CREATE TABLE IF NOT EXISTS schedule_change_log (
	id VARCHAR(36) PRIMARY KEY,
	staff_id VARCHAR(36) NOT NULL,
	action VARCHAR(20) NOT NULL,
	day_of_week VARCHAR(9),
	old_data TEXT,
	new_data TEXT,
	changed_by VARCHAR(100) NOT NULL,
	changed_at TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS ix_schedule_change_log_staff ON schedule_change_log (staff_id, changed_at)`,
	`CREATE TABLE IF NOT EXISTS scheduling_sessions (
	id VARCHAR(36) PRIMARY KEY,
	week_start_date DATE NOT NULL,
	kind VARCHAR(20) NOT NULL,
	status VARCHAR(20) NOT NULL,
	created_by VARCHAR(100) NOT NULL,
	created_at TIMESTAMP NOT NULL,
	completed_at TIMESTAMP,
	failure_reason TEXT
)`,
	`CREATE INDEX IF NOT EXISTS ix_scheduling_sessions_status ON scheduling_sessions (status, created_at)`,
}

// Migrate creates the tables used by the roster service when they are missing.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
