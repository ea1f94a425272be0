package models

import "time"

// SchedulingSessionStatus tracks the outcome of a batch write.
type SchedulingSessionStatus string

const (
	SchedulingSessionInProgress SchedulingSessionStatus = "in_progress"
	SchedulingSessionCompleted  SchedulingSessionStatus = "completed"
	SchedulingSessionFailed     SchedulingSessionStatus = "failed"
)

// SchedulingSessionKind labels which path opened the batch.
type SchedulingSessionKind string

const (
	SchedulingSessionManual   SchedulingSessionKind = "manual"
	SchedulingSessionMirror   SchedulingSessionKind = "mirror"
	SchedulingSessionBulk     SchedulingSessionKind = "bulk"
	SchedulingSessionWorkflow SchedulingSessionKind = "session"
)

// SchedulingSession is the audit record of one multi-entry batch write.
type SchedulingSession struct {
	ID            string                  `db:"id" json:"id"`
	WeekStartDate time.Time               `db:"week_start_date" json:"week_start_date"`
	Kind          SchedulingSessionKind   `db:"kind" json:"kind"`
	Status        SchedulingSessionStatus `db:"status" json:"status"`
	CreatedBy     string                  `db:"created_by" json:"created_by"`
	CreatedAt     time.Time               `db:"created_at" json:"created_at"`
	CompletedAt   *time.Time              `db:"completed_at" json:"completed_at,omitempty"`
	FailureReason *string                 `db:"failure_reason" json:"failure_reason,omitempty"`
}
