package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ChangeAction enumerates audited mutations.
type ChangeAction string

const (
	ChangeActionAddStaff       ChangeAction = "add_staff"
	ChangeActionRemoveStaff    ChangeAction = "remove_staff"
	ChangeActionAddSchedule    ChangeAction = "add_schedule"
	ChangeActionUpdateSchedule ChangeAction = "update_schedule"
)

// ChangeLog is an append-only audit record of a semantic change.
type ChangeLog struct {
	ID        string             `db:"id" json:"id"`
	StaffID   string             `db:"staff_id" json:"staff_id"`
	Action    ChangeAction       `db:"action" json:"action"`
	DayOfWeek *string            `db:"day_of_week" json:"day_of_week,omitempty"`
	OldData   types.NullJSONText `db:"old_data" json:"old_data"`
	NewData   types.NullJSONText `db:"new_data" json:"new_data"`
	ChangedBy string             `db:"changed_by" json:"changed_by"`
	ChangedAt time.Time          `db:"changed_at" json:"changed_at"`
}

// ChangeLogFilter narrows change-log browsing.
type ChangeLogFilter struct {
	StaffID string
	Action  ChangeAction
	Since   *time.Time
	Until   *time.Time
	Limit   int
	Offset  int
}

// Valid reports whether the action is one of the audited mutations.
func (a ChangeAction) Valid() bool {
	switch a {
	case ChangeActionAddStaff, ChangeActionRemoveStaff, ChangeActionAddSchedule, ChangeActionUpdateSchedule:
		return true
	}
	return false
}
