package models

import "time"

// ScheduleEntry records one staff member's status for one calendar day.
// ScheduleDate is nil only for rows written before dates were tracked.
type ScheduleEntry struct {
	ID           string     `db:"id" json:"id"`
	StaffID      string     `db:"staff_id" json:"staff_id"`
	StaffName    string     `db:"staff_name" json:"staff_name,omitempty"`
	DayOfWeek    string     `db:"day_of_week" json:"day_of_week"`
	ScheduleDate *time.Time `db:"schedule_date" json:"schedule_date,omitempty"`
	IsWorking    bool       `db:"is_working" json:"is_working"`
	StartTime    *string    `db:"start_time" json:"start_time"`
	EndTime      *string    `db:"end_time" json:"end_time"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// HoursSet reports whether both times are present.
func (e ScheduleEntry) HoursSet() bool {
	return e.StartTime != nil && e.EndTime != nil
}

// NotSet reports whether the entry is the "working, hours not chosen yet" placeholder.
func (e ScheduleEntry) NotSet() bool {
	return e.IsWorking && e.StartTime == nil && e.EndTime == nil
}

// SameContent compares the semantic payload of two entries, ignoring identity and timestamps.
func (e ScheduleEntry) SameContent(other ScheduleEntry) bool {
	return e.IsWorking == other.IsWorking &&
		equalStringPtr(e.StartTime, other.StartTime) &&
		equalStringPtr(e.EndTime, other.EndTime)
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ScheduleEntrySnapshot is the JSON shape stored in change-log old/new data.
type ScheduleEntrySnapshot struct {
	ScheduleDate *string `json:"schedule_date"`
	IsWorking    bool    `json:"is_working"`
	StartTime    *string `json:"start_time"`
	EndTime      *string `json:"end_time"`
}

// WeekSchedule groups entries that fall in one Sunday-start week.
type WeekSchedule struct {
	WeekStart time.Time       `json:"week_start"`
	Label     string          `json:"label"`
	Entries   []ScheduleEntry `json:"entries"`
}
