package dto

// CreateStaffRequest adds a staff member.
type CreateStaffRequest struct {
	Name string `json:"name" binding:"required"`
}

// UpdateStaffStatusRequest moves a staff member on or off the current roster.
type UpdateStaffStatusRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// EntryPayload is the full status and time pair for one day.
type EntryPayload struct {
	IsWorking *bool   `json:"is_working" binding:"required"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
}

// UpsertEntryRequest writes one (staff, day, date) entry.
type UpsertEntryRequest struct {
	StaffID   string `json:"staff_id" binding:"required"`
	DayOfWeek string `json:"day_of_week" binding:"required"`
	Date      string `json:"date" binding:"required"`
	EntryPayload
}

// QuickEditRequest changes a single day by date.
type QuickEditRequest struct {
	StaffID string `json:"staff_id" binding:"required"`
	Date    string `json:"date" binding:"required"`
	EntryPayload
}

// BatchItemRequest carries one staff member's days keyed by day name.
type BatchItemRequest struct {
	StaffID string                  `json:"staff_id" binding:"required"`
	Days    map[string]EntryPayload `json:"days" binding:"required,min=1,dive"`
}

// BatchSaveRequest writes several staff members' weeks at once.
type BatchSaveRequest struct {
	WeekStart string             `json:"week_start" binding:"required"`
	Items     []BatchItemRequest `json:"items" binding:"required,min=1,dive"`
}

// MirrorRequest copies one week into another.
type MirrorRequest struct {
	SourceWeek string `json:"source_week" binding:"required"`
	TargetWeek string `json:"target_week" binding:"required"`
}

// StartSessionRequest opens an editing workflow. Week defaults to the current week.
type StartSessionRequest struct {
	StaffID string `json:"staff_id" binding:"required"`
	Week    string `json:"week"`
}

// SessionEventRequest feeds one event into a workflow.
type SessionEventRequest struct {
	Kind   string `json:"kind" binding:"required,oneof=toggle_day submit_off_days confirm_off_days back pick_start pick_end skip_day edit_day save edit_again cancel"`
	Day    string `json:"day"`
	Time   string `json:"time"`
	Target string `json:"target" binding:"omitempty,oneof=off_days hours"`
}

// IssueTokenRequest mints an operator token.
type IssueTokenRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required,oneof=ADMIN EDITOR VIEWER"`
}

// ArchiveReportRequest keeps a rendered week on disk.
type ArchiveReportRequest struct {
	Week   string `json:"week"`
	Format string `json:"format" binding:"required,oneof=csv pdf"`
}
