package models

// ReportRow is one cell of the week matrix handed to report renderers. Absent values stay
// nil so renderers can show "Not Set" instead of dropping the row.
type ReportRow struct {
	StaffID   string  `json:"staff_id"`
	StaffName string  `json:"staff_name"`
	DayOfWeek string  `json:"day_of_week"`
	Date      string  `json:"date"`
	IsWorking *bool   `json:"is_working"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
}
