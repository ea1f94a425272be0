package models

import "time"

// CoverageSeverity classifies staffing on a day.
type CoverageSeverity string

const (
	CoverageOK       CoverageSeverity = "ok"
	CoverageWarning  CoverageSeverity = "warning"
	CoverageCritical CoverageSeverity = "critical"
	CoverageSevere   CoverageSeverity = "severe"
)

// DayCoverage summarises one day of a week.
type DayCoverage struct {
	Day          string           `json:"day"`
	Date         time.Time        `json:"date"`
	OffCount     int              `json:"off_count"`
	WorkingCount int              `json:"working_count"`
	Severity     CoverageSeverity `json:"severity"`
	OffStaff     []string         `json:"off_staff,omitempty"`
}

// StaffRisk flags a staff member with a long or frequent off pattern.
type StaffRisk struct {
	StaffID       string   `json:"staff_id"`
	StaffName     string   `json:"staff_name"`
	LongestOffRun int      `json:"longest_off_run"`
	TotalOffDays  int      `json:"total_off_days"`
	Reasons       []string `json:"reasons"`
}

// CoverageReport is the advisory output of the conflict analysis for one week.
type CoverageReport struct {
	WeekStart  time.Time     `json:"week_start"`
	TotalStaff int           `json:"total_staff"`
	Days       []DayCoverage `json:"days"`
	StaffRisks []StaffRisk   `json:"staff_risks"`
}

// HasIssues reports whether any day or staff member needs attention.
func (r CoverageReport) HasIssues() bool {
	if len(r.StaffRisks) > 0 {
		return true
	}
	for _, d := range r.Days {
		if d.Severity != CoverageOK {
			return true
		}
	}
	return false
}
