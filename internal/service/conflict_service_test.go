package service

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shift-roster-api/internal/models"
	"github.com/noah-isme/shift-roster-api/pkg/weekcal"
)

type stubRoster struct {
	staff []models.Staff
	err   error
}

func (s *stubRoster) List(ctx context.Context) ([]models.Staff, error) {
	return s.staff, s.err
}

type stubWeekEntries struct {
	entries []models.ScheduleEntry
	err     error
}

func (s *stubWeekEntries) ListRange(ctx context.Context, exec sqlx.ExtContext, from, to time.Time, staffID string) ([]models.ScheduleEntry, error) {
	return s.entries, s.err
}

func TestClassifyDay(t *testing.T) {
	cases := []struct {
		off, total int
		want       models.CoverageSeverity
	}{
		{5, 8, models.CoverageCritical},
		{8, 8, models.CoverageSevere},
		{7, 8, models.CoverageWarning},
		{2, 8, models.CoverageOK},
		{4, 8, models.CoverageOK},
		{1, 1, models.CoverageSevere},
		{0, 1, models.CoverageOK},
		{1, 2, models.CoverageWarning},
		{2, 3, models.CoverageWarning},
		{0, 0, models.CoverageOK},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyDay(tc.off, tc.total), "off=%d total=%d", tc.off, tc.total)
	}
}

func entryOn(t *testing.T, staffID, name, date string, working bool) models.ScheduleEntry {
	d := mustDate(t, date)
	return models.ScheduleEntry{
		StaffID:      staffID,
		StaffName:    name,
		DayOfWeek:    weekcal.DayForDate(d),
		ScheduleDate: &d,
		IsWorking:    working,
	}
}

func TestAnalyzeFlagsLongOffRuns(t *testing.T) {
	week := weekcal.Compute(mustDate(t, "2025-01-05"))
	roster := []models.Staff{{ID: "a", Name: "Ana"}, {ID: "b", Name: "Ben"}}

	var entries []models.ScheduleEntry
	// Ana: off Sunday..Wednesday
	for i, dd := range week.Days() {
		entries = append(entries, entryOn(t, "a", "Ana", weekcal.FormatDate(dd.Date), i >= 4))
	}
	// Ben: off Monday, Wednesday, Friday
	for i, dd := range week.Days() {
		entries = append(entries, entryOn(t, "b", "Ben", weekcal.FormatDate(dd.Date), i%2 == 0))
	}

	report := Analyze(week, entries, roster)
	require.Len(t, report.Days, 7)
	assert.Equal(t, 2, report.TotalStaff)

	assert.Equal(t, models.CoverageWarning, report.Days[0].Severity)
	assert.Equal(t, models.CoverageSevere, report.Days[1].Severity)
	assert.Equal(t, []string{"Ana", "Ben"}, report.Days[1].OffStaff)
	assert.Equal(t, models.CoverageOK, report.Days[6].Severity)

	require.Len(t, report.StaffRisks, 1)
	assert.Equal(t, "Ana", report.StaffRisks[0].StaffName)
	assert.Equal(t, 4, report.StaffRisks[0].LongestOffRun)
	assert.True(t, report.HasIssues())
}

func TestAnalyzeWeekLoadsRosterAndEntries(t *testing.T) {
	ref := mustDate(t, "2025-01-08")
	svc := NewConflictService(
		&stubRoster{staff: []models.Staff{{ID: "a", Name: "Ana"}}},
		&stubWeekEntries{entries: []models.ScheduleEntry{entryOn(t, "a", "Ana", "2025-01-08", false)}},
		nil,
	)

	report, err := svc.AnalyzeWeek(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, mustDate(t, "2025-01-05"), report.WeekStart)
	assert.Equal(t, models.CoverageSevere, report.Days[3].Severity)
	assert.Equal(t, models.CoverageOK, report.Days[0].Severity)
}

func TestAnalyzeIgnoresStaffOutsideRoster(t *testing.T) {
	week := weekcal.Compute(mustDate(t, "2025-01-05"))
	roster := []models.Staff{{ID: "a", Name: "Ana"}, {ID: "b", Name: "Ben"}}

	var entries []models.ScheduleEntry
	for _, dd := range week.Days() {
		date := weekcal.FormatDate(dd.Date)
		entries = append(entries,
			entryOn(t, "a", "Ana", date, true),
			entryOn(t, "b", "Ben", date, true),
			// Cal was deactivated after the week was saved.
			entryOn(t, "c", "Cal", date, false),
		)
	}

	report := Analyze(week, entries, roster)
	assert.Equal(t, 2, report.TotalStaff)
	for _, day := range report.Days {
		assert.Equal(t, 2, day.WorkingCount, day.Day)
		assert.Zero(t, day.OffCount, day.Day)
		assert.Empty(t, day.OffStaff, day.Day)
		assert.Equal(t, models.CoverageOK, day.Severity, day.Day)
	}
	assert.Empty(t, report.StaffRisks)
	assert.False(t, report.HasIssues())
}
