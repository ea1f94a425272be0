package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/shift-roster-api/internal/models"
	appErrors "github.com/noah-isme/shift-roster-api/pkg/errors"
	"github.com/noah-isme/shift-roster-api/pkg/weekcal"
)

// Thresholds for per-staff off-day warnings.
const (
	maxConsecutiveOff = 4
	maxTotalOff       = 5
)

// ConflictService derives advisory coverage warnings from a week's entries. It never
// blocks a write.
type ConflictService struct {
	staff   rosterLister
	entries weekEntryLister
	logger  *zap.Logger
}

// NewConflictService builds the analyzer.
func NewConflictService(staff rosterLister, entries weekEntryLister, logger *zap.Logger) *ConflictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{staff: staff, entries: entries, logger: logger}
}

// AnalyzeWeek loads the week containing ref and the current roster, then analyses them.
func (s *ConflictService) AnalyzeWeek(ctx context.Context, ref time.Time) (*models.CoverageReport, error) {
	week := weekcal.Compute(ref)
	roster, err := s.staff.List(ctx)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load roster")
	}
	entries, err := s.entries.ListRange(ctx, nil, week.Start, week.End(), "")
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load week entries")
	}

	report := Analyze(week, entries, roster)
	if report.HasIssues() {
		s.logger.Debug("coverage issues detected",
			zap.String("week", weekcal.FormatDate(week.Start)),
			zap.Int("staff_risks", len(report.StaffRisks)),
		)
	}
	return &report, nil
}

// Analyze classifies each day of the week and flags staff with long or frequent off runs.
// N is the roster size; entries of staff outside the roster (deactivated or removed) are
// ignored so the counts always describe the same N people.
func Analyze(week weekcal.Week, entries []models.ScheduleEntry, roster []models.Staff) models.CoverageReport {
	total := len(roster)
	names := make(map[string]string, len(roster))
	for _, member := range roster {
		names[member.ID] = member.Name
	}

	// status[staffID][dayIndex]: nil = no entry
	status := make(map[string]*[7]*bool)
	for _, entry := range entries {
		if entry.ScheduleDate == nil || !week.Contains(*entry.ScheduleDate) {
			continue
		}
		if _, member := names[entry.StaffID]; !member {
			continue
		}
		idx := weekcal.DayIndex(weekcal.DayForDate(*entry.ScheduleDate))
		days, ok := status[entry.StaffID]
		if !ok {
			days = &[7]*bool{}
			status[entry.StaffID] = days
		}
		working := entry.IsWorking
		days[idx] = &working
	}

	staffIDs := make([]string, 0, len(status))
	for id := range status {
		staffIDs = append(staffIDs, id)
	}
	sort.Slice(staffIDs, func(i, j int) bool {
		if names[staffIDs[i]] != names[staffIDs[j]] {
			return names[staffIDs[i]] < names[staffIDs[j]]
		}
		return staffIDs[i] < staffIDs[j]
	})

	report := models.CoverageReport{
		WeekStart:  week.Start,
		TotalStaff: total,
		Days:       make([]models.DayCoverage, 0, len(weekcal.DayNames)),
		StaffRisks: []models.StaffRisk{},
	}
	for i, dd := range week.Days() {
		coverage := models.DayCoverage{Day: dd.Day, Date: dd.Date}
		for _, id := range staffIDs {
			working := status[id][i]
			if working == nil {
				continue
			}
			if *working {
				coverage.WorkingCount++
			} else {
				coverage.OffCount++
				coverage.OffStaff = append(coverage.OffStaff, names[id])
			}
		}
		coverage.Severity = ClassifyDay(coverage.OffCount, total)
		report.Days = append(report.Days, coverage)
	}

	for _, id := range staffIDs {
		longest, run, offDays := 0, 0, 0
		for _, working := range status[id] {
			if working != nil && !*working {
				run++
				offDays++
				if run > longest {
					longest = run
				}
				continue
			}
			run = 0
		}

		var reasons []string
		if longest >= maxConsecutiveOff {
			reasons = append(reasons, fmt.Sprintf("%d consecutive days off", longest))
		}
		if offDays >= maxTotalOff {
			reasons = append(reasons, fmt.Sprintf("%d days off this week", offDays))
		}
		if len(reasons) == 0 {
			continue
		}
		report.StaffRisks = append(report.StaffRisks, models.StaffRisk{
			StaffID:       id,
			StaffName:     names[id],
			LongestOffRun: longest,
			TotalOffDays:  offDays,
			Reasons:       reasons,
		})
	}
	return report
}

// ClassifyDay maps a day's off count against roster size N. Severe (everyone off) is
// checked first, then a single remaining worker, then more than half off (threshold at
// least 1).
func ClassifyDay(offCount, total int) models.CoverageSeverity {
	if total <= 0 {
		return models.CoverageOK
	}
	if offCount >= total {
		return models.CoverageSevere
	}
	if total >= 2 && offCount == total-1 {
		return models.CoverageWarning
	}
	threshold := total / 2
	if threshold < 1 {
		threshold = 1
	}
	if offCount > threshold {
		return models.CoverageCritical
	}
	return models.CoverageOK
}
