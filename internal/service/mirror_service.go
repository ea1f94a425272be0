package service

import (
	"context"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/shift-roster-api/internal/models"
	appErrors "github.com/noah-isme/shift-roster-api/pkg/errors"
	"github.com/noah-isme/shift-roster-api/pkg/weekcal"
)

type rosterLister interface {
	List(ctx context.Context) ([]models.Staff, error)
}

type weekEntryLister interface {
	ListRange(ctx context.Context, exec sqlx.ExtContext, from, to time.Time, staffID string) ([]models.ScheduleEntry, error)
}

type batchSaver interface {
	SaveBatch(ctx context.Context, req BatchRequest) (*BatchResult, error)
}

// MirrorResult summarises a week copy. Copied counts entries carried over for staff in both
// rosters, Added counts "not set" placeholders written for new staff, and Failed counts
// planned entries that were not committed.
type MirrorResult struct {
	SourceWeek    time.Time      `json:"source_week"`
	TargetWeek    time.Time      `json:"target_week"`
	Copied        int            `json:"copied"`
	Added         int            `json:"added"`
	Failed        int            `json:"failed"`
	AddedStaff    []string       `json:"added_staff"`
	RemovedStaff  []string       `json:"removed_staff"`
	ExistingStaff []string       `json:"existing_staff"`
	SessionID     string         `json:"session_id,omitempty"`
	Failures      []BatchFailure `json:"failures,omitempty"`
}

// MirrorService rolls one week's pattern into another week.
type MirrorService struct {
	staff   rosterLister
	entries weekEntryLister
	batches batchSaver
	logger  *zap.Logger
}

// NewMirrorService builds the service.
func NewMirrorService(staff rosterLister, entries weekEntryLister, batches batchSaver, logger *zap.Logger) *MirrorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MirrorService{staff: staff, entries: entries, batches: batches, logger: logger}
}

// Mirror copies the source week into the target week while reconciling the roster: staff in
// both weeks keep their pattern, staff added since get seven "not set" working days, and
// staff who left get nothing. The source week is never modified.
func (s *MirrorService) Mirror(ctx context.Context, source, target time.Time, actor string) (*MirrorResult, error) {
	if source.IsZero() || target.IsZero() {
		return nil, appErrors.Validation("source and target weeks are required")
	}
	sourceWeek := weekcal.Compute(source)
	targetWeek := weekcal.Compute(target)
	if sourceWeek.Start.Equal(targetWeek.Start) {
		return nil, appErrors.Validation("source and target must be different weeks")
	}

	sourceEntries, err := s.entries.ListRange(ctx, nil, sourceWeek.Start, sourceWeek.End(), "")
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load source week")
	}
	if len(sourceEntries) == 0 {
		return nil, appErrors.Reference("source week " + weekcal.FormatDate(sourceWeek.Start) + " has no entries to mirror")
	}

	current, err := s.staff.List(ctx)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load roster")
	}

	diff := diffRoster(sourceEntries, current)
	result := &MirrorResult{
		SourceWeek:    sourceWeek.Start,
		TargetWeek:    targetWeek.Start,
		AddedStaff:    names(diff.added),
		RemovedStaff:  names(diff.removed),
		ExistingStaff: names(diff.existing),
	}

	items := make([]BatchItem, 0, len(diff.existing)+len(diff.added))
	copied := 0
	for _, member := range diff.existing {
		days := make(map[string]EntryInput, len(weekcal.DayNames))
		for _, entry := range diff.sourceByStaff[member.ID] {
			days[entry.DayOfWeek] = EntryInput{
				IsWorking: entry.IsWorking,
				StartTime: entry.StartTime,
				EndTime:   entry.EndTime,
			}
		}
		copied += len(days)
		items = append(items, BatchItem{StaffID: member.ID, Days: days})
	}
	added := 0
	for _, member := range diff.added {
		days := make(map[string]EntryInput, len(weekcal.DayNames))
		for _, day := range weekcal.DayNames {
			days[day] = EntryInput{IsWorking: true}
		}
		added += len(days)
		items = append(items, BatchItem{StaffID: member.ID, Days: days})
	}

	s.logger.Debug("mirror roster diff",
		zap.String("source", weekcal.FormatDate(sourceWeek.Start)),
		zap.String("target", weekcal.FormatDate(targetWeek.Start)),
		zap.Strings("existing", result.ExistingStaff),
		zap.Strings("added", result.AddedStaff),
		zap.Strings("removed", result.RemovedStaff),
	)

	if len(items) == 0 {
		// every source participant has left and nobody joined
		return result, nil
	}

	batch, err := s.batches.SaveBatch(ctx, BatchRequest{
		Items:     items,
		WeekStart: targetWeek.Start,
		Actor:     actor,
		Kind:      models.SchedulingSessionMirror,
	})
	if batch != nil {
		result.SessionID = batch.SessionID
		result.Failures = batch.Failures
	}
	if err != nil {
		result.Failed = copied + added
		return result, err
	}

	result.Copied = copied
	result.Added = added
	return result, nil
}

type rosterDiff struct {
	existing      []models.Staff
	added         []models.Staff
	removed       []models.Staff
	sourceByStaff map[string][]models.ScheduleEntry
}

func diffRoster(sourceEntries []models.ScheduleEntry, current []models.Staff) rosterDiff {
	diff := rosterDiff{sourceByStaff: make(map[string][]models.ScheduleEntry)}
	sourceNames := make(map[string]string)
	for _, entry := range sourceEntries {
		diff.sourceByStaff[entry.StaffID] = append(diff.sourceByStaff[entry.StaffID], entry)
		sourceNames[entry.StaffID] = entry.StaffName
	}

	currentIDs := make(map[string]struct{}, len(current))
	for _, member := range current {
		currentIDs[member.ID] = struct{}{}
		if _, ok := diff.sourceByStaff[member.ID]; ok {
			diff.existing = append(diff.existing, member)
		} else {
			diff.added = append(diff.added, member)
		}
	}
	for id, name := range sourceNames {
		if _, ok := currentIDs[id]; !ok {
			diff.removed = append(diff.removed, models.Staff{ID: id, Name: name})
		}
	}

	for _, group := range [][]models.Staff{diff.existing, diff.added, diff.removed} {
		sortStaff(group)
	}
	return diff
}

func sortStaff(staff []models.Staff) {
	sort.Slice(staff, func(i, j int) bool {
		if staff[i].Name != staff[j].Name {
			return staff[i].Name < staff[j].Name
		}
		return staff[i].ID < staff[j].ID
	})
}

func names(staff []models.Staff) []string {
	out := make([]string, 0, len(staff))
	for _, member := range staff {
		out = append(out, member.Name)
	}
	return out
}
