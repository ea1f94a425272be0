package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/shift-roster-api/pkg/errors"
	"github.com/noah-isme/shift-roster-api/pkg/weekcal"
)

// SessionView is the data returned to the transport after every step.
type SessionView struct {
	ID            string         `json:"id"`
	State         SessionState   `json:"state"`
	StaffID       string         `json:"staff_id"`
	StaffName     string         `json:"staff_name"`
	WeekStart     time.Time      `json:"week_start"`
	OffDays       []string       `json:"off_days"`
	WorkingDays   []string       `json:"working_days"`
	CurrentDay    string         `json:"current_day,omitempty"`
	PendingStart  *string        `json:"pending_start,omitempty"`
	Days          []DayPlan      `json:"days"`
	Failures      []BatchFailure `json:"failures,omitempty"`
	SavedCount    int            `json:"saved_count"`
	AllowedEvents []EventKind    `json:"allowed_events"`
}

// ScheduleSessionService runs the multi-step weekly editing workflow. Nothing is written
// to the schedule store until the save event.
type ScheduleSessionService struct {
	staff   staffLookup
	batches batchSaver
	store   SessionStore
	loc     *time.Location
	logger  *zap.Logger
}

// NewScheduleSessionService builds the workflow service.
func NewScheduleSessionService(staff staffLookup, batches batchSaver, store SessionStore, loc *time.Location, logger *zap.Logger) *ScheduleSessionService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleSessionService{
		staff:   staff,
		batches: batches,
		store:   store,
		loc:     loc,
		logger:  logger,
	}
}

// Start opens a workflow for the staff member and the week containing weekRef (the
// current week when zero).
func (s *ScheduleSessionService) Start(ctx context.Context, staffID string, weekRef time.Time, actor string) (*SessionView, error) {
	if staffID == "" {
		return nil, appErrors.Validation("staff_id is required")
	}
	staff, err := s.staff.FindByID(ctx, nil, staffID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Reference("staff member not found")
		}
		return nil, appErrors.Persistence(err, "failed to load staff member")
	}

	if weekRef.IsZero() {
		weekRef = time.Now().In(s.loc)
	}
	if actor == "" {
		actor = defaultActor
	}
	w := newWorkflow(uuid.NewString(), staff, weekcal.Compute(weekRef), actor, time.Now().UTC())
	if err := s.store.Save(ctx, w); err != nil {
		return nil, appErrors.Persistence(err, "failed to store workflow")
	}

	s.logger.Debug("workflow started",
		zap.String("session_id", w.ID),
		zap.String("staff_id", w.StaffID),
		zap.String("week", weekcal.FormatDate(w.WeekStart)),
	)
	return buildView(w), nil
}

// Get returns the current view of a workflow.
func (s *ScheduleSessionService) Get(ctx context.Context, id string) (*SessionView, error) {
	w, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return buildView(w), nil
}

// Apply feeds one event into the workflow. An event the current state does not accept
// returns ErrInvalidTransition and changes nothing. A failed save still returns the view
// so the caller can see which days failed.
func (s *ScheduleSessionService) Apply(ctx context.Context, id string, ev Event) (*SessionView, error) {
	if !ev.Kind.Valid() {
		return nil, appErrors.Validation(fmt.Sprintf("unknown event %q", ev.Kind))
	}
	current, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	handler, ok := transitions[current.State][ev.Kind]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("event %s is not allowed in state %s", ev.Kind, current.State))
	}

	next := current.clone()
	if err := handler(ctx, s, next, ev); err != nil {
		if ev.Kind != EventSave || len(next.Failures) == 0 {
			return nil, err
		}
		next.UpdatedAt = time.Now().UTC()
		if storeErr := s.store.Save(ctx, next); storeErr != nil {
			s.logger.Error("failed to store workflow after save failure", zap.String("session_id", id), zap.Error(storeErr))
		}
		s.logger.Warn("workflow save failed",
			zap.String("session_id", id),
			zap.Int("failures", len(next.Failures)),
			zap.Error(err),
		)
		return buildView(next), err
	}
	next.UpdatedAt = time.Now().UTC()

	if next.State.Terminal() {
		if err := s.store.Delete(ctx, id); err != nil {
			s.logger.Warn("failed to remove finished workflow", zap.String("session_id", id), zap.Error(err))
		}
	} else if err := s.store.Save(ctx, next); err != nil {
		return nil, appErrors.Persistence(err, "failed to store workflow")
	}

	s.logger.Debug("workflow transition",
		zap.String("session_id", id),
		zap.String("event", string(ev.Kind)),
		zap.String("from", string(current.State)),
		zap.String("to", string(next.State)),
	)
	return buildView(next), nil
}

// ActiveCount returns how many workflows are in flight.
func (s *ScheduleSessionService) ActiveCount(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, appErrors.Persistence(err, "failed to count workflows")
	}
	return n, nil
}

// Cancel discards the workflow. Nothing was persisted, so the store is untouched.
func (s *ScheduleSessionService) Cancel(ctx context.Context, id string) (*SessionView, error) {
	return s.Apply(ctx, id, Event{Kind: EventCancel})
}

func buildView(w *Workflow) *SessionView {
	view := &SessionView{
		ID:            w.ID,
		State:         w.State,
		StaffID:       w.StaffID,
		StaffName:     w.StaffName,
		WeekStart:     w.WeekStart,
		OffDays:       append([]string{}, w.OffDays...),
		WorkingDays:   []string{},
		CurrentDay:    w.CurrentDay,
		PendingStart:  w.PendingStart,
		Days:          append([]DayPlan(nil), w.Days[:]...),
		Failures:      w.Failures,
		SavedCount:    w.SavedCount,
		AllowedEvents: AllowedEvents(w.State),
	}
	for _, name := range weekcal.DayNames {
		if !w.isOff(name) {
			view.WorkingDays = append(view.WorkingDays, name)
		}
	}
	return view
}
