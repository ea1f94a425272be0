package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shift-roster-api/internal/models"
	appErrors "github.com/noah-isme/shift-roster-api/pkg/errors"
)

type stubStaffLookup struct {
	staff map[string]*models.Staff
}

func (s *stubStaffLookup) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Staff, error) {
	if member, ok := s.staff[id]; ok {
		return member, nil
	}
	return nil, sql.ErrNoRows
}

type stubBatchSaver struct {
	requests []BatchRequest
	result   *BatchResult
	err      error
}

func (s *stubBatchSaver) SaveBatch(ctx context.Context, req BatchRequest) (*BatchResult, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return s.result, s.err
	}
	saved := 0
	for _, item := range req.Items {
		saved += len(item.Days)
	}
	return &BatchResult{Success: true, SessionID: "batch-1", Saved: saved, Changed: saved, Planned: saved}, nil
}

func newSessionFixture(t *testing.T) (*ScheduleSessionService, *stubBatchSaver, *SessionView) {
	t.Helper()
	batches := &stubBatchSaver{}
	staff := &stubStaffLookup{staff: map[string]*models.Staff{"bea": {ID: "bea", Name: "Bea", Active: true}}}
	svc := NewScheduleSessionService(staff, batches, NewMemorySessionStore(time.Hour), time.UTC, nil)
	view, err := svc.Start(context.Background(), "bea", mustDate(t, "2025-01-08"), tester)
	require.NoError(t, err)
	return svc, batches, view
}

func applyAll(t *testing.T, svc *ScheduleSessionService, id string, events ...Event) *SessionView {
	t.Helper()
	var view *SessionView
	for _, ev := range events {
		next, err := svc.Apply(context.Background(), id, ev)
		require.NoError(t, err, "event %s", ev.Kind)
		view = next
	}
	return view
}

func TestScheduleSessionStartNormalisesWeek(t *testing.T) {
	_, _, view := newSessionFixture(t)
	assert.Equal(t, mustDate(t, "2025-01-05"), view.WeekStart)
	assert.Equal(t, StateSelectOffDays, view.State)
	assert.Equal(t, []EventKind{EventToggleDay, EventSubmitOffDays, EventCancel}, view.AllowedEvents)
	assert.Len(t, view.Days, 7)
	assert.Equal(t, "Sunday", view.Days[0].Day)
}

func TestScheduleSessionStartUnknownStaff(t *testing.T) {
	svc, _, _ := newSessionFixture(t)
	_, err := svc.Start(context.Background(), "ghost", time.Time{}, tester)
	assertAppError(t, err, appErrors.ErrReference)
}

func TestScheduleSessionRejectsEventOutsideState(t *testing.T) {
	svc, _, view := newSessionFixture(t)

	_, err := svc.Apply(context.Background(), view.ID, Event{Kind: EventPickStart, Time: "10:00"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))

	_, err = svc.Apply(context.Background(), view.ID, Event{Kind: EventKind("teleport")})
	assertAppError(t, err, appErrors.ErrValidation)

	current, err := svc.Get(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, StateSelectOffDays, current.State)
}

func TestScheduleSessionToggleDayIsIdempotent(t *testing.T) {
	svc, _, view := newSessionFixture(t)

	current := applyAll(t, svc, view.ID,
		Event{Kind: EventToggleDay, Day: "Monday"},
		Event{Kind: EventToggleDay, Day: "monday"},
	)
	assert.Empty(t, current.OffDays)

	current = applyAll(t, svc, view.ID,
		Event{Kind: EventToggleDay, Day: "Friday"},
		Event{Kind: EventToggleDay, Day: "Monday"},
	)
	assert.Equal(t, []string{"Monday", "Friday"}, current.OffDays)

	_, err := svc.Apply(context.Background(), view.ID, Event{Kind: EventToggleDay, Day: "Caturday"})
	assertAppError(t, err, appErrors.ErrValidation)
}

func TestScheduleSessionAllDaysOffGoesToReview(t *testing.T) {
	svc, batches, view := newSessionFixture(t)

	events := make([]Event, 0, 9)
	for _, day := range []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"} {
		events = append(events, Event{Kind: EventToggleDay, Day: day})
	}
	events = append(events, Event{Kind: EventSubmitOffDays}, Event{Kind: EventConfirmOffDays})
	current := applyAll(t, svc, view.ID, events...)
	assert.Equal(t, StateReviewSummary, current.State)
	assert.Empty(t, current.WorkingDays)

	current = applyAll(t, svc, view.ID, Event{Kind: EventSave})
	assert.Equal(t, StateCommitted, current.State)
	require.Len(t, batches.requests, 1)
	req := batches.requests[0]
	assert.Equal(t, models.SchedulingSessionWorkflow, req.Kind)
	assert.Equal(t, tester, req.Actor)
	require.Len(t, req.Items, 1)
	for _, in := range req.Items[0].Days {
		assert.False(t, in.IsWorking)
	}
}

func TestScheduleSessionPickEndOutsideWindowKeepsDay(t *testing.T) {
	svc, _, view := newSessionFixture(t)
	applyAll(t, svc, view.ID,
		Event{Kind: EventSubmitOffDays},
		Event{Kind: EventConfirmOffDays},
		Event{Kind: EventPickStart, Time: "10:00"},
	)

	_, err := svc.Apply(context.Background(), view.ID, Event{Kind: EventPickEnd, Time: "21:30"})
	assertAppError(t, err, appErrors.ErrValidation)

	current, err := svc.Get(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, StateAssignHours, current.State)
	assert.Equal(t, "Sunday", current.CurrentDay)
	require.NotNil(t, current.PendingStart)
	assert.Equal(t, "10:00", *current.PendingStart)

	_, err = svc.Apply(context.Background(), view.ID, Event{Kind: EventPickStart, Time: "09:00"})
	assertAppError(t, err, appErrors.ErrValidation)
}

func TestScheduleSessionSkipAndEditDay(t *testing.T) {
	svc, _, view := newSessionFixture(t)
	current := applyAll(t, svc, view.ID,
		Event{Kind: EventSubmitOffDays},
		Event{Kind: EventConfirmOffDays},
		Event{Kind: EventSkipDay},
	)
	assert.Equal(t, DayNotSet, current.Days[0].Status)
	assert.Equal(t, "Monday", current.CurrentDay)

	current = applyAll(t, svc, view.ID,
		Event{Kind: EventEditDay, Day: "Sunday"},
		Event{Kind: EventPickStart, Time: "11:00"},
		Event{Kind: EventPickEnd, Time: "15:00"},
	)
	assert.Equal(t, DayWorking, current.Days[0].Status)
	assert.Equal(t, "15:00", *current.Days[0].EndTime)
	assert.Equal(t, "Monday", current.CurrentDay)
}

func TestScheduleSessionEditDayRejectsPendingDay(t *testing.T) {
	svc, _, view := newSessionFixture(t)
	current := applyAll(t, svc, view.ID,
		Event{Kind: EventToggleDay, Day: "Tuesday"},
		Event{Kind: EventSubmitOffDays},
		Event{Kind: EventConfirmOffDays},
	)
	require.Equal(t, "Sunday", current.CurrentDay)

	_, err := svc.Apply(context.Background(), view.ID, Event{Kind: EventEditDay, Day: "Friday"})
	assertAppError(t, err, appErrors.ErrValidation)
	_, err = svc.Apply(context.Background(), view.ID, Event{Kind: EventEditDay, Day: "Tuesday"})
	assertAppError(t, err, appErrors.ErrValidation)

	current, err = svc.Get(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sunday", current.CurrentDay)
	assert.Equal(t, DayPending, current.Days[5].Status)
}

func TestScheduleSessionSaveRejectsUnresolvedDays(t *testing.T) {
	svc, batches, view := newSessionFixture(t)
	applyAll(t, svc, view.ID, Event{Kind: EventSubmitOffDays}, Event{Kind: EventConfirmOffDays})

	// review is only reachable once every day is resolved, so call the handler directly
	w, err := svc.store.Get(context.Background(), view.ID)
	require.NoError(t, err)
	err = saveWorkflow(context.Background(), svc, w, Event{Kind: EventSave})
	assertAppError(t, err, appErrors.ErrValidation)
	assert.Empty(t, batches.requests)
}

func TestScheduleSessionSaveFailureStaysInReview(t *testing.T) {
	svc, batches, view := newSessionFixture(t)
	events := []Event{
		{Kind: EventToggleDay, Day: "Tuesday"},
		{Kind: EventSubmitOffDays},
		{Kind: EventConfirmOffDays},
	}
	for i := 0; i < 6; i++ {
		events = append(events, Event{Kind: EventSkipDay})
	}
	current := applyAll(t, svc, view.ID, events...)
	require.Equal(t, StateReviewSummary, current.State)

	batches.err = appErrors.Persistence(errors.New("db down"), "failed to write schedule entry")
	batches.result = &BatchResult{Failures: []BatchFailure{{StaffID: "bea", Day: "Monday", Reason: "failed to write schedule entry"}}}

	failed, err := svc.Apply(context.Background(), view.ID, Event{Kind: EventSave})
	assertAppError(t, err, appErrors.ErrPersistence)
	require.NotNil(t, failed)
	assert.Equal(t, StateReviewSummary, failed.State)
	require.Len(t, failed.Failures, 1)
	assert.Equal(t, "Monday", failed.Failures[0].Day)

	stored, err := svc.Get(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Failures, 1)

	batches.err = nil
	batches.result = nil
	committed := applyAll(t, svc, view.ID, Event{Kind: EventSave})
	assert.Equal(t, StateCommitted, committed.State)
	assert.Empty(t, committed.Failures)
	assert.Len(t, batches.requests, 2)
}

func TestScheduleSessionEditAgain(t *testing.T) {
	svc, _, view := newSessionFixture(t)
	events := []Event{
		{Kind: EventToggleDay, Day: "Sunday"},
		{Kind: EventSubmitOffDays},
		{Kind: EventConfirmOffDays},
	}
	for i := 0; i < 6; i++ {
		events = append(events, Event{Kind: EventPickStart, Time: "10:00"}, Event{Kind: EventPickEnd, Time: "18:00"})
	}
	applyAll(t, svc, view.ID, events...)

	_, err := svc.Apply(context.Background(), view.ID, Event{Kind: EventEditAgain, Target: EditTargetHours, Day: "Sunday"})
	assertAppError(t, err, appErrors.ErrValidation)

	current := applyAll(t, svc, view.ID, Event{Kind: EventEditAgain, Target: EditTargetHours, Day: "Thursday"})
	assert.Equal(t, StateAssignHours, current.State)
	assert.Equal(t, "Thursday", current.CurrentDay)

	current = applyAll(t, svc, view.ID,
		Event{Kind: EventPickStart, Time: "12:00"},
		Event{Kind: EventPickEnd, Time: "20:00"},
	)
	assert.Equal(t, StateReviewSummary, current.State)
	assert.Equal(t, "12:00", *current.Days[4].StartTime)

	current = applyAll(t, svc, view.ID,
		Event{Kind: EventEditAgain, Target: EditTargetOffDays},
		Event{Kind: EventToggleDay, Day: "Sunday"},
		Event{Kind: EventToggleDay, Day: "Monday"},
		Event{Kind: EventSubmitOffDays},
		Event{Kind: EventConfirmOffDays},
	)
	// Sunday returns to the queue, hours picked for the other working days are kept.
	assert.Equal(t, StateAssignHours, current.State)
	assert.Equal(t, "Sunday", current.CurrentDay)
	assert.Equal(t, DayOff, current.Days[1].Status)
	assert.Equal(t, "12:00", *current.Days[4].StartTime)
}

func TestScheduleSessionCancelDropsWorkflow(t *testing.T) {
	svc, batches, view := newSessionFixture(t)

	current, err := svc.Cancel(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, current.State)
	assert.Empty(t, batches.requests)

	_, err = svc.Get(context.Background(), view.ID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestMemorySessionStoreExpires(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	ctx := context.Background()
	w := &Workflow{ID: "s-1", State: StateSelectOffDays, UpdatedAt: time.Now()}
	require.NoError(t, store.Save(ctx, w))

	got, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	got.OffDays = append(got.OffDays, "Monday")
	again, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Empty(t, again.OffDays)
	assert.Equal(t, 1, store.Len())

	stale := &Workflow{ID: "s-2", UpdatedAt: time.Now().Add(-2 * time.Minute)}
	require.NoError(t, store.Save(ctx, stale))
	assert.Equal(t, 1, store.Len())
	_, err = store.Get(ctx, "s-2")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestMemorySessionStoreSavePrunesAbandoned(t *testing.T) {
	store := NewMemorySessionStore(time.Minute)
	ctx := context.Background()
	for _, id := range []string{"old-1", "old-2"} {
		store.items[id] = &Workflow{ID: id, UpdatedAt: time.Now().Add(-time.Hour)}
	}

	require.NoError(t, store.Save(ctx, &Workflow{ID: "live", UpdatedAt: time.Now()}))
	assert.Len(t, store.items, 1)
	assert.Contains(t, store.items, "live")

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

type stubSessionState struct {
	items map[string]*Workflow
	err   error
}

func (s *stubSessionState) Get(ctx context.Context, id string, dest interface{}) error {
	if s.err != nil {
		return s.err
	}
	w, ok := s.items[id]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*dest.(*Workflow) = *w.clone()
	return nil
}

func (s *stubSessionState) Set(ctx context.Context, id string, value interface{}, ttl time.Duration) error {
	s.items[id] = value.(*Workflow).clone()
	return nil
}

func (s *stubSessionState) Delete(ctx context.Context, id string) error {
	delete(s.items, id)
	return nil
}

func (s *stubSessionState) Count(context.Context) (int, error) {
	return len(s.items), s.err
}

func TestRedisSessionStoreMapsErrors(t *testing.T) {
	repo := &stubSessionState{items: map[string]*Workflow{}}
	store := NewRedisSessionStore(repo, time.Hour)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	require.NoError(t, store.Save(ctx, &Workflow{ID: "s-1", State: StateReviewSummary}))
	got, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, StateReviewSummary, got.State)
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	repo.err = errors.New("connection refused")
	_, err = store.Get(ctx, "s-1")
	assertAppError(t, err, appErrors.ErrPersistence)
}
