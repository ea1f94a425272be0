package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/shift-roster-api/internal/models"
	appErrors "github.com/noah-isme/shift-roster-api/pkg/errors"
	"github.com/noah-isme/shift-roster-api/pkg/weekcal"
)

// SessionState is a step of the weekly editing workflow.
type SessionState string

const (
	StateSelectOffDays  SessionState = "select_off_days"
	StateConfirmOffDays SessionState = "confirm_off_days"
	StateAssignHours    SessionState = "assign_hours"
	StateReviewSummary  SessionState = "review_summary"
	StateCommitted      SessionState = "committed"
	StateCancelled      SessionState = "cancelled"
)

// Terminal reports whether the workflow has ended.
func (s SessionState) Terminal() bool {
	return s == StateCommitted || s == StateCancelled
}

// EventKind is the closed set of intents a workflow accepts.
type EventKind string

const (
	EventToggleDay      EventKind = "toggle_day"
	EventSubmitOffDays  EventKind = "submit_off_days"
	EventConfirmOffDays EventKind = "confirm_off_days"
	EventBack           EventKind = "back"
	EventPickStart      EventKind = "pick_start"
	EventPickEnd        EventKind = "pick_end"
	EventSkipDay        EventKind = "skip_day"
	EventEditDay        EventKind = "edit_day"
	EventSave           EventKind = "save"
	EventEditAgain      EventKind = "edit_again"
	EventCancel         EventKind = "cancel"
)

var eventOrder = []EventKind{
	EventToggleDay, EventSubmitOffDays, EventConfirmOffDays, EventBack,
	EventPickStart, EventPickEnd, EventSkipDay, EventEditDay,
	EventSave, EventEditAgain, EventCancel,
}

// Valid reports whether k belongs to the event set.
func (k EventKind) Valid() bool {
	for _, known := range eventOrder {
		if k == known {
			return true
		}
	}
	return false
}

// Targets accepted by edit_again.
const (
	EditTargetOffDays = "off_days"
	EditTargetHours   = "hours"
)

// Event is one intent from the transport. Day, Time and Target are read only by the
// events that need them.
type Event struct {
	Kind   EventKind `json:"kind"`
	Day    string    `json:"day,omitempty"`
	Time   string    `json:"time,omitempty"`
	Target string    `json:"target,omitempty"`
}

// DayStatus is the resolution of one day inside a workflow.
type DayStatus string

const (
	DayPending DayStatus = "pending"
	DayOff     DayStatus = "off"
	DayWorking DayStatus = "working"
	DayNotSet  DayStatus = "not_set"
)

// DayPlan is the in-progress value for one day.
type DayPlan struct {
	Day       string    `json:"day"`
	Date      time.Time `json:"date"`
	Status    DayStatus `json:"status"`
	StartTime *string   `json:"start_time,omitempty"`
	EndTime   *string   `json:"end_time,omitempty"`
}

// Resolved reports whether the day can be saved as is.
func (d DayPlan) Resolved() bool {
	switch d.Status {
	case DayOff, DayNotSet:
		return true
	case DayWorking:
		return d.StartTime != nil && d.EndTime != nil
	default:
		return false
	}
}

func (d DayPlan) entryInput() EntryInput {
	switch d.Status {
	case DayOff:
		return EntryInput{IsWorking: false}
	case DayWorking:
		return EntryInput{IsWorking: true, StartTime: d.StartTime, EndTime: d.EndTime}
	default:
		return EntryInput{IsWorking: true}
	}
}

// Workflow is the stored state of one editing session for one staff member and week.
type Workflow struct {
	ID           string         `json:"id"`
	StaffID      string         `json:"staff_id"`
	StaffName    string         `json:"staff_name"`
	Actor        string         `json:"actor"`
	WeekStart    time.Time      `json:"week_start"`
	State        SessionState   `json:"state"`
	OffDays      []string       `json:"off_days"`
	Days         [7]DayPlan     `json:"days"`
	CurrentDay   string         `json:"current_day,omitempty"`
	PendingStart *string        `json:"pending_start,omitempty"`
	Failures     []BatchFailure `json:"failures,omitempty"`
	SavedCount   int            `json:"saved_count"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func newWorkflow(id string, staff *models.Staff, week weekcal.Week, actor string, now time.Time) *Workflow {
	w := &Workflow{
		ID:        id,
		StaffID:   staff.ID,
		StaffName: staff.Name,
		Actor:     actor,
		WeekStart: week.Start,
		State:     StateSelectOffDays,
		OffDays:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, dd := range week.Days() {
		w.Days[i] = DayPlan{Day: dd.Day, Date: dd.Date, Status: DayPending}
	}
	return w
}

func (w *Workflow) clone() *Workflow {
	cp := *w
	cp.OffDays = append([]string(nil), w.OffDays...)
	cp.Failures = append([]BatchFailure(nil), w.Failures...)
	return &cp
}

func (w *Workflow) isOff(day string) bool {
	for _, off := range w.OffDays {
		if off == day {
			return true
		}
	}
	return false
}

func (w *Workflow) day(name string) *DayPlan {
	idx := weekcal.DayIndex(name)
	if idx < 0 {
		return nil
	}
	return &w.Days[idx]
}

// advance moves the cursor to the first unresolved working day, or to the summary.
func (w *Workflow) advance() {
	w.PendingStart = nil
	for i := range w.Days {
		if w.Days[i].Status == DayPending {
			w.CurrentDay = w.Days[i].Day
			w.State = StateAssignHours
			return
		}
	}
	w.CurrentDay = ""
	w.State = StateReviewSummary
}

type transition func(ctx context.Context, s *ScheduleSessionService, w *Workflow, ev Event) error

// transitions lists, per state, the events it accepts. Anything else is an invalid
// transition and leaves the workflow untouched.
var transitions = map[SessionState]map[EventKind]transition{
	StateSelectOffDays: {
		EventToggleDay:     toggleDay,
		EventSubmitOffDays: submitOffDays,
		EventCancel:        cancelWorkflow,
	},
	StateConfirmOffDays: {
		EventConfirmOffDays: confirmOffDays,
		EventBack:           backToSelect,
		EventCancel:         cancelWorkflow,
	},
	StateAssignHours: {
		EventPickStart: pickStart,
		EventPickEnd:   pickEnd,
		EventSkipDay:   skipDay,
		EventEditDay:   editDay,
		EventBack:      backToConfirm,
		EventCancel:    cancelWorkflow,
	},
	StateReviewSummary: {
		EventSave:      saveWorkflow,
		EventEditAgain: editAgain,
		EventCancel:    cancelWorkflow,
	},
	StateCommitted: {},
	StateCancelled: {},
}

// AllowedEvents lists the events accepted in state, in a stable order.
func AllowedEvents(state SessionState) []EventKind {
	table := transitions[state]
	allowed := make([]EventKind, 0, len(table))
	for _, kind := range eventOrder {
		if _, ok := table[kind]; ok {
			allowed = append(allowed, kind)
		}
	}
	return allowed
}

func toggleDay(_ context.Context, _ *ScheduleSessionService, w *Workflow, ev Event) error {
	day, ok := weekcal.NormalizeDay(ev.Day)
	if !ok {
		return appErrors.Validation("day must be one of Sunday..Saturday")
	}
	if w.isOff(day) {
		kept := w.OffDays[:0]
		for _, off := range w.OffDays {
			if off != day {
				kept = append(kept, off)
			}
		}
		w.OffDays = kept
		return nil
	}
	w.OffDays = append(w.OffDays, day)
	ordered := make([]string, 0, len(w.OffDays))
	for _, name := range weekcal.DayNames {
		if w.isOff(name) {
			ordered = append(ordered, name)
		}
	}
	w.OffDays = ordered
	return nil
}

func submitOffDays(_ context.Context, _ *ScheduleSessionService, w *Workflow, _ Event) error {
	w.State = StateConfirmOffDays
	return nil
}

func backToSelect(_ context.Context, _ *ScheduleSessionService, w *Workflow, _ Event) error {
	w.State = StateSelectOffDays
	return nil
}

// confirmOffDays builds the working-day queue. Hours chosen on an earlier pass are kept
// for days that are still working.
func confirmOffDays(_ context.Context, _ *ScheduleSessionService, w *Workflow, _ Event) error {
	for i := range w.Days {
		plan := &w.Days[i]
		if w.isOff(plan.Day) {
			plan.Status = DayOff
			plan.StartTime, plan.EndTime = nil, nil
			continue
		}
		if plan.Status == DayOff || !plan.Resolved() {
			plan.Status = DayPending
			plan.StartTime, plan.EndTime = nil, nil
		}
	}
	w.advance()
	return nil
}

func backToConfirm(_ context.Context, _ *ScheduleSessionService, w *Workflow, _ Event) error {
	w.PendingStart = nil
	w.CurrentDay = ""
	w.State = StateConfirmOffDays
	return nil
}

func pickStart(_ context.Context, _ *ScheduleSessionService, w *Workflow, ev Event) error {
	if err := ValidateStartTime(ev.Time); err != nil {
		return err
	}
	start := ev.Time
	w.PendingStart = &start
	return nil
}

func pickEnd(_ context.Context, _ *ScheduleSessionService, w *Workflow, ev Event) error {
	if w.PendingStart == nil {
		return appErrors.Validation("pick a start time first")
	}
	if err := ValidateTimeRange(*w.PendingStart, ev.Time); err != nil {
		return err
	}
	plan := w.day(w.CurrentDay)
	if plan == nil {
		return appErrors.Validation("no day is being edited")
	}
	start, end := *w.PendingStart, ev.Time
	plan.Status = DayWorking
	plan.StartTime, plan.EndTime = &start, &end
	w.advance()
	return nil
}

func skipDay(_ context.Context, _ *ScheduleSessionService, w *Workflow, _ Event) error {
	plan := w.day(w.CurrentDay)
	if plan == nil {
		return appErrors.Validation("no day is being edited")
	}
	plan.Status = DayNotSet
	plan.StartTime, plan.EndTime = nil, nil
	w.advance()
	return nil
}

func editDay(_ context.Context, _ *ScheduleSessionService, w *Workflow, ev Event) error {
	day, ok := weekcal.NormalizeDay(ev.Day)
	if !ok {
		return appErrors.Validation("day must be one of Sunday..Saturday")
	}
	if w.isOff(day) {
		return appErrors.Validation(day + " is an off day")
	}
	// pending days are reached in week order; only resolved days can be revisited
	plan := w.day(day)
	if plan == nil || (plan.Status != DayWorking && plan.Status != DayNotSet) {
		return appErrors.Validation(day + " has not been resolved yet")
	}
	w.CurrentDay = day
	w.PendingStart = nil
	return nil
}

func editAgain(_ context.Context, _ *ScheduleSessionService, w *Workflow, ev Event) error {
	w.Failures = nil
	switch strings.ToLower(ev.Target) {
	case EditTargetOffDays:
		w.CurrentDay = ""
		w.PendingStart = nil
		w.State = StateSelectOffDays
		return nil
	case EditTargetHours:
	default:
		return appErrors.Validation("edit target must be off_days or hours")
	}

	if len(w.OffDays) == len(weekcal.DayNames) {
		return appErrors.Validation("every day is off; there are no hours to edit")
	}
	if ev.Day != "" {
		day, ok := weekcal.NormalizeDay(ev.Day)
		if !ok {
			return appErrors.Validation("day must be one of Sunday..Saturday")
		}
		if w.isOff(day) {
			return appErrors.Validation(day + " is an off day")
		}
		w.CurrentDay = day
	} else {
		w.CurrentDay = ""
		for _, plan := range w.Days {
			if plan.Status != DayOff {
				w.CurrentDay = plan.Day
				break
			}
		}
	}
	w.PendingStart = nil
	w.State = StateAssignHours
	return nil
}

// saveWorkflow commits the seven days through the batch coordinator. On failure the
// workflow stays in review with the failing days listed so the caller can retry.
func saveWorkflow(ctx context.Context, s *ScheduleSessionService, w *Workflow, _ Event) error {
	var unresolved []string
	days := make(map[string]EntryInput, len(w.Days))
	for _, plan := range w.Days {
		if !plan.Resolved() {
			unresolved = append(unresolved, plan.Day)
			continue
		}
		days[plan.Day] = plan.entryInput()
	}
	if len(unresolved) > 0 {
		return appErrors.Validation(fmt.Sprintf("days still need a decision: %s", strings.Join(unresolved, ", ")))
	}

	result, err := s.batches.SaveBatch(ctx, BatchRequest{
		Items:     []BatchItem{{StaffID: w.StaffID, Days: days}},
		WeekStart: w.WeekStart,
		Actor:     w.Actor,
		Kind:      models.SchedulingSessionWorkflow,
	})
	if err != nil {
		w.Failures = nil
		if result != nil {
			w.Failures = result.Failures
		}
		if len(w.Failures) == 0 {
			w.Failures = []BatchFailure{{StaffID: w.StaffID, Reason: appErrors.FromError(err).Message}}
		}
		return err
	}

	w.Failures = nil
	w.SavedCount = result.Saved
	w.State = StateCommitted
	return nil
}

func cancelWorkflow(_ context.Context, _ *ScheduleSessionService, w *Workflow, _ Event) error {
	w.PendingStart = nil
	w.CurrentDay = ""
	w.State = StateCancelled
	return nil
}
