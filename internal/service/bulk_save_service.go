package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/shift-roster-api/internal/models"
	appErrors "github.com/noah-isme/shift-roster-api/pkg/errors"
	"github.com/noah-isme/shift-roster-api/pkg/weekcal"
)

const defaultActor = "system"

type entryWriter interface {
	WriteEntry(ctx context.Context, exec sqlx.ExtContext, in UpsertEntryInput, actor string) (*UpsertOutcome, error)
}

type schedulingSessionRepository interface {
	Create(ctx context.Context, session *models.SchedulingSession) error
	Complete(ctx context.Context, id string, status models.SchedulingSessionStatus, reason *string) error
}

type batchMetrics interface {
	ObserveBatch(kind, outcome string, entries int, duration time.Duration)
}

// BatchItem carries one staff member's days for a batch. Days absent from the map are
// left untouched.
type BatchItem struct {
	StaffID string                `json:"staff_id"`
	Days    map[string]EntryInput `json:"days"`
}

// BatchRequest describes an all-or-nothing write for one week.
type BatchRequest struct {
	Items     []BatchItem
	WeekStart time.Time
	Actor     string
	Kind      models.SchedulingSessionKind
}

// BatchFailure names the staff/day write that could not be committed.
type BatchFailure struct {
	StaffID string    `json:"staff_id"`
	Day     string    `json:"day"`
	Date    time.Time `json:"date"`
	Reason  string    `json:"reason"`
}

// BatchResult reports a batch outcome. Saved counts committed writes, Changed counts the
// writes that altered stored content.
type BatchResult struct {
	Success   bool           `json:"success"`
	SessionID string         `json:"session_id,omitempty"`
	Saved     int            `json:"saved"`
	Changed   int            `json:"changed"`
	Planned   int            `json:"planned"`
	Failures  []BatchFailure `json:"failures,omitempty"`
}

// BulkSaveService commits many schedule writes plus a SchedulingSession audit record as
// one unit.
type BulkSaveService struct {
	tx       txProvider
	writer   entryWriter
	sessions schedulingSessionRepository
	metrics  batchMetrics
	logger   *zap.Logger
}

// NewBulkSaveService builds the coordinator.
func NewBulkSaveService(tx txProvider, writer entryWriter, sessions schedulingSessionRepository, metrics batchMetrics, logger *zap.Logger) *BulkSaveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BulkSaveService{
		tx:       tx,
		writer:   writer,
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
	}
}

type plannedWrite struct {
	input UpsertEntryInput
}

// SaveBatch validates every write, then applies them in one transaction. Staff are written
// in request order and days Sunday..Saturday. Any failed write rolls back the whole batch;
// the returned result lists every failing staff/day and the error carries the first
// failure's type.
func (s *BulkSaveService) SaveBatch(ctx context.Context, req BatchRequest) (result *BatchResult, err error) {
	started := time.Now()
	if req.Kind == "" {
		req.Kind = models.SchedulingSessionManual
	}
	if req.Actor == "" {
		req.Actor = defaultActor
	}

	plan, failures, err := planBatch(req)
	if err != nil {
		return &BatchResult{Failures: failures}, err
	}
	result = &BatchResult{Planned: len(plan)}
	defer func() {
		s.observe(req.Kind, result, time.Since(started))
	}()

	session := &models.SchedulingSession{
		WeekStartDate: weekcal.StartOf(req.WeekStart),
		Kind:          req.Kind,
		CreatedBy:     req.Actor,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return result, appErrors.Persistence(err, "failed to open scheduling session")
	}
	result.SessionID = session.ID

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		s.finish(ctx, session.ID, err)
		return result, appErrors.Persistence(err, "failed to begin transaction")
	}

	var firstErr error
	saved, changed := 0, 0
	for _, write := range plan {
		outcome, writeErr := s.writeWithSavepoint(ctx, tx, write.input, req.Actor)
		if writeErr != nil {
			result.Failures = append(result.Failures, BatchFailure{
				StaffID: write.input.StaffID,
				Day:     write.input.DayOfWeek,
				Date:    write.input.Date,
				Reason:  appErrors.FromError(writeErr).Message,
			})
			if firstErr == nil {
				firstErr = writeErr
			}
			if errors.Is(writeErr, errTxBroken) {
				break
			}
			continue
		}
		saved++
		if outcome.Changed {
			changed++
		}
	}

	if firstErr != nil {
		_ = tx.Rollback()
		s.finish(ctx, session.ID, firstErr)
		s.logger.Warn("batch rolled back",
			zap.String("session_id", session.ID),
			zap.String("kind", string(req.Kind)),
			zap.Int("failures", len(result.Failures)),
			zap.Error(firstErr),
		)
		return result, batchError(firstErr)
	}

	if err := tx.Commit(); err != nil {
		s.finish(ctx, session.ID, err)
		return result, appErrors.Persistence(err, "failed to commit batch")
	}
	s.finish(ctx, session.ID, nil)

	result.Success = true
	result.Saved = saved
	result.Changed = changed
	s.logger.Info("batch committed",
		zap.String("session_id", session.ID),
		zap.String("kind", string(req.Kind)),
		zap.Int("saved", saved),
		zap.Int("changed", changed),
	)
	return result, nil
}

var errTxBroken = errors.New("batch transaction unusable")

func (s *BulkSaveService) writeWithSavepoint(ctx context.Context, tx *sqlx.Tx, in UpsertEntryInput, actor string) (*UpsertOutcome, error) {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT batch_item"); err != nil {
		return nil, appErrors.Persistence(fmt.Errorf("%w: %v", errTxBroken, err), "batch transaction failed")
	}
	outcome, err := s.writer.WriteEntry(ctx, tx, in, actor)
	if err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT batch_item"); rbErr != nil {
			return nil, appErrors.Persistence(fmt.Errorf("%w: %v", errTxBroken, rbErr), "batch transaction failed")
		}
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT batch_item"); err != nil {
		return nil, appErrors.Persistence(fmt.Errorf("%w: %v", errTxBroken, err), "batch transaction failed")
	}
	return outcome, nil
}

// finish records the batch outcome. A failure here is logged only, since the session row
// is audit data and in_progress rows never block later batches.
func (s *BulkSaveService) finish(ctx context.Context, sessionID string, cause error) {
	status := models.SchedulingSessionCompleted
	var reason *string
	if cause != nil {
		status = models.SchedulingSessionFailed
		msg := appErrors.FromError(cause).Error()
		reason = &msg
	}
	if err := s.sessions.Complete(ctx, sessionID, status, reason); err != nil {
		s.logger.Error("failed to mark scheduling session",
			zap.String("session_id", sessionID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

func (s *BulkSaveService) observe(kind models.SchedulingSessionKind, result *BatchResult, duration time.Duration) {
	if s.metrics == nil || result == nil {
		return
	}
	outcome := "failed"
	if result.Success {
		outcome = "completed"
	}
	s.metrics.ObserveBatch(string(kind), outcome, result.Saved, duration)
}

func planBatch(req BatchRequest) ([]plannedWrite, []BatchFailure, error) {
	if len(req.Items) == 0 {
		return nil, nil, appErrors.Validation("batch has no staff entries")
	}
	if req.WeekStart.IsZero() {
		return nil, nil, appErrors.Validation("week start is required")
	}
	week := weekcal.Compute(req.WeekStart)

	var (
		plan     []plannedWrite
		failures []BatchFailure
		seen     = make(map[string]struct{}, len(req.Items))
	)
	for _, item := range req.Items {
		if item.StaffID == "" {
			return nil, nil, appErrors.Validation("staff_id is required for every batch item")
		}
		if _, dup := seen[item.StaffID]; dup {
			return nil, nil, appErrors.Validation("staff " + item.StaffID + " appears more than once in the batch")
		}
		seen[item.StaffID] = struct{}{}

		days := make(map[string]EntryInput, len(item.Days))
		for raw, in := range item.Days {
			day, ok := weekcal.NormalizeDay(raw)
			if !ok {
				failures = append(failures, BatchFailure{StaffID: item.StaffID, Day: raw, Reason: "unknown day name"})
				continue
			}
			days[day] = in
		}

		for _, dd := range week.Days() {
			in, ok := days[dd.Day]
			if !ok {
				continue
			}
			if err := ValidateEntry(in); err != nil {
				failures = append(failures, BatchFailure{
					StaffID: item.StaffID,
					Day:     dd.Day,
					Date:    dd.Date,
					Reason:  appErrors.FromError(err).Message,
				})
				continue
			}
			plan = append(plan, plannedWrite{input: UpsertEntryInput{
				StaffID:    item.StaffID,
				DayOfWeek:  dd.Day,
				Date:       dd.Date,
				EntryInput: in,
			}})
		}
	}

	if len(failures) > 0 {
		first := failures[0]
		return nil, failures, appErrors.Validation(fmt.Sprintf("invalid entry for %s on %s: %s", first.StaffID, first.Day, first.Reason))
	}
	if len(plan) == 0 {
		return nil, nil, appErrors.Validation("batch has no days to write")
	}
	return plan, nil, nil
}

func batchError(err error) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Persistence(err, "batch write failed")
}
