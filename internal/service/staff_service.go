package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/shift-roster-api/internal/models"
	"github.com/noah-isme/shift-roster-api/pkg/database"
	appErrors "github.com/noah-isme/shift-roster-api/pkg/errors"
)

var staffNamePattern = regexp.MustCompile(`^[\p{L} '\-]+$`)

type staffRepository interface {
	List(ctx context.Context) ([]models.Staff, error)
	ListAll(ctx context.Context) ([]models.Staff, error)
	SetActive(ctx context.Context, exec sqlx.ExtContext, id string, active bool) error
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Staff, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, staff *models.Staff) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

// CreateStaffRequest is the payload for adding a staff member.
type CreateStaffRequest struct {
	Name string `json:"name" validate:"required,min=2,max=50,staffname"`
}

// RegisterValidators adds the staffname tag.
func RegisterValidators(v *validator.Validate) {
	_ = v.RegisterValidation("staffname", func(fl validator.FieldLevel) bool {
		return staffNamePattern.MatchString(fl.Field().String())
	})
}

// StaffService manages roster membership.
type StaffService struct {
	tx        txProvider
	repo      staffRepository
	changes   changeLogRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStaffService builds the service.
func NewStaffService(tx txProvider, repo staffRepository, changes changeLogRepository, validate *validator.Validate, logger *zap.Logger) *StaffService {
	if validate == nil {
		validate = validator.New()
	}
	RegisterValidators(validate)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StaffService{
		tx:        tx,
		repo:      repo,
		changes:   changes,
		validator: validate,
		logger:    logger,
	}
}

// List returns the current roster, or every staff member when includeInactive is set.
func (s *StaffService) List(ctx context.Context, includeInactive bool) ([]models.Staff, error) {
	var (
		staff []models.Staff
		err   error
	)
	if includeInactive {
		staff, err = s.repo.ListAll(ctx)
	} else {
		staff, err = s.repo.List(ctx)
	}
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to list staff")
	}
	return staff, nil
}

// Get loads one staff member.
func (s *StaffService) Get(ctx context.Context, id string) (*models.Staff, error) {
	staff, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Reference("staff member not found")
		}
		return nil, appErrors.Persistence(err, "failed to load staff member")
	}
	return staff, nil
}

// Create adds a staff member and records an add_staff change.
func (s *StaffService) Create(ctx context.Context, req CreateStaffRequest, actor string) (*models.Staff, error) {
	req.Name = strings.Join(strings.Fields(req.Name), " ")
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
			"name must be 2-50 characters of letters, spaces, hyphens or apostrophes")
	}

	exists, err := s.repo.ExistsByName(ctx, req.Name)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to check staff name")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a staff member with this name already exists")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	staff := &models.Staff{Name: req.Name}
	if err = s.repo.Create(ctx, tx, staff); err != nil {
		// a concurrent create can pass ExistsByName and still lose on ux_staff_name
		if database.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "a staff member with this name already exists")
		}
		return nil, appErrors.Persistence(err, "failed to create staff member")
	}
	if err = s.changes.Create(ctx, tx, &models.ChangeLog{
		StaffID:   staff.ID,
		Action:    models.ChangeActionAddStaff,
		NewData:   staffSnapshot(staff),
		ChangedBy: actor,
	}); err != nil {
		return nil, appErrors.Persistence(err, "failed to write change log")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Persistence(err, "failed to commit staff member")
	}

	s.logger.Info("staff member added", zap.String("staff_id", staff.ID), zap.String("actor", actor))
	return staff, nil
}

// SetActive moves a staff member off (or back onto) the current roster without touching
// their stored entries. Leaving is logged as remove_staff and returning as add_staff.
func (s *StaffService) SetActive(ctx context.Context, id string, active bool, actor string) (*models.Staff, error) {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	staff, err := s.repo.FindByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Reference("staff member not found")
		}
		return nil, appErrors.Persistence(err, "failed to load staff member")
	}
	if staff.Active == active {
		_ = tx.Rollback()
		return staff, nil
	}

	before := staffSnapshot(staff)
	if err = s.repo.SetActive(ctx, tx, id, active); err != nil {
		return nil, appErrors.Persistence(err, "failed to update staff member")
	}
	staff.Active = active

	action := models.ChangeActionRemoveStaff
	if active {
		action = models.ChangeActionAddStaff
	}
	if err = s.changes.Create(ctx, tx, &models.ChangeLog{
		StaffID:   id,
		Action:    action,
		OldData:   before,
		NewData:   staffSnapshot(staff),
		ChangedBy: actor,
	}); err != nil {
		return nil, appErrors.Persistence(err, "failed to write change log")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Persistence(err, "failed to commit staff update")
	}

	s.logger.Info("staff roster status changed", zap.String("staff_id", id), zap.Bool("active", active), zap.String("actor", actor))
	return staff, nil
}

// Delete removes a staff member and their entries. The change log keeps their history.
func (s *StaffService) Delete(ctx context.Context, id, actor string) error {
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Persistence(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	staff, err := s.repo.FindByID(ctx, tx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Reference("staff member not found")
		}
		return appErrors.Persistence(err, "failed to load staff member")
	}
	if err = s.repo.Delete(ctx, tx, id); err != nil {
		return appErrors.Persistence(err, "failed to delete staff member")
	}
	if err = s.changes.Create(ctx, tx, &models.ChangeLog{
		StaffID:   id,
		Action:    models.ChangeActionRemoveStaff,
		OldData:   staffSnapshot(staff),
		ChangedBy: actor,
	}); err != nil {
		return appErrors.Persistence(err, "failed to write change log")
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Persistence(err, "failed to commit staff removal")
	}

	s.logger.Info("staff member removed", zap.String("staff_id", id), zap.String("actor", actor))
	return nil
}

func staffSnapshot(staff *models.Staff) types.NullJSONText {
	raw, err := json.Marshal(map[string]interface{}{"id": staff.ID, "name": staff.Name, "active": staff.Active})
	if err != nil {
		return types.NullJSONText{}
	}
	return types.NullJSONText{JSONText: types.JSONText(raw), Valid: true}
}
