package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shift-roster-api/internal/models"
)

// StaffRepository persists roster members.
type StaffRepository struct {
	db *sqlx.DB
}

// NewStaffRepository constructs the repository.
func NewStaffRepository(db *sqlx.DB) *StaffRepository {
	return &StaffRepository{db: db}
}

func (r *StaffRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns the current roster: active staff ordered by name.
func (r *StaffRepository) List(ctx context.Context) ([]models.Staff, error) {
	query := r.db.Rebind(`SELECT id, name, active, created_at, updated_at FROM staff WHERE active = ? ORDER BY LOWER(name)`)
	var staff []models.Staff
	if err := r.db.SelectContext(ctx, &staff, query, true); err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	return staff, nil
}

// ListAll returns active and inactive staff ordered by name.
func (r *StaffRepository) ListAll(ctx context.Context) ([]models.Staff, error) {
	const query = `SELECT id, name, active, created_at, updated_at FROM staff ORDER BY LOWER(name)`
	var staff []models.Staff
	if err := r.db.SelectContext(ctx, &staff, query); err != nil {
		return nil, fmt.Errorf("list all staff: %w", err)
	}
	return staff, nil
}

// FindByID loads a staff member. Returns sql.ErrNoRows when missing.
func (r *StaffRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Staff, error) {
	target := r.exec(exec)
	query := target.Rebind(`SELECT id, name, active, created_at, updated_at FROM staff WHERE id = ?`)
	var staff models.Staff
	if err := sqlx.GetContext(ctx, target, &staff, query, id); err != nil {
		return nil, err
	}
	return &staff, nil
}

// ExistsByName reports whether a staff member already uses the name, ignoring case.
func (r *StaffRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	query := r.db.Rebind(`SELECT COUNT(*) FROM staff WHERE LOWER(name) = ?`)
	var total int
	if err := r.db.GetContext(ctx, &total, query, strings.ToLower(name)); err != nil {
		return false, fmt.Errorf("check staff name: %w", err)
	}
	return total > 0, nil
}

// Create inserts a staff member.
func (r *StaffRepository) Create(ctx context.Context, exec sqlx.ExtContext, staff *models.Staff) error {
	if staff.ID == "" {
		staff.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	staff.Active = true
	staff.CreatedAt = now
	staff.UpdatedAt = now

	const query = `INSERT INTO staff (id, name, active, created_at, updated_at) VALUES (:id, :name, :active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, staff); err != nil {
		return fmt.Errorf("insert staff: %w", err)
	}
	return nil
}

// SetActive moves a staff member onto or off the current roster.
func (r *StaffRepository) SetActive(ctx context.Context, exec sqlx.ExtContext, id string, active bool) error {
	target := r.exec(exec)
	result, err := target.ExecContext(ctx, target.Rebind(`UPDATE staff SET active = ?, updated_at = ? WHERE id = ?`), active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update staff status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("staff rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete hard-deletes a staff member. Schedule entries go with it; change-log rows stay.
func (r *StaffRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	target := r.exec(exec)
	result, err := target.ExecContext(ctx, target.Rebind(`DELETE FROM staff WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete staff: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("staff rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
