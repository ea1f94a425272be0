package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolationSQLite(t *testing.T) {
	db, err := NewSQLite(filepath.Join(t.TempDir(), "unique.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(context.Background(), db))

	insert := `INSERT INTO staff (id, name, active, created_at, updated_at) VALUES (?, ?, 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`
	_, err = db.Exec(insert, "a", "Ana")
	require.NoError(t, err)

	_, err = db.Exec(insert, "b", "ana")
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert staff: %w", err)))
}

func TestIsUniqueViolationPostgres(t *testing.T) {
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert staff: %w", &pq.Error{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
	assert.False(t, IsUniqueViolation(nil))
}
