package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shift-roster-api/internal/service"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "roster.db"))
	t.Setenv("REPORTS_STORAGE_DIR", filepath.Join(dir, "exports"))
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	root := newRootCommand(&runtime{})
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	out, err := runCLI(t, "token", "--user", "ops", "--role", "ADMIN")
	require.NoError(t, err)

	auth := service.NewAuthService(nil, service.AuthConfig{AccessTokenSecret: "cli-secret"})
	claims, err := auth.ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.UserID)
}

func TestTokenCommandRejectsRole(t *testing.T) {
	_, err := runCLI(t, "token", "--user", "ops", "--role", "ROOT")
	assert.Error(t, err)
}

func TestMigrateAndSweep(t *testing.T) {
	out, err := runCLI(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema ready")

	out, err = runCLI(t, "sweep-batches", "--older-than", "1h")
	require.NoError(t, err)
	assert.Contains(t, out, "0 batch(es) marked failed")
}

func TestExportEmptyWeekToStdout(t *testing.T) {
	out, err := runCLI(t, "export", "--week", "2024-03-13", "--format", "csv", "-o", "-")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestMirrorRequiresTarget(t *testing.T) {
	_, err := runCLI(t, "mirror", "--from", "2024-03-10")
	assert.Error(t, err)
}
