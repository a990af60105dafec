package db

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := fs.ReadDir(embedMigrations, "migrations")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}

	assert.Equal(t, []string{
		"00001_create_users.sql",
		"00002_create_tasks.sql",
		"00003_create_task_activity.sql",
	}, names)

	for _, name := range names {
		data, err := fs.ReadFile(embedMigrations, "migrations/"+name)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "-- +goose Up"), name)
		assert.Contains(t, string(data), "-- +goose Down", name)
	}
}

func TestTasksMigration_OwnerReference(t *testing.T) {
	data, err := fs.ReadFile(embedMigrations, "migrations/00002_create_tasks.sql")
	require.NoError(t, err)

	assert.Contains(t, string(data), "user_id INTEGER NOT NULL REFERENCES users(id)")
}

func TestMigrate_PropagatesError(t *testing.T) {
	orig := gooseUp
	defer func() { gooseUp = orig }()

	var gotDir string
	gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
		gotDir = dir
		return errors.New("connection refused")
	}

	err := Migrate(context.Background(), nil)

	require.Error(t, err)
	assert.Equal(t, "migrations", gotDir)
	assert.Contains(t, err.Error(), "goose up failed")
}

func TestMigrate_Success(t *testing.T) {
	orig := gooseUp
	defer func() { gooseUp = orig }()

	called := false
	gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
		called = true
		return nil
	}

	require.NoError(t, Migrate(context.Background(), nil))
	assert.True(t, called)
}
