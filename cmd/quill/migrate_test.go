// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quill Contributors

package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillhq/quill/internal/config"
	"github.com/quillhq/quill/pkg/errutil"
)

type fakeMigrator struct {
	calls   []string
	upErr   error
	version uint
	dirty   bool
	pending []uint
	forced  int
	closed  bool
}

func (m *fakeMigrator) Up() error {
	m.calls = append(m.calls, "up")
	return m.upErr
}

func (m *fakeMigrator) Down() error {
	m.calls = append(m.calls, "down")
	return nil
}

func (m *fakeMigrator) Version() (uint, bool, error) {
	return m.version, m.dirty, nil
}

func (m *fakeMigrator) Force(version int) error {
	m.calls = append(m.calls, "force")
	m.forced = version
	return nil
}

func (m *fakeMigrator) Pending() ([]uint, error) {
	return m.pending, nil
}

func (m *fakeMigrator) Close() error {
	m.closed = true
	return nil
}

func useFakeMigrator(t *testing.T, m *fakeMigrator) *string {
	t.Helper()
	var gotURL string
	orig := migratorFactory
	migratorFactory = func(url string) (migrator, error) {
		gotURL = url
		return m, nil
	}
	t.Cleanup(func() { migratorFactory = orig })
	return &gotURL
}

func runMigrate(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	envFile := filepath.Join(t.TempDir(), "absent.env")
	cmd.SetArgs(append([]string{"migrate", "--env-file", envFile}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestMigrate_RequiresDatabaseURL(t *testing.T) {
	t.Setenv(config.EnvDatabaseURL, "")
	m := &fakeMigrator{}
	useFakeMigrator(t, m)

	_, err := runMigrate(t)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	assert.Empty(t, m.calls)
}

func TestMigrate_Up(t *testing.T) {
	t.Setenv(config.EnvDatabaseURL, "postgres://localhost/quill")

	for _, args := range [][]string{nil, {"up"}} {
		m := &fakeMigrator{}
		gotURL := useFakeMigrator(t, m)

		out, err := runMigrate(t, args...)
		require.NoError(t, err)
		assert.Equal(t, []string{"up"}, m.calls)
		assert.True(t, m.closed)
		assert.Equal(t, "postgres://localhost/quill", *gotURL)
		assert.Contains(t, out, "Migrations completed successfully")
	}
}

func TestMigrate_UpFailure(t *testing.T) {
	t.Setenv(config.EnvDatabaseURL, "postgres://localhost/quill")
	m := &fakeMigrator{upErr: errors.New("boom")}
	useFakeMigrator(t, m)

	_, err := runMigrate(t, "up")
	errutil.AssertErrorCode(t, err, "MIGRATION_FAILED")
	assert.True(t, m.closed)
}

func TestMigrate_Version(t *testing.T) {
	t.Setenv(config.EnvDatabaseURL, "postgres://localhost/quill")
	m := &fakeMigrator{version: 1, dirty: true, pending: []uint{2, 3}}
	useFakeMigrator(t, m)

	out, err := runMigrate(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "version 1 (dirty), 2 pending")
}

func TestMigrate_Force(t *testing.T) {
	t.Setenv(config.EnvDatabaseURL, "postgres://localhost/quill")

	tests := []struct {
		name    string
		arg     string
		want    int
		wantErr string
	}{
		{name: "valid version", arg: "3", want: 3},
		{name: "negative clears", arg: "-1", want: -1},
		{name: "not a number", arg: "abc", wantErr: "MIGRATION_INVALID_VERSION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeMigrator{}
			useFakeMigrator(t, m)

			_, err := runMigrate(t, "force", "--", tt.arg)
			if tt.wantErr != "" {
				errutil.AssertErrorCode(t, err, tt.wantErr)
				assert.Empty(t, m.calls)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.forced)
		})
	}
}
