// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authcore Contributors

package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authcore/authcore/internal/store"
	"github.com/authcore/authcore/pkg/errutil"
)

type fakeMigrator struct {
	calls  []string
	status *store.Status
	forced int
	err    error
	closed bool
}

func (f *fakeMigrator) Up() error {
	f.calls = append(f.calls, "up")
	return f.err
}

func (f *fakeMigrator) Down() error {
	f.calls = append(f.calls, "down")
	return f.err
}

func (f *fakeMigrator) Status() (*store.Status, error) {
	f.calls = append(f.calls, "status")
	if f.err != nil {
		return nil, f.err
	}
	return f.status, nil
}

func (f *fakeMigrator) Force(v int) error {
	f.calls = append(f.calls, "force")
	f.forced = v
	return f.err
}

func (f *fakeMigrator) Close() error {
	f.closed = true
	return nil
}

func newMigrateCLI(t *testing.T, m *fakeMigrator) (*testCLI, *string) {
	t.Helper()
	c := newTestCLI(t)
	var gotURL string
	c.deps.MigratorFactory = func(url string) (Migrator, error) {
		gotURL = url
		return m, nil
	}
	return c, &gotURL
}

func TestMigrateUp(t *testing.T) {
	m := &fakeMigrator{}
	c, url := newMigrateCLI(t, m)

	res := c.run("", "migrate", "up")
	require.NoError(t, res.err)
	assert.Equal(t, "migrations applied\n", res.stdout)
	assert.Equal(t, []string{"up"}, m.calls)
	assert.True(t, m.closed)
	assert.Equal(t, "postgres://authcore@localhost/authcore_test", *url)
}

func TestMigrateUp_FlagOverridesEnvironment(t *testing.T) {
	m := &fakeMigrator{}
	c, url := newMigrateCLI(t, m)

	res := c.run("", "--database-url", "postgres://flag/authcore", "migrate", "up")
	require.NoError(t, res.err)
	assert.Equal(t, "postgres://flag/authcore", *url)
}

func TestMigrateUp_Failure(t *testing.T) {
	m := &fakeMigrator{err: errors.New("dirty database version 2")}
	c, _ := newMigrateCLI(t, m)

	res := c.run("", "migrate", "up")
	require.Error(t, res.err)
	assert.Empty(t, res.stdout)
	assert.True(t, m.closed, "migrator is closed on failure")
}

func TestMigrateUp_RequiresDatabase(t *testing.T) {
	m := &fakeMigrator{}
	c, _ := newMigrateCLI(t, m)
	t.Setenv("DATABASE_URL", "")

	res := c.run("", "migrate", "up")
	errutil.AssertErrorCode(t, res.err, "CONFIG_INVALID")
	assert.Empty(t, m.calls)
}

func TestMigrateDown(t *testing.T) {
	t.Run("requires confirmation", func(t *testing.T) {
		m := &fakeMigrator{}
		c, _ := newMigrateCLI(t, m)

		res := c.run("", "migrate", "down")
		errutil.AssertErrorCode(t, res.err, "CONFIRMATION_REQUIRED")
		assert.Empty(t, m.calls)
	})

	t.Run("rolls back with --yes", func(t *testing.T) {
		m := &fakeMigrator{}
		c, _ := newMigrateCLI(t, m)

		res := c.run("", "migrate", "down", "--yes")
		require.NoError(t, res.err)
		assert.Equal(t, "migrations rolled back\n", res.stdout)
		assert.Equal(t, []string{"down"}, m.calls)
	})
}

func TestMigrateStatus(t *testing.T) {
	tests := []struct {
		name   string
		status store.Status
		want   string
	}{
		{
			name:   "fresh database",
			status: store.Status{Pending: []uint{1, 2}},
			want:   "version: 0 (none)\ndirty: false\npending: 1, 2\n",
		},
		{
			name:   "partially applied and dirty",
			status: store.Status{Version: 1, Dirty: true, Pending: []uint{2}},
			want:   "version: 1 (000001_create_users)\ndirty: true\npending: 2\n",
		},
		{
			name:   "up to date",
			status: store.Status{Version: 2},
			want:   "version: 2 (000002_create_sessions)\ndirty: false\npending: none\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := tt.status
			m := &fakeMigrator{status: &st}
			c, _ := newMigrateCLI(t, m)

			res := c.run("", "migrate", "status")
			require.NoError(t, res.err)
			assert.Equal(t, tt.want, res.stdout)
		})
	}
}

func TestMigrateForce(t *testing.T) {
	m := &fakeMigrator{}
	c, _ := newMigrateCLI(t, m)

	res := c.run("", "migrate", "force", "1")
	require.NoError(t, res.err)
	assert.Equal(t, "schema version forced to 1\n", res.stdout)
	assert.Equal(t, 1, m.forced)

	res = c.run("", "migrate", "force", "abc")
	errutil.AssertErrorCode(t, res.err, "INVALID_VERSION")
	assert.Equal(t, []string{"force"}, m.calls, "invalid versions never reach the migrator")
}

func TestParseForceVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{"2", 2, false},
		{" 7 ", 7, false},
		{"-1", 0, true},
		{"1.5", 0, true},
		{"", 0, true},
		{"two", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseForceVersion(tt.in)
			if tt.wantErr {
				errutil.AssertErrorCode(t, err, "INVALID_VERSION")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
