//go:build integration

package database

import (
	"context"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	pool, cleanup := SetupTestDBContainer(t, ctx)
	t.Cleanup(cleanup)

	m, err := GetMigrate(pool.Config().ConnString())
	require.NoError(t, err)
	defer func() { _, _ = m.Close() }()

	fnames, err := fs.Glob(migrationsFS, "migrations/*.up.sql")
	require.NoError(t, err)
	require.NotEmpty(t, fnames)

	// fully migrated by the setup helper: walk down and back up
	require.NoError(t, MigrateDown(m, 0))
	require.NoError(t, MigrateUp(m, uint(len(fnames))))

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(len(fnames)), version)

	// already current
	assert.NoError(t, MigrateUp(m, 0))
}
