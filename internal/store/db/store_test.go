//go:build integration

package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/department-sync/database"
	"github.com/stacklok/department-sync/internal/department"
	"github.com/stacklok/department-sync/internal/store"
	"github.com/stacklok/department-sync/internal/sync/writer"
)

func strPtr(s string) *string { return &s }

func seed(externalID string, order int, parent *string, syncedAt *time.Time) *department.Department {
	return &department.Department{
		ID:                 uuid.New(),
		ExternalID:         externalID,
		Name:               "Department " + externalID,
		Order:              order,
		ParentDepartmentID: parent,
		SourceCreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		SourceUpdatedAt:    time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		LastSyncAt:         syncedAt,
		CreatedBy:          "system-sync",
		UpdatedBy:          "system-sync",
	}
}

func TestDBStore(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := database.SetupTestDBContainer(t, ctx)
	defer cleanup()

	st, err := New(pool)
	require.NoError(t, err)

	t.Run("empty store", func(t *testing.T) {
		rows, err := st.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, rows)

		latest, err := st.LatestSyncAt(ctx)
		require.NoError(t, err)
		assert.Nil(t, latest)

		_, err = st.GetByExternalID(ctx, "ext-001")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	older := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(2 * time.Hour)
	root := seed("ext-001", 2, nil, &older)
	child := seed("ext-002", 1, strPtr("ext-001"), &newer)
	sibling := seed("ext-003", 1, strPtr("ext-001"), nil)

	w, err := writer.NewDBSyncWriter(pool)
	require.NoError(t, err)
	require.NoError(t, w.Write(ctx, &writer.Batch{Creates: []*department.Department{root, child, sibling}}))

	t.Run("list is ordered by order then external id", func(t *testing.T) {
		rows, err := st.List(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "ext-002", rows[0].ExternalID)
		assert.Equal(t, "ext-003", rows[1].ExternalID)
		assert.Equal(t, "ext-001", rows[2].ExternalID)
	})

	t.Run("lookups", func(t *testing.T) {
		got, err := st.GetByID(ctx, child.ID)
		require.NoError(t, err)
		assert.Equal(t, "ext-002", got.ExternalID)
		require.NotNil(t, got.ParentDepartmentID)
		assert.Equal(t, "ext-001", *got.ParentDepartmentID)

		_, err = st.GetByID(ctx, uuid.New())
		require.ErrorIs(t, err, store.ErrNotFound)

		byExt, err := st.GetByExternalIDs(ctx, []string{"ext-001", "ext-003", "ext-404"})
		require.NoError(t, err)
		assert.Len(t, byExt, 2)
		assert.Contains(t, byExt, "ext-001")

		none, err := st.GetByExternalIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("children", func(t *testing.T) {
		children, err := st.ListByParentExternalID(ctx, "ext-001")
		require.NoError(t, err)
		assert.Len(t, children, 2)
	})

	t.Run("latest sync and count", func(t *testing.T) {
		latest, err := st.LatestSyncAt(ctx)
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.True(t, newer.Equal(*latest))

		n, err := st.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})
}
