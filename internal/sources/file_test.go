package sources

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSource_FetchDepartments(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "departments.json")
	require.NoError(t, os.WriteFile(path, []byte(departmentsJSON), 0600))

	src := NewFileSource(path)
	records, err := src.FetchDepartments(context.Background())

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Engineering", records[1].DepartmentName)
	assert.Equal(t, "file "+path, src.Describe())
}

func TestFileSource_FetchDepartments_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	malformed := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(malformed, []byte(`{"data": 5}`), 0600))

	_, err := NewFileSource(filepath.Join(dir, "missing.json")).FetchDepartments(context.Background())
	require.ErrorContains(t, err, "file not found")

	_, err = NewFileSource(malformed).FetchDepartments(context.Background())
	require.ErrorContains(t, err, "invalid department file")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewFileSource(malformed).FetchDepartments(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
