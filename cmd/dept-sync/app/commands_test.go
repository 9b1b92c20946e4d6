package app

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	gosync "sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fileSourceDepartments = `[
  {"id":"ext-001","department_name":"Head Office","order":1,"created_at":"2024-01-01T00:00:00Z","updated_at":"2024-01-01T00:00:00Z"},
  {"id":"ext-002","department_name":"Engineering","order":2,"parent_department_id":"ext-001","created_at":"2024-01-01T00:00:00Z","updated_at":"not-a-date"}
]`

var (
	rootOnce gosync.Once
	testRoot *cobra.Command
)

// root commands are package globals, so these tests share one tree and run serially
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootOnce.Do(func() { testRoot = NewRootCmd() })

	var out bytes.Buffer
	testRoot.SetOut(&out)
	testRoot.SetErr(&out)
	testRoot.SetArgs(args)
	err := testRoot.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestVersionCommand_JSON(t *testing.T) {
	out, err := executeCommand(t, "version", "--format", "json")
	require.NoError(t, err)

	var info map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.NotEmpty(t, info["version"])
	assert.NotEmpty(t, info["platform"])
}

func TestSyncCommand_FileSource(t *testing.T) {
	dir := t.TempDir()
	source := writeFile(t, dir, "departments.json", fileSourceDepartments)
	cfgPath := writeFile(t, dir, "config.yaml", `source:
  type: file
  file:
    path: `+source+`
storage:
  type: memory
`)

	out, err := executeCommand(t, "sync", "--config", cfgPath, "--force=false")
	require.NoError(t, err)

	var result struct {
		Success        bool     `json:"success"`
		TotalProcessed int      `json:"totalProcessed"`
		Created        int      `json:"created"`
		Errors         []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.TotalProcessed)
	assert.Equal(t, 1, result.Created)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "ext-002")
}

func TestSyncCommand_MissingSourceFails(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", `source:
  type: file
  file:
    path: `+filepath.Join(dir, "missing.json")+`
`)

	out, err := executeCommand(t, "sync", "--config", cfgPath, "--force=false")
	require.Error(t, err)
	assert.Contains(t, out, `"success": false`)
}

func TestMigrateCommand_RequiresDatabase(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.yaml", `source:
  type: file
  file:
    path: /tmp/departments.json
`)

	_, err := executeCommand(t, "migrate", "up", "--config", cfgPath, "--yes")
	require.ErrorContains(t, err, "database configuration is required")
}
