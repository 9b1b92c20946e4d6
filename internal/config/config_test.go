package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	enabled := false
	tests := []struct {
		name          string
		yamlContent   string
		wantConfig    *Config
		wantErr       bool
		errorContains string
	}{
		{
			name: "api source with sync settings",
			yamlContent: `source:
  type: api
  api:
    endpoint: https://hr.example.com/api
    timeout: 10s
sync:
  enabled: false
  ttl: 12h
  identity: hr-sync
storage:
  type: memory`,
			wantConfig: &Config{
				Source: SourceConfig{
					Type: SourceTypeAPI,
					API:  &APIConfig{Endpoint: "https://hr.example.com/api", Timeout: "10s"},
				},
				Sync:    &SyncConfig{Enabled: &enabled, TTL: "12h", Identity: "hr-sync"},
				Storage: &StorageConfig{Type: StorageTypeMemory},
			},
		},
		{
			name: "file source minimal",
			yamlContent: `source:
  type: file
  file:
    path: /data/departments.json`,
			wantConfig: &Config{
				Source: SourceConfig{
					Type: SourceTypeFile,
					File: &FileConfig{Path: "/data/departments.json"},
				},
			},
		},
		{
			name:          "missing source type",
			yamlContent:   `sync: {}`,
			wantErr:       true,
			errorContains: "source.type is required",
		},
		{
			name: "api without endpoint",
			yamlContent: `source:
  type: api
  api: {}`,
			wantErr:       true,
			errorContains: "source.api.endpoint is required",
		},
		{
			name: "unsupported source",
			yamlContent: `source:
  type: git`,
			wantErr:       true,
			errorContains: "unsupported source type",
		},
		{
			name: "invalid ttl",
			yamlContent: `source:
  type: file
  file:
    path: x.json
sync:
  ttl: tomorrow`,
			wantErr:       true,
			errorContains: "sync.ttl must be a valid duration",
		},
		{
			name: "database storage without database section",
			yamlContent: `source:
  type: file
  file:
    path: x.json
storage:
  type: database`,
			wantErr:       true,
			errorContains: "no database section",
		},
		{
			name: "cache without address",
			yamlContent: `source:
  type: file
  file:
    path: x.json
cache:
  db: 2`,
			wantErr:       true,
			errorContains: "cache.address is required",
		},
		{
			name:          "invalid yaml",
			yamlContent:   "source: [",
			wantErr:       true,
			errorContains: "failed to parse YAML config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeConfig(t, tt.yamlContent)
			cfg, err := LoadConfig(WithConfigPath(path))

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantConfig, cfg)
		})
	}
}

func TestLoadConfig_PathErrors(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig()
	require.ErrorContains(t, err, "path is required")

	_, err = LoadConfig(WithConfigPath(""))
	require.ErrorContains(t, err, "path is required")

	_, err = LoadConfig(WithConfigPath(filepath.Join(t.TempDir(), "missing.yaml")))
	require.ErrorContains(t, err, "failed to evaluate symlinks")
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{Source: SourceConfig{Type: SourceTypeAPI, API: &APIConfig{Endpoint: "http://hr"}}}

	assert.True(t, cfg.IsSyncEnabled())
	assert.Equal(t, DefaultTTL, cfg.GetTTL())
	assert.Equal(t, DefaultSyncInterval, cfg.GetSyncInterval())
	assert.Equal(t, DefaultSyncIdentity, cfg.GetSyncIdentity())
	assert.Equal(t, DefaultFetchTimeout, cfg.GetFetchTimeout())
	assert.Equal(t, StorageTypeMemory, cfg.GetStorageType())
	assert.Equal(t, "http://hr/departments", cfg.Source.API.GetSourceURL())

	cfg.Database = &DatabaseConfig{}
	assert.Equal(t, StorageTypeDatabase, cfg.GetStorageType())

	cfg.Sync = &SyncConfig{TTL: "2h", Interval: "15m", Identity: "bot"}
	cfg.Source.API.Timeout = "5s"
	assert.Equal(t, 2*time.Hour, cfg.GetTTL())
	assert.Equal(t, 15*time.Minute, cfg.GetSyncInterval())
	assert.Equal(t, "bot", cfg.GetSyncIdentity())
	assert.Equal(t, 5*time.Second, cfg.GetFetchTimeout())
}

func TestAPIConfig_GetSourceURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		endpoint string
		path     string
		want     string
	}{
		{endpoint: "http://hr/api/", path: "", want: "http://hr/api/departments"},
		{endpoint: "http://hr/api", path: "v2/depts", want: "http://hr/api/v2/depts"},
		{endpoint: "http://hr", path: "/org/units", want: "http://hr/org/units"},
	}
	for _, tt := range tests {
		a := &APIConfig{Endpoint: tt.endpoint, Path: tt.path}
		assert.Equal(t, tt.want, a.GetSourceURL())
	}
}

func TestDatabaseConfig_GetPassword(t *testing.T) {
	// Not parallel: mutates process environment.
	dir := t.TempDir()
	passwordFile := filepath.Join(dir, "pw")
	require.NoError(t, os.WriteFile(passwordFile, []byte("s3cr3t\n"), 0600))

	d := &DatabaseConfig{PasswordFile: passwordFile}
	pw, err := d.GetPassword()
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", pw)

	t.Setenv(PasswordEnvVar, "from-env")
	d = &DatabaseConfig{}
	pw, err = d.GetPassword()
	require.NoError(t, err)
	assert.Equal(t, "from-env", pw)

	t.Setenv(PasswordEnvVar, "")
	_, err = d.GetPassword()
	require.ErrorContains(t, err, "no database password configured")
}

func TestDatabaseConfig_GetConnectionString(t *testing.T) {
	t.Setenv(PasswordEnvVar, "p@ss word")

	d := &DatabaseConfig{Host: "db", Port: 5432, User: "dept", Database: "departments", SSLMode: "disable"}
	conn, err := d.GetConnectionString()
	require.NoError(t, err)
	assert.Equal(t, "postgres://dept:p%40ss+word@db:5432/departments?sslmode=disable", conn)

	d.SSLMode = ""
	conn, err = d.GetConnectionString()
	require.NoError(t, err)
	assert.Contains(t, conn, "sslmode=require")
}
