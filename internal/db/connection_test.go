package db

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/department-sync/internal/config"
)

func passwordFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "password")
	require.NoError(t, os.WriteFile(path, []byte("s3cr3t:/@\n"), 0600))
	return path
}

func TestBuildPoolConfig(t *testing.T) {
	t.Parallel()

	pwFile := passwordFile(t)

	cfg, err := BuildPoolConfig(&config.DatabaseConfig{
		Host:            "db.internal",
		Port:            5432,
		User:            "dept",
		PasswordFile:    pwFile,
		Database:        "departments",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: "30m",
	})
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.ConnConfig.Host)
	assert.Equal(t, uint16(5432), cfg.ConnConfig.Port)
	assert.Equal(t, "dept", cfg.ConnConfig.User)
	assert.Equal(t, "s3cr3t:/@", cfg.ConnConfig.Password)
	assert.Equal(t, "departments", cfg.ConnConfig.Database)
	assert.Equal(t, int32(10), cfg.MaxConns)
	assert.Equal(t, int32(2), cfg.MinConns)
	assert.Equal(t, 30*time.Minute, cfg.MaxConnLifetime)
	assert.Equal(t, defaultConnectTimeout, cfg.ConnConfig.ConnectTimeout)
}

func TestBuildPoolConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := BuildPoolConfig(&config.DatabaseConfig{
		Host:         "localhost",
		Port:         5432,
		User:         "dept",
		PasswordFile: passwordFile(t),
		Database:     "departments",
		SSLMode:      "disable",
		MaxOpenConns: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), cfg.MaxConns)
	// min is clamped to max
	assert.Equal(t, int32(3), cfg.MinConns)
}

func TestBuildPoolConfig_Invalid(t *testing.T) {
	t.Parallel()

	pwFile := passwordFile(t)

	tests := []struct {
		name    string
		cfg     *config.DatabaseConfig
		wantErr string
	}{
		{name: "nil config", cfg: nil, wantErr: "database configuration is required"},
		{name: "missing host", cfg: &config.DatabaseConfig{Port: 5432, User: "u", Database: "d"}, wantErr: "database host is required"},
		{name: "missing port", cfg: &config.DatabaseConfig{Host: "h", User: "u", Database: "d"}, wantErr: "database port is required"},
		{name: "missing user", cfg: &config.DatabaseConfig{Host: "h", Port: 1, Database: "d"}, wantErr: "database user is required"},
		{name: "missing database", cfg: &config.DatabaseConfig{Host: "h", Port: 1, User: "u"}, wantErr: "database name is required"},
		{
			name: "bad lifetime",
			cfg: &config.DatabaseConfig{
				Host: "h", Port: 1, User: "u", Database: "d", SSLMode: "disable",
				PasswordFile: pwFile, ConnMaxLifetime: "forever",
			},
			wantErr: "invalid connMaxLifetime",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := BuildPoolConfig(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
