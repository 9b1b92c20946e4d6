// Package config provides configuration loading and management for the department sync server.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/department-sync/internal/telemetry"
)

// EnvPrefix is the prefix for environment variables read by the server
const EnvPrefix = "DEPT_SYNC"

const (
	// SourceTypeAPI fetches departments from an upstream HTTP API
	SourceTypeAPI = "api"

	// SourceTypeFile reads departments from a local JSON file
	SourceTypeFile = "file"
)

const (
	// StorageTypeDatabase stores departments in PostgreSQL
	StorageTypeDatabase = "database"

	// StorageTypeMemory keeps departments in process memory
	StorageTypeMemory = "memory"
)

const (
	// DefaultSourcePath is appended to the API endpoint when no path is configured
	DefaultSourcePath = "/departments"

	// DefaultFetchTimeout bounds a single upstream fetch
	DefaultFetchTimeout = 30 * time.Second

	// DefaultTTL is the staleness threshold for locally cached departments
	DefaultTTL = 24 * time.Hour

	// DefaultSyncInterval is how often the scheduler triggers a sync
	DefaultSyncInterval = time.Hour

	// DefaultSyncIdentity is the audit identity stamped on synced rows
	DefaultSyncIdentity = "system-sync"

	// PasswordEnvVar is read when no database password file is configured
	PasswordEnvVar = "DEPT_SYNC_DATABASE_PASSWORD"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// EvalSymlinks also cleans the path
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) && !filepath.IsLocal(realPath) {
			return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	Source    SourceConfig      `yaml:"source"`
	Sync      *SyncConfig       `yaml:"sync,omitempty"`
	Storage   *StorageConfig    `yaml:"storage,omitempty"`
	Database  *DatabaseConfig   `yaml:"database,omitempty"`
	Cache     *CacheConfig      `yaml:"cache,omitempty"`
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
}

// SourceConfig defines where departments are fetched from
type SourceConfig struct {
	// Type is either "api" or "file"
	Type string      `yaml:"type"`
	API  *APIConfig  `yaml:"api,omitempty"`
	File *FileConfig `yaml:"file,omitempty"`
}

// APIConfig defines the upstream department API
type APIConfig struct {
	// Endpoint is the base URL of the upstream, e.g. "https://hr.example.com/api"
	Endpoint string `yaml:"endpoint"`

	// Path is appended to Endpoint; defaults to "/departments"
	Path string `yaml:"path,omitempty"`

	// Timeout bounds a single fetch (e.g. "30s")
	Timeout string `yaml:"timeout,omitempty"`

	// TokenFile optionally holds a bearer token sent as the Authorization header
	TokenFile string `yaml:"tokenFile,omitempty"`
}

// FileConfig defines local file source configuration
type FileConfig struct {
	// Path is the path to a JSON array of department records
	Path string `yaml:"path"`
}

// SyncConfig defines synchronization behaviour
type SyncConfig struct {
	// Enabled gates non-forced syncs. Defaults to true.
	Enabled *bool `yaml:"enabled,omitempty"`

	// TTL is how old the newest lastSyncAt may be before reads trigger a background refresh
	TTL string `yaml:"ttl,omitempty"`

	// Interval is the scheduler period
	Interval string `yaml:"interval,omitempty"`

	// Identity is written to createdBy/updatedBy on synced rows
	Identity string `yaml:"identity,omitempty"`
}

// StorageConfig selects the department store backend
type StorageConfig struct {
	Type string `yaml:"type"`

	// StatusPath is the directory for file-based sync status when no database is used
	StatusPath string `yaml:"statusPath,omitempty"`
}

// CacheConfig configures an optional Redis instance used to share sync status across replicas
type CacheConfig struct {
	Address  string `yaml:"address"`
	DB       int    `yaml:"db,omitempty"`
	Key      string `yaml:"key,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing only the database password
	PasswordFile string `yaml:"passwordFile,omitempty"`

	Database string `yaml:"database"`

	// SSLMode is one of disable, require, verify-ca, verify-full
	SSLMode string `yaml:"sslMode,omitempty"`

	MaxOpenConns int32 `yaml:"maxOpenConns,omitempty"`
	MaxIdleConns int32 `yaml:"maxIdleConns,omitempty"`

	// ConnMaxLifetime is a duration string, e.g. "1h"
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`
}

// GetPassword returns the database password from PasswordFile, falling back to
// the DEPT_SYNC_DATABASE_PASSWORD environment variable.
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		data, err := os.ReadFile(filepath.Clean(d.PasswordFile))
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if envPassword := os.Getenv(PasswordEnvVar); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf("no database password configured: set passwordFile or %s environment variable", PasswordEnvVar)
}

// GetConnectionString builds a PostgreSQL URL with the password escaped.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(password),
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	), nil
}

// GetConnMaxLifetime parses ConnMaxLifetime, returning 0 when unset
func (d *DatabaseConfig) GetConnMaxLifetime() (time.Duration, error) {
	if d.ConnMaxLifetime == "" {
		return 0, nil
	}
	lifetime, err := time.ParseDuration(d.ConnMaxLifetime)
	if err != nil {
		return 0, fmt.Errorf("invalid connMaxLifetime: %w", err)
	}
	return lifetime, nil
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// GetStorageType returns the configured store backend. Database is assumed
// when a database section is present, memory otherwise.
func (c *Config) GetStorageType() string {
	if c.Storage != nil && c.Storage.Type != "" {
		return c.Storage.Type
	}
	if c.Database != nil {
		return StorageTypeDatabase
	}
	return StorageTypeMemory
}

// IsSyncEnabled reports whether non-forced syncs may run
func (c *Config) IsSyncEnabled() bool {
	if c.Sync == nil || c.Sync.Enabled == nil {
		return true
	}
	return *c.Sync.Enabled
}

// GetTTL returns the cache TTL
func (c *Config) GetTTL() time.Duration {
	if c.Sync == nil {
		return DefaultTTL
	}
	return parseDurationOr(c.Sync.TTL, DefaultTTL)
}

// GetSyncInterval returns the scheduler period
func (c *Config) GetSyncInterval() time.Duration {
	if c.Sync == nil {
		return DefaultSyncInterval
	}
	return parseDurationOr(c.Sync.Interval, DefaultSyncInterval)
}

// GetSyncIdentity returns the audit identity for synced rows
func (c *Config) GetSyncIdentity() string {
	if c.Sync == nil || c.Sync.Identity == "" {
		return DefaultSyncIdentity
	}
	return c.Sync.Identity
}

// GetFetchTimeout returns the bound on a single upstream fetch
func (c *Config) GetFetchTimeout() time.Duration {
	if c.Source.API == nil {
		return DefaultFetchTimeout
	}
	return parseDurationOr(c.Source.API.Timeout, DefaultFetchTimeout)
}

// GetSourceURL returns the full upstream URL for the department list
func (a *APIConfig) GetSourceURL() string {
	path := a.Path
	if path == "" {
		path = DefaultSourcePath
	}
	return strings.TrimSuffix(a.Endpoint, "/") + "/" + strings.TrimPrefix(path, "/")
}

// GetToken reads the bearer token from TokenFile, returning "" when unset
func (a *APIConfig) GetToken() (string, error) {
	if a.TokenFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(filepath.Clean(a.TokenFile))
	if err != nil {
		return "", fmt.Errorf("failed to read token file %s: %w", a.TokenFile, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := validateSource(&c.Source); err != nil {
		return err
	}

	if err := validateSync(c.Sync); err != nil {
		return err
	}

	switch c.GetStorageType() {
	case StorageTypeDatabase:
		if c.Database == nil {
			return fmt.Errorf("storage.type is %s but no database section is configured", StorageTypeDatabase)
		}
	case StorageTypeMemory:
	default:
		return fmt.Errorf("storage.type must be one of %s or %s, got %s",
			StorageTypeDatabase, StorageTypeMemory, c.GetStorageType())
	}

	if c.Cache != nil && c.Cache.Address == "" {
		return fmt.Errorf("cache.address is required when cache is configured")
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	return nil
}

func validateSource(source *SourceConfig) error {
	switch source.Type {
	case SourceTypeAPI:
		if source.API == nil || source.API.Endpoint == "" {
			return fmt.Errorf("source.api.endpoint is required for source type %s", SourceTypeAPI)
		}
		if _, err := url.ParseRequestURI(source.API.Endpoint); err != nil {
			return fmt.Errorf("source.api.endpoint is not a valid URL: %w", err)
		}
		if source.API.Timeout != "" {
			if _, err := time.ParseDuration(source.API.Timeout); err != nil {
				return fmt.Errorf("source.api.timeout must be a valid duration: %w", err)
			}
		}
	case SourceTypeFile:
		if source.File == nil || source.File.Path == "" {
			return fmt.Errorf("source.file.path is required for source type %s", SourceTypeFile)
		}
	case "":
		return fmt.Errorf("source.type is required")
	default:
		return fmt.Errorf("unsupported source type: %s", source.Type)
	}
	return nil
}

func validateSync(sync *SyncConfig) error {
	if sync == nil {
		return nil
	}
	for name, value := range map[string]string{"ttl": sync.TTL, "interval": sync.Interval} {
		if value == "" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("sync.%s must be a valid duration (e.g., '30m', '24h'): %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("sync.%s must be positive", name)
		}
	}
	return nil
}
