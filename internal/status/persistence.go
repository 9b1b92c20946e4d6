// Package status provides sync status tracking and persistence.
package status

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:generate mockgen -destination=mocks/mock_status_persistence.go -package=mocks -source=persistence.go StatusPersistence

// StatusFileName is the name of the status file inside the status directory
const StatusFileName = "sync-status.yaml"

// StatusPersistence loads and saves the sync status
//
//nolint:revive // This name is fine
type StatusPersistence interface {
	// SaveStatus replaces the stored status
	SaveStatus(ctx context.Context, status *SyncStatus) error

	// LoadStatus returns the stored status, or an empty SyncStatus on first run
	LoadStatus(ctx context.Context) (*SyncStatus, error)
}

type fileStatusPersistence struct {
	dir string
}

// NewFileStatusPersistence stores the status as YAML under dir
func NewFileStatusPersistence(dir string) StatusPersistence {
	return &fileStatusPersistence{dir: dir}
}

func (f *fileStatusPersistence) path() string {
	return filepath.Join(f.dir, StatusFileName)
}

// SaveStatus writes through a temporary file and renames it into place
func (f *fileStatusPersistence) SaveStatus(_ context.Context, status *SyncStatus) error {
	if err := os.MkdirAll(f.dir, 0750); err != nil {
		return fmt.Errorf("failed to create status directory %s: %w", f.dir, err)
	}

	data, err := yaml.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal sync status: %w", err)
	}

	tempPath := f.path() + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary status file: %w", err)
	}
	if err := os.Rename(tempPath, f.path()); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename status file: %w", err)
	}
	return nil
}

func (f *fileStatusPersistence) LoadStatus(_ context.Context) (*SyncStatus, error) {
	// #nosec G304 -- path is built from the configured status directory
	data, err := os.ReadFile(f.path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &SyncStatus{}, nil
		}
		return nil, fmt.Errorf("failed to read status file: %w", err)
	}

	var status SyncStatus
	if err := yaml.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status file: %w", err)
	}
	return &status, nil
}

type memoryStatusPersistence struct {
	mu     sync.Mutex
	status *SyncStatus
}

// NewMemoryStatusPersistence keeps the status in process memory only
func NewMemoryStatusPersistence() StatusPersistence {
	return &memoryStatusPersistence{}
}

func (m *memoryStatusPersistence) SaveStatus(_ context.Context, status *SyncStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status.Clone()
	return nil
}

func (m *memoryStatusPersistence) LoadStatus(_ context.Context) (*SyncStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == nil {
		return &SyncStatus{}, nil
	}
	return m.status.Clone(), nil
}
