package sources

import (
	"context"
	"fmt"
	"os"
)

// fileSource reads departments from a local JSON file in the upstream wire format
type fileSource struct {
	path string
}

// NewFileSource creates a source backed by the file at path
func NewFileSource(path string) Source {
	return &fileSource{path: path}
}

// FetchDepartments reads and decodes the file on every call
func (s *fileSource) FetchDepartments(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	//nolint:gosec // File path comes from user configuration
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", s.path)
		}
		return nil, fmt.Errorf("failed to read file %s: %w", s.path, err)
	}

	records, err := decodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("invalid department file %s: %w", s.path, err)
	}
	return records, nil
}

func (s *fileSource) Describe() string {
	return "file " + s.path
}
