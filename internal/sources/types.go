package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/stacklok/department-sync/internal/department"
)

//go:generate mockgen -destination=mocks/mock_source.go -package=mocks -source=types.go Source

// Source is an upstream system of record for departments.
type Source interface {
	// FetchDepartments returns the complete department list. Implementations
	// either return every record or an error; there are no partial results.
	FetchDepartments(ctx context.Context) ([]Record, error)

	// Describe returns a short human readable location of the source, used in logs
	Describe() string
}

// Record is a department as delivered by the upstream. Timestamps are kept as
// received so that a malformed value fails only its own record.
type Record struct {
	ID                 string  `json:"id" validate:"required"`
	DepartmentName     string  `json:"department_name" validate:"required"`
	DepartmentCode     string  `json:"department_code"`
	Order              int     `json:"order"`
	ManagerID          *string `json:"manager_id"`
	ParentDepartmentID *string `json:"parent_department_id"`
	CreatedAt          string  `json:"created_at" validate:"required"`
	UpdatedAt          string  `json:"updated_at" validate:"required"`
}

// ErrInvalidRecord marks a failure confined to a single upstream record.
var ErrInvalidRecord = errors.New("invalid department record")

// TimestampPrecision is the resolution upstream timestamps are kept at. It
// matches PostgreSQL timestamptz, so values survive a round trip unchanged.
const TimestampPrecision = time.Microsecond

// timestampLayouts are tried in order when parsing upstream timestamps
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

var recordValidator = validator.New(validator.WithRequiredStructEnabled())

// Transform validates the record and converts it into a department carrying
// only upstream fields. Identity, audit and sync fields are left for the caller.
func (r *Record) Transform() (*department.Department, error) {
	if err := recordValidator.Struct(r); err != nil {
		return nil, fmt.Errorf("%w %q: %s", ErrInvalidRecord, r.ID, describeValidation(err))
	}

	createdAt, err := parseTimestamp(r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w %q: created_at: %w", ErrInvalidRecord, r.ID, err)
	}
	updatedAt, err := parseTimestamp(r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w %q: updated_at: %w", ErrInvalidRecord, r.ID, err)
	}

	return &department.Department{
		ExternalID:         r.ID,
		Name:               r.DepartmentName,
		Code:               r.DepartmentCode,
		Order:              r.Order,
		ManagerID:          nilIfEmpty(r.ManagerID),
		ParentDepartmentID: nilIfEmpty(r.ParentDepartmentID),
		SourceCreatedAt:    createdAt,
		SourceUpdatedAt:    updatedAt,
	}, nil
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC().Truncate(TimestampPrecision), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", value)
}

func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}

func nilIfEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}

// envelope is the wrapped response shape some upstreams use
type envelope struct {
	Data []Record `json:"data"`
}

// decodeRecords accepts either a bare JSON array or an object with a "data" array.
func decodeRecords(data []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty response")
	}

	if trimmed[0] == '{' {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("failed to decode department envelope: %w", err)
		}
		if env.Data == nil {
			return nil, fmt.Errorf("response object has no data array")
		}
		return env.Data, nil
	}

	var records []Record
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("failed to decode department list: %w", err)
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}
