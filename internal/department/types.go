// Package department contains the locally persisted department model.
package department

import (
	"time"

	"github.com/google/uuid"
)

// Department is the local, persisted form of an upstream department record.
// Rows are keyed internally by ID and correlated with the upstream by ExternalID.
type Department struct {
	// ID is the engine generated primary key
	ID uuid.UUID `json:"id"`

	// ExternalID is the upstream identifier, unique across the store
	ExternalID string `json:"externalId"`

	Name  string `json:"name"`
	Code  string `json:"code"`
	Order int    `json:"order"`

	// ManagerID is an opaque upstream reference, never resolved locally
	ManagerID *string `json:"managerId,omitempty"`

	// ParentDepartmentID holds the parent's ExternalID. It may reference a
	// department that does not exist locally.
	ParentDepartmentID *string `json:"parentDepartmentId,omitempty"`

	// SourceCreatedAt and SourceUpdatedAt are the upstream timestamps
	SourceCreatedAt time.Time `json:"sourceCreatedAt"`
	SourceUpdatedAt time.Time `json:"sourceUpdatedAt"`

	// LastSyncAt is nil until the row has been written by a sync run
	LastSyncAt *time.Time `json:"lastSyncAt,omitempty"`

	CreatedBy string `json:"createdBy"`
	UpdatedBy string `json:"updatedBy"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasParent reports whether the department declares a parent reference.
func (d *Department) HasParent() bool {
	return d.ParentDepartmentID != nil && *d.ParentDepartmentID != ""
}

// Clone returns a deep copy of the department.
func (d *Department) Clone() *Department {
	if d == nil {
		return nil
	}
	c := *d
	c.ManagerID = cloneString(d.ManagerID)
	c.ParentDepartmentID = cloneString(d.ParentDepartmentID)
	if d.LastSyncAt != nil {
		t := *d.LastSyncAt
		c.LastSyncAt = &t
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
