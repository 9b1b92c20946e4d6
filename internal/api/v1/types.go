package v1

import (
	"github.com/stacklok/department-sync/internal/department"
	"github.com/stacklok/department-sync/internal/hierarchy"
)

// StatusResponse is returned by the health and readiness endpoints
type StatusResponse struct {
	Status string `json:"status"`
}

// ListDepartmentsResponse wraps the department list
type ListDepartmentsResponse struct {
	Departments []*department.Department `json:"departments"`
	Count       int                      `json:"count"`
}

// HierarchyResponse wraps the department forest
type HierarchyResponse struct {
	Roots   []*hierarchy.Node `json:"roots"`
	Orphans int               `json:"orphans"`
}
