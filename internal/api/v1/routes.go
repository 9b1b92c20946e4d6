// Package v1 provides the REST API handlers for department access.
package v1

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stacklok/department-sync/internal/api/common"
	"github.com/stacklok/department-sync/internal/hierarchy"
	"github.com/stacklok/department-sync/internal/service"
	"github.com/stacklok/department-sync/internal/sync"
	"github.com/stacklok/department-sync/internal/sync/state"
)

const (
	refreshParam = "refresh"
	forceParam   = "force"
)

// Routes holds the collaborators used by the v1 handlers
type Routes struct {
	service service.DepartmentService
	status  state.SyncStateService
}

// NewRoutes creates a new Routes instance. statusSvc may be nil, in which
// case the sync status endpoint is not registered.
func NewRoutes(svc service.DepartmentService, statusSvc state.SyncStateService) *Routes {
	return &Routes{
		service: svc,
		status:  statusSvc,
	}
}

// Router creates a new router for the v1 department API
func Router(svc service.DepartmentService, statusSvc state.SyncStateService) http.Handler {
	routes := NewRoutes(svc, statusSvc)

	r := chi.NewRouter()

	r.Route("/departments", func(r chi.Router) {
		r.Get("/", routes.listDepartments)
		r.Get("/hierarchy", routes.getHierarchy)
		r.Get("/external/{externalId}", routes.getDepartmentByExternalID)
		r.Get("/external/{externalId}/children", routes.listChildren)
		r.Get("/{id}", routes.getDepartmentByID)
	})

	r.Post("/sync", routes.synchronize)
	if statusSvc != nil {
		r.Get("/sync/status", routes.getSyncStatus)
	}

	return r
}

// listDepartments handles GET /v1/departments
func (rr *Routes) listDepartments(w http.ResponseWriter, r *http.Request) {
	refresh, err := common.BoolQueryParam(r, refreshParam)
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	rows, err := rr.service.GetAll(r.Context(), refresh)
	if err != nil {
		writeServiceError(w, "Failed to list departments", err)
		return
	}

	common.WriteJSONResponse(w, ListDepartmentsResponse{Departments: rows, Count: len(rows)}, http.StatusOK)
}

// getDepartmentByID handles GET /v1/departments/{id}
func (rr *Routes) getDepartmentByID(w http.ResponseWriter, r *http.Request) {
	raw, err := common.PathParam(r, "id")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		common.WriteErrorResponse(w, "id must be a UUID", http.StatusBadRequest)
		return
	}
	refresh, err := common.BoolQueryParam(r, refreshParam)
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	dept, err := rr.service.GetByID(r.Context(), id, refresh)
	if err != nil {
		writeServiceError(w, "Failed to get department", err)
		return
	}
	if dept == nil {
		common.WriteErrorResponse(w, "department not found", http.StatusNotFound)
		return
	}

	common.WriteJSONResponse(w, dept, http.StatusOK)
}

// getDepartmentByExternalID handles GET /v1/departments/external/{externalId}
func (rr *Routes) getDepartmentByExternalID(w http.ResponseWriter, r *http.Request) {
	externalID, err := common.PathParam(r, "externalId")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	refresh, err := common.BoolQueryParam(r, refreshParam)
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	dept, err := rr.service.GetByExternalID(r.Context(), externalID, refresh)
	if err != nil {
		writeServiceError(w, "Failed to get department", err)
		return
	}
	if dept == nil {
		common.WriteErrorResponse(w, "department not found", http.StatusNotFound)
		return
	}

	common.WriteJSONResponse(w, dept, http.StatusOK)
}

// listChildren handles GET /v1/departments/external/{externalId}/children
func (rr *Routes) listChildren(w http.ResponseWriter, r *http.Request) {
	externalID, err := common.PathParam(r, "externalId")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	children, err := rr.service.Children(r.Context(), externalID)
	if err != nil {
		writeServiceError(w, "Failed to list child departments", err)
		return
	}
	if children == nil {
		common.WriteErrorResponse(w, "department not found", http.StatusNotFound)
		return
	}

	common.WriteJSONResponse(w, ListDepartmentsResponse{Departments: children, Count: len(children)}, http.StatusOK)
}

// getHierarchy handles GET /v1/departments/hierarchy
func (rr *Routes) getHierarchy(w http.ResponseWriter, r *http.Request) {
	roots, err := rr.service.Hierarchy(r.Context())
	if err != nil {
		writeServiceError(w, "Failed to build department hierarchy", err)
		return
	}

	common.WriteJSONResponse(w, HierarchyResponse{
		Roots:   roots,
		Orphans: hierarchy.CountOrphans(roots),
	}, http.StatusOK)
}

// synchronize handles POST /v1/sync. A run refused because sync is disabled
// is still 200; the result carries Success=false. Failed runs respond with
// the failure result so record errors reach the caller.
func (rr *Routes) synchronize(w http.ResponseWriter, r *http.Request) {
	force, err := common.BoolQueryParam(r, forceParam)
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := rr.service.SynchronizeNow(r.Context(), force)
	switch {
	case err != nil && result != nil:
		slog.Warn("Manual sync failed", "error", err)
		common.WriteJSONResponse(w, result, syncErrorStatus(err))
	case err != nil:
		writeServiceError(w, "Synchronization failed", err)
	default:
		common.WriteJSONResponse(w, result, http.StatusOK)
	}
}

func syncErrorStatus(err error) int {
	if sync.IsKind(err, sync.KindSourceUnavailable) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// getSyncStatus handles GET /v1/sync/status
func (rr *Routes) getSyncStatus(w http.ResponseWriter, r *http.Request) {
	syncStatus, err := rr.status.GetSyncStatus(r.Context())
	if err != nil {
		slog.Error("Failed to read sync status", "error", err)
		common.WriteErrorResponse(w, "Failed to read sync status", http.StatusInternalServerError)
		return
	}

	common.WriteJSONResponse(w, syncStatus, http.StatusOK)
}

// writeServiceError maps service errors onto status codes. Sync errors carry
// messages meant for operators and are returned as is; anything else is logged
// and replaced by fallback.
func writeServiceError(w http.ResponseWriter, fallback string, err error) {
	var syncErr *sync.Error
	switch {
	case errors.As(err, &syncErr) && syncErr.Kind == sync.KindSourceUnavailable:
		common.WriteErrorResponse(w, syncErr.Message, http.StatusServiceUnavailable)
	case errors.As(err, &syncErr):
		common.WriteErrorResponse(w, syncErr.Message, http.StatusInternalServerError)
	case errors.Is(err, hierarchy.ErrCycleDetected):
		common.WriteErrorResponse(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		slog.Error(fallback, "error", err)
		common.WriteErrorResponse(w, fallback, http.StatusInternalServerError)
	}
}
