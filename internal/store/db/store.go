// Package db contains the PostgreSQL implementation of the department store.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stacklok/department-sync/internal/department"
	"github.com/stacklok/department-sync/internal/store"
)

const departmentTable = "departments"

// departmentColumns is the select list shared by every query, in scan order
var departmentColumns = []string{
	"id",
	"external_id",
	"name",
	"code",
	"sort_order",
	"manager_id",
	"parent_department_id",
	"source_created_at",
	"source_updated_at",
	"last_sync_at",
	"created_by",
	"updated_by",
	"created_at",
	"updated_at",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type dbStore struct {
	pool *pgxpool.Pool
}

// New creates a department store backed by the given pool.
// The caller is responsible for closing the pool.
func New(pool *pgxpool.Pool) (store.Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgx pool is required")
	}
	return &dbStore{pool: pool}, nil
}

func selectDepartments() sq.SelectBuilder {
	return psql.Select(departmentColumns...).From(departmentTable)
}

func scanDepartment(row pgx.Row) (*department.Department, error) {
	var d department.Department
	err := row.Scan(
		&d.ID,
		&d.ExternalID,
		&d.Name,
		&d.Code,
		&d.Order,
		&d.ManagerID,
		&d.ParentDepartmentID,
		&d.SourceCreatedAt,
		&d.SourceUpdatedAt,
		&d.LastSyncAt,
		&d.CreatedBy,
		&d.UpdatedBy,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan department: %w", err)
	}
	return &d, nil
}

func (s *dbStore) queryOne(ctx context.Context, builder sq.SelectBuilder) (*department.Department, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	return scanDepartment(s.pool.QueryRow(ctx, query, args...))
}

func (s *dbStore) queryMany(ctx context.Context, builder sq.SelectBuilder) ([]*department.Department, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query departments: %w", err)
	}
	defer rows.Close()

	result := make([]*department.Department, 0)
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate departments: %w", err)
	}
	return result, nil
}

func (s *dbStore) List(ctx context.Context) ([]*department.Department, error) {
	return s.queryMany(ctx, selectDepartments().OrderBy("sort_order ASC", "external_id ASC"))
}

func (s *dbStore) GetByID(ctx context.Context, id uuid.UUID) (*department.Department, error) {
	return s.queryOne(ctx, selectDepartments().Where(sq.Eq{"id": id}))
}

func (s *dbStore) GetByExternalID(ctx context.Context, externalID string) (*department.Department, error) {
	return s.queryOne(ctx, selectDepartments().Where(sq.Eq{"external_id": externalID}))
}

func (s *dbStore) GetByExternalIDs(ctx context.Context, externalIDs []string) (map[string]*department.Department, error) {
	result := make(map[string]*department.Department, len(externalIDs))
	if len(externalIDs) == 0 {
		return result, nil
	}

	// squirrel expands a slice in sq.Eq into an IN list
	rows, err := s.queryMany(ctx, selectDepartments().Where(sq.Eq{"external_id": externalIDs}))
	if err != nil {
		return nil, err
	}
	for _, d := range rows {
		result[d.ExternalID] = d
	}
	return result, nil
}

func (s *dbStore) ListByParentExternalID(ctx context.Context, parentExternalID string) ([]*department.Department, error) {
	return s.queryMany(ctx, selectDepartments().
		Where(sq.Eq{"parent_department_id": parentExternalID}).
		OrderBy("sort_order ASC", "external_id ASC"))
}

func (s *dbStore) LatestSyncAt(ctx context.Context) (*time.Time, error) {
	query, args, err := psql.Select("MAX(last_sync_at)").From(departmentTable).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var latest *time.Time
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&latest); err != nil {
		return nil, fmt.Errorf("failed to query latest sync time: %w", err)
	}
	return latest, nil
}

func (s *dbStore) Count(ctx context.Context) (int, error) {
	query, args, err := psql.Select("COUNT(*)").From(departmentTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}

	var count int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count departments: %w", err)
	}
	return count, nil
}
