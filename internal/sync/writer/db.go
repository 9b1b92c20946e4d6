package writer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stacklok/department-sync/internal/department"
)

const (
	createTempTableSQL = `CREATE TEMP TABLE temp_departments
(LIKE departments INCLUDING DEFAULTS) ON COMMIT DROP`

	// created_by and created_at are kept from the existing row on conflict
	upsertFromTempSQL = `INSERT INTO departments (
    id, external_id, name, code, sort_order, manager_id, parent_department_id,
    source_created_at, source_updated_at, last_sync_at,
    created_by, updated_by, created_at, updated_at
)
SELECT
    id, external_id, name, code, sort_order, manager_id, parent_department_id,
    source_created_at, source_updated_at, last_sync_at,
    created_by, updated_by, created_at, updated_at
FROM temp_departments
ON CONFLICT (external_id) DO UPDATE SET
    name = EXCLUDED.name,
    code = EXCLUDED.code,
    sort_order = EXCLUDED.sort_order,
    manager_id = EXCLUDED.manager_id,
    parent_department_id = EXCLUDED.parent_department_id,
    source_created_at = EXCLUDED.source_created_at,
    source_updated_at = EXCLUDED.source_updated_at,
    last_sync_at = EXCLUDED.last_sync_at,
    updated_by = EXCLUDED.updated_by,
    updated_at = EXCLUDED.updated_at`
)

var tempDepartmentColumns = []string{
	"id", "external_id", "name", "code", "sort_order", "manager_id", "parent_department_id",
	"source_created_at", "source_updated_at", "last_sync_at",
	"created_by", "updated_by", "created_at", "updated_at",
}

// dbSyncWriter is a SyncWriter implementation that persists data to a database
type dbSyncWriter struct {
	pool *pgxpool.Pool
}

// NewDBSyncWriter creates a new dbSyncWriter with the given connection pool.
// The caller is responsible for closing the pool when done.
func NewDBSyncWriter(pool *pgxpool.Pool) (SyncWriter, error) {
	if pool == nil {
		return nil, fmt.Errorf("pgx pool is required")
	}
	return &dbSyncWriter{pool: pool}, nil
}

// Write copies the batch into a transaction scoped temp table and upserts it
// into departments in one statement. Nothing is written if any step fails.
func (d *dbSyncWriter) Write(ctx context.Context, batch *Batch) error {
	if batch.Len() == 0 {
		return nil
	}

	tx, err := d.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			slog.Warn("Failed to roll back department write", "error", rollbackErr)
		}
	}()

	if _, err := tx.Exec(ctx, createTempTableSQL); err != nil {
		return fmt.Errorf("failed to create temp department table: %w", err)
	}

	rows := departmentRows(batch)
	copied, err := tx.CopyFrom(ctx, pgx.Identifier{"temp_departments"}, tempDepartmentColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy departments to temp table: %w", describePgError(err))
	}
	if int(copied) != len(rows) {
		return fmt.Errorf("copy count mismatch: expected %d, got %d", len(rows), copied)
	}

	tag, err := tx.Exec(ctx, upsertFromTempSQL)
	if err != nil {
		return fmt.Errorf("failed to upsert departments: %w", describePgError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Debug("Department batch written",
		"creates", len(batch.Creates),
		"updates", len(batch.Updates),
		"rows_affected", tag.RowsAffected())
	return nil
}

func departmentRows(batch *Batch) [][]any {
	now := time.Now().UTC()
	rows := make([][]any, 0, batch.Len())
	appendRow := func(d *department.Department) {
		createdAt := d.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		rows = append(rows, []any{
			d.ID,
			d.ExternalID,
			d.Name,
			d.Code,
			int32(d.Order),
			d.ManagerID,
			d.ParentDepartmentID,
			d.SourceCreatedAt,
			d.SourceUpdatedAt,
			d.LastSyncAt,
			d.CreatedBy,
			d.UpdatedBy,
			createdAt,
			now,
		})
	}
	for _, d := range batch.Creates {
		appendRow(d)
	}
	for _, d := range batch.Updates {
		appendRow(d)
	}
	return rows
}

// describePgError appends the violated constraint name, if any
func describePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.ConstraintName != "" {
		return fmt.Errorf("%w (constraint %s)", err, pgErr.ConstraintName)
	}
	return err
}
