package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stacklok/department-sync/internal/status"
)

const syncStatusTable = "department_sync_status"

// the table holds a single row pinned to this id
const syncStatusRowID = 1

var syncStatusColumns = []string{
	"phase",
	"message",
	"last_attempt",
	"attempt_count",
	"last_sync_time",
	"total_processed",
	"created_count",
	"updated_count",
	"error_count",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type dbStateService struct {
	pool *pgxpool.Pool
}

// NewDBStateService creates a state service storing the status in PostgreSQL
func NewDBStateService(pool *pgxpool.Pool) SyncStateService {
	return &dbStateService{pool: pool}
}

func (d *dbStateService) Initialize(ctx context.Context) error {
	_, err := d.UpdateStatusAtomically(ctx, normalizeLoaded)
	if err != nil {
		return fmt.Errorf("failed to initialize sync status: %w", err)
	}
	return nil
}

func (d *dbStateService) GetSyncStatus(ctx context.Context) (*status.SyncStatus, error) {
	return loadStatus(ctx, d.pool, false)
}

func (d *dbStateService) UpdateSyncStatus(ctx context.Context, syncStatus *status.SyncStatus) error {
	return saveStatus(ctx, d.pool, syncStatus)
}

func (d *dbStateService) UpdateStatusAtomically(
	ctx context.Context,
	fn func(syncStatus *status.SyncStatus) bool,
) (bool, error) {
	tx, err := d.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("Failed to rollback sync status transaction", "error", err)
		}
	}()

	current, err := loadStatus(ctx, tx, true)
	if err != nil {
		return false, err
	}

	updated := fn(current)
	if updated {
		if err := saveStatus(ctx, tx, current); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit sync status: %w", err)
	}
	return updated, nil
}

// loadStatus returns the stored row, or an empty status when none exists yet.
// forUpdate locks the row for the rest of the transaction.
func loadStatus(ctx context.Context, q querier, forUpdate bool) (*status.SyncStatus, error) {
	query := psql.Select(syncStatusColumns...).
		From(syncStatusTable).
		Where(sq.Eq{"id": syncStatusRowID})
	if forUpdate {
		query = query.Suffix("FOR UPDATE")
	}
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build sync status query: %w", err)
	}

	var (
		s       status.SyncStatus
		phase   string
		message *string
	)
	err = q.QueryRow(ctx, sqlStr, args...).Scan(
		&phase,
		&message,
		&s.LastAttempt,
		&s.AttemptCount,
		&s.LastSyncTime,
		&s.TotalProcessed,
		&s.Created,
		&s.Updated,
		&s.ErrorCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return &status.SyncStatus{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load sync status: %w", err)
	}

	s.Phase = status.SyncPhase(phase)
	if message != nil {
		s.Message = *message
	}
	return &s, nil
}

func saveStatus(ctx context.Context, q querier, s *status.SyncStatus) error {
	var message *string
	if s.Message != "" {
		message = &s.Message
	}

	updates := make([]string, 0, len(syncStatusColumns)+1)
	for _, col := range syncStatusColumns {
		updates = append(updates, col+" = EXCLUDED."+col)
	}
	updates = append(updates, "updated_at = NOW()")

	sqlStr, args, err := psql.Insert(syncStatusTable).
		Columns(append([]string{"id"}, syncStatusColumns...)...).
		Values(
			syncStatusRowID,
			string(s.Phase),
			message,
			s.LastAttempt,
			s.AttemptCount,
			s.LastSyncTime,
			s.TotalProcessed,
			s.Created,
			s.Updated,
			s.ErrorCount,
		).
		Suffix("ON CONFLICT (id) DO UPDATE SET " + strings.Join(updates, ", ")).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build sync status upsert: %w", err)
	}

	if _, err := q.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("failed to save sync status: %w", err)
	}
	return nil
}
