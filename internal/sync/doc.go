// Package sync reconciles the upstream department list into local storage.
//
// # Manager
//
// Manager.Synchronize performs one pass:
//
//   - fetch every record from the configured sources.Source, bounded by the fetch timeout
//   - transform each record; invalid records and repeated ids are reported in
//     Result.Errors and skipped without failing the run
//   - look up the existing rows by external id in one query
//   - create unknown departments with a fresh id, and update known ones when the
//     upstream updated_at is newer (or the row was never synced, or the run is forced)
//   - persist all creates and updates through writer.SyncWriter in a single batch
//
// Departments missing from the upstream are left in place. Nothing is deleted.
//
// # Results and errors
//
// Result.Success is false only for disabled runs, source failures and
// persistence failures. The latter two also return a *Error whose Kind
// classifies the failure. A run with record-level errors is still successful
// and reports HasWarnings.
//
// # Freshness
//
// NeedsUpdate decides per record whether local data is outdated. IsStale decides
// whether the local data set as a whole has outlived its TTL.
//
// The coordinator subpackage schedules periodic runs and persists their status.
package sync
