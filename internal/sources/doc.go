// Package sources provides access to the upstream system of record for departments.
//
// A Source returns the full department list in the upstream wire format
// (snake_case JSON). Two implementations exist: an HTTP API source, which goes
// through internal/httpclient with a bounded timeout, and a file source for
// fixtures and air-gapped installs. Record.Transform validates a single record
// and converts it to a department.Department, so a malformed record fails on
// its own without affecting the rest of the batch.
package sources
