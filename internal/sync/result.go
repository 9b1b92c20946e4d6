package sync

import (
	"encoding/json"
	"time"
)

// Result is the outcome of one synchronization run
type Result struct {
	// Success is false only when the run was disabled, the source was
	// unavailable, or the bulk write was rejected. Record-level problems are
	// reported in Errors without clearing Success.
	Success bool `json:"success"`

	// TotalProcessed is the number of records in the fetched batch
	TotalProcessed int `json:"totalProcessed"`

	Created int `json:"created"`
	Updated int `json:"updated"`

	Errors   []string  `json:"errors"`
	SyncedAt time.Time `json:"syncedAt"`
}

// HasWarnings reports whether the run recorded any error messages
func (r *Result) HasWarnings() bool {
	return r != nil && len(r.Errors) > 0
}

// MarshalJSON includes the derived hasWarnings flag
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	errs := r.Errors
	if errs == nil {
		errs = []string{}
	}
	p := plain(r)
	p.Errors = errs
	return json.Marshal(struct {
		plain
		HasWarnings bool `json:"hasWarnings"`
	}{plain: p, HasWarnings: len(errs) > 0})
}

func newFailedResult(now time.Time, errs []string) *Result {
	return &Result{
		Success:  false,
		Errors:   errs,
		SyncedAt: now,
	}
}
