package status

import "time"

// SyncPhase represents the current phase of a synchronization run
type SyncPhase string

const (
	// SyncPhaseSyncing means a run is in progress
	SyncPhaseSyncing SyncPhase = "Syncing"

	// SyncPhaseComplete means the last run succeeded
	SyncPhaseComplete SyncPhase = "Complete"

	// SyncPhaseFailed means the last run failed
	SyncPhaseFailed SyncPhase = "Failed"

	// SyncPhaseDisabled means the last unforced run was refused
	SyncPhaseDisabled SyncPhase = "Disabled"
)

// SyncStatus is the persisted state of department synchronization
type SyncStatus struct {
	Phase SyncPhase `yaml:"phase" json:"phase"`

	// Message describes the last outcome, typically the first error
	Message string `yaml:"message,omitempty" json:"message,omitempty"`

	// LastAttempt is when the last run started
	LastAttempt *time.Time `yaml:"lastAttempt,omitempty" json:"lastAttempt,omitempty"`

	// AttemptCount counts runs since the last success
	AttemptCount int `yaml:"attemptCount,omitempty" json:"attemptCount"`

	// LastSyncTime is when the last successful run finished
	LastSyncTime *time.Time `yaml:"lastSyncTime,omitempty" json:"lastSyncTime,omitempty"`

	// Counters of the last completed run
	TotalProcessed int `yaml:"totalProcessed,omitempty" json:"totalProcessed"`
	Created        int `yaml:"created,omitempty" json:"created"`
	Updated        int `yaml:"updated,omitempty" json:"updated"`
	ErrorCount     int `yaml:"errorCount,omitempty" json:"errorCount"`
}

// Clone returns a deep copy of s
func (s *SyncStatus) Clone() *SyncStatus {
	if s == nil {
		return nil
	}
	c := *s
	if s.LastAttempt != nil {
		t := *s.LastAttempt
		c.LastAttempt = &t
	}
	if s.LastSyncTime != nil {
		t := *s.LastSyncTime
		c.LastSyncTime = &t
	}
	return &c
}
