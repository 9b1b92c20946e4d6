package sync

import "context"

// Trigger names what started a synchronization run. It labels metrics and logs only.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
	TriggerReadMiss  Trigger = "read-miss"
	TriggerStaleRead Trigger = "stale-read"
)

type triggerKey struct{}

// WithTrigger returns a context carrying t
func WithTrigger(ctx context.Context, t Trigger) context.Context {
	return context.WithValue(ctx, triggerKey{}, t)
}

// TriggerFrom returns the trigger stored in ctx, defaulting to TriggerManual
func TriggerFrom(ctx context.Context) Trigger {
	if t, ok := ctx.Value(triggerKey{}).(Trigger); ok {
		return t
	}
	return TriggerManual
}
