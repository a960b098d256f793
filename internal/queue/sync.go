package queue

import "context"

// SyncTrigger is the collaborator invoked after a pass drains the queue,
// typically to push the captured knowledge to a remote replica. Trigger
// errors are logged by the orchestrator and never fail the run.
type SyncTrigger interface {
	// TriggerIfEnabled starts a synchronization if the feature is enabled.
	// A disabled trigger returns nil.
	TriggerIfEnabled(ctx context.Context) error
}

// NoopSyncTrigger is a SyncTrigger that does nothing. Used when remote
// synchronization is not configured.
type NoopSyncTrigger struct{}

// TriggerIfEnabled implements SyncTrigger.
func (NoopSyncTrigger) TriggerIfEnabled(context.Context) error { return nil }
