package ports

import "context"

// HistorySink is the optional write-only mirror of session activity.
// Implementations must be safe to call fire-and-forget: callers invoke
// every method from a detached goroutine and discard the returned
// error, so an implementation logs its own write failures.
type HistorySink interface {
	SyncMessage(ctx context.Context, sessionID, toAgent string, from string, text string) error
	SyncTask(ctx context.Context, sessionID string, taskID string, snapshot map[string]any) error
	SyncAgentTurn(ctx context.Context, sessionID, agent string, summary map[string]any) error
}
