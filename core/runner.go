package core

import "context"

// Runner orchestrates agent runs: it resolves the session, spawns the agent,
// applies event actions and streams events back to the caller.
type Runner interface {
	// Run starts an asynchronous run and returns its run ID together with
	// the event and error channels. Both channels close when the run ends.
	Run(ctx context.Context, agentName, sessionID string, userContent Content) (string, <-chan Event, <-chan error, error)

	// Resume unblocks a run waiting on external input.
	Resume(runID string) error

	// Cancel aborts an in-flight run.
	Cancel(runID string) error
}
