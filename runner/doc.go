// Package runner implements the orchestration layer between callers and
// agents.
//
// The Runner owns the agent registry, resolves or lazily creates the session
// for each run, spawns the agent and its event pump on separate goroutines
// and streams events back to the caller. The pump is the single place where
// event side effects happen: state deltas are applied to the session store,
// non-partial events are persisted to history, lifecycle callbacks fire and
// the agent is resumed once its latest event is durable. Because one pump
// consumes one run's events sequentially, callback firings and persistence
// within a run are totally ordered.
//
// Callbacks registered with the Runner's CallbackManager fire at the run
// boundaries (before_agent, after_agent) and for every surfaced event
// (on_event); the model and tool hooks on the same manager fire deeper in
// the stack. A before_agent error rejects the run before the agent starts,
// everything else is logged and the run continues.
package runner
