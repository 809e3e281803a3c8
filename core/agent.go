package core

import "context"

// AgentInfo is a lightweight descriptor attached to run and tool contexts.
type AgentInfo struct {
	Name string
	Type string
}

// Agent is the contract every runnable agent fulfills. Run drives one
// request/response turn, emitting events through the RunContext until the
// turn completes or the context is canceled.
type Agent interface {
	// Name returns the unique agent name.
	Name() string

	// Description returns a human readable description used when routing.
	Description() string

	// Start prepares the agent for handling runs.
	Start(ctx context.Context) error

	// Stop releases resources held by the agent.
	Stop(ctx context.Context) error

	// Run executes a single turn against the provided run context.
	Run(runCtx *RunContext) error
}
