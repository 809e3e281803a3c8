package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// BaseAgent bundles the lifecycle and identity helpers shared by concrete
// agent implementations. Embed it and supply a Run method to satisfy the
// core.Agent interface. All exported methods are goroutine-safe.
type BaseAgent struct {
	name        string
	description string
	mu          sync.Mutex
	running     bool
}

// NewBaseAgent constructs a BaseAgent with a generated description
// (customizable via SetDescription).
func NewBaseAgent(name string) BaseAgent {
	return BaseAgent{
		name:        name,
		description: fmt.Sprintf("Agent %s", name),
	}
}

// Name returns the human-readable name for this agent.
func (b *BaseAgent) Name() string { return b.name }

// Description returns a description of this agent's purpose, used when
// assembling routing listings.
func (b *BaseAgent) Description() string { return b.description }

// SetDescription updates the agent's description.
func (b *BaseAgent) SetDescription(desc string) { b.description = desc }

// Start transitions the agent to the running state. Only the first call
// succeeds; starting an already running agent returns an error.
func (b *BaseAgent) Start(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return errors.New("agent is already running")
	}

	b.running = true

	return nil
}

// Stop marks the agent as stopped. In-flight runs are not interrupted here;
// cancellation flows through the run context owned by the runner.
func (b *BaseAgent) Stop(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.running {
		return errors.New("agent is not running")
	}

	b.running = false

	return nil
}

// IsRunning reports whether Start has been called without a matching Stop.
func (b *BaseAgent) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.running
}
