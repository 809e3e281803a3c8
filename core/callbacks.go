package core

import (
	"context"
	"fmt"
	"sync"
)

// CallbackType identifies a lifecycle point at which registered callbacks fire.
type CallbackType string

const (
	// CallbackBeforeAgent fires before an agent begins handling a run.
	CallbackBeforeAgent CallbackType = "before_agent"
	// CallbackAfterAgent fires after an agent finishes handling a run.
	CallbackAfterAgent CallbackType = "after_agent"
	// CallbackBeforeModel fires before each model call.
	CallbackBeforeModel CallbackType = "before_model"
	// CallbackAfterModel fires after each model call returns.
	CallbackAfterModel CallbackType = "after_model"
	// CallbackBeforeTool fires before a tool executes.
	CallbackBeforeTool CallbackType = "before_tool"
	// CallbackAfterTool fires after a tool returns.
	CallbackAfterTool CallbackType = "after_tool"
	// CallbackOnEvent fires for every event surfaced by a run.
	CallbackOnEvent CallbackType = "on_event"
)

// CallbackContext carries the payload for a lifecycle callback. Fields are
// populated according to Type: model hooks see ModelRequest/ModelResponse,
// tool hooks see ToolName/ToolArgs/ToolResponse, event hooks see Event.
type CallbackContext struct {
	RunContext *RunContext
	Type       CallbackType
	AgentName  string

	Event *Event

	ModelRequest  any
	ModelResponse any

	ToolName     string
	ToolArgs     map[string]any
	ToolResponse any

	Metadata map[string]any
}

// Callback handles a single lifecycle point.
type Callback interface {
	// Type returns the lifecycle point this callback is registered for.
	Type() CallbackType
	// Execute runs the callback. Errors abort the run for before_* hooks.
	Execute(ctx context.Context, cc *CallbackContext) error
}

// FunctionCallback adapts a plain function into a Callback.
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, cc *CallbackContext) error
}

// NewFunctionCallback creates a callback from a function.
func NewFunctionCallback(t CallbackType, fn func(ctx context.Context, cc *CallbackContext) error) *FunctionCallback {
	return &FunctionCallback{callbackType: t, fn: fn}
}

// Type returns the lifecycle point this callback is registered for.
func (c *FunctionCallback) Type() CallbackType { return c.callbackType }

// Execute runs the wrapped function.
func (c *FunctionCallback) Execute(ctx context.Context, cc *CallbackContext) error {
	return c.fn(ctx, cc)
}

// CallbackManager stores callbacks by lifecycle point and executes them in
// registration order.
type CallbackManager struct {
	mu        sync.RWMutex
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates an empty callback manager.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{callbacks: map[CallbackType][]Callback{}}
}

// Register adds a callback for its lifecycle point.
func (m *CallbackManager) Register(cb Callback) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callbacks[cb.Type()] = append(m.callbacks[cb.Type()], cb)
}

// RegisterFunc adds a function callback for the given lifecycle point.
func (m *CallbackManager) RegisterFunc(t CallbackType, fn func(ctx context.Context, cc *CallbackContext) error) {
	m.Register(NewFunctionCallback(t, fn))
}

// Execute runs every callback registered for t, in registration order. The
// first error aborts the chain and is returned to the caller.
func (m *CallbackManager) Execute(ctx context.Context, t CallbackType, cc *CallbackContext) error {
	m.mu.RLock()
	cbs := m.callbacks[t]
	m.mu.RUnlock()

	for _, cb := range cbs {
		if err := cb.Execute(ctx, cc); err != nil {
			return fmt.Errorf("callback %s: %w", t, err)
		}
	}

	return nil
}

// Count returns the number of callbacks registered for t.
func (m *CallbackManager) Count(t CallbackType) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.callbacks[t])
}
