// Package flow drives the request -> model -> tool loop for a single agent.
//
// A Flow owns one conversation turn end to end: it assembles the model
// request through pluggable request processors, streams model responses,
// executes any requested tool calls through a FunctionExecutor and loops
// until the model produces a final answer. Agents plug in through the
// narrow FlowAgent interface so the flow never sees concrete agent types.
package flow

import (
	"github.com/agentgrid/relay/core"
	"github.com/agentgrid/relay/model"
	"github.com/agentgrid/relay/tool"
)

// Flow executes one agent run and streams the resulting events.
type Flow interface {
	// Execute launches the run asynchronously. Both returned channels close
	// when the run ends; the error return covers setup failures only.
	Execute(runCtx *core.RunContext) (<-chan core.Event, <-chan error, error)
}

// FlowAgent is the capability surface a flow needs from its agent. It keeps
// the flow decoupled from agent construction and registration concerns.
type FlowAgent interface {
	// GetName returns the agent's display name, used as event author.
	GetName() string

	// GetLLM returns the language model backing the agent.
	GetLLM() model.Model

	// ResolveInstructions produces the system instructions for this run.
	ResolveInstructions(runCtx *core.RunContext) (string, error)

	// GetTools returns the registered tools keyed by name.
	GetTools() map[string]tool.Tool

	// IsFunctionCallingEnabled reports whether tool definitions are sent to
	// the model.
	IsFunctionCallingEnabled() bool

	// IsStreamingEnabled reports whether partial responses are requested.
	IsStreamingEnabled() bool

	// GetOutputKey returns the session state key that receives the final
	// response text, or "" when disabled.
	GetOutputKey() string

	// MaxHistoryMessages returns the cap on conversation history entries
	// included in a model request.
	MaxHistoryMessages() int
}

// RequestProcessor mutates the model request before it is sent.
type RequestProcessor interface {
	// Name returns the processor's identifier.
	Name() string
	// ProcessRequest modifies the request before model execution.
	ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error
}

// ResponseProcessor inspects or mutates each model response chunk.
type ResponseProcessor interface {
	// Name returns the processor's identifier.
	Name() string
	// ProcessResponse handles one model response before it becomes an event.
	ProcessResponse(runCtx *core.RunContext, resp *model.Response, agent FlowAgent) error
}
