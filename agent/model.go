package agent

import (
	"fmt"

	"github.com/agentgrid/relay/core"
	"github.com/agentgrid/relay/flow"
	"github.com/agentgrid/relay/model"
	"github.com/agentgrid/relay/tool"
)

// ModelAgentOptions configures a ModelAgent instance.
//
// Use functional options with NewModelAgent to override defaults.
type ModelAgentOptions struct {
	// Instruction supplies the system prompt, static or provider-backed.
	Instruction Instruction

	// EnableStreaming requests partial responses from the model.
	EnableStreaming bool

	// EnableFunctionCalling advertises registered tools to the model.
	EnableFunctionCalling bool

	// OutputKey names the session state key that receives the final
	// response text; empty disables the capture.
	OutputKey string

	// MaxHistoryMessages caps the conversation history sent per model call.
	MaxHistoryMessages int

	// Tools seeds the tool registry.
	Tools map[string]tool.Tool
}

// ModelAgent executes conversational turns against a language model.
//
// It supports system prompts (static or provider-backed), function calling
// with registered tools, streaming responses and capped conversation history,
// and runs each turn through the flow package's model/tool loop.
type ModelAgent struct {
	BaseAgent
	llm                   model.Model
	instruction           Instruction
	tools                 map[string]tool.Tool
	enableFunctionCalling bool
	enableStreaming       bool
	outputKey             string
	maxHistoryMessages    int
}

// NewModelAgent creates a model-backed agent. Defaults: streaming and
// function calling enabled, 20-message history cap, a generic assistant
// instruction derived from the name.
func NewModelAgent(name string, llm model.Model, optFns ...func(o *ModelAgentOptions)) *ModelAgent {
	opts := ModelAgentOptions{
		Instruction:           NewInstructionFromText(fmt.Sprintf("You are %s, a helpful AI assistant.", name)),
		EnableStreaming:       true,
		EnableFunctionCalling: true,
		MaxHistoryMessages:    20,
		Tools:                 make(map[string]tool.Tool),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &ModelAgent{
		BaseAgent:             NewBaseAgent(name),
		llm:                   llm,
		instruction:           opts.Instruction,
		enableStreaming:       opts.EnableStreaming,
		enableFunctionCalling: opts.EnableFunctionCalling,
		outputKey:             opts.OutputKey,
		maxHistoryMessages:    opts.MaxHistoryMessages,
		tools:                 opts.Tools,
	}
}

// RegisterTool adds a tool to the agent's capability set. Registered tools
// become callable by the model when function calling is enabled.
func (a *ModelAgent) RegisterTool(t tool.Tool) {
	a.tools[t.Name()] = t
}

// RegisterTools adds multiple tools to the agent's capability set.
func (a *ModelAgent) RegisterTools(tools ...tool.Tool) {
	for _, t := range tools {
		a.RegisterTool(t)
	}
}

// UnregisterTool removes a tool. Returns true if the tool was registered.
func (a *ModelAgent) UnregisterTool(name string) bool {
	if _, exists := a.tools[name]; exists {
		delete(a.tools, name)
		return true
	}
	return false
}

// HasTool checks if a tool is registered with the agent.
func (a *ModelAgent) HasTool(name string) bool {
	_, exists := a.tools[name]
	return exists
}

// ListTools returns the names of all registered tools.
func (a *ModelAgent) ListTools() []string {
	names := make([]string, 0, len(a.tools))
	for name := range a.tools {
		names = append(names, name)
	}
	return names
}

// GetTool retrieves a specific tool by name.
func (a *ModelAgent) GetTool(name string) (tool.Tool, bool) {
	t, exists := a.tools[name]
	return t, exists
}

// ClearTools removes all registered tools from the agent.
func (a *ModelAgent) ClearTools() {
	a.tools = make(map[string]tool.Tool)
}

// FlowAgent implementation. These methods expose the agent's capabilities to
// the flow package without leaking the concrete type.

// GetName returns the agent's display name.
func (a *ModelAgent) GetName() string {
	return a.Name()
}

// GetLLM returns the language model instance.
func (a *ModelAgent) GetLLM() model.Model {
	return a.llm
}

// GetTools returns a copy of the registered tools.
func (a *ModelAgent) GetTools() map[string]tool.Tool {
	tools := make(map[string]tool.Tool, len(a.tools))
	for name, t := range a.tools {
		tools[name] = t
	}

	return tools
}

// IsFunctionCallingEnabled returns whether function calling is enabled.
func (a *ModelAgent) IsFunctionCallingEnabled() bool {
	return a.enableFunctionCalling
}

// IsStreamingEnabled returns whether streaming responses are enabled.
func (a *ModelAgent) IsStreamingEnabled() bool {
	return a.enableStreaming
}

// GetOutputKey returns the session state key for saving responses.
func (a *ModelAgent) GetOutputKey() string {
	return a.outputKey
}

// MaxHistoryMessages returns the conversation history cap per model call.
func (a *ModelAgent) MaxHistoryMessages() int {
	return a.maxHistoryMessages
}

// ResolveInstructions produces the system prompt by resolving the static or
// provider-backed instruction source.
func (a *ModelAgent) ResolveInstructions(runCtx *core.RunContext) (string, error) {
	return a.instruction.Resolve(runCtx)
}

// Run implements core.Agent: it executes the turn through a single-agent
// flow and forwards the flow's events to the run context's emit channel.
func (a *ModelAgent) Run(runCtx *core.RunContext) error {
	runCtx.LogDebug("agent.run.start", "agent", a.Name(), "run", runCtx.RunID)

	fl := flow.NewSingleAgentFlow(a)

	eventChan, errChan, err := fl.Execute(runCtx)
	if err != nil {
		runCtx.LogError("agent.flow.execute_failed", "agent", a.Name(), "error", err.Error())
		return fmt.Errorf("flow execution failed: %w", err)
	}

	var flowErr error

	for eventChan != nil || errChan != nil {
		select {
		case event, ok := <-eventChan:
			if !ok {
				eventChan = nil
				continue
			}

			select {
			case runCtx.Emit <- event:
				role := ""
				if event.Content != nil {
					role = event.Content.Role
				}

				runCtx.LogDebug(
					"agent.event.forward",
					"agent", a.Name(),
					"event_id", event.ID,
					"role", role,
					"fn_calls", len(event.GetFunctionCalls()),
				)
			case <-runCtx.Context.Done():
				runCtx.LogWarn("agent.run.context_done", "agent", a.Name(), "error", runCtx.Context.Err())
				return runCtx.Context.Err()
			}
		case e, ok := <-errChan:
			if !ok {
				errChan = nil
				continue
			}

			if e != nil && flowErr == nil {
				flowErr = e
			}
		case <-runCtx.Context.Done():
			runCtx.LogWarn("agent.run.context_done", "agent", a.Name(), "error", runCtx.Context.Err())
			return runCtx.Context.Err()
		}
	}

	if flowErr != nil {
		return flowErr
	}

	runCtx.LogDebug("agent.run.complete", "agent", a.Name())

	return nil
}

var _ core.Agent = (*ModelAgent)(nil)
var _ flow.FlowAgent = (*ModelAgent)(nil)
