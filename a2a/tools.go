package a2a

import (
	"fmt"

	"github.com/agentgrid/relay/core"
	"github.com/agentgrid/relay/tool"
)

// Names of the delegation tools exposed to the host agent's model.
const (
	SendMessageToolName      = "send_message"
	ListRemoteAgentsToolName = "list_remote_agents"
)

// SendMessageTool exposes the dispatcher to the model: one call delegates
// a piece of work to a named remote agent and returns its converted reply.
func SendMessageTool(d *Dispatcher) tool.Tool {
	return tool.NewFunctionTool(
		SendMessageToolName,
		"Send a message to the named remote agent and return its response.",
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"agent_name": map[string]any{
					"type":        "string",
					"description": "Name of the remote agent to send the task to.",
				},
				"message": map[string]any{
					"type":        "string",
					"description": "The message describing the task for the agent.",
				},
			},
			"required": []string{"agent_name", "message"},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			agentName, _ := args["agent_name"].(string)
			message, _ := args["message"].(string)
			return d.Dispatch(tc, agentName, message)
		},
	)
}

// ListRemoteAgentsTool lets the model discover which remote agents it can
// delegate to.
func ListRemoteAgentsTool(r *Registry) tool.Tool {
	return tool.NewFunctionTool(
		ListRemoteAgentsToolName,
		"List the available remote agents you can use to delegate the task.",
		map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			return r.List(), nil
		},
	)
}

const routingInstructionTemplate = `You are the coordinating agent for a set of remote agents.

Discovery:
- Use ` + "`list_remote_agents`" + ` to discover the remote agents you can delegate to.

Execution:
- Forward the user's request to the most suitable remote agent with ` + "`send_message`" + ` instead of answering yourself.

Agents:
%s

Current agent:
%s
`

// RoutingInstruction renders the host agent's system prompt from the
// registry listing and the currently active delegation target.
func RoutingInstruction(r *Registry) func(rc *core.RunContext) (string, error) {
	return func(rc *core.RunContext) (string, error) {
		return fmt.Sprintf(routingInstructionTemplate, r.Listing(), ActiveAgent(rc)), nil
	}
}

// ActiveAgent names the live delegation target, or "None" when no
// delegated session is active.
func ActiveAgent(state StateGetter) string {
	if s := LoadDelegationState(state); s.Active() {
		return s.Agent
	}
	return "None"
}
