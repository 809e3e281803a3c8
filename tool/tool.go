// Package tool implements the function calling subsystem that lets agents
// invoke structured capabilities with schema validated arguments and
// consistent error handling.
package tool

import (
	"fmt"

	"github.com/agentgrid/relay/core"
	"github.com/agentgrid/relay/internal/util"
)

// Tool is a callable capability exposed to the model. Implementations
// receive a ToolContext for session state, artifacts and flow signals, and
// must be safe for concurrent use.
type Tool interface {
	// Name returns the unique identifier used in function call
	// declarations and routing. Snake_case is the convention.
	Name() string

	// Description is handed to the model so it knows when to call the
	// tool.
	Description() string

	// Parameters returns a JSON schema describing the accepted arguments.
	Parameters() map[string]any

	// Call executes the tool with already decoded arguments.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// ValidationError reports a schema violation in supplied arguments.
type ValidationError = util.ValidationError

// ToolError is the uniform error shape returned from tool execution.
type ToolError struct {
	Tool    string `json:"tool"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a ToolError with the given code.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
