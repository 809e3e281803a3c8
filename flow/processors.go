package flow

import (
	"fmt"

	"github.com/agentgrid/relay/core"
	internalutil "github.com/agentgrid/relay/internal/util"
	"github.com/agentgrid/relay/model"
)

// InstructionsProcessor resolves the agent's system instructions and renders
// any state placeholders against the merged session state.
type InstructionsProcessor struct{}

// NewInstructionsProcessor creates a new instructions processor.
func NewInstructionsProcessor() *InstructionsProcessor { return &InstructionsProcessor{} }

// Name returns the processor's identifier.
func (p *InstructionsProcessor) Name() string { return "instructions" }

// ProcessRequest sets the rendered system instructions on the request.
func (p *InstructionsProcessor) ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error {
	instructions, err := agent.ResolveInstructions(runCtx)
	if err != nil {
		return fmt.Errorf("failed to resolve instructions: %w", err)
	}

	runCtx.LogDebug("agent.instructions.resolved", "agent", agent.GetName(), "length", len(instructions))

	rendered, err := internalutil.RenderTemplate(instructions, runCtx.MergedState())
	if err != nil {
		return fmt.Errorf("failed to render instructions: %w", err)
	}

	req.Instructions = rendered

	return nil
}

// ContentsProcessor assembles the conversational contents for the request:
// the system instructions followed by capped session history.
type ContentsProcessor struct{}

// NewContentsProcessor creates a new contents processor.
func NewContentsProcessor() *ContentsProcessor { return &ContentsProcessor{} }

// Name returns the processor's identifier.
func (p *ContentsProcessor) Name() string { return "contents" }

// ProcessRequest builds req.Contents from instructions and session history.
func (p *ContentsProcessor) ProcessRequest(runCtx *core.RunContext, req *model.Request, agent FlowAgent) error {
	contents := []core.Content{{
		Role:  "system",
		Parts: []core.Part{core.TextPart{Text: req.Instructions}},
	}}

	if runCtx.Session != nil {
		events := runCtx.Session.GetConversationHistory()
		if limit := agent.MaxHistoryMessages(); limit > 0 && len(events) > limit {
			events = events[len(events)-limit:]
		}

		for _, ev := range events {
			if ev.Content != nil && len(ev.Content.Parts) > 0 {
				contents = append(contents, *ev.Content)
			}
		}
	}

	req.Contents = contents

	return nil
}
