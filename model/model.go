package model

import (
	"context"
	"fmt"

	"github.com/agentgrid/relay/core"
)

// ToolDefinition describes one callable tool in the wire shape the chat
// completion APIs share. Type is always "function" today.
type ToolDefinition struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition carries the name, description and JSON schema of a
// function exposed to the model for this turn.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is a normalized, provider independent generation request.
type Request struct {
	// Instructions holds the resolved system prompt. The request pipeline
	// also prepends it to Contents as a "system" entry, which is what the
	// provider adapters read.
	Instructions string

	// Contents is the conversation so far, oldest first.
	Contents []core.Content

	// Tools the model may call during this turn.
	Tools []ToolDefinition

	// Stream requests incremental partial responses where supported.
	Stream bool
}

// TokenUsage reports token accounting for a completed generation.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is one unit of model output. Streaming providers emit a series
// of partial responses followed by exactly one final response carrying the
// complete content, finish reason and usage.
type Response struct {
	ID           string       `json:"id,omitempty"`
	Partial      bool         `json:"partial"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason,omitempty"`
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info describes a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"`
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the generation interface the agent and flow layers program
// against. Generate delivers responses on the first channel and at most one
// terminal error on the second; both close when the call finishes.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns metadata about the model implementation.
	Info() Info
}

// MockModel replays canned completions keyed on the text of the latest
// message. Tests and examples use it to drive the turn loop without network
// access.
type MockModel struct {
	info   Info
	canned map[string]string
}

// NewMockModel constructs a MockModel that reports tool support.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
		canned: make(map[string]string),
	}
}

// AddResponse registers the completion returned when the latest message text
// equals prompt.
func (m *MockModel) AddResponse(prompt, response string) { m.canned[prompt] = response }

// Generate implements Model. With Stream set it emits one partial per rune
// before the final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	out := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		if len(req.Contents) == 0 {
			errCh <- fmt.Errorf("mock model: empty request")
			return
		}

		prompt := req.Contents[len(req.Contents)-1].Text()
		reply, ok := m.canned[prompt]
		if !ok {
			reply = fmt.Sprintf("Mock response to: %s", prompt)
		}

		if req.Stream {
			for _, r := range reply {
				chunk := Response{
					Partial: true,
					Content: core.Content{
						Role:  "assistant",
						Parts: []core.Part{core.TextPart{Text: string(r)}},
					},
				}
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case out <- chunk:
				}
			}
		}

		out <- Response{
			Partial: false,
			Content: core.Content{
				Role:  "assistant",
				Parts: []core.Part{core.TextPart{Text: reply}},
			},
			FinishReason: "stop",
		}
	}()

	return out, errCh
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }

var _ Model = (*MockModel)(nil)
