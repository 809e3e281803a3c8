package model

import (
	"context"
	"strings"
	"testing"

	"github.com/agentgrid/relay/core"
)

func collect(t *testing.T, respCh <-chan Response, errCh <-chan error) ([]Response, error) {
	t.Helper()

	var responses []Response
	for r := range respCh {
		responses = append(responses, r)
	}
	return responses, <-errCh
}

func userRequest(text string, stream bool) Request {
	return Request{
		Contents: []core.Content{{
			Role:  "user",
			Parts: []core.Part{core.TextPart{Text: text}},
		}},
		Stream: stream,
	}
}

func TestMockModelCannedResponse(t *testing.T) {
	m := NewMockModel("mock-1", "mock")
	m.AddResponse("ping", "pong")

	responses, err := collect(t, m.Generate(context.Background(), userRequest("ping", false)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}

	final := responses[0]
	if final.Partial {
		t.Error("final response should not be partial")
	}
	if got := final.Content.Text(); got != "pong" {
		t.Errorf("expected %q, got %q", "pong", got)
	}
	if final.FinishReason != "stop" {
		t.Errorf("expected finish reason stop, got %q", final.FinishReason)
	}
}

func TestMockModelDefaultResponse(t *testing.T) {
	m := NewMockModel("mock-1", "mock")

	responses, err := collect(t, m.Generate(context.Background(), userRequest("anything", false)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(responses) != 1 {
		t.Fatalf("expected 1 response, got %d", len(responses))
	}
	if got := responses[0].Content.Text(); !strings.Contains(got, "anything") {
		t.Errorf("default reply should echo the prompt, got %q", got)
	}
}

func TestMockModelStreaming(t *testing.T) {
	m := NewMockModel("mock-1", "mock")
	m.AddResponse("hi", "abc")

	responses, err := collect(t, m.Generate(context.Background(), userRequest("hi", true)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// One partial per rune plus the final response.
	if len(responses) != 4 {
		t.Fatalf("expected 4 responses, got %d", len(responses))
	}

	var streamed strings.Builder
	for _, r := range responses[:3] {
		if !r.Partial {
			t.Error("expected partial response")
		}
		streamed.WriteString(r.Content.Text())
	}
	if streamed.String() != "abc" {
		t.Errorf("partials should reassemble to %q, got %q", "abc", streamed.String())
	}

	final := responses[3]
	if final.Partial {
		t.Error("last response should be final")
	}
	if got := final.Content.Text(); got != "abc" {
		t.Errorf("final text mismatch: %q", got)
	}
}

func TestMockModelEmptyRequest(t *testing.T) {
	m := NewMockModel("mock-1", "mock")

	responses, err := collect(t, m.Generate(context.Background(), Request{}))
	if err == nil {
		t.Fatal("expected error for empty request")
	}
	if len(responses) != 0 {
		t.Errorf("expected no responses, got %d", len(responses))
	}
}

func TestMockModelInfo(t *testing.T) {
	m := NewMockModel("mock-1", "mock")

	info := m.Info()
	if info.Name != "mock-1" || info.Provider != "mock" {
		t.Errorf("unexpected info: %+v", info)
	}
	if !info.SupportsTools {
		t.Error("mock should report tool support")
	}
}
