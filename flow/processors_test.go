package flow

import (
	"testing"

	"github.com/agentgrid/relay/core"
	"github.com/agentgrid/relay/model"
)

func TestProcessorNames(t *testing.T) {
	if NewInstructionsProcessor().Name() != "instructions" {
		t.Errorf("expected name 'instructions'")
	}
	if NewContentsProcessor().Name() != "contents" {
		t.Errorf("expected name 'contents'")
	}
}

func TestInstructionsProcessor_RendersState(t *testing.T) {
	agent := &stubAgent{name: "renderer", instructions: "Focus on {{.topic}}."}
	rc := newFlowRunContext(t, 10, nil)
	rc.Session.SetState("topic", "storage")

	req := new(model.Request)
	if err := NewInstructionsProcessor().ProcessRequest(rc, req, agent); err != nil {
		t.Fatalf("process request: %v", err)
	}
	if req.Instructions != "Focus on storage." {
		t.Errorf("instructions = %q", req.Instructions)
	}
}

func TestInstructionsProcessor_SeesStagedState(t *testing.T) {
	agent := &stubAgent{name: "renderer", instructions: "Mode: {{.mode}}"}
	rc := newFlowRunContext(t, 10, nil)
	rc.SetState("mode", "draft")

	req := new(model.Request)
	if err := NewInstructionsProcessor().ProcessRequest(rc, req, agent); err != nil {
		t.Fatalf("process request: %v", err)
	}
	if req.Instructions != "Mode: draft" {
		t.Errorf("instructions = %q", req.Instructions)
	}
}

func TestContentsProcessor_SystemFirst(t *testing.T) {
	agent := &stubAgent{name: "history"}
	rc := newFlowRunContext(t, 10, nil)

	req := &model.Request{Instructions: "Be brief."}
	if err := NewContentsProcessor().ProcessRequest(rc, req, agent); err != nil {
		t.Fatalf("process request: %v", err)
	}
	if len(req.Contents) != 1 {
		t.Fatalf("expected only system content, got %d", len(req.Contents))
	}
	if req.Contents[0].Role != "system" || req.Contents[0].Text() != "Be brief." {
		t.Errorf("unexpected system content: %+v", req.Contents[0])
	}
}

func TestContentsProcessor_CapsHistory(t *testing.T) {
	agent := &stubAgent{name: "history", maxHistory: 2}
	rc := newFlowRunContext(t, 10, nil)
	for _, msg := range []string{"one", "two", "three", "four"} {
		rc.Session.AddEvent(core.NewUserMessageEvent("run", msg))
	}

	req := new(model.Request)
	if err := NewContentsProcessor().ProcessRequest(rc, req, agent); err != nil {
		t.Fatalf("process request: %v", err)
	}
	if len(req.Contents) != 3 { // system + last two messages
		t.Fatalf("expected 3 contents, got %d", len(req.Contents))
	}
	if req.Contents[1].Text() != "three" || req.Contents[2].Text() != "four" {
		t.Errorf("history not capped to most recent: %+v", req.Contents)
	}
}

func TestContentsProcessor_SkipsEmptyContent(t *testing.T) {
	agent := &stubAgent{name: "history"}
	rc := newFlowRunContext(t, 10, nil)
	rc.Session.AddEvent(core.NewUserMessageEvent("run", "hello"))
	empty := core.NewEvent("run", "user")
	empty.Content = &core.Content{Role: "user"}
	rc.Session.AddEvent(empty)

	req := new(model.Request)
	if err := NewContentsProcessor().ProcessRequest(rc, req, agent); err != nil {
		t.Fatalf("process request: %v", err)
	}
	if len(req.Contents) != 2 { // system + hello
		t.Fatalf("expected 2 contents, got %d", len(req.Contents))
	}
}
