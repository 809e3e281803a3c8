package core

import (
	"context"
	"testing"
	"time"
)

func newTestRunContext(t *testing.T, emit chan Event, resume chan struct{}) (*RunContext, *stubSessionStore, *stubArtifactStore) {
	t.Helper()

	store := newStubSessionStore()
	sess, err := store.Create("sess-1")
	if err != nil {
		t.Fatalf("Create session: %v", err)
	}

	arts := newStubArtifactStore()
	rc := NewRunContext(
		context.Background(),
		"sess-1", "run-1",
		AgentInfo{Name: "host", Type: "model"},
		Content{Role: "user", Parts: []Part{TextPart{Text: "hi"}}},
		10,
		emit,
		resume,
		sess,
		store,
		arts,
		NewCallbackManager(),
		nil,
	)
	return rc, store, arts
}

func TestRunContext_StatePrecedenceAndMerge(t *testing.T) {
	rc, store, _ := newTestRunContext(t, nil, nil)

	rc.Session.SetState("persisted", "old")
	rc.SetState("staged", 1)
	rc.SetState("persisted", "new")

	if v, _ := rc.GetState("staged"); v != 1 {
		t.Fatalf("Staged value not visible: %v", v)
	}
	if v, _ := rc.GetState("persisted"); v != "new" {
		t.Fatalf("Delta must shadow session state: %v", v)
	}

	merged := rc.MergedState()
	if merged["persisted"] != "new" || merged["staged"] != 1 {
		t.Fatalf("MergedState wrong: %+v", merged)
	}

	if err := rc.CommitStateDelta(); err != nil {
		t.Fatalf("CommitStateDelta: %v", err)
	}
	if len(rc.StateDelta) != 0 {
		t.Fatal("CommitStateDelta must clear the buffer")
	}
	if store.deltas != 1 {
		t.Fatalf("Expected exactly one delta application, got %d", store.deltas)
	}

	// Empty delta commit is a no-op.
	if err := rc.CommitStateDelta(); err != nil {
		t.Fatalf("Empty commit errored: %v", err)
	}
	if store.deltas != 1 {
		t.Fatal("Empty commit must not hit the store")
	}
}

func TestRunContext_EmitEventMergesPendingActions(t *testing.T) {
	emit := make(chan Event, 1)
	rc, _, _ := newTestRunContext(t, emit, nil)

	rc.SetState("k", "v")
	if err := rc.SaveArtifact("report.txt", []byte("body")); err != nil {
		t.Fatalf("SaveArtifact: %v", err)
	}

	if err := rc.EmitEvent(NewMessageEvent("host", "done")); err != nil {
		t.Fatalf("EmitEvent: %v", err)
	}

	ev := <-emit
	if ev.Actions.StateDelta["k"] != "v" {
		t.Fatalf("StateDelta not merged into event: %+v", ev.Actions)
	}
	if ev.Actions.ArtifactDelta["report.txt"] != 1 {
		t.Fatalf("ArtifactDelta not merged into event: %+v", ev.Actions)
	}
	if len(rc.StateDelta) != 0 || len(rc.Artifacts) != 0 {
		t.Fatal("EmitEvent must clear pending buffers")
	}

	got, err := rc.GetArtifact("report.txt")
	if err != nil || string(got) != "body" {
		t.Fatalf("Artifact roundtrip failed: %v %q", err, got)
	}
}

func TestRunContext_EmitEventHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rc, _, _ := newTestRunContext(t, make(chan Event), nil)
	rc.Context = ctx
	cancel()

	if err := rc.EmitEvent(NewMessageEvent("host", "late")); err == nil {
		t.Fatal("Expected cancellation error from EmitEvent")
	}
}

func TestRunContext_WaitForResume(t *testing.T) {
	resume := make(chan struct{}, 1)
	rc, _, _ := newTestRunContext(t, nil, resume)

	resume <- struct{}{}
	if err := rc.WaitForResume(); err != nil {
		t.Fatalf("WaitForResume with pending signal: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	rc.Context = ctx
	if err := rc.WaitForResume(); err == nil {
		t.Fatal("Expected context deadline error when no resume arrives")
	}
}

func TestRunContext_FireCallbacksPopulatesContext(t *testing.T) {
	rc, _, _ := newTestRunContext(t, nil, nil)

	var seen *CallbackContext
	rc.Callbacks.RegisterFunc(CallbackBeforeModel, func(ctx context.Context, cc *CallbackContext) error {
		seen = cc
		return nil
	})

	cc := &CallbackContext{AgentName: "host"}
	if err := rc.FireCallbacks(CallbackBeforeModel, cc); err != nil {
		t.Fatalf("FireCallbacks: %v", err)
	}
	if seen == nil || seen.RunContext != rc || seen.Type != CallbackBeforeModel {
		t.Fatalf("Callback context not populated: %+v", seen)
	}

	// Nil manager is a no-op.
	rc.Callbacks = nil
	if err := rc.FireCallbacks(CallbackAfterModel, &CallbackContext{}); err != nil {
		t.Fatalf("Nil manager should be silent: %v", err)
	}
}

func TestRunContext_CloneIsolatesDeltas(t *testing.T) {
	rc, _, _ := newTestRunContext(t, nil, nil)
	rc.SetState("shared", true)
	rc.AddArtifact("a1")

	c := rc.Clone()
	c.SetState("clone_only", 1)
	c.AddArtifact("a2")

	if _, ok := rc.GetState("clone_only"); ok {
		t.Fatal("Clone state leaked into original")
	}
	if len(rc.Artifacts) != 1 {
		t.Fatalf("Clone artifact leaked into original: %v", rc.Artifacts)
	}
	if _, ok := c.GetState("shared"); !ok {
		t.Fatal("Clone must carry existing staged state")
	}
}
