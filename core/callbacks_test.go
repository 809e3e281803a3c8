package core

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCallbackManager_ExecutionOrder(t *testing.T) {
	m := NewCallbackManager()

	var order []string
	m.RegisterFunc(CallbackBeforeTool, func(ctx context.Context, cc *CallbackContext) error {
		order = append(order, "first")
		return nil
	})
	m.RegisterFunc(CallbackBeforeTool, func(ctx context.Context, cc *CallbackContext) error {
		order = append(order, "second")
		return nil
	})
	m.RegisterFunc(CallbackAfterTool, func(ctx context.Context, cc *CallbackContext) error {
		order = append(order, "other-type")
		return nil
	})

	if err := m.Execute(context.Background(), CallbackBeforeTool, &CallbackContext{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("Wrong execution order: %v", order)
	}
	if m.Count(CallbackBeforeTool) != 2 || m.Count(CallbackAfterTool) != 1 {
		t.Fatal("Count mismatch")
	}
}

func TestCallbackManager_ErrorAbortsChain(t *testing.T) {
	m := NewCallbackManager()
	boom := errors.New("boom")
	ran := false

	m.RegisterFunc(CallbackBeforeModel, func(ctx context.Context, cc *CallbackContext) error {
		return boom
	})
	m.RegisterFunc(CallbackBeforeModel, func(ctx context.Context, cc *CallbackContext) error {
		ran = true
		return nil
	})

	err := m.Execute(context.Background(), CallbackBeforeModel, &CallbackContext{})
	if err == nil || !errors.Is(err, boom) {
		t.Fatalf("Expected wrapped boom, got %v", err)
	}
	if !strings.Contains(err.Error(), string(CallbackBeforeModel)) {
		t.Fatalf("Error should name the lifecycle point: %v", err)
	}
	if ran {
		t.Fatal("Second callback must not run after an error")
	}
}

func TestCallbackManager_UnregisteredTypeIsNoOp(t *testing.T) {
	m := NewCallbackManager()
	if err := m.Execute(context.Background(), CallbackOnEvent, &CallbackContext{}); err != nil {
		t.Fatalf("Empty type should be a no-op: %v", err)
	}
}

func TestFunctionCallback_TypeAndExecute(t *testing.T) {
	called := false
	cb := NewFunctionCallback(CallbackAfterAgent, func(ctx context.Context, cc *CallbackContext) error {
		called = true
		return nil
	})
	if cb.Type() != CallbackAfterAgent {
		t.Fatalf("Type mismatch: %v", cb.Type())
	}
	if err := cb.Execute(context.Background(), &CallbackContext{}); err != nil || !called {
		t.Fatalf("Execute failed: %v called=%v", err, called)
	}
}
