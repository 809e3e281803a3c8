package core

import "testing"

func TestSession_StateOperations(t *testing.T) {
	s := NewSession("sess-1")

	if _, ok := s.GetState("missing"); ok {
		t.Fatal("Expected missing key to report not found")
	}

	s.SetState("agent", "currency_exchange")
	v, ok := s.GetState("agent")
	if !ok || v != "currency_exchange" {
		t.Fatalf("SetState/GetState mismatch: %v %v", v, ok)
	}

	s.ApplyStateDelta(map[string]any{"task_id": "t-1", "session_active": true})
	if v, _ := s.GetState("task_id"); v != "t-1" {
		t.Fatalf("ApplyStateDelta did not merge: %v", v)
	}

	snap := s.StateSnapshot()
	snap["agent"] = "mutated"
	if v, _ := s.GetState("agent"); v != "currency_exchange" {
		t.Fatal("StateSnapshot must return an isolated copy")
	}
}

func TestSession_EventHistoryFiltering(t *testing.T) {
	s := NewSession("sess-2")

	s.AddEvent(NewUserMessageEvent("run-1", "hello"))
	s.AddEvent(NewMessageEvent("assistant", "hi there"))

	partial := true
	frag := NewMessageEvent("assistant", "stream fragment")
	frag.Partial = &partial
	s.AddEvent(frag)

	noContent := NewEvent("run-1", "system")
	s.AddEvent(noContent)

	if got := len(s.GetEvents()); got != 4 {
		t.Fatalf("Expected 4 raw events, got %d", got)
	}

	hist := s.GetConversationHistory()
	if len(hist) != 2 {
		t.Fatalf("Expected 2 conversational events, got %d", len(hist))
	}
	if hist[0].Content.Role != "user" || hist[1].Content.Role != "assistant" {
		t.Fatalf("History order/filter wrong: %+v", hist)
	}

	events := s.GetEvents()
	events[0].Author = "tampered"
	if s.GetEvents()[0].Author == "tampered" {
		t.Fatal("GetEvents must return a copy")
	}
}

func TestSession_CloneIsolation(t *testing.T) {
	s := NewSession("sess-3")
	s.UserID = "user-a"
	s.AppName = "relay"
	s.SetState("k", "v")
	s.Metadata["tag"] = "dev"
	s.AddEvent(NewUserMessageEvent("run-1", "msg"))

	c := s.Clone()
	if c.ID != s.ID || c.UserID != "user-a" || c.AppName != "relay" {
		t.Fatalf("Clone lost identity fields: %+v", c)
	}

	c.SetState("k", "changed")
	c.Metadata["tag"] = "prod"
	c.AddEvent(NewMessageEvent("assistant", "extra"))

	if v, _ := s.GetState("k"); v != "v" {
		t.Fatal("Clone state mutation leaked into original")
	}
	if s.Metadata["tag"] != "dev" {
		t.Fatal("Clone metadata mutation leaked into original")
	}
	if len(s.GetEvents()) != 1 {
		t.Fatal("Clone event append leaked into original")
	}
}
