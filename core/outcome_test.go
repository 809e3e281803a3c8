package core

import "testing"

func TestOutcome_Constructors(t *testing.T) {
	done := Completed("final answer")
	if done.Kind != OutcomeCompleted || done.Text != "final answer" {
		t.Fatalf("Completed malformed: %+v", done)
	}

	form := map[string]any{"field": "date"}
	pause := NeedsInput(form)
	if pause.Kind != OutcomeNeedsInput || pause.Data["field"] != "date" {
		t.Fatalf("NeedsInput malformed: %+v", pause)
	}

	failed := Failed("remote unreachable")
	if failed.Kind != OutcomeFailed || failed.Reason != "remote unreachable" {
		t.Fatalf("Failed malformed: %+v", failed)
	}
}

func TestOutcome_Terminal(t *testing.T) {
	var zero Outcome
	if zero.Terminal() {
		t.Error("Zero outcome must not be terminal")
	}

	for _, o := range []Outcome{Completed("x"), NeedsInput(nil), Failed("y")} {
		if !o.Terminal() {
			t.Errorf("Expected terminal outcome for kind %q", o.Kind)
		}
	}

	if (Outcome{Kind: OutcomeKind("bogus")}).Terminal() {
		t.Error("Unknown kind must not be terminal")
	}
}
