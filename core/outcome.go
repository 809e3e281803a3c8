package core

// OutcomeKind discriminates the terminal classification of one agent turn.
type OutcomeKind string

const (
	// OutcomeCompleted marks a turn that produced a final text answer.
	OutcomeCompleted OutcomeKind = "completed"
	// OutcomeNeedsInput marks a turn that paused for more user input,
	// carrying the structured payload the user must answer.
	OutcomeNeedsInput OutcomeKind = "needs_input"
	// OutcomeFailed marks a turn that ended in an unrecoverable state.
	OutcomeFailed OutcomeKind = "failed"
)

// Outcome is the discriminated result of a finished turn, decided exactly
// once at the execution-loop boundary instead of being re-derived by shape
// checks downstream. Exactly one of Text/Data/Reason is meaningful, selected
// by Kind.
type Outcome struct {
	Kind   OutcomeKind
	Text   string         // OutcomeCompleted: the final answer
	Data   map[string]any // OutcomeNeedsInput: the structured prompt payload
	Reason string         // OutcomeFailed: human-readable failure reason
}

// Completed builds a completed outcome carrying the final answer text.
func Completed(text string) Outcome {
	return Outcome{Kind: OutcomeCompleted, Text: text}
}

// NeedsInput builds a needs-input outcome carrying the structured payload the
// user has to answer before the task can continue.
func NeedsInput(data map[string]any) Outcome {
	return Outcome{Kind: OutcomeNeedsInput, Data: data}
}

// Failed builds a failed outcome with a reason string.
func Failed(reason string) Outcome {
	return Outcome{Kind: OutcomeFailed, Reason: reason}
}

// Terminal reports whether the outcome kind is one of the three terminal
// states. The zero Outcome is not terminal, which lets callers distinguish
// "not yet classified" from a decided turn.
func (o Outcome) Terminal() bool {
	switch o.Kind {
	case OutcomeCompleted, OutcomeNeedsInput, OutcomeFailed:
		return true
	default:
		return false
	}
}
