package a2a

// Session-state keys carrying delegation continuity across turns.
const (
	StateKeyAgent         = "agent"
	StateKeyTaskID        = "task_id"
	StateKeyContextID     = "context_id"
	StateKeyMessageID     = "message_id"
	StateKeySessionActive = "session_active"
)

// StateGetter reads one session-state key. Both *core.RunContext and
// *core.ToolContext satisfy it.
type StateGetter interface {
	GetState(key string) (any, bool)
}

// StateMap adapts a plain snapshot map to StateGetter.
type StateMap map[string]any

// GetState implements StateGetter.
func (m StateMap) GetState(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// DelegationState is the typed view over the session-state keys used for
// delegation. The task, context and message ids travel together: once a
// remote task pauses on input_required, the same triple must be sent on
// the next turn so the remote agent resumes that task.
type DelegationState struct {
	Agent         string
	TaskID        string
	ContextID     string
	MessageID     string
	SessionActive bool
}

// LoadDelegationState reads the delegation keys from session state.
// Absent or mistyped keys load as zero values.
func LoadDelegationState(state StateGetter) DelegationState {
	var s DelegationState
	if v, ok := state.GetState(StateKeyAgent); ok {
		s.Agent, _ = v.(string)
	}
	if v, ok := state.GetState(StateKeyTaskID); ok {
		s.TaskID, _ = v.(string)
	}
	if v, ok := state.GetState(StateKeyContextID); ok {
		s.ContextID, _ = v.(string)
	}
	if v, ok := state.GetState(StateKeyMessageID); ok {
		s.MessageID, _ = v.(string)
	}
	if v, ok := state.GetState(StateKeySessionActive); ok {
		s.SessionActive, _ = v.(bool)
	}
	return s
}

// Delta returns the state mutations to persist after a dispatch. The
// context id is only written when known so an earlier value is never
// clobbered with an empty one.
func (s DelegationState) Delta() map[string]any {
	delta := map[string]any{
		StateKeyAgent:         s.Agent,
		StateKeyTaskID:        s.TaskID,
		StateKeyMessageID:     s.MessageID,
		StateKeySessionActive: s.SessionActive,
	}
	if s.ContextID != "" {
		delta[StateKeyContextID] = s.ContextID
	}
	return delta
}

// Active reports whether a delegated session is live: a context id is
// held, the session flag is set and a target agent is named.
func (s DelegationState) Active() bool {
	return s.ContextID != "" && s.SessionActive && s.Agent != ""
}
