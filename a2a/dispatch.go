package a2a

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/agentgrid/relay/core"
	"github.com/agentgrid/relay/logging"
)

// acceptedOutputModes advertises what the host can render from a remote
// agent's reply.
var acceptedOutputModes = []string{"text", "text/plain", "image/png"}

// DispatcherOptions configure a Dispatcher.
type DispatcherOptions struct {
	// Logger receives dispatch diagnostics.
	Logger logging.Logger
}

// Dispatcher sends one message to a named remote agent and interprets the
// returned task against the delegation state machine. It is the engine
// behind the send_message tool.
type Dispatcher struct {
	registry *Registry
	logger   logging.Logger
}

// NewDispatcher creates a dispatcher resolving agents through registry.
func NewDispatcher(registry *Registry, optFns ...func(o *DispatcherOptions)) *Dispatcher {
	opts := DispatcherOptions{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Dispatcher{registry: registry, logger: opts.Logger}
}

// Dispatch sends message to the named remote agent and returns the
// converted reply values.
//
// Continuation ids (task, context, message) are read from session state
// and carried on the outgoing message; a fresh message id is minted only
// when none is held, so a task paused on input_required resumes under the
// same triple. After a task reply the delegation state is rewritten:
// agent, task id, context id (when reported), the session-active flag and
// the message id, the latter cleared once the task reached a terminal
// state so the next delegation starts a fresh exchange.
//
// A canceled or failed remote task aborts the call with ErrTaskCanceled /
// ErrTaskFailed. An input_required task raises the escalate and
// skip-summarization signals and still returns the converted status
// message and artifact parts, in that order.
func (d *Dispatcher) Dispatch(tc *core.ToolContext, agentName, message string) (any, error) {
	client, err := d.registry.Resolve(agentName)
	if err != nil {
		return nil, err
	}

	st := LoadDelegationState(tc)
	if st.MessageID == "" {
		st.MessageID = uuid.NewString()
	}

	params := MessageSendParams{
		Message: Message{
			Kind:      KindMessage,
			MessageID: st.MessageID,
			Role:      RoleUser,
			Parts:     Parts{NewTextPart(message)},
			ContextID: st.ContextID,
			TaskID:    st.TaskID,
		},
		Configuration: &MessageSendConfiguration{
			AcceptedOutputModes: acceptedOutputModes,
		},
	}

	d.logger.Debug("a2a.dispatch.send",
		"agent", agentName,
		"task_id", st.TaskID,
		"context_id", st.ContextID,
		"message_id", st.MessageID,
	)

	result, err := client.SendMessage(tc.Context(), params)
	if err != nil {
		return nil, fmt.Errorf("send message to %s: %w", agentName, err)
	}

	// A direct reply carries no task semantics: convert and return it
	// without touching the delegation state.
	if result.Message != nil {
		return ConvertParts(result.Message.Parts, tc), nil
	}
	task := result.Task
	if task == nil {
		return nil, fmt.Errorf("agent %s returned an empty result", agentName)
	}

	st.Agent = agentName
	st.TaskID = task.ID
	if task.ContextID != "" {
		st.ContextID = task.ContextID
	}
	st.SessionActive = !task.Status.State.Terminal()
	if task.Status.State.Terminal() {
		st.MessageID = ""
	}
	for k, v := range st.Delta() {
		tc.SetState(k, v)
	}

	d.logger.Debug("a2a.dispatch.task",
		"agent", agentName,
		"task_id", task.ID,
		"state", string(task.Status.State),
	)

	switch task.Status.State {
	case TaskStateInputRequired:
		// Hand control back to the user with the raw reply attached.
		tc.SkipSummarization()
		tc.Escalate()
	case TaskStateCanceled:
		return nil, fmt.Errorf("agent %s task %s is canceled: %w", agentName, task.ID, ErrTaskCanceled)
	case TaskStateFailed:
		return nil, fmt.Errorf("agent %s task %s failed: %w", agentName, task.ID, ErrTaskFailed)
	}

	response := []any{}
	if task.Status.Message != nil {
		response = append(response, ConvertParts(task.Status.Message.Parts, tc)...)
	}
	for _, artifact := range task.Artifacts {
		response = append(response, ConvertParts(artifact.Parts, tc)...)
	}

	return response, nil
}
