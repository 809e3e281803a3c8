package a2a

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient replays canned results and records every request it saw.
type scriptedClient struct {
	mu      sync.Mutex
	params  []MessageSendParams
	results []*SendMessageResult
	errs    []error
}

func (c *scriptedClient) SendMessage(_ context.Context, params MessageSendParams) (*SendMessageResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := len(c.params)
	c.params = append(c.params, params)

	if i < len(c.errs) && c.errs[i] != nil {
		return nil, c.errs[i]
	}
	if i < len(c.results) {
		return c.results[i], nil
	}
	return nil, fmt.Errorf("unscripted call %d", i)
}

func newDispatcher(client Client) *Dispatcher {
	r := NewRegistry()
	r.Register(AgentCard{Name: "VideoAgent", Description: "Renders video"}, client)
	return NewDispatcher(r)
}

func taskResult(state TaskState, msg *Message, artifacts ...Artifact) *SendMessageResult {
	return &SendMessageResult{Task: &Task{
		Kind:      KindTask,
		ID:        "task-9",
		ContextID: "ctx-4",
		Status:    TaskStatus{State: state, Message: msg, Timestamp: nowISO()},
		Artifacts: artifacts,
	}}
}

func TestDispatchUnknownAgent(t *testing.T) {
	d := NewDispatcher(NewRegistry())

	_, err := d.Dispatch(newToolContext(t), "NoSuchAgent", "hello")
	assert.ErrorIs(t, err, ErrUnknownAgent)
}

func TestDispatchSendFailure(t *testing.T) {
	client := &scriptedClient{errs: []error{errors.New("connection refused")}}
	d := newDispatcher(client)

	_, err := d.Dispatch(newToolContext(t), "VideoAgent", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send message to VideoAgent")
}

func TestDispatchEmptyResult(t *testing.T) {
	client := &scriptedClient{results: []*SendMessageResult{{}}}
	d := newDispatcher(client)

	_, err := d.Dispatch(newToolContext(t), "VideoAgent", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty result")
}

func TestDispatchPlainMessageBypassesState(t *testing.T) {
	reply := NewMessage(RoleAgent, NewTextPart("hi back"))
	client := &scriptedClient{results: []*SendMessageResult{{Message: &reply}}}
	d := newDispatcher(client)
	tc := newToolContext(t)

	got, err := d.Dispatch(tc, "VideoAgent", "hello")
	require.NoError(t, err)
	assert.Equal(t, []any{"hi back"}, got)

	_, ok := tc.GetState(StateKeyTaskID)
	assert.False(t, ok, "a direct reply must not touch delegation state")
}

func TestDispatchCompletedTask(t *testing.T) {
	msg := NewMessage(RoleAgent, NewTextPart("status text"))
	client := &scriptedClient{results: []*SendMessageResult{
		taskResult(TaskStateCompleted, &msg, Artifact{
			ArtifactID: "a-1",
			Name:       "form",
			Parts:      Parts{NewTextPart("artifact text")},
		}),
	}}
	d := newDispatcher(client)
	tc := newToolContext(t)

	got, err := d.Dispatch(tc, "VideoAgent", "render the clip")
	require.NoError(t, err)
	// Status message parts come before artifact parts.
	assert.Equal(t, []any{"status text", "artifact text"}, got)

	st := LoadDelegationState(tc)
	assert.Equal(t, "VideoAgent", st.Agent)
	assert.Equal(t, "task-9", st.TaskID)
	assert.Equal(t, "ctx-4", st.ContextID)
	assert.False(t, st.SessionActive)
	assert.Empty(t, st.MessageID, "terminal tasks release the message id")

	require.Len(t, client.params, 1)
	sent := client.params[0]
	assert.Equal(t, "render the clip", sent.Message.Text())
	assert.Equal(t, RoleUser, sent.Message.Role)
	assert.NotEmpty(t, sent.Message.MessageID)
	require.NotNil(t, sent.Configuration)
	assert.Equal(t, []string{"text", "text/plain", "image/png"}, sent.Configuration.AcceptedOutputModes)
}

func TestDispatchInputRequiredKeepsContinuationIDs(t *testing.T) {
	form := NewMessage(RoleAgent, NewDataPart(map[string]any{"date": "?"}))
	done := NewMessage(RoleAgent, NewTextPart("scheduled"))
	client := &scriptedClient{results: []*SendMessageResult{
		taskResult(TaskStateInputRequired, &form),
		taskResult(TaskStateCompleted, &done),
	}}
	d := newDispatcher(client)
	tc := newToolContext(t)

	got, err := d.Dispatch(tc, "VideoAgent", "book it")
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"date": "?"}}, got)

	// The pause raises the hand-back signals.
	actions := tc.Actions()
	require.NotNil(t, actions.SkipSummarization)
	assert.True(t, *actions.SkipSummarization)
	require.NotNil(t, actions.Escalate)
	assert.True(t, *actions.Escalate)

	st := LoadDelegationState(tc)
	assert.True(t, st.SessionActive)
	firstMessageID := st.MessageID
	require.NotEmpty(t, firstMessageID)

	_, err = d.Dispatch(tc, "VideoAgent", "tomorrow at noon")
	require.NoError(t, err)

	require.Len(t, client.params, 2)
	followUp := client.params[1].Message
	assert.Equal(t, "task-9", followUp.TaskID)
	assert.Equal(t, "ctx-4", followUp.ContextID)
	assert.Equal(t, firstMessageID, followUp.MessageID,
		"resuming a paused task must reuse the held message id")

	st = LoadDelegationState(tc)
	assert.False(t, st.SessionActive)
	assert.Empty(t, st.MessageID)
}

func TestDispatchFreshMessageIDAfterTerminalTask(t *testing.T) {
	done := NewMessage(RoleAgent, NewTextPart("done"))
	client := &scriptedClient{results: []*SendMessageResult{
		taskResult(TaskStateCompleted, &done),
		taskResult(TaskStateCompleted, &done),
	}}
	d := newDispatcher(client)
	tc := newToolContext(t)

	_, err := d.Dispatch(tc, "VideoAgent", "first job")
	require.NoError(t, err)
	_, err = d.Dispatch(tc, "VideoAgent", "second job")
	require.NoError(t, err)

	require.Len(t, client.params, 2)
	first := client.params[0].Message.MessageID
	second := client.params[1].Message.MessageID
	assert.NotEmpty(t, second)
	assert.NotEqual(t, first, second, "a finished task must not leak its message id into the next one")

	// The second send still continues the same task and context.
	assert.Equal(t, "task-9", client.params[1].Message.TaskID)
	assert.Equal(t, "ctx-4", client.params[1].Message.ContextID)
}

func TestDispatchCanceledTask(t *testing.T) {
	client := &scriptedClient{results: []*SendMessageResult{
		taskResult(TaskStateCanceled, nil),
	}}
	d := newDispatcher(client)
	tc := newToolContext(t)

	_, err := d.Dispatch(tc, "VideoAgent", "never mind")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTaskCanceled)
	assert.Contains(t, err.Error(), "task task-9 is canceled")

	// State still reflects the terminal exchange.
	st := LoadDelegationState(tc)
	assert.False(t, st.SessionActive)
	assert.Equal(t, "task-9", st.TaskID)
}

func TestDispatchFailedTask(t *testing.T) {
	client := &scriptedClient{results: []*SendMessageResult{
		taskResult(TaskStateFailed, nil),
	}}
	d := newDispatcher(client)

	_, err := d.Dispatch(newToolContext(t), "VideoAgent", "do it")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTaskFailed)
}
