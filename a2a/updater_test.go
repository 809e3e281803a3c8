package a2a

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureQueue collects written events for inspection.
type captureQueue struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (q *captureQueue) Write(_ context.Context, ev Event) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.err != nil {
		return q.err
	}
	q.events = append(q.events, ev)
	return nil
}

func (q *captureQueue) all() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	return append([]Event(nil), q.events...)
}

func statusUpdates(events []Event) []TaskStatusUpdateEvent {
	var out []TaskStatusUpdateEvent
	for _, ev := range events {
		if s, ok := ev.(TaskStatusUpdateEvent); ok {
			out = append(out, s)
		}
	}
	return out
}

func artifactUpdates(events []Event) []TaskArtifactUpdateEvent {
	var out []TaskArtifactUpdateEvent
	for _, ev := range events {
		if a, ok := ev.(TaskArtifactUpdateEvent); ok {
			out = append(out, a)
		}
	}
	return out
}

func TestTaskUpdaterUpdateStatus(t *testing.T) {
	q := &captureQueue{}
	u := NewTaskUpdater(q, "task-1", "ctx-1")

	msg := u.NewAgentTextMessage("working on it")
	require.NoError(t, u.UpdateStatus(context.Background(), TaskStateWorking, &msg, false))

	updates := statusUpdates(q.all())
	require.Len(t, updates, 1)

	got := updates[0]
	assert.Equal(t, KindStatusUpdate, got.Kind)
	assert.Equal(t, "task-1", got.TaskID)
	assert.Equal(t, "ctx-1", got.ContextID)
	assert.Equal(t, TaskStateWorking, got.Status.State)
	assert.False(t, got.Final)
	assert.NotEmpty(t, got.Status.Timestamp)

	require.NotNil(t, got.Status.Message)
	assert.Equal(t, "working on it", got.Status.Message.Text())
	assert.Equal(t, RoleAgent, got.Status.Message.Role)
	assert.Equal(t, "task-1", got.Status.Message.TaskID)
	assert.Equal(t, "ctx-1", got.Status.Message.ContextID)
}

func TestTaskUpdaterAddArtifact(t *testing.T) {
	q := &captureQueue{}
	u := NewTaskUpdater(q, "task-1", "ctx-1")

	require.NoError(t, u.AddArtifact(context.Background(), "form", NewTextPart("fill me in")))

	artifacts := artifactUpdates(q.all())
	require.Len(t, artifacts, 1)

	got := artifacts[0]
	assert.Equal(t, KindArtifactUpdate, got.Kind)
	assert.Equal(t, "task-1", got.TaskID)
	assert.Equal(t, "form", got.Artifact.Name)
	assert.NotEmpty(t, got.Artifact.ArtifactID)
	require.Len(t, got.Artifact.Parts, 1)
	assert.Equal(t, "fill me in", got.Artifact.Parts[0].(TextPart).Text)
}

func TestTaskUpdaterComplete(t *testing.T) {
	q := &captureQueue{}
	u := NewTaskUpdater(q, "task-1", "ctx-1")

	require.NoError(t, u.Complete(context.Background()))

	updates := statusUpdates(q.all())
	require.Len(t, updates, 1)
	assert.Equal(t, TaskStateCompleted, updates[0].Status.State)
	assert.True(t, updates[0].Final)
	assert.Nil(t, updates[0].Status.Message)
}

func TestTaskUpdaterPropagatesWriteError(t *testing.T) {
	q := &captureQueue{err: errors.New("queue closed")}
	u := NewTaskUpdater(q, "task-1", "ctx-1")

	assert.Error(t, u.Complete(context.Background()))
	assert.Error(t, u.AddArtifact(context.Background(), "form", NewTextPart("x")))
}

func TestTaskUpdaterNewAgentMessage(t *testing.T) {
	u := NewTaskUpdater(&captureQueue{}, "task-1", "ctx-1")

	msg := u.NewAgentMessage(NewDataPart(map[string]any{"date": "?"}))
	assert.Equal(t, RoleAgent, msg.Role)
	assert.Equal(t, "task-1", msg.TaskID)
	assert.Equal(t, "ctx-1", msg.ContextID)
	assert.NotEmpty(t, msg.MessageID)
}
