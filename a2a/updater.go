package a2a

import (
	"context"

	"github.com/google/uuid"
)

// EventWriter receives the protocol events produced while serving a task.
// Implementations typically bridge to the serving transport's event queue.
type EventWriter interface {
	Write(ctx context.Context, ev Event) error
}

// TaskUpdater emits status and artifact events for one task.
type TaskUpdater struct {
	writer    EventWriter
	taskID    string
	contextID string
}

// NewTaskUpdater creates an updater bound to one task.
func NewTaskUpdater(w EventWriter, taskID, contextID string) *TaskUpdater {
	return &TaskUpdater{writer: w, taskID: taskID, contextID: contextID}
}

// NewAgentMessage builds an agent-authored message bound to the task.
func (u *TaskUpdater) NewAgentMessage(parts ...Part) Message {
	return Message{
		Kind:      KindMessage,
		MessageID: uuid.NewString(),
		Role:      RoleAgent,
		Parts:     parts,
		TaskID:    u.taskID,
		ContextID: u.contextID,
	}
}

// NewAgentTextMessage builds an agent-authored text message bound to the
// task.
func (u *TaskUpdater) NewAgentTextMessage(text string) Message {
	return u.NewAgentMessage(NewTextPart(text))
}

// UpdateStatus emits a status update, stamped now.
func (u *TaskUpdater) UpdateStatus(ctx context.Context, state TaskState, msg *Message, final bool) error {
	return u.writer.Write(ctx, TaskStatusUpdateEvent{
		Kind:      KindStatusUpdate,
		TaskID:    u.taskID,
		ContextID: u.contextID,
		Final:     final,
		Status: TaskStatus{
			State:     state,
			Message:   msg,
			Timestamp: nowISO(),
		},
	})
}

// AddArtifact emits a named artifact with a fresh artifact id.
func (u *TaskUpdater) AddArtifact(ctx context.Context, name string, parts ...Part) error {
	return u.writer.Write(ctx, TaskArtifactUpdateEvent{
		Kind:      KindArtifactUpdate,
		TaskID:    u.taskID,
		ContextID: u.contextID,
		Artifact: Artifact{
			ArtifactID: uuid.NewString(),
			Name:       name,
			Parts:      parts,
		},
	})
}

// Complete emits the final completed status.
func (u *TaskUpdater) Complete(ctx context.Context) error {
	return u.UpdateStatus(ctx, TaskStateCompleted, nil, true)
}
