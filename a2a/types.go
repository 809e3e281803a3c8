package a2a

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskState is the lifecycle state of a delegated task.
type TaskState string

const (
	TaskStateSubmitted     TaskState = "submitted"
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input_required"
	TaskStateCompleted     TaskState = "completed"
	TaskStateCanceled      TaskState = "canceled"
	TaskStateFailed        TaskState = "failed"
	TaskStateUnknown       TaskState = "unknown"
)

// Terminal reports whether the delegated session is over: the remote agent
// will not act on this task again. input_required is not terminal, the
// task is waiting for the user.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateCanceled, TaskStateFailed, TaskStateUnknown:
		return true
	default:
		return false
	}
}

// Role identifies the author side of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Kind discriminator values for the wire unions.
const (
	KindText           = "text"
	KindData           = "data"
	KindFile           = "file"
	KindMessage        = "message"
	KindTask           = "task"
	KindStatusUpdate   = "status-update"
	KindArtifactUpdate = "artifact-update"
)

// Part is one polymorphic segment of message or artifact content. The
// concrete types carry their kind discriminator so they marshal directly;
// use UnmarshalPart (or the Parts slice) to decode.
type Part interface{ partKind() string }

// TextPart is a plain text segment. Build with NewTextPart.
type TextPart struct {
	Kind     string         `json:"kind"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (p TextPart) partKind() string { return KindText }

// NewTextPart builds a text part.
func NewTextPart(text string) TextPart {
	return TextPart{Kind: KindText, Text: text}
}

// DataPart is a structured data segment. Build with NewDataPart.
type DataPart struct {
	Kind     string         `json:"kind"`
	Data     map[string]any `json:"data"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (p DataPart) partKind() string { return KindData }

// NewDataPart builds a data part.
func NewDataPart(data map[string]any) DataPart {
	return DataPart{Kind: KindData, Data: data}
}

// File carries an inline (base64) or referenced file payload.
type File struct {
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Bytes    string `json:"bytes,omitempty"`
	URI      string `json:"uri,omitempty"`
}

// FilePart is a file attachment segment. Build with NewFilePart.
type FilePart struct {
	Kind     string         `json:"kind"`
	File     File           `json:"file"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (p FilePart) partKind() string { return KindFile }

// NewFilePart builds a file part.
func NewFilePart(file File) FilePart {
	return FilePart{Kind: KindFile, File: file}
}

// UnmarshalPart decodes one part by its kind discriminator.
func UnmarshalPart(data []byte) (Part, error) {
	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode part: %w", err)
	}

	switch probe.Kind {
	case KindText:
		var p TextPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode text part: %w", err)
		}
		return p, nil
	case KindData:
		var p DataPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode data part: %w", err)
		}
		return p, nil
	case KindFile:
		var p FilePart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode file part: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown part kind %q", probe.Kind)
	}
}

// Parts is an ordered part sequence that knows how to decode its elements.
type Parts []Part

// UnmarshalJSON decodes each element via its kind discriminator.
func (ps *Parts) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}

	out := make(Parts, 0, len(raws))
	for i, raw := range raws {
		p, err := UnmarshalPart(raw)
		if err != nil {
			return fmt.Errorf("part %d: %w", i, err)
		}
		out = append(out, p)
	}
	*ps = out

	return nil
}

// Message is one protocol message: an ordered sequence of parts authored by
// the user or an agent, optionally bound to a task and context.
type Message struct {
	Kind      string         `json:"kind"`
	MessageID string         `json:"messageId"`
	Role      Role           `json:"role"`
	Parts     Parts          `json:"parts"`
	ContextID string         `json:"contextId,omitempty"`
	TaskID    string         `json:"taskId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Text concatenates the text parts of the message, newline separated.
func (m Message) Text() string {
	var out string
	for _, p := range m.Parts {
		tp, ok := p.(TextPart)
		if !ok {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += tp.Text
	}
	return out
}

// NewMessage builds a message with a fresh id.
func NewMessage(role Role, parts ...Part) Message {
	return Message{
		Kind:      KindMessage,
		MessageID: uuid.NewString(),
		Role:      role,
		Parts:     parts,
	}
}

// TaskStatus is the current state of a task plus an optional accompanying
// message and an ISO-8601 timestamp.
type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   *Message  `json:"message,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
}

// Artifact is one named output attached to a task.
type Artifact struct {
	ArtifactID  string         `json:"artifactId"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Parts       Parts          `json:"parts"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Task is the remote agent's view of one delegated unit of work. The local
// copy is read-only and possibly stale; the remote agent owns it.
type Task struct {
	Kind      string         `json:"kind"`
	ID        string         `json:"id"`
	ContextID string         `json:"contextId,omitempty"`
	Status    TaskStatus     `json:"status"`
	Artifacts []Artifact     `json:"artifacts,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewTask builds a submitted task for an incoming message, minting task and
// context ids when the message carries none.
func NewTask(msg Message) Task {
	taskID := msg.TaskID
	if taskID == "" {
		taskID = uuid.NewString()
	}
	contextID := msg.ContextID
	if contextID == "" {
		contextID = uuid.NewString()
	}

	return Task{
		Kind:      KindTask,
		ID:        taskID,
		ContextID: contextID,
		Status:    TaskStatus{State: TaskStateSubmitted, Timestamp: nowISO()},
	}
}

// MessageSendConfiguration carries per-send client preferences.
type MessageSendConfiguration struct {
	AcceptedOutputModes []string `json:"acceptedOutputModes,omitempty"`
	Blocking            *bool    `json:"blocking,omitempty"`
}

// MessageSendParams is the request payload for sending one message.
type MessageSendParams struct {
	Message       Message                   `json:"message"`
	Configuration *MessageSendConfiguration `json:"configuration,omitempty"`
	Metadata      map[string]any            `json:"metadata,omitempty"`
}

// SendMessageResult is the union returned by a send: a Task when the remote
// agent manages the work through task semantics, or a plain Message for a
// direct reply. Exactly one field is non-nil.
type SendMessageResult struct {
	Task    *Task
	Message *Message
}

// MarshalJSON emits whichever side of the union is set.
func (r SendMessageResult) MarshalJSON() ([]byte, error) {
	switch {
	case r.Task != nil:
		return json.Marshal(r.Task)
	case r.Message != nil:
		return json.Marshal(r.Message)
	default:
		return nil, fmt.Errorf("empty send message result")
	}
}

// UnmarshalJSON decodes the union by its kind discriminator.
func (r *SendMessageResult) UnmarshalJSON(data []byte) error {
	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("decode send message result: %w", err)
	}

	switch probe.Kind {
	case KindTask:
		var t Task
		if err := json.Unmarshal(data, &t); err != nil {
			return fmt.Errorf("decode task result: %w", err)
		}
		r.Task = &t
		r.Message = nil
	case KindMessage:
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("decode message result: %w", err)
		}
		r.Message = &m
		r.Task = nil
	default:
		return fmt.Errorf("unknown send message result kind %q", probe.Kind)
	}

	return nil
}

// Event is one outward protocol event produced while serving a task.
type Event interface{ eventKind() string }

func (t Task) eventKind() string    { return KindTask }
func (m Message) eventKind() string { return KindMessage }

// TaskStatusUpdateEvent reports a task state change. Final marks the last
// update the producer will send for this task in this turn.
type TaskStatusUpdateEvent struct {
	Kind      string         `json:"kind"`
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId"`
	Status    TaskStatus     `json:"status"`
	Final     bool           `json:"final"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func (e TaskStatusUpdateEvent) eventKind() string { return KindStatusUpdate }

// TaskArtifactUpdateEvent attaches an artifact to a task.
type TaskArtifactUpdateEvent struct {
	Kind      string         `json:"kind"`
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId"`
	Artifact  Artifact       `json:"artifact"`
	Append    *bool          `json:"append,omitempty"`
	LastChunk *bool          `json:"lastChunk,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func (e TaskArtifactUpdateEvent) eventKind() string { return KindArtifactUpdate }

// AgentCapabilities advertises optional protocol features of a remote agent.
type AgentCapabilities struct {
	Streaming              *bool `json:"streaming,omitempty"`
	PushNotifications      *bool `json:"pushNotifications,omitempty"`
	StateTransitionHistory *bool `json:"stateTransitionHistory,omitempty"`
}

// AgentSkill describes one advertised capability of a remote agent.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
}

// AgentCard is the remote agent descriptor served at the well-known path.
// Immutable once registered.
type AgentCard struct {
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	URL                string            `json:"url"`
	Version            string            `json:"version,omitempty"`
	Capabilities       AgentCapabilities `json:"capabilities,omitempty"`
	DefaultInputModes  []string          `json:"defaultInputModes,omitempty"`
	DefaultOutputModes []string          `json:"defaultOutputModes,omitempty"`
	Skills             []AgentSkill      `json:"skills,omitempty"`
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
