package dialogue

import "time"

// Tag labels the lifecycle point a record was captured at.
type Tag string

const (
	TagBeforeAgent Tag = "before_agent"
	TagAfterAgent  Tag = "after_agent"
	TagBeforeModel Tag = "before_model"
	TagAfterModel  Tag = "after_model"
	TagBeforeTool  Tag = "before_tool"
	TagAfterTool   Tag = "after_tool"
	TagEvent       Tag = "event"
)

// Tags lists every known tag value.
func Tags() []Tag {
	return []Tag{
		TagBeforeAgent, TagAfterAgent,
		TagBeforeModel, TagAfterModel,
		TagBeforeTool, TagAfterTool,
		TagEvent,
	}
}

// Record is one durable audit-trail row. ID is assigned by the store at
// append time; all other fields are set by the producer and never change.
type Record struct {
	ID           int64          `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	UserID       string         `json:"user_id"`
	SessionID    string         `json:"session_id"`
	AppName      string         `json:"app_name"`
	InvocationID string         `json:"invocation_id"`
	AgentName    string         `json:"agent_name"`
	Tag          Tag            `json:"tag"`
	Name         string         `json:"name"`
	Data         map[string]any `json:"data,omitempty"`
}
