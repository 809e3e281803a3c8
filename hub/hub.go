package hub

import (
	"context"
	"fmt"
	"time"

	"github.com/agentgrid/relay/core"
	"github.com/agentgrid/relay/dialogue"
	"github.com/agentgrid/relay/internal/jsontree"
	"github.com/agentgrid/relay/logging"
	"github.com/agentgrid/relay/recorder"
)

// ProgressSink receives one narration line per lifecycle hook.
// Implementations stamp their own timestamps and must be safe for
// concurrent use.
type ProgressSink interface {
	Push(message string)
}

// Options holds optional Hub collaborators and attribution identity.
type Options struct {
	// Progress receives narration lines. Nil disables narration.
	Progress ProgressSink

	// AppName attributes dialogue records when the session carries none.
	AppName string

	// UserID attributes dialogue records when the session carries none.
	UserID string

	// DelegationTool names the tool whose invocations are narrated as a
	// hand-off to another agent instead of a plain tool call.
	DelegationTool string

	// Logger receives hook failures. Hooks never fail the run.
	Logger logging.Logger
}

// WithProgress routes narration lines to sink.
func WithProgress(sink ProgressSink) func(o *Options) {
	return func(o *Options) { o.Progress = sink }
}

// WithIdentity sets the fallback attribution identity for dialogue records.
func WithIdentity(appName, userID string) func(o *Options) {
	return func(o *Options) {
		o.AppName = appName
		o.UserID = userID
	}
}

// WithDelegationTool overrides the tool name treated as a delegation.
func WithDelegationTool(name string) func(o *Options) {
	return func(o *Options) { o.DelegationTool = name }
}

// WithLogger sets the logger for swallowed hook failures.
func WithLogger(logger logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = logger }
}

// Hub fans every lifecycle hook out to the run recorder, the dialogue store
// and the progress sink. All hooks return nil: observability must never
// fail or abort a run.
type Hub struct {
	rec      *recorder.Recorder
	store    dialogue.Store
	sink     ProgressSink
	appName  string
	userID   string
	delegate string
	logger   logging.Logger
}

// New creates a Hub writing to rec and store. Either may be nil, which
// disables that half of the trail.
func New(rec *recorder.Recorder, store dialogue.Store, optFns ...func(o *Options)) *Hub {
	opts := Options{
		AppName:        "relay",
		UserID:         "user",
		DelegationTool: "send_message",
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Hub{
		rec:      rec,
		store:    store,
		sink:     opts.Progress,
		appName:  opts.AppName,
		userID:   opts.UserID,
		delegate: opts.DelegationTool,
		logger:   opts.Logger,
	}
}

// Callbacks returns one callback per lifecycle point, ready to register
// with a runner's CallbackManager.
func (h *Hub) Callbacks() []core.Callback {
	return []core.Callback{
		core.NewFunctionCallback(core.CallbackBeforeAgent, h.BeforeAgent),
		core.NewFunctionCallback(core.CallbackAfterAgent, h.AfterAgent),
		core.NewFunctionCallback(core.CallbackBeforeModel, h.BeforeModel),
		core.NewFunctionCallback(core.CallbackAfterModel, h.AfterModel),
		core.NewFunctionCallback(core.CallbackBeforeTool, h.BeforeTool),
		core.NewFunctionCallback(core.CallbackAfterTool, h.AfterTool),
		core.NewFunctionCallback(core.CallbackOnEvent, h.OnEvent),
	}
}

// Attach registers every hook with m.
func (h *Hub) Attach(m *core.CallbackManager) {
	for _, cb := range h.Callbacks() {
		m.Register(cb)
	}
}

// BeforeAgent snapshots session state as an agent starts handling a run.
func (h *Hub) BeforeAgent(ctx context.Context, cc *core.CallbackContext) error {
	inv := runID(cc)
	h.logger.Debug("hub.before_agent", "invocation_id", inv, "agent", cc.AgentName)

	state := snapshotState(cc)
	h.saveJSON(fmt.Sprintf("%s.BA.%s.state.json", inv6(inv), cc.AgentName), state, false)
	h.append(ctx, cc, inv, cc.AgentName, dialogue.TagBeforeAgent, "state", state)
	h.narrate(fmt.Sprintf("%s agent started", cc.AgentName))

	return nil
}

// AfterAgent snapshots session state as an agent finishes a run.
func (h *Hub) AfterAgent(ctx context.Context, cc *core.CallbackContext) error {
	inv := runID(cc)
	h.logger.Debug("hub.after_agent", "invocation_id", inv, "agent", cc.AgentName)

	state := snapshotState(cc)
	h.saveJSON(fmt.Sprintf("%s.AA.%s.state.json", inv6(inv), cc.AgentName), state, false)
	h.append(ctx, cc, inv, cc.AgentName, dialogue.TagAfterAgent, "state", state)
	h.narrate(fmt.Sprintf("%s agent finished", cc.AgentName))

	return nil
}

// BeforeModel records the session state and the outgoing model request.
// The request is written twice: once as exact JSON and once with embedded
// newline escapes expanded for reading prompts by eye.
func (h *Hub) BeforeModel(ctx context.Context, cc *core.CallbackContext) error {
	inv := runID(cc)
	h.logger.Debug("hub.before_model", "invocation_id", inv, "agent", cc.AgentName)

	state := snapshotState(cc)
	h.saveJSON(fmt.Sprintf("%s.BM.%s.state.json", inv6(inv), cc.AgentName), state, false)
	h.append(ctx, cc, inv, cc.AgentName, dialogue.TagBeforeModel, "state", state)

	req := toTree(cc.ModelRequest)
	h.saveJSON(fmt.Sprintf("%s.BM.%s.request.0.json", inv6(inv), cc.AgentName), req, false)
	h.saveJSON(fmt.Sprintf("%s.BM.%s.request.1.json", inv6(inv), cc.AgentName), req, true)
	h.append(ctx, cc, inv, cc.AgentName, dialogue.TagBeforeModel, "llm_request", asRecordData(req))
	h.narrate(fmt.Sprintf("%s calling model", cc.AgentName))

	return nil
}

// AfterModel records the session state and the model response, again in
// both the exact and the expanded form.
func (h *Hub) AfterModel(ctx context.Context, cc *core.CallbackContext) error {
	inv := runID(cc)
	h.logger.Debug("hub.after_model", "invocation_id", inv, "agent", cc.AgentName)

	state := snapshotState(cc)
	h.saveJSON(fmt.Sprintf("%s.AM.%s.state.json", inv6(inv), cc.AgentName), state, false)
	h.append(ctx, cc, inv, cc.AgentName, dialogue.TagAfterModel, "state", state)

	resp := toTree(cc.ModelResponse)
	h.saveJSON(fmt.Sprintf("%s.AM.%s.response.0.json", inv6(inv), cc.AgentName), resp, false)
	h.saveJSON(fmt.Sprintf("%s.AM.%s.response.1.json", inv6(inv), cc.AgentName), resp, true)
	h.append(ctx, cc, inv, cc.AgentName, dialogue.TagAfterModel, "llm_response", asRecordData(resp))
	h.narrate(fmt.Sprintf("%s model call finished", cc.AgentName))

	return nil
}

// BeforeTool records the tool call arguments. Delegation calls are
// narrated with the target agent's name pulled from the arguments.
func (h *Hub) BeforeTool(ctx context.Context, cc *core.CallbackContext) error {
	inv := runID(cc)
	h.logger.Debug("hub.before_tool", "invocation_id", inv, "agent", cc.AgentName, "tool", cc.ToolName)

	h.saveJSON(fmt.Sprintf("%s.BT.%s.%s.args.json", inv6(inv), cc.AgentName, cc.ToolName), cc.ToolArgs, false)
	h.append(ctx, cc, inv, cc.AgentName, dialogue.TagBeforeTool, cc.ToolName, cc.ToolArgs)

	if cc.ToolName == h.delegate {
		target, _ := cc.ToolArgs["agent_name"].(string)
		msg, _ := cc.ToolArgs["message"].(string)
		h.narrate(fmt.Sprintf("%s sending message to %s: %s", cc.AgentName, target, msg))
	} else {
		h.narrate(fmt.Sprintf("%s calling tool %s, args: %v", cc.AgentName, cc.ToolName, cc.ToolArgs))
	}

	return nil
}

// AfterTool records the tool response reduced to plain maps, slices and
// scalars. Delegation results are not narrated; their outcome reaches the
// user through the event stream instead.
func (h *Hub) AfterTool(ctx context.Context, cc *core.CallbackContext) error {
	inv := runID(cc)
	h.logger.Debug("hub.after_tool", "invocation_id", inv, "agent", cc.AgentName, "tool", cc.ToolName)

	resp := toTree(cc.ToolResponse)
	h.saveJSON(fmt.Sprintf("%s.AT.%s.%s.response.json", inv6(inv), cc.AgentName, cc.ToolName), resp, false)
	h.append(ctx, cc, inv, cc.AgentName, dialogue.TagAfterTool, cc.ToolName, asRecordData(resp))

	if cc.ToolName != h.delegate {
		h.narrate(fmt.Sprintf("%s tool %s returned: %v", cc.AgentName, cc.ToolName, resp))
	}

	return nil
}

// OnEvent records every non-partial event surfaced by a run, keyed by the
// event's own invocation id and author. Partial streaming deltas are
// skipped so the trail matches the persisted session history.
func (h *Hub) OnEvent(ctx context.Context, cc *core.CallbackContext) error {
	ev := cc.Event
	if ev == nil || ev.IsPartial() {
		return nil
	}
	h.logger.Debug("hub.on_event", "invocation_id", ev.InvocationID, "author", ev.Author, "event_id", ev.ID)

	payload := toTree(ev)
	h.saveJSON(fmt.Sprintf("%s.E.%s.json", inv6(ev.InvocationID), ev.Author), payload, false)
	h.append(ctx, cc, ev.InvocationID, ev.Author, dialogue.TagEvent, "event", asRecordData(payload))

	return nil
}

func (h *Hub) saveJSON(name string, v any, escape bool) {
	if h.rec == nil {
		return
	}
	if _, err := h.rec.SaveJSON(name, v, escape); err != nil {
		h.logger.Warn("hub.recorder.save_failed", "file", name, "error", err)
	}
}

func (h *Hub) append(ctx context.Context, cc *core.CallbackContext, invocationID, agentName string, tag dialogue.Tag, name string, data map[string]any) {
	if h.store == nil {
		return
	}

	rec := dialogue.Record{
		Timestamp:    time.Now(),
		UserID:       h.userID,
		AppName:      h.appName,
		InvocationID: invocationID,
		AgentName:    agentName,
		Tag:          tag,
		Name:         name,
		Data:         data,
	}
	if rc := cc.RunContext; rc != nil {
		rec.SessionID = rc.SessionID
		if rc.Session != nil {
			if rc.Session.UserID != "" {
				rec.UserID = rc.Session.UserID
			}
			if rc.Session.AppName != "" {
				rec.AppName = rc.Session.AppName
			}
		}
	}

	if _, err := h.store.Append(ctx, rec); err != nil {
		h.logger.Warn("hub.dialogue.append_failed", "tag", string(tag), "error", err)
	}
}

func (h *Hub) narrate(line string) {
	if h.sink == nil {
		return
	}
	h.sink.Push(line)
}

func snapshotState(cc *core.CallbackContext) map[string]any {
	if cc.RunContext == nil {
		return map[string]any{}
	}
	return cc.RunContext.MergedState()
}

func runID(cc *core.CallbackContext) string {
	if cc.RunContext == nil {
		return ""
	}
	return cc.RunContext.RunID
}

// inv6 returns the trailing six characters of a run id, or the whole id
// when shorter. Keeps file names short while staying greppable per run.
func inv6(id string) string {
	if len(id) <= 6 {
		return id
	}
	return id[len(id)-6:]
}

// toTree reduces v to plain maps, slices and scalars via its JSON form.
func toTree(v any) any {
	return jsontree.FromAny(v).Interface()
}

// asRecordData shapes an arbitrary payload into the map form dialogue
// records carry. Non-map payloads are wrapped under a single value key.
func asRecordData(v any) map[string]any {
	if v == nil {
		return nil
	}
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{"value": v}
}
