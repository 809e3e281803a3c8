package a2a

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentgrid/relay/core"
	"github.com/agentgrid/relay/internal/jsontree"
	"github.com/agentgrid/relay/logging"
	"github.com/agentgrid/relay/session"
)

// RequestContext carries one incoming protocol request: the message that
// arrived and, for continuations, the task it belongs to.
type RequestContext struct {
	TaskID    string
	ContextID string
	Message   Message
	Task      *Task
}

// UserInput returns the text of the incoming message with text parts
// joined by newlines.
func (rc RequestContext) UserInput() string {
	return rc.Message.Text()
}

// AgentExecutor serves protocol requests by driving a local agent and
// translating its progress into task events on the queue.
type AgentExecutor interface {
	Execute(ctx context.Context, reqCtx RequestContext, queue EventWriter) error
	Cancel(ctx context.Context, reqCtx RequestContext, queue EventWriter) error
}

// ExecutorOptions configure an Executor.
type ExecutorOptions struct {
	// Author seeds the attribution state of sessions the executor
	// creates for first-contact context ids.
	Author string

	// Progress supplies narration lines that are drained into working
	// status updates between steps. Nil disables narration forwarding.
	Progress *ProgressBuffer

	// Logger receives diagnostics. Defaults to NoOp.
	Logger logging.Logger
}

// Executor adapts a locally registered agent to the task protocol. Each
// Execute call maps the request's context id onto a session, streams the
// run, forwards queued narration as working updates, promotes image paths
// found in tool responses to file artifacts and closes the task with a
// completed, input_required or failed status.
type Executor struct {
	runner    core.Runner
	sessions  core.SessionStore
	agentName string
	author    string
	progress  *ProgressBuffer
	logger    logging.Logger

	mu       sync.Mutex
	taskRuns map[string]string
}

// NewExecutor creates an Executor serving the named agent through the
// given runner. The session store must be the one the runner persists to,
// so that context ids resolve to the same conversation on both sides.
func NewExecutor(r core.Runner, sessions core.SessionStore, agentName string, optFns ...func(o *ExecutorOptions)) *Executor {
	opts := ExecutorOptions{
		Author: "user",
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Executor{
		runner:    r,
		sessions:  sessions,
		agentName: agentName,
		author:    opts.Author,
		progress:  opts.Progress,
		logger:    opts.Logger,
		taskRuns:  make(map[string]string),
	}
}

// Execute runs the agent for one incoming message. A request without a
// current task gets a fresh one enqueued first; continuations reuse the
// task from the request so input_required round trips stay on the same
// task and context ids.
func (e *Executor) Execute(ctx context.Context, reqCtx RequestContext, queue EventWriter) error {
	task := reqCtx.Task
	if task == nil {
		created := NewTask(reqCtx.Message)
		task = &created
		if err := queue.Write(ctx, created); err != nil {
			return fmt.Errorf("enqueue task: %w", err)
		}
	}

	updater := NewTaskUpdater(queue, task.ID, task.ContextID)

	if err := e.ensureSession(task.ContextID); err != nil {
		return fmt.Errorf("prepare session %s: %w", task.ContextID, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	userContent := core.Content{
		Role:  "user",
		Parts: []core.Part{core.TextPart{Text: reqCtx.UserInput()}},
	}

	runID, events, errs, err := e.runner.Run(runCtx, e.agentName, task.ContextID, userContent)
	if err != nil {
		return fmt.Errorf("start run for task %s: %w", task.ID, err)
	}

	e.logger.Debug("a2a.executor.run_started",
		"task_id", task.ID,
		"context_id", task.ContextID,
		"run_id", runID,
	)

	e.trackRun(task.ID, runID)
	defer e.untrackRun(task.ID)

	for ev := range events {
		e.flushProgress(ctx, task, queue)

		content := stepContent(ev)
		if !ev.IsFinalResponse() {
			e.scanForImages(ctx, content, updater)
			continue
		}

		outcome := classify(content)
		done, err := e.emitOutcome(ctx, outcome, updater)
		if err != nil {
			return err
		}
		if done {
			break
		}
	}

	select {
	case err, ok := <-errs:
		if ok && err != nil {
			return fmt.Errorf("run %s: %w", runID, err)
		}
	default:
	}

	return nil
}

// Cancel aborts the run backing the request's task and reports the task
// as canceled. Tasks with no in-flight run cannot be canceled.
func (e *Executor) Cancel(ctx context.Context, reqCtx RequestContext, queue EventWriter) error {
	taskID := reqCtx.TaskID
	contextID := reqCtx.ContextID
	if reqCtx.Task != nil {
		if taskID == "" {
			taskID = reqCtx.Task.ID
		}
		if contextID == "" {
			contextID = reqCtx.Task.ContextID
		}
	}

	runID, ok := e.lookupRun(taskID)
	if !ok {
		return fmt.Errorf("no active run for task %s", taskID)
	}

	if err := e.runner.Cancel(runID); err != nil {
		return fmt.Errorf("cancel run %s: %w", runID, err)
	}

	e.logger.Debug("a2a.executor.canceled", "task_id", taskID, "run_id", runID)

	updater := NewTaskUpdater(queue, taskID, contextID)
	if err := updater.UpdateStatus(ctx, TaskStateCanceled, nil, true); err != nil {
		return fmt.Errorf("emit canceled for task %s: %w", taskID, err)
	}

	return nil
}

// ensureSession creates the session backing a first-contact context id,
// seeding the author attribution state. Existing sessions are untouched.
func (e *Executor) ensureSession(sessionID string) error {
	if _, err := e.sessions.Get(sessionID); err == nil {
		return nil
	} else if !errors.Is(err, session.ErrNotFound) {
		return err
	}

	if _, err := e.sessions.Create(sessionID); err != nil {
		return err
	}

	return e.sessions.ApplyDelta(sessionID, map[string]any{"author": e.author})
}

func (e *Executor) trackRun(taskID, runID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.taskRuns[taskID] = runID
}

func (e *Executor) untrackRun(taskID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.taskRuns, taskID)
}

func (e *Executor) lookupRun(taskID string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	runID, ok := e.taskRuns[taskID]
	return runID, ok
}

// flushProgress drains queued narration lines into non-final working
// updates, preserving the time each line was captured.
func (e *Executor) flushProgress(ctx context.Context, task *Task, queue EventWriter) {
	if e.progress == nil {
		return
	}

	for _, line := range e.progress.Drain() {
		msg := Message{
			Kind:      KindMessage,
			MessageID: uuid.NewString(),
			Role:      RoleAgent,
			Parts:     Parts{NewTextPart(line.Text)},
			TaskID:    task.ID,
			ContextID: task.ContextID,
		}
		ev := TaskStatusUpdateEvent{
			Kind:      KindStatusUpdate,
			TaskID:    task.ID,
			ContextID: task.ContextID,
			Final:     false,
			Status: TaskStatus{
				State:     TaskStateWorking,
				Message:   &msg,
				Timestamp: line.At.UTC().Format(time.RFC3339Nano),
			},
		}
		if err := queue.Write(ctx, ev); err != nil {
			e.logger.Warn("a2a.executor.progress_write_failed", "task_id", task.ID, "error", err.Error())
			return
		}
	}
}

// emitOutcome translates a classified outcome into terminal task events.
// It reports whether the event loop should stop consuming: an
// input_required pause leaves the stream open so trailing events still
// drain, the other outcomes end the turn.
func (e *Executor) emitOutcome(ctx context.Context, outcome core.Outcome, updater *TaskUpdater) (bool, error) {
	switch outcome.Kind {
	case core.OutcomeNeedsInput:
		msg := updater.NewAgentMessage(NewDataPart(outcome.Data))
		if err := updater.UpdateStatus(ctx, TaskStateInputRequired, &msg, true); err != nil {
			return false, fmt.Errorf("emit input_required: %w", err)
		}
		return false, nil

	case core.OutcomeFailed:
		msg := updater.NewAgentTextMessage(outcome.Reason)
		if err := updater.UpdateStatus(ctx, TaskStateFailed, &msg, true); err != nil {
			return false, fmt.Errorf("emit failed: %w", err)
		}
		return true, nil

	default:
		if err := updater.AddArtifact(ctx, "form", NewTextPart(outcome.Text)); err != nil {
			return false, fmt.Errorf("emit artifact: %w", err)
		}
		if err := updater.Complete(ctx); err != nil {
			return false, fmt.Errorf("emit completed: %w", err)
		}
		return true, nil
	}
}

// stepContent reduces one run event to the payload classification and
// image scanning operate on: the joined text when the leading part is
// non-empty text, the first function response as a plain map otherwise,
// an empty string when neither.
func stepContent(ev core.Event) any {
	if ev.Content == nil || len(ev.Content.Parts) == 0 {
		return ""
	}

	if tp, ok := ev.Content.Parts[0].(core.TextPart); ok && tp.Text != "" {
		var texts []string
		for _, p := range ev.Content.Parts {
			if t, ok := p.(core.TextPart); ok && t.Text != "" {
				texts = append(texts, t.Text)
			}
		}
		return strings.Join(texts, "\n")
	}

	for _, p := range ev.Content.Parts {
		if frp, ok := p.(core.FunctionResponsePart); ok {
			return functionResponseMap(frp.FunctionResponse)
		}
	}

	return ""
}

// functionResponseMap flattens a function response into the JSON shape
// downstream consumers see on the wire.
func functionResponseMap(fr core.FunctionResponse) map[string]any {
	m := map[string]any{
		"id":       fr.ID,
		"name":     fr.Name,
		"response": jsontree.FromAny(fr.Response).Interface(),
	}
	if fr.Error != "" {
		m["error"] = fr.Error
	}
	return m
}

// classify decides the terminal outcome of a turn from its final step
// content. Map content carrying a response.result payload pauses for
// input, any other map shape fails the task, text completes it.
func classify(content any) core.Outcome {
	switch c := content.(type) {
	case string:
		return core.Completed(c)

	case map[string]any:
		resp, ok := c["response"].(map[string]any)
		if !ok {
			return core.Failed("Reaching an unexpected state")
		}
		result, ok := resp["result"]
		if !ok {
			return core.Failed("Reaching an unexpected state")
		}
		return core.NeedsInput(formPayload(result))

	default:
		return core.Failed("Reaching an unexpected state")
	}
}

// formPayload normalizes the embedded form payload handed back through
// an input_required pause. String results are parsed as JSON; a result
// that is not a JSON object is wrapped under its original key so a
// malformed payload degrades to plain data instead of failing the turn.
func formPayload(result any) map[string]any {
	switch r := result.(type) {
	case map[string]any:
		return r

	case string:
		var parsed any
		if err := json.Unmarshal([]byte(r), &parsed); err == nil {
			if m, ok := parsed.(map[string]any); ok {
				return m
			}
		}
		return map[string]any{"result": r}

	default:
		return map[string]any{"result": jsontree.FromAny(r).Interface()}
	}
}

// scanForImages walks the response payload of an intermediate tool step
// and promotes local image paths to file artifacts named after the field
// that referenced them. Only map content with a response field is
// scanned.
func (e *Executor) scanForImages(ctx context.Context, content any, updater *TaskUpdater) {
	m, ok := content.(map[string]any)
	if !ok {
		return
	}
	resp, ok := m["response"]
	if !ok {
		return
	}

	e.scanValue(ctx, jsontree.FromAny(resp), updater)
}

// scanValue recurses through objects and arrays. Strings are only
// inspected when they sit directly under an object key, which names the
// resulting artifact; strings inside arrays are skipped.
func (e *Executor) scanValue(ctx context.Context, v jsontree.Value, updater *TaskUpdater) {
	switch v.Kind {
	case jsontree.KindObject:
		keys := make([]string, 0, len(v.Fields))
		for k := range v.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			field := v.Fields[k]
			switch field.Kind {
			case jsontree.KindString:
				e.inspectString(ctx, k, field.Str, updater)
			case jsontree.KindObject, jsontree.KindArray:
				e.scanValue(ctx, field, updater)
			}
		}

	case jsontree.KindArray:
		for _, item := range v.Items {
			e.scanValue(ctx, item, updater)
		}
	}
}

// inspectString handles one object field value. Strings holding embedded
// JSON are decoded first: objects and arrays are recursed into, a decoded
// string literal is file-checked, other JSON scalars are skipped. Strings
// that are not JSON at all are file-checked as-is.
func (e *Executor) inspectString(ctx context.Context, key, s string, updater *TaskUpdater) {
	var decoded any
	if err := json.Unmarshal([]byte(s), &decoded); err == nil {
		switch d := decoded.(type) {
		case map[string]any, []any:
			e.scanValue(ctx, jsontree.FromAny(d), updater)
		case string:
			e.promoteImage(ctx, key, d, updater)
		}
		return
	}

	e.promoteImage(ctx, key, s, updater)
}

// promoteImage reads a local image file and attaches it as a file
// artifact. Paths that do not resolve to a regular png/jpg/jpeg file are
// ignored; read failures are logged and skipped so one broken file does
// not poison the step.
func (e *Executor) promoteImage(ctx context.Context, key, path string, updater *TaskUpdater) {
	ext := filepath.Ext(path)
	switch ext {
	case ".png", ".jpg", ".jpeg":
	default:
		return
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}

	e.logger.Info("a2a.executor.image_found", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		e.logger.Error("a2a.executor.image_read_failed", "path", path, "error", err.Error())
		return
	}

	part := NewFilePart(File{
		Name:     filepath.Base(path),
		MimeType: "image/" + strings.TrimPrefix(ext, "."),
		Bytes:    base64.StdEncoding.EncodeToString(data),
	})
	if err := updater.AddArtifact(ctx, key, part); err != nil {
		e.logger.Error("a2a.executor.image_artifact_failed", "path", path, "error", err.Error())
	}
}

var _ AgentExecutor = (*Executor)(nil)
