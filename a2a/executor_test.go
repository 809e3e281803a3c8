package a2a

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentgrid/relay/core"
	"github.com/agentgrid/relay/session"
)

// fakeRunner replays a canned event stream for every run.
type fakeRunner struct {
	mu            sync.Mutex
	runID         string
	events        []core.Event
	runErr        error
	startErr      error
	canceled      []string
	lastSessionID string
	lastContent   core.Content
}

func (f *fakeRunner) Run(_ context.Context, _ string, sessionID string, userContent core.Content) (string, <-chan core.Event, <-chan error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.startErr != nil {
		return "", nil, nil, f.startErr
	}
	f.lastSessionID = sessionID
	f.lastContent = userContent

	events := make(chan core.Event, len(f.events))
	for _, ev := range f.events {
		events <- ev
	}
	close(events)

	errs := make(chan error, 1)
	if f.runErr != nil {
		errs <- f.runErr
	}
	close(errs)

	return f.runID, events, errs, nil
}

func (f *fakeRunner) Resume(string) error { return nil }

func (f *fakeRunner) Cancel(runID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.canceled = append(f.canceled, runID)
	return nil
}

var _ core.Runner = (*fakeRunner)(nil)

// blockingRunner holds its event stream open until Cancel closes it.
type blockingRunner struct {
	mu       sync.Mutex
	events   chan core.Event
	errs     chan error
	canceled []string
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{
		events: make(chan core.Event),
		errs:   make(chan error),
	}
}

func (r *blockingRunner) Run(context.Context, string, string, core.Content) (string, <-chan core.Event, <-chan error, error) {
	return "run-blocked", r.events, r.errs, nil
}

func (r *blockingRunner) Resume(string) error { return nil }

func (r *blockingRunner) Cancel(runID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.canceled = append(r.canceled, runID)
	close(r.events)
	close(r.errs)
	return nil
}

func (r *blockingRunner) canceledRuns() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.canceled...)
}

var _ core.Runner = (*blockingRunner)(nil)

func newTestExecutor(t *testing.T, r core.Runner, optFns ...func(o *ExecutorOptions)) (*Executor, core.SessionStore) {
	t.Helper()

	store := session.NewInMemoryStore()
	return NewExecutor(r, store, "Host", optFns...), store
}

// functionResponseEvent builds a tool-result step; final steps carry the
// skip-summarization signal the way an escalated delegation reply does.
func functionResponseEvent(result any, final bool) core.Event {
	ev := core.NewFunctionResponseEvent("Host", "call-1", "fetch_form", result, nil)
	if final {
		b := true
		ev.Actions.SkipSummarization = &b
	}
	return ev
}

func TestExecutorCompletedTurn(t *testing.T) {
	runner := &fakeRunner{runID: "run-1", events: []core.Event{
		core.NewMessageEvent("Host", "All done"),
	}}
	exec, store := newTestExecutor(t, runner)
	q := &captureQueue{}

	reqCtx := RequestContext{Message: NewMessage(RoleUser, NewTextPart("render the clip"))}
	require.NoError(t, exec.Execute(context.Background(), reqCtx, q))

	events := q.all()
	require.NotEmpty(t, events)

	task, ok := events[0].(Task)
	require.True(t, ok, "a fresh request enqueues its task first")
	assert.Equal(t, TaskStateSubmitted, task.Status.State)
	require.NotEmpty(t, task.ID)
	require.NotEmpty(t, task.ContextID)

	artifacts := artifactUpdates(events)
	require.Len(t, artifacts, 1)
	assert.Equal(t, "form", artifacts[0].Artifact.Name)
	assert.Equal(t, task.ID, artifacts[0].TaskID)
	require.Len(t, artifacts[0].Artifact.Parts, 1)
	assert.Equal(t, "All done", artifacts[0].Artifact.Parts[0].(TextPart).Text)

	updates := statusUpdates(events)
	require.Len(t, updates, 1)
	assert.Equal(t, TaskStateCompleted, updates[0].Status.State)
	assert.True(t, updates[0].Final)

	// The run is keyed on the task's context and fed the message text.
	assert.Equal(t, task.ContextID, runner.lastSessionID)
	assert.Equal(t, "render the clip", runner.lastContent.Text())

	sess, err := store.Get(task.ContextID)
	require.NoError(t, err)
	author, _ := sess.GetState("author")
	assert.Equal(t, "user", author)
}

func TestExecutorContinuationReusesTask(t *testing.T) {
	runner := &fakeRunner{runID: "run-1", events: []core.Event{
		core.NewMessageEvent("Host", "scheduled"),
	}}
	exec, _ := newTestExecutor(t, runner)
	q := &captureQueue{}

	existing := Task{
		Kind:      KindTask,
		ID:        "task-1",
		ContextID: "ctx-1",
		Status:    TaskStatus{State: TaskStateInputRequired},
	}
	reqCtx := RequestContext{
		TaskID:    "task-1",
		ContextID: "ctx-1",
		Message:   NewMessage(RoleUser, NewTextPart("tomorrow at noon")),
		Task:      &existing,
	}
	require.NoError(t, exec.Execute(context.Background(), reqCtx, q))

	for _, ev := range q.all() {
		_, isTask := ev.(Task)
		assert.False(t, isTask, "continuations must not enqueue a new task")
	}

	updates := statusUpdates(q.all())
	require.Len(t, updates, 1)
	assert.Equal(t, "task-1", updates[0].TaskID)
	assert.Equal(t, "ctx-1", updates[0].ContextID)

	assert.Equal(t, "ctx-1", runner.lastSessionID)
}

func TestExecutorInputRequired(t *testing.T) {
	runner := &fakeRunner{runID: "run-1", events: []core.Event{
		functionResponseEvent(map[string]any{"result": `{"date":"tomorrow"}`}, true),
		// The stream stays open after the pause; trailing events drain.
		core.NewFunctionCallEvent("Host", "noop", "{}"),
	}}
	exec, _ := newTestExecutor(t, runner)
	q := &captureQueue{}

	reqCtx := RequestContext{Message: NewMessage(RoleUser, NewTextPart("book it"))}
	require.NoError(t, exec.Execute(context.Background(), reqCtx, q))

	updates := statusUpdates(q.all())
	require.Len(t, updates, 1)
	assert.Equal(t, TaskStateInputRequired, updates[0].Status.State)
	assert.True(t, updates[0].Final)

	require.NotNil(t, updates[0].Status.Message)
	require.Len(t, updates[0].Status.Message.Parts, 1)
	data := updates[0].Status.Message.Parts[0].(DataPart).Data
	assert.Equal(t, map[string]any{"date": "tomorrow"}, data)

	assert.Empty(t, artifactUpdates(q.all()))
}

func TestExecutorMalformedFormPayloadDegrades(t *testing.T) {
	runner := &fakeRunner{runID: "run-1", events: []core.Event{
		functionResponseEvent(map[string]any{"result": "not json at all"}, true),
	}}
	exec, _ := newTestExecutor(t, runner)
	q := &captureQueue{}

	reqCtx := RequestContext{Message: NewMessage(RoleUser, NewTextPart("book it"))}
	require.NoError(t, exec.Execute(context.Background(), reqCtx, q))

	updates := statusUpdates(q.all())
	require.Len(t, updates, 1)
	assert.Equal(t, TaskStateInputRequired, updates[0].Status.State)

	data := updates[0].Status.Message.Parts[0].(DataPart).Data
	assert.Equal(t, map[string]any{"result": "not json at all"}, data)
}

func TestExecutorUnexpectedShapeFails(t *testing.T) {
	runner := &fakeRunner{runID: "run-1", events: []core.Event{
		functionResponseEvent("plain string", true),
		// Never reached: the failure breaks the loop.
		core.NewMessageEvent("Host", "should not be classified"),
	}}
	exec, _ := newTestExecutor(t, runner)
	q := &captureQueue{}

	reqCtx := RequestContext{Message: NewMessage(RoleUser, NewTextPart("book it"))}
	require.NoError(t, exec.Execute(context.Background(), reqCtx, q))

	updates := statusUpdates(q.all())
	require.Len(t, updates, 1)
	assert.Equal(t, TaskStateFailed, updates[0].Status.State)
	assert.True(t, updates[0].Final)
	require.NotNil(t, updates[0].Status.Message)
	assert.Equal(t, "Reaching an unexpected state", updates[0].Status.Message.Text())

	assert.Empty(t, artifactUpdates(q.all()), "no completion artifact after a failure")
}

func TestExecutorPromotesImagesFromToolSteps(t *testing.T) {
	dir := t.TempDir()
	pngPath := filepath.Join(dir, "shot.png")
	require.NoError(t, os.WriteFile(pngPath, []byte("PNGBYTES"), 0o644))
	jpgPath := filepath.Join(dir, "nested.jpg")
	require.NoError(t, os.WriteFile(jpgPath, []byte("JPGBYTES"), 0o644))
	listedPath := filepath.Join(dir, "listed.png")
	require.NoError(t, os.WriteFile(listedPath, []byte("LISTED"), 0o644))

	toolPayload := map[string]any{
		"screenshot": pngPath,
		"nested":     fmt.Sprintf(`{"chart":%q}`, jpgPath),
		"paths":      []any{listedPath},
		"note":       "no file here",
	}
	runner := &fakeRunner{runID: "run-1", events: []core.Event{
		functionResponseEvent(toolPayload, false),
		core.NewMessageEvent("Host", "done"),
	}}
	exec, _ := newTestExecutor(t, runner)
	q := &captureQueue{}

	reqCtx := RequestContext{Message: NewMessage(RoleUser, NewTextPart("render the clip"))}
	require.NoError(t, exec.Execute(context.Background(), reqCtx, q))

	artifacts := artifactUpdates(q.all())
	require.Len(t, artifacts, 3, "two promoted images plus the completion artifact")

	// Fields are visited in sorted key order; strings inside arrays are
	// never promoted.
	chart := artifacts[0]
	assert.Equal(t, "chart", chart.Artifact.Name)
	chartFile := chart.Artifact.Parts[0].(FilePart).File
	assert.Equal(t, "nested.jpg", chartFile.Name)
	assert.Equal(t, "image/jpg", chartFile.MimeType)
	assert.NotEmpty(t, chartFile.Bytes)

	shot := artifacts[1]
	assert.Equal(t, "screenshot", shot.Artifact.Name)
	shotFile := shot.Artifact.Parts[0].(FilePart).File
	assert.Equal(t, "shot.png", shotFile.Name)
	assert.Equal(t, "image/png", shotFile.MimeType)

	assert.Equal(t, "form", artifacts[2].Artifact.Name)
}

func TestExecutorFlushesProgressBeforeEachStep(t *testing.T) {
	progress := NewProgressBuffer()
	progress.Push("Host agent started")
	progress.Push("Host calling model")

	runner := &fakeRunner{runID: "run-1", events: []core.Event{
		core.NewMessageEvent("Host", "done"),
	}}
	exec, _ := newTestExecutor(t, runner, func(o *ExecutorOptions) { o.Progress = progress })
	q := &captureQueue{}

	reqCtx := RequestContext{Message: NewMessage(RoleUser, NewTextPart("render the clip"))}
	require.NoError(t, exec.Execute(context.Background(), reqCtx, q))

	updates := statusUpdates(q.all())
	require.Len(t, updates, 3, "two working narrations plus the completion")

	assert.Equal(t, TaskStateWorking, updates[0].Status.State)
	assert.False(t, updates[0].Final)
	assert.Equal(t, "Host agent started", updates[0].Status.Message.Text())
	assert.NotEmpty(t, updates[0].Status.Timestamp)

	assert.Equal(t, TaskStateWorking, updates[1].Status.State)
	assert.Equal(t, "Host calling model", updates[1].Status.Message.Text())

	assert.Equal(t, TaskStateCompleted, updates[2].Status.State)

	assert.Empty(t, progress.Drain(), "the buffer is drained into the queue")
}

func TestExecutorSurfacesRunFailure(t *testing.T) {
	runner := &fakeRunner{runID: "run-1", runErr: errors.New("model exploded")}
	exec, _ := newTestExecutor(t, runner)

	reqCtx := RequestContext{Message: NewMessage(RoleUser, NewTextPart("render the clip"))}
	err := exec.Execute(context.Background(), reqCtx, &captureQueue{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run run-1")
	assert.Contains(t, err.Error(), "model exploded")
}

func TestExecutorSurfacesStartFailure(t *testing.T) {
	runner := &fakeRunner{startErr: errors.New("agent Host not found")}
	exec, _ := newTestExecutor(t, runner)

	reqCtx := RequestContext{Message: NewMessage(RoleUser, NewTextPart("render the clip"))}
	err := exec.Execute(context.Background(), reqCtx, &captureQueue{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start run for task")
}

func TestExecutorCancel(t *testing.T) {
	runner := newBlockingRunner()
	exec, _ := newTestExecutor(t, runner)
	q := &captureQueue{}

	done := make(chan error, 1)
	reqCtx := RequestContext{Message: NewMessage(RoleUser, NewTextPart("long job"))}
	go func() { done <- exec.Execute(context.Background(), reqCtx, q) }()

	var taskID, contextID string
	require.Eventually(t, func() bool {
		for _, ev := range q.all() {
			if task, ok := ev.(Task); ok {
				taskID = task.ID
				contextID = task.ContextID
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	// The run registers right after Run returns; retry until it shows up.
	require.Eventually(t, func() bool {
		return exec.Cancel(context.Background(), RequestContext{TaskID: taskID, ContextID: contextID}, q) == nil
	}, time.Second, 5*time.Millisecond)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Execute did not return after cancel")
	}

	assert.Equal(t, []string{"run-blocked"}, runner.canceledRuns())

	updates := statusUpdates(q.all())
	require.NotEmpty(t, updates)
	last := updates[len(updates)-1]
	assert.Equal(t, TaskStateCanceled, last.Status.State)
	assert.True(t, last.Final)
	assert.Equal(t, taskID, last.TaskID)
}

func TestExecutorCancelUnknownTask(t *testing.T) {
	exec, _ := newTestExecutor(t, &fakeRunner{runID: "run-1"})

	err := exec.Cancel(context.Background(), RequestContext{TaskID: "ghost"}, &captureQueue{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no active run for task ghost")
}

func TestExecutorSessionSeeding(t *testing.T) {
	store := session.NewInMemoryStore()

	// Pre-existing sessions keep their attribution.
	_, err := store.Create("ctx-1")
	require.NoError(t, err)
	require.NoError(t, store.ApplyDelta("ctx-1", map[string]any{"author": "existing"}))

	runner := &fakeRunner{runID: "run-1", events: []core.Event{
		core.NewMessageEvent("Host", "done"),
	}}
	exec := NewExecutor(runner, store, "Host", func(o *ExecutorOptions) { o.Author = "ops" })

	existing := Task{Kind: KindTask, ID: "task-1", ContextID: "ctx-1", Status: TaskStatus{State: TaskStateSubmitted}}
	reqCtx := RequestContext{Message: NewMessage(RoleUser, NewTextPart("hi")), Task: &existing}
	require.NoError(t, exec.Execute(context.Background(), reqCtx, &captureQueue{}))

	sess, err := store.Get("ctx-1")
	require.NoError(t, err)
	author, _ := sess.GetState("author")
	assert.Equal(t, "existing", author)

	// Fresh contexts are seeded with the configured author.
	fresh := RequestContext{Message: NewMessage(RoleUser, NewTextPart("hi again"))}
	q := &captureQueue{}
	require.NoError(t, exec.Execute(context.Background(), fresh, q))

	task, ok := q.all()[0].(Task)
	require.True(t, ok)
	sess, err = store.Get(task.ContextID)
	require.NoError(t, err)
	author, _ = sess.GetState("author")
	assert.Equal(t, "ops", author)
}
