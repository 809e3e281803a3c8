package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/agentgrid/relay/artifact"
	"github.com/agentgrid/relay/core"
	"github.com/agentgrid/relay/logging"
	"github.com/agentgrid/relay/session"
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// MaxConcurrentRuns bounds the number of runs executing at once.
	// Run blocks until a slot frees up or its context is cancelled.
	// Zero means unbounded.
	MaxConcurrentRuns int

	// EventBufferSize sets channel buffering for event delivery.
	EventBufferSize int

	// MaxModelCalls caps model calls per run. Zero means uncapped.
	MaxModelCalls int

	// SessionStore persists sessions; defaults to in-memory.
	SessionStore core.SessionStore

	// ArtifactStore persists artifacts; defaults to in-memory.
	ArtifactStore core.ArtifactStore

	// Callbacks receives the lifecycle hooks fired around runs, model
	// calls and tool calls. Defaults to an empty manager.
	Callbacks *core.CallbackManager

	// Logger receives structured diagnostics; defaults to NoOp.
	Logger logging.Logger
}

// Runner coordinates agent execution: it resolves agents by name, creates
// run contexts, streams events, applies side effects and persists history.
// Public methods are safe for concurrent use.
type Runner struct {
	maxConcurrentRuns int
	eventBufferSize   int
	maxModelCalls     int

	sessionStore  core.SessionStore
	artifactStore core.ArtifactStore
	callbacks     *core.CallbackManager
	logger        logging.Logger

	agents   map[string]core.Agent
	agentsMu sync.RWMutex

	// slots is nil when MaxConcurrentRuns is zero.
	slots chan struct{}

	activeRuns map[string]*runHandle
	mu         sync.RWMutex
}

// runHandle tracks an in-flight run for Cancel and Resume.
type runHandle struct {
	cancel context.CancelFunc
	resume chan struct{}
}

// New constructs a Runner with optional overrides.
func New(optFns ...func(o *Options)) *Runner {
	opts := Options{
		MaxConcurrentRuns: 10,
		EventBufferSize:   100,
		MaxModelCalls:     100,
		SessionStore:      session.NewInMemoryStore(),
		ArtifactStore:     artifact.NewInMemoryStore(),
		Callbacks:         core.NewCallbackManager(),
		Logger:            logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	var slots chan struct{}
	if opts.MaxConcurrentRuns > 0 {
		slots = make(chan struct{}, opts.MaxConcurrentRuns)
	}

	if opts.Callbacks == nil {
		opts.Callbacks = core.NewCallbackManager()
	}

	return &Runner{
		maxConcurrentRuns: opts.MaxConcurrentRuns,
		eventBufferSize:   opts.EventBufferSize,
		maxModelCalls:     opts.MaxModelCalls,
		sessionStore:      opts.SessionStore,
		artifactStore:     opts.ArtifactStore,
		callbacks:         opts.Callbacks,
		logger:            opts.Logger,
		agents:            make(map[string]core.Agent),
		slots:             slots,
		activeRuns:        make(map[string]*runHandle),
	}
}

// Register adds an agent under its name, replacing any previous entry.
func (r *Runner) Register(a core.Agent) {
	r.agentsMu.Lock()
	defer r.agentsMu.Unlock()

	r.agents[a.Name()] = a
}

// GetAgent returns a registered agent by name.
func (r *Runner) GetAgent(name string) (core.Agent, bool) {
	r.agentsMu.RLock()
	defer r.agentsMu.RUnlock()

	a, ok := r.agents[name]

	return a, ok
}

// Callbacks exposes the lifecycle hook manager so observers can attach.
func (r *Runner) Callbacks() *core.CallbackManager {
	return r.callbacks
}

// Run starts an asynchronous run of the named agent. It returns the run ID
// together with the event and error channels; both close when the run ends.
func (r *Runner) Run(
	ctx context.Context,
	agentName string,
	sessionID string,
	userContent core.Content,
) (string, <-chan core.Event, <-chan error, error) {
	agent, ok := r.GetAgent(agentName)
	if !ok {
		return "", nil, nil, fmt.Errorf("agent %s not found", agentName)
	}

	if r.slots != nil {
		select {
		case <-ctx.Done():
			return "", nil, nil, ctx.Err()
		case r.slots <- struct{}{}:
		}
	}

	release := func() {
		if r.slots != nil {
			<-r.slots
		}
	}

	sess, err := r.sessionStore.Get(sessionID)
	if errors.Is(err, session.ErrNotFound) {
		sess, err = r.sessionStore.Create(sessionID)
	}
	if err != nil {
		release()
		return "", nil, nil, fmt.Errorf("failed to load session: %w", err)
	}

	runID := core.NewID()

	eventsCh := make(chan core.Event, r.eventBufferSize)
	errorsCh := make(chan error, 1)
	agentEmit := make(chan core.Event, r.eventBufferSize)
	resumeCh := make(chan struct{}, 1)

	runCtx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	r.activeRuns[runID] = &runHandle{cancel: cancel, resume: resumeCh}
	r.mu.Unlock()

	unregister := func() {
		r.mu.Lock()
		delete(r.activeRuns, runID)
		r.mu.Unlock()
	}

	rc := core.NewRunContext(
		runCtx,
		sessionID,
		runID,
		core.AgentInfo{Name: agent.Name(), Type: "model"},
		userContent,
		r.maxModelCalls,
		agentEmit,
		resumeCh,
		sess,
		r.sessionStore,
		r.artifactStore,
		r.callbacks,
		r.logger,
	)

	if err := rc.FireCallbacks(core.CallbackBeforeAgent, &core.CallbackContext{AgentName: agent.Name()}); err != nil {
		cancel()
		unregister()
		release()
		return "", nil, nil, err
	}

	userEvent := core.NewUserContentEvent(runID, &userContent)
	if err := r.sessionStore.AppendEvent(sessionID, userEvent); err != nil {
		cancel()
		unregister()
		release()
		return "", nil, nil, fmt.Errorf("failed to append user event: %w", err)
	}

	agentDone := make(chan struct{})

	go func() {
		defer close(agentDone)
		defer func() {
			close(agentEmit)
			unregister()
			release()
		}()

		if err := r.runAgent(rc, agent); err != nil {
			select {
			case <-rc.Done():
			case errorsCh <- fmt.Errorf("agent execution failed: %w", err):
			}
		}
	}()

	go func() {
		defer func() { close(eventsCh); close(errorsCh) }()

		r.pumpEvents(rc, sessionID, agentEmit, resumeCh, eventsCh, errorsCh)

		// Unblock the agent if the pump bailed early, and only close the
		// outward channels once the agent can no longer touch them.
		cancel()
		<-agentDone
	}()

	return runID, eventsCh, errorsCh, nil
}

// RunSync runs the named agent and collects every event until completion.
func (r *Runner) RunSync(
	ctx context.Context,
	agentName string,
	sessionID string,
	userContent core.Content,
) (string, []core.Event, error) {
	runID, eventsCh, errorsCh, err := r.Run(ctx, agentName, sessionID, userContent)
	if err != nil {
		return "", nil, err
	}

	var events []core.Event
	for {
		select {
		case <-ctx.Done():
			return runID, events, ctx.Err()

		case ev, ok := <-eventsCh:
			if !ok {
				select {
				case err := <-errorsCh:
					return runID, events, err
				default:
					return runID, events, nil
				}
			}
			events = append(events, ev)

		case err := <-errorsCh:
			if err != nil {
				return runID, events, err
			}
		}
	}
}

// Resume unblocks a run waiting on external input. The nudge is dropped if
// the run is not currently waiting.
func (r *Runner) Resume(runID string) error {
	r.mu.RLock()
	h, ok := r.activeRuns[runID]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("run %s not found", runID)
	}

	select {
	case h.resume <- struct{}{}:
	default:
	}

	return nil
}

// Cancel aborts an in-flight run by ID.
func (r *Runner) Cancel(runID string) error {
	r.mu.RLock()
	h, ok := r.activeRuns[runID]
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("run %s not found", runID)
	}

	h.cancel()

	return nil
}

// GetSession returns the current persisted session snapshot.
func (r *Runner) GetSession(sessionID string) (*core.Session, error) {
	return r.sessionStore.Get(sessionID)
}

func (r *Runner) runAgent(rc *core.RunContext, agent core.Agent) error {
	if err := agent.Start(rc.Context); err != nil {
		return err
	}

	defer func() {
		if err := agent.Stop(rc.Context); err != nil {
			r.logger.Warn("runner.agent.stop_failed", "agent", agent.Name(), "error", err.Error())
		}
	}()

	return agent.Run(rc)
}

// pumpEvents applies each event's side effects, persists it, fires
// callbacks, forwards it to the caller and resumes the agent. It returns
// when the agent closes its emit channel or the run context is cancelled.
func (r *Runner) pumpEvents(
	rc *core.RunContext,
	sessionID string,
	agentEmit <-chan core.Event,
	resumeCh chan<- struct{},
	eventsCh chan<- core.Event,
	errorsCh chan<- error,
) {
	for {
		select {
		case <-rc.Done():
			return

		case ev, ok := <-agentEmit:
			if !ok {
				if err := rc.FireCallbacks(core.CallbackAfterAgent, &core.CallbackContext{AgentName: rc.GetAgentName()}); err != nil {
					r.logger.Warn("runner.callback.after_agent", "run_id", rc.RunID, "error", err.Error())
				}
				return
			}

			if err := r.applyEventActions(sessionID, ev); err != nil {
				select {
				case <-rc.Done():
					return
				case errorsCh <- fmt.Errorf("failed to process event actions: %w", err):
				}
				return
			}

			if !ev.IsPartial() {
				if err := r.sessionStore.AppendEvent(sessionID, ev); err != nil {
					select {
					case <-rc.Done():
						return
					case errorsCh <- fmt.Errorf("failed to append event to session: %w", err):
					}
					return
				}
			}

			if err := rc.FireCallbacks(core.CallbackOnEvent, &core.CallbackContext{AgentName: ev.Author, Event: &ev}); err != nil {
				r.logger.Warn("runner.callback.on_event", "event_id", ev.ID, "error", err.Error())
			}

			select {
			case <-rc.Done():
				return
			case eventsCh <- ev:
				r.logger.Debug("runner.event.delivered", "event_id", ev.ID, "session_id", sessionID)
			}

			if !ev.IsPartial() {
				select {
				case <-rc.Done():
					return
				case resumeCh <- struct{}{}:
				default:
				}
			}
		}
	}
}

func (r *Runner) applyEventActions(sessionID string, ev core.Event) error {
	if len(ev.Actions.StateDelta) > 0 {
		if err := r.sessionStore.ApplyDelta(sessionID, ev.Actions.StateDelta); err != nil {
			return fmt.Errorf("failed to apply state delta: %w", err)
		}
	}

	if len(ev.Actions.ArtifactDelta) > 0 {
		r.logger.Debug("runner.event.artifact_delta", "session_id", sessionID, "artifacts", len(ev.Actions.ArtifactDelta))
	}

	if ev.Actions.Escalate != nil && *ev.Actions.Escalate {
		r.logger.Debug("runner.event.escalate", "session_id", sessionID)
	}

	return nil
}

var _ core.Runner = (*Runner)(nil)
