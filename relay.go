// Package relay provides a high-level facade over the runner and the
// service abstractions (sessions, artifacts, callbacks and logging)
// for building host-agent processes that delegate work to remote
// agents. Most applications interact with this package by:
//  1. Creating a Relay via New() (optionally overriding default in-memory services)
//  2. Registering the host agent and the remote agents it may call
//  3. Invoking agents asynchronously (Invoke) or synchronously (InvokeSync)
//
// The facade delegates orchestration to runner.Runner and remote-agent
// bookkeeping to a2a.Registry while keeping setup and usage ergonomics
// concise. All defaults are safe for local development and testing;
// production deployments typically supply durable store implementations
// and a structured logger.
package relay

import (
	"context"

	"github.com/agentgrid/relay/a2a"
	"github.com/agentgrid/relay/artifact"
	"github.com/agentgrid/relay/core"
	"github.com/agentgrid/relay/logging"
	"github.com/agentgrid/relay/runner"
	"github.com/agentgrid/relay/session"
)

// Options configures the Relay instance.
type Options struct {
	// MaxConcurrentRuns limits the number of runs that can execute
	// simultaneously. This prevents resource exhaustion and provides
	// backpressure. Zero means unbounded.
	MaxConcurrentRuns int

	// EventBufferSize sets the channel buffer size for event delivery.
	// Larger buffers reduce blocking but increase memory usage.
	EventBufferSize int

	// MaxModelCalls caps model invocations per run so a looping agent
	// cannot spend without bound.
	MaxModelCalls int

	// Stores (default to in-memory implementations if not provided)
	SessionStore  core.SessionStore
	ArtifactStore core.ArtifactStore

	// Callbacks receives the lifecycle hooks fired around runs, model
	// calls and tool calls. A hub.Hub installs itself here.
	Callbacks *core.CallbackManager

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Relay is the high-level facade aggregating the runner, the remote
// agent registry and the dispatcher built on it.
type Relay struct {
	opts       Options
	runner     *runner.Runner
	registry   *a2a.Registry
	dispatcher *a2a.Dispatcher
}

// New creates a new Relay instance with optional overrides. Any unset
// service is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *Relay {
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

	r := runner.New(func(o *runner.Options) {
		o.MaxConcurrentRuns = opts.MaxConcurrentRuns
		o.EventBufferSize = opts.EventBufferSize
		o.MaxModelCalls = opts.MaxModelCalls
		o.SessionStore = opts.SessionStore
		o.ArtifactStore = opts.ArtifactStore
		o.Callbacks = opts.Callbacks
		o.Logger = opts.Logger
	})

	registry := a2a.NewRegistry(func(o *a2a.RegistryOptions) {
		o.Logger = opts.Logger
	})

	dispatcher := a2a.NewDispatcher(registry, func(o *a2a.DispatcherOptions) {
		o.Logger = opts.Logger
	})

	return &Relay{opts: opts, runner: r, registry: registry, dispatcher: dispatcher}
}

// RegisterAgent adds a local agent to the underlying runner.
func (m *Relay) RegisterAgent(a core.Agent) { m.runner.Register(a) }

// RegisterRemoteAgent fetches the agent card served at baseURL and adds
// the agent to the registry with a client built for it.
func (m *Relay) RegisterRemoteAgent(ctx context.Context, baseURL string) (*a2a.AgentCard, error) {
	return m.registry.RegisterURL(ctx, baseURL)
}

// Registry exposes the remote agent registry, e.g. for building the
// list_remote_agents tool or the routing instruction.
func (m *Relay) Registry() *a2a.Registry { return m.registry }

// Dispatcher exposes the remote dispatcher backing the send_message tool.
func (m *Relay) Dispatcher() *a2a.Dispatcher { return m.dispatcher }

// Invoke starts an asynchronous run returning event & error channels.
func (m *Relay) Invoke(
	ctx context.Context,
	agentName string,
	sessionID string,
	userContent core.Content,
) (string, <-chan core.Event, <-chan error, error) {
	return m.runner.Run(ctx, agentName, sessionID, userContent)
}

// InvokeSync is a synchronous helper that drains the async channels,
// accumulates events and returns the run id.
func (m *Relay) InvokeSync(
	ctx context.Context,
	agentName string,
	sessionID string,
	userContent core.Content,
) (string, []core.Event, error) {
	return m.runner.RunSync(ctx, agentName, sessionID, userContent)
}

// Resume unblocks a run waiting on external input.
func (m *Relay) Resume(runID string) error { return m.runner.Resume(runID) }

// Cancel stops an in-flight run.
func (m *Relay) Cancel(runID string) error { return m.runner.Cancel(runID) }

// GetSession returns a session from the configured store.
func (m *Relay) GetSession(sessionID string) (*core.Session, error) {
	return m.runner.GetSession(sessionID)
}
