package a2a

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/agentgrid/relay/logging"
)

// AgentSummary is the presentation view of one registered agent.
type AgentSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RegistryOptions configure a Registry.
type RegistryOptions struct {
	// Resolver fetches agent cards for RegisterURL. Defaults to a fresh
	// CardResolver.
	Resolver *CardResolver

	// NewClient builds the client for a freshly resolved card. Defaults to
	// an HTTPClient against the card's URL.
	NewClient func(card AgentCard) Client

	// Logger receives registration diagnostics.
	Logger logging.Logger
}

// Registry holds the known remote agents: one descriptor and one client
// handle per name, last registration wins. It also renders the
// human-readable listing interpolated into routing prompts.
type Registry struct {
	mu      sync.RWMutex
	cards   map[string]AgentCard
	clients map[string]Client
	order   []string
	listing string

	resolver  *CardResolver
	newClient func(card AgentCard) Client
	logger    logging.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Resolver == nil {
		opts.Resolver = NewCardResolver()
	}
	if opts.NewClient == nil {
		opts.NewClient = func(card AgentCard) Client {
			return NewHTTPClient(card.URL)
		}
	}

	return &Registry{
		cards:     map[string]AgentCard{},
		clients:   map[string]Client{},
		resolver:  opts.Resolver,
		newClient: opts.NewClient,
		logger:    opts.Logger,
	}
}

// Register upserts an agent keyed by its card name. Registering the same
// name again replaces the descriptor and client while keeping the agent's
// position in the listing.
func (r *Registry) Register(card AgentCard, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, known := r.cards[card.Name]; !known {
		r.order = append(r.order, card.Name)
	}
	r.cards[card.Name] = card
	r.clients[card.Name] = client
	r.rebuildListing()

	r.logger.Debug("a2a.registry.registered", "agent", card.Name, "url", card.URL)
}

// RegisterURL fetches the agent card served at baseURL and registers it
// with a client built for the card.
func (r *Registry) RegisterURL(ctx context.Context, baseURL string) (*AgentCard, error) {
	card, err := r.resolver.Resolve(ctx, baseURL)
	if err != nil {
		return nil, err
	}

	r.Register(*card, r.newClient(*card))

	return card, nil
}

// Resolve returns the client for name. ErrUnknownAgent when the name was
// never registered, ErrClientUnavailable when it was registered without a
// usable client.
func (r *Registry) Resolve(name string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	client, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("agent %q: %w", name, ErrUnknownAgent)
	}
	if client == nil {
		return nil, fmt.Errorf("agent %q: %w", name, ErrClientUnavailable)
	}

	return client, nil
}

// Card returns the descriptor registered for name.
func (r *Registry) Card(name string) (AgentCard, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	card, ok := r.cards[name]
	return card, ok
}

// List returns the registered agents in registration order.
func (r *Registry) List() []AgentSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]AgentSummary, 0, len(r.order))
	for _, name := range r.order {
		card := r.cards[name]
		out = append(out, AgentSummary{Name: card.Name, Description: card.Description})
	}

	return out
}

// Listing renders the agents as one JSON object per line, the form
// interpolated into the host agent's routing instruction.
func (r *Registry) Listing() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.listing
}

// rebuildListing re-renders the prompt listing. Callers hold the lock.
func (r *Registry) rebuildListing() {
	lines := make([]string, 0, len(r.order))
	for _, name := range r.order {
		card := r.cards[name]
		entry, err := json.Marshal(AgentSummary{Name: card.Name, Description: card.Description})
		if err != nil {
			continue
		}
		lines = append(lines, string(entry))
	}
	r.listing = strings.Join(lines, "\n")
}
