package session

import (
	"sync"

	"github.com/agentgrid/relay/core"
)

// Options configures attribution defaults stamped onto created sessions.
type Options struct {
	// AppName attributed to new sessions.
	AppName string

	// UserID attributed to new sessions.
	UserID string
}

// InMemoryStore is a volatile core.SessionStore keeping sessions in a
// process-local map. It is safe for concurrent access and best suited for
// tests or ephemeral demo servers. Each returned session is cloned to
// prevent external mutation of internal state.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.Session
	appName  string
	userID   string
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore(optFns ...func(o *Options)) *InMemoryStore {
	opts := Options{}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &InMemoryStore{
		sessions: make(map[string]*core.Session),
		appName:  opts.AppName,
		userID:   opts.UserID,
	}
}

// WithAppName sets the application name stamped onto created sessions.
func WithAppName(appName string) func(o *Options) {
	return func(o *Options) { o.AppName = appName }
}

// WithUserID sets the user id stamped onto created sessions.
func WithUserID(userID string) func(o *Options) {
	return func(o *Options) { o.UserID = userID }
}

// Get returns a clone of an existing session or ErrNotFound.
func (s *InMemoryStore) Get(sessionID string) (*core.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sess, ok := s.sessions[sessionID]; ok {
		return sess.Clone(), nil
	}

	return nil, ErrNotFound
}

// Create allocates (or resets) a session with the given id, stamped with the
// store's attribution defaults, and returns a clone.
func (s *InMemoryStore) Create(sessionID string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.createLocked(sessionID).Clone(), nil
}

// AppendEvent adds an event to an existing or newly created session.
func (s *InMemoryStore) AppendEvent(sessionID string, ev core.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = s.createLocked(sessionID)
	}

	sess.AddEvent(ev)

	return nil
}

// ApplyDelta merges a key/value delta into the session state.
func (s *InMemoryStore) ApplyDelta(sessionID string, delta map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = s.createLocked(sessionID)
	}

	sess.ApplyStateDelta(delta)

	return nil
}

// createLocked allocates and stores a new session; caller must hold the
// write lock.
func (s *InMemoryStore) createLocked(sessionID string) *core.Session {
	sess := core.NewSession(sessionID)
	sess.AppName = s.appName
	sess.UserID = s.userID
	s.sessions[sessionID] = sess
	return sess
}

var _ core.SessionStore = (*InMemoryStore)(nil)
