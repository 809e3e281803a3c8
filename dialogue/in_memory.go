package dialogue

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
)

// InMemoryStore is a naive process-local Store. Records live in an
// append-only slice; queries are linear scans with substring matching.
// Suitable only for tests / demos; use SQLiteStore for anything durable.
//
// Concurrency: protected by RWMutex.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []Record
	nextID  int64
	closed  bool
}

// NewInMemoryStore creates a new in-memory dialogue store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextID: 1}
}

// Append assigns the next ID and stores a copy of the record.
func (m *InMemoryStore) Append(_ context.Context, rec Record) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrStoreClosed
	}

	rec.ID = m.nextID
	m.nextID++

	if rec.Data != nil {
		rec.Data = copyData(rec.Data)
	}

	m.records = append(m.records, rec)

	return rec.ID, nil
}

// GetByID returns the record with the given ID.
func (m *InMemoryStore) GetByID(_ context.Context, id int64) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	for i := range m.records {
		if m.records[i].ID == id {
			rec := m.records[i]
			return &rec, nil
		}
	}

	return nil, ErrRecordNotFound
}

// GetByInvocation returns the first record for a run.
func (m *InMemoryStore) GetByInvocation(_ context.Context, invocationID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	for i := range m.records {
		if m.records[i].InvocationID == invocationID {
			rec := m.records[i]
			return &rec, nil
		}
	}

	return nil, ErrRecordNotFound
}

// GetByUser lists a user's records, newest first.
func (m *InMemoryStore) GetByUser(_ context.Context, userID string, limit int) ([]Record, error) {
	return m.filter(func(r Record) bool { return r.UserID == userID }, limit, true)
}

// GetBySession lists a session's records, oldest first.
func (m *InMemoryStore) GetBySession(_ context.Context, sessionID string, limit int) ([]Record, error) {
	return m.filter(func(r Record) bool { return r.SessionID == sessionID }, limit, false)
}

// GetByTag lists records for one lifecycle tag, newest first.
func (m *InMemoryStore) GetByTag(_ context.Context, tag Tag, limit int) ([]Record, error) {
	return m.filter(func(r Record) bool { return r.Tag == tag }, limit, true)
}

// SearchByKeyword matches case-insensitively against the record name or the
// JSON-stringified data payload, newest first.
func (m *InMemoryStore) SearchByKeyword(_ context.Context, keyword string, limit int) ([]Record, error) {
	needle := strings.ToLower(keyword)

	return m.filter(func(r Record) bool {
		if strings.Contains(strings.ToLower(r.Name), needle) {
			return true
		}
		if r.Data == nil {
			return false
		}
		b, err := json.Marshal(r.Data)
		if err != nil {
			return false
		}
		return strings.Contains(strings.ToLower(string(b)), needle)
	}, limit, true)
}

// Close marks the store closed; subsequent calls fail with ErrStoreClosed.
func (m *InMemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true

	return nil
}

func (m *InMemoryStore) filter(match func(Record) bool, limit int, newestFirst bool) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	var out []Record
	for _, rec := range m.records {
		if match(rec) {
			out = append(out, rec)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			if newestFirst {
				return out[i].ID > out[j].ID
			}
			return out[i].ID < out[j].ID
		}
		if newestFirst {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})

	n := normalizeLimit(limit)
	if len(out) > n {
		out = out[:n]
	}

	return out, nil
}

func copyData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

var _ Store = (*InMemoryStore)(nil)
