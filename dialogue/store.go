package dialogue

import "context"

// DefaultQueryLimit caps result sets when callers pass limit <= 0.
const DefaultQueryLimit = 100

// Store is the audit-trail persistence contract. Appends assign and return
// the record ID. Query methods bound their result sets by limit, falling
// back to DefaultQueryLimit when limit <= 0.
//
// Ordering: GetBySession returns records oldest first (replay order); the
// other list queries return newest first.
type Store interface {
	// Append persists one record and returns its assigned ID.
	Append(ctx context.Context, rec Record) (int64, error)

	// GetByID fetches a single record, ErrRecordNotFound if absent.
	GetByID(ctx context.Context, id int64) (*Record, error)

	// GetByInvocation fetches the first record for a run, ErrRecordNotFound
	// if absent.
	GetByInvocation(ctx context.Context, invocationID string) (*Record, error)

	// GetByUser lists a user's records, newest first.
	GetByUser(ctx context.Context, userID string, limit int) ([]Record, error)

	// GetBySession lists a session's records, oldest first.
	GetBySession(ctx context.Context, sessionID string, limit int) ([]Record, error)

	// GetByTag lists records for one lifecycle tag, newest first.
	GetByTag(ctx context.Context, tag Tag, limit int) ([]Record, error)

	// SearchByKeyword matches case-insensitively against the record name or
	// the stringified data payload, newest first.
	SearchByKeyword(ctx context.Context, keyword string, limit int) ([]Record, error)

	// Close releases the underlying resources.
	Close() error
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultQueryLimit
	}
	return limit
}
