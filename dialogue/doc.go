// Package dialogue provides the append-only audit trail of agent activity.
//
// Every lifecycle hook firing (agent turn, model call, tool call, raw event)
// produces one Record attributing the moment to a user, session, run and
// agent, tagged with the lifecycle point and carrying an opaque JSON payload.
// Records are never mutated or deleted; the store answers point lookups and
// bounded queries by user, session, tag and keyword.
//
// Two Store implementations ship with the package: SQLiteStore persists to a
// local database file, InMemoryStore keeps everything process-local for tests
// and demos.
package dialogue
