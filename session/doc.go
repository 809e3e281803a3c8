// Package session houses concrete implementations of core.SessionStore.
// The interface itself (and the Session struct) live in the core package to
// centralize domain contracts; keeping only implementations here prevents
// higher level packages (agents, runner) from depending on concrete storage.
//
// Sessions are created explicitly through Create; Get reports ErrNotFound
// for unknown ids so callers can implement get-or-create without guessing.
// Newly created sessions are stamped with the store's configured user and
// application attribution, which downstream audit records rely on.
package session
