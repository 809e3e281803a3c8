// Package logging provides a minimal logging interface and adapters for relay.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the runner, hub and agents use for observability. This
// package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//   - RelayLogger with component/session/invocation context stamping
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	rt := runner.New(hostAgent, func(o *runner.Options) { o.Logger = logger })
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available.
package logging
