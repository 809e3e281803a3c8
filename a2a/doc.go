// Package a2a implements both ends of the remote-agent task protocol.
//
// On the consuming side it provides the Registry of remote agents, the
// Client over HTTP JSON-RPC, the CardResolver for descriptor discovery, the
// Dispatcher that runs the delegation state machine behind the send_message
// tool, and the part converter that turns protocol parts into local values.
//
// On the serving side it provides the Executor, which exposes an agent run
// by the local runner as a remote agent: it drives the runner's event stream,
// interleaves progress narration, promotes image paths found in step output
// into task artifacts, and classifies the final step into a completed,
// input-required or failed task.
//
// Wire types follow the A2A JSON conventions: camelCase identifiers
// (messageId, contextId, taskId, artifactId) and kind-discriminated unions
// for parts, messages, tasks and update events.
package a2a
