// Package core defines the shared primitives of the relay runtime: events,
// content parts, sessions, execution contexts and the store interfaces that
// back them.
//
// Everything higher up (runner, flow, agents, the delegation layer) speaks in
// these types. An agent turn produces an ordered stream of Events; each Event
// may carry Content (role + polymorphic Parts) and EventActions (state deltas,
// artifact diffs, escalation and skip-summarization signals). Sessions hold
// the durable key/value state and event history for a conversation; the
// RunContext threads one invocation's identifiers, services and staged
// mutations through the pipeline, and the ToolContext narrows that surface
// for tool implementations.
//
// The Outcome type is the single place a finished turn is classified:
// completed with text, needs-input with structured data, or failed with a
// reason. Callback types let instrumentation hook the agent/model/tool
// lifecycle without the runtime knowing who is listening.
package core
