// Package agent provides the host-side agent implementations.
//
// BaseAgent supplies shared lifecycle plumbing (Start/Stop guards, identity).
// ModelAgent layers a language model, a tool registry and an instruction
// source on top and executes turns through the flow package. Instruction
// models the system prompt as either static text or a runtime provider, so
// routing prompts can be rebuilt from live registry and session state.
//
// Persistence, model specifics and tool abstractions stay in their own
// packages; an agent only touches them through the run context it receives.
package agent
