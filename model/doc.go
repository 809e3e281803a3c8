// Package model abstracts language model providers behind a small
// generation interface.
//
// A Request bundles the system instructions, conversation contents and tool
// definitions for one model turn. Implementations answer on a channel of
// Response values: zero or more partials when streaming, then exactly one
// final response with the finish reason. Provider adapters live in
// subpackages (anthropic, openai) so the agent and flow layers never import
// a vendor SDK directly. MockModel supplies deterministic completions for
// tests.
package model
