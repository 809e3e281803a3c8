// Package hub mirrors every agent lifecycle hook into the observability
// surfaces: per-run JSON files via the recorder, durable rows via the
// dialogue store, and human-readable narration lines via a ProgressSink.
//
// The Hub registers for all seven lifecycle points (agent, model and tool
// boundaries plus the raw event stream) and is strictly best-effort: a
// failed write is logged and swallowed, never surfaced to the run. File
// names encode the trailing six characters of the run id plus a short tag
// (BA, AA, BM, AM, BT, AT, E) so one run's trace can be collected with a
// single glob.
package hub
