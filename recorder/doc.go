// Package recorder writes text, JSON, YAML and binary blobs to
// collision-free, time-ordered files under a per-run directory.
//
// Each Recorder owns one run directory of the form
//
//	<root>/<YYYY-MM-DD>/<HH-MM-SS.mmm>/
//
// fixed at construction time. File names are prefixed with a
// millisecond timestamp plus a single rotating sequence character so
// that writes within the same millisecond stay unique and the
// directory listing sorts chronologically. Files are created with
// O_EXCL; on a name collision the sequence advances and the write is
// retried, bounded by the alphabet size.
//
// A disabled Recorder turns every save into a no-op, so call sites can
// record unconditionally and leave the decision to configuration.
package recorder
