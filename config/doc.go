// Package config loads process-level YAML configuration for wiring a
// host agent: application identity, model provider settings, logging,
// run recording, the dialogue database, the generation job service and
// the remote agents to register. Load layers the file over Default and
// validates the result, so a minimal file only names what it changes.
package config
