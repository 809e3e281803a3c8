package a2a

import (
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"

	"github.com/agentgrid/relay/core"
)

// ConvertParts converts protocol parts into local values, preserving input
// order. Artifacts produced by file parts reference the same order their
// producers emitted.
func ConvertParts(parts Parts, tc *core.ToolContext) []any {
	out := make([]any, 0, len(parts))
	for _, p := range parts {
		out = append(out, ConvertPart(p, tc))
	}
	return out
}

// ConvertPart turns one protocol part into a local value:
//
//   - text parts become their string
//   - data parts become their map
//   - file parts are decoded and saved as a session artifact under the
//     file's name hint (or a fresh id), the escalate and skip-summarization
//     signals are raised, and a reference map {"artifact-file-id": id} is
//     returned so the raw bytes never travel back through the model
//   - anything else becomes a diagnostic string
//
// Never returns an error: file decode and save failures are logged and the
// artifact reference is returned regardless.
func ConvertPart(p Part, tc *core.ToolContext) any {
	switch part := p.(type) {
	case TextPart:
		return part.Text
	case DataPart:
		return part.Data
	case FilePart:
		return convertFilePart(part, tc)
	default:
		return fmt.Sprintf("Unknown type: %s", p.partKind())
	}
}

func convertFilePart(part FilePart, tc *core.ToolContext) any {
	fileID := part.File.Name
	if fileID == "" {
		fileID = uuid.NewString()
	}

	raw, err := base64.StdEncoding.DecodeString(part.File.Bytes)
	if err != nil {
		tc.LogError("a2a.convert.file_decode_failed", "file_id", fileID, "error", err)
	} else if err := tc.SaveArtifact(fileID, raw); err != nil {
		tc.LogError("a2a.convert.artifact_save_failed", "file_id", fileID, "error", err)
	}

	tc.SkipSummarization()
	tc.Escalate()

	return map[string]any{"artifact-file-id": fileID}
}
