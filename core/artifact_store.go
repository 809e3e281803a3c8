package core

// ArtifactStore persists binary artifacts keyed by session and artifact ID.
type ArtifactStore interface {
	// Save stores data under the given session and artifact ID.
	Save(sessionID, artifactID string, data []byte) error

	// Get retrieves an artifact. Implementations return an error when the
	// artifact does not exist.
	Get(sessionID, artifactID string) ([]byte, error)

	// List returns the artifact IDs stored for a session.
	List(sessionID string) ([]string, error)

	// Delete removes an artifact.
	Delete(sessionID, artifactID string) error
}
