package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agentgrid/relay/core"
)

// FSStore persists artifacts as plain files under one directory per session:
//
//	<root>/<sessionID>/<artifactID>
//
// Session and artifact ids double as path components, so both are rejected
// when they contain separators or traversal sequences. Writes overwrite;
// there is no versioning.
type FSStore struct {
	root string
}

// NewFSStore creates the root directory if needed and returns the store.
func NewFSStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact root %q: %w", root, err)
	}

	return &FSStore{root: root}, nil
}

// Root returns the base directory artifacts are written under.
func (s *FSStore) Root() string { return s.root }

// Save writes the artifact bytes to disk, creating the session directory on
// first use.
func (s *FSStore) Save(sessionID, artifactID string, data []byte) error {
	path, err := s.path(sessionID, artifactID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write artifact %q: %w", artifactID, err)
	}

	return nil
}

// Get reads the artifact bytes from disk or returns ErrNotFound.
func (s *FSStore) Get(sessionID, artifactID string) ([]byte, error) {
	path, err := s.path(sessionID, artifactID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read artifact %q: %w", artifactID, err)
	}

	return data, nil
}

// List returns the artifact ids stored for the session; a session that never
// saved anything lists empty.
func (s *FSStore) List(sessionID string) ([]string, error) {
	if err := validComponent(sessionID); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(filepath.Join(s.root, sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ids = append(ids, e.Name())
	}

	return ids, nil
}

// Delete removes the artifact file or returns ErrNotFound.
func (s *FSStore) Delete(sessionID, artifactID string) error {
	path, err := s.path(sessionID, artifactID)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete artifact %q: %w", artifactID, err)
	}

	return nil
}

func (s *FSStore) path(sessionID, artifactID string) (string, error) {
	if err := validComponent(sessionID); err != nil {
		return "", err
	}
	if err := validComponent(artifactID); err != nil {
		return "", err
	}

	return filepath.Join(s.root, sessionID, artifactID), nil
}

func validComponent(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidID, name)
	}
	return nil
}

var _ core.ArtifactStore = (*FSStore)(nil)
var _ core.ArtifactStore = (*InMemoryStore)(nil)
