package navstate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// FileStore keeps one JSON document per context under a directory.
type FileStore struct {
	dir  string
	opts options
}

// NewFileStore returns a store rooted at dir. The directory is created on
// first write.
func NewFileStore(dir string, opts ...Option) *FileStore {
	return &FileStore{dir: dir, opts: buildOptions(opts)}
}

// Path returns the file used for contextID.
func (f *FileStore) Path(contextID string) string {
	return filepath.Join(f.dir, "tree-state-"+escapeKey(contextID)+".json")
}

// Read loads the snapshot for contextID. Missing or corrupted files are
// reported as absent; corruption is logged.
func (f *FileStore) Read(_ context.Context, contextID string) (*NavState, error) {
	data, err := os.ReadFile(f.Path(contextID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading nav state: %w", err)
	}
	s, err := Decode(data)
	if err != nil {
		log.Printf("warning: ignoring nav state for %s: %v", contextID, err)
		return nil, nil
	}
	return f.opts.fresh(s), nil
}

// Write replaces the snapshot atomically (temp file + rename).
func (f *FileStore) Write(_ context.Context, state NavState) error {
	if state.ContextID == "" {
		return ErrEmptyContext
	}
	data, err := Encode(state)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	path := f.Path(state.ContextID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing nav state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("writing nav state: %w", err)
	}
	return nil
}
