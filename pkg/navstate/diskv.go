package navstate

import (
	"context"
	"fmt"
	"log"

	"github.com/peterbourgon/diskv/v3"
)

// DiskvStore keeps snapshots in a diskv key/value directory with a small
// in-memory read cache.
type DiskvStore struct {
	d    *diskv.Diskv
	opts options
}

// NewDiskvStore creates a store rooted at basePath.
func NewDiskvStore(basePath string, opts ...Option) *DiskvStore {
	return &DiskvStore{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			Transform:    func(string) []string { return []string{} },
			CacheSizeMax: 256 * 1024,
		}),
		opts: buildOptions(opts),
	}
}

// Read returns the snapshot for contextID.
func (s *DiskvStore) Read(_ context.Context, contextID string) (*NavState, error) {
	key := escapeKey(contextID)
	if !s.d.Has(key) {
		return nil, nil
	}
	data, err := s.d.Read(key)
	if err != nil {
		return nil, fmt.Errorf("reading nav state: %w", err)
	}
	st, err := Decode(data)
	if err != nil {
		log.Printf("warning: ignoring nav state for %s: %v", contextID, err)
		return nil, nil
	}
	return s.opts.fresh(st), nil
}

// Write stores the snapshot under the escaped context id.
func (s *DiskvStore) Write(_ context.Context, state NavState) error {
	if state.ContextID == "" {
		return ErrEmptyContext
	}
	data, err := Encode(state)
	if err != nil {
		return err
	}
	if err := s.d.Write(escapeKey(state.ContextID), data); err != nil {
		return fmt.Errorf("writing nav state: %w", err)
	}
	return nil
}

// Erase drops the snapshot for contextID.
func (s *DiskvStore) Erase(contextID string) error {
	key := escapeKey(contextID)
	if !s.d.Has(key) {
		return nil
	}
	return s.d.Erase(key)
}
