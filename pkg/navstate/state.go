// Package navstate persists per-context navigation state (expanded and
// selected keys) for the tree store.
//
// File format (JSON, one document per context):
//
//	{
//	  "version": 1,
//	  "context_id": "proj-1",
//	  "expanded_keys": ["a", "b"],
//	  "selected_keys": ["b"],
//	  "last_update": "2026-01-02T15:04:05Z",
//	  "snapshot_id": "5f0c..."
//	}
//
// Backends: MemoryStore, FileStore, SQLStore (sqlite, postgres) and
// DiskvStore. All of them treat missing, corrupted or expired snapshots as
// absent (Read returns nil, nil) so callers degrade to defaults.
package navstate

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// StateVersion is the current schema version of NavState.
const StateVersion = 1

// Common errors.
var (
	ErrEmptyContext = errors.New("navstate: context id is empty")
	ErrClosed       = errors.New("navstate: store is closed")
)

// NavState is the serializable navigation snapshot for one context.
type NavState struct {
	Version      int       `json:"version"`
	ContextID    string    `json:"context_id"`
	ExpandedKeys []string  `json:"expanded_keys"`
	SelectedKeys []string  `json:"selected_keys"`
	UpdatedAt    time.Time `json:"last_update"`
	SnapshotID   string    `json:"snapshot_id,omitempty"`
}

// Persister reads and writes NavState snapshots keyed by context id.
// Read returns nil, nil when no usable snapshot exists.
type Persister interface {
	Read(ctx context.Context, contextID string) (*NavState, error)
	Write(ctx context.Context, state NavState) error
}

// New stamps a snapshot for contextID with a fresh snapshot id.
func New(contextID string, expanded, selected []string) NavState {
	return NavState{
		Version:      StateVersion,
		ContextID:    contextID,
		ExpandedKeys: append([]string(nil), expanded...),
		SelectedKeys: append([]string(nil), selected...),
		UpdatedAt:    time.Now().UTC(),
		SnapshotID:   uuid.NewString(),
	}
}

// Filter keeps only keys for which present returns true, dropping
// duplicates and empty keys. Stale snapshots referencing deleted ids shrink
// to their valid subset instead of being rejected.
func (s NavState) Filter(present func(id string) bool) NavState {
	out := s
	out.ExpandedKeys = filterKeys(s.ExpandedKeys, present)
	out.SelectedKeys = filterKeys(s.SelectedKeys, present)
	return out
}

func filterKeys(keys []string, present func(string) bool) []string {
	if len(keys) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" || seen[k] || !present(k) {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// Expired reports whether the snapshot is older than ttl. A non-positive
// ttl never expires.
func (s NavState) Expired(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 || s.UpdatedAt.IsZero() {
		return false
	}
	return now.Sub(s.UpdatedAt) > ttl
}

// Encode serializes a snapshot.
func Encode(s NavState) ([]byte, error) {
	if s.Version == 0 {
		s.Version = StateVersion
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling nav state: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot. Unknown future versions are rejected so that a
// newer schema is never half-applied.
func Decode(data []byte) (*NavState, error) {
	var s NavState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing nav state: %w", err)
	}
	if s.Version > StateVersion {
		return nil, fmt.Errorf("parsing nav state: unsupported version %d", s.Version)
	}
	return &s, nil
}

// Option configures a store.
type Option func(*options)

type options struct {
	ttl time.Duration
	now func() time.Time
}

// WithTTL makes snapshots older than d read as absent.
func WithTTL(d time.Duration) Option {
	return func(o *options) { o.ttl = d }
}

// WithClock overrides the time source used for TTL checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// fresh applies the TTL policy to a decoded snapshot.
func (o options) fresh(s *NavState) *NavState {
	if s == nil || s.Expired(o.ttl, o.now()) {
		return nil
	}
	return s
}

// escapeKey turns a context id into a filesystem/key-safe token.
func escapeKey(contextID string) string {
	return url.PathEscape(contextID)
}
