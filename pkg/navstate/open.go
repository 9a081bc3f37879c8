package navstate

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendDiskv    = "diskv"
)

// Open builds a Persister for the named backend. location is a directory
// for file and diskv, a database path for sqlite and a DSN for postgres.
func Open(ctx context.Context, backend, location string, opts ...Option) (Persister, error) {
	switch strings.ToLower(backend) {
	case "", BackendFile:
		return NewFileStore(location, opts...), nil
	case BackendMemory:
		return NewMemoryStore(opts...), nil
	case BackendSQLite:
		if filepath.Ext(location) == "" {
			location = filepath.Join(location, "nav_state.db")
		}
		return OpenSQLite(location, opts...)
	case BackendPostgres:
		return OpenPostgres(ctx, location, opts...)
	case BackendDiskv:
		return NewDiskvStore(location, opts...), nil
	}
	return nil, fmt.Errorf("unknown state backend %q", backend)
}
