// Package datasource loads hierarchical records for the tree store from
// SQLite databases and JSONL files. It discovers candidate files, validates
// them, picks the freshest usable one and serves it through the tree's
// loader, resolver and searcher interfaces.
package datasource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// SourceType identifies the type of data source.
type SourceType string

const (
	SourceTypeSQLite SourceType = "sqlite"
	SourceTypeJSONL  SourceType = "jsonl"
)

// Priority values for source types (higher = more authoritative).
const (
	PrioritySQLite = 100
	PriorityJSONL  = 50
)

// Errors returned by discovery and Open.
var (
	ErrNotFound          = errors.New("source not found")
	ErrNoSources         = errors.New("no valid sources discovered")
	ErrUnknownSourceType = errors.New("unknown source type")
	ErrInvalidMapping    = errors.New("invalid mapping")
)

var sqliteMagic = []byte("SQLite format 3\x00")

// DataSource describes a candidate file.
type DataSource struct {
	Type            SourceType `json:"type"`
	Path            string     `json:"path"`
	Priority        int        `json:"priority"`
	ModTime         time.Time  `json:"mod_time"`
	Size            int64      `json:"size"`
	Valid           bool       `json:"valid"`
	ValidationError string     `json:"validation_error,omitempty"`
	RecordCount     int        `json:"record_count"`
}

// String returns a human-readable description of the source.
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, records=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.RecordCount, status)
}

// Detect classifies a single file by its header, falling back to the
// extension.
func Detect(path string) (DataSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DataSource{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return DataSource{}, err
	}
	if info.IsDir() {
		return DataSource{}, fmt.Errorf("%s is a directory", path)
	}
	ds := DataSource{Path: path, ModTime: info.ModTime(), Size: info.Size()}

	header := make([]byte, len(sqliteMagic))
	if f, err := os.Open(path); err == nil {
		n, _ := io.ReadFull(f, header)
		f.Close()
		header = header[:n]
	}
	switch {
	case bytes.Equal(header, sqliteMagic):
		ds.Type, ds.Priority = SourceTypeSQLite, PrioritySQLite
	case strings.HasSuffix(path, ".jsonl") || strings.HasSuffix(path, ".ndjson"):
		ds.Type, ds.Priority = SourceTypeJSONL, PriorityJSONL
	case isSQLiteExt(path):
		// Empty or not-yet-initialised database file.
		ds.Type, ds.Priority = SourceTypeSQLite, PrioritySQLite
	default:
		return ds, fmt.Errorf("%w: %s", ErrUnknownSourceType, path)
	}
	return ds, nil
}

func isSQLiteExt(path string) bool {
	switch filepath.Ext(path) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// DiscoverSources lists the candidate files directly inside dir, freshest
// first. Backups and merge artifacts are skipped.
func DiscoverSources(dir string) ([]DataSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read source directory: %w", err)
	}
	var sources []DataSource
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.Contains(name, ".backup") || strings.Contains(name, ".orig") ||
			strings.Contains(name, ".merge") || strings.HasPrefix(name, ".") {
			continue
		}
		if !isSQLiteExt(name) && !strings.HasSuffix(name, ".jsonl") && !strings.HasSuffix(name, ".ndjson") {
			continue
		}
		ds, err := Detect(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		sources = append(sources, ds)
	}
	sortSources(sources)
	return sources, nil
}

func sortSources(sources []DataSource) {
	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})
}

// ValidateSource opens the source and counts its records, recording the
// outcome on s.
func ValidateSource(ctx context.Context, s *DataSource, opts ...Option) error {
	src, err := Open(ctx, *s, opts...)
	if err != nil {
		s.Valid = false
		s.ValidationError = err.Error()
		return err
	}
	defer src.Close()
	records, err := src.All(ctx)
	if err != nil {
		s.Valid = false
		s.ValidationError = err.Error()
		return err
	}
	s.Valid = true
	s.ValidationError = ""
	s.RecordCount = len(records)
	return nil
}

// ValidateSources validates every source concurrently. Individual failures
// are recorded on the sources; only context cancellation is returned.
func ValidateSources(ctx context.Context, sources []DataSource, opts ...Option) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range sources {
		g.Go(func() error {
			_ = ValidateSource(gctx, &sources[i], opts...)
			return gctx.Err()
		})
	}
	return g.Wait()
}

// SelectBestSource returns the freshest valid source. Equal timestamps are
// resolved by priority.
func SelectBestSource(sources []DataSource) (DataSource, error) {
	var valid []DataSource
	for _, s := range sources {
		if s.Valid {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return DataSource{}, ErrNoSources
	}
	sortSources(valid)
	return valid[0], nil
}
