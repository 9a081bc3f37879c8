package datasource

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/lazytree/pkg/metrics"
	"github.com/vanderheijden86/lazytree/pkg/model"
	"github.com/vanderheijden86/lazytree/pkg/tree"
)

// DefaultMaxBufferSize is the longest JSONL line accepted (10MB).
const DefaultMaxBufferSize = 1024 * 1024 * 10

// ParseOptions configures ParseRecords.
type ParseOptions struct {
	// WarningHandler receives messages about skipped lines. Nil discards them.
	WarningHandler func(string)

	// BufferSize caps the line length; longer lines are skipped.
	BufferSize int

	// Mapping remaps attribute-carried fields. The zero value leaves records as parsed.
	Mapping Mapping
}

// ParseRecords reads one JSON record per line. Malformed and invalid lines
// are skipped with a warning. A repeated id replaces the earlier record in
// place.
func ParseRecords(r io.Reader, opts ParseOptions) ([]model.Record, error) {
	maxCapacity := opts.BufferSize
	if maxCapacity <= 0 {
		maxCapacity = DefaultMaxBufferSize
	}
	warn := opts.WarningHandler
	if warn == nil {
		warn = func(string) {}
	}

	reader := bufio.NewReaderSize(r, maxCapacity)
	var records []model.Record
	pos := make(map[string]int)

	lineNum := 0
	for {
		lineNum++
		line, isPrefix, err := reader.ReadLine()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error reading records at line %d: %w", lineNum, err)
		}

		if isPrefix {
			warn(fmt.Sprintf("skipping line %d: line too long (exceeds %d bytes)", lineNum, maxCapacity))
			for isPrefix {
				_, isPrefix, err = reader.ReadLine()
				if err == io.EOF {
					break
				}
				if err != nil {
					return nil, fmt.Errorf("error skipping long line at line %d: %w", lineNum, err)
				}
			}
			continue
		}

		if lineNum == 1 {
			line = stripBOM(line)
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var rec model.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			warn(fmt.Sprintf("skipping malformed JSON on line %d: %v", lineNum, err))
			continue
		}
		rec = opts.Mapping.apply(rec)
		if err := rec.Validate(); err != nil {
			warn(fmt.Sprintf("skipping invalid record on line %d: %v", lineNum, err))
			continue
		}

		if i, dup := pos[rec.ID]; dup {
			warn(fmt.Sprintf("line %d: duplicate id %s replaces earlier record", lineNum, rec.ID))
			records[i] = rec
			continue
		}
		pos[rec.ID] = len(records)
		records = append(records, rec)
	}
	return records, nil
}

func stripBOM(b []byte) []byte {
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return b[3:]
	}
	return b
}

// JSONLSource serves records from a JSONL file held in memory. Reload
// re-reads the file and swaps the record set.
type JSONLSource struct {
	path string
	opts sourceOptions

	mu  sync.RWMutex
	idx *recordIndex
}

// OpenJSONL reads path and returns a source over its records.
func OpenJSONL(path string, opts ...Option) (*JSONLSource, error) {
	s := &JSONLSource{path: path, opts: buildOptions(opts)}
	records, err := s.read()
	if err != nil {
		return nil, err
	}
	s.idx = newRecordIndex(records)
	return s, nil
}

func (s *JSONLSource) read() ([]model.Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return nil, fmt.Errorf("failed to open records file: %w", err)
	}
	defer f.Close()
	return ParseRecords(f, ParseOptions{WarningHandler: s.opts.warn, Mapping: s.opts.mapping})
}

// Reload re-reads the file and reports what changed. On error the previous
// record set stays in place.
func (s *JSONLSource) Reload() (RecordDiff, error) {
	records, err := s.read()
	if err != nil {
		return RecordDiff{}, err
	}
	next := newRecordIndex(records)

	s.mu.Lock()
	prev := s.idx
	s.idx = next
	s.mu.Unlock()

	return DiffRecords(prev.records, next.records), nil
}

func (s *JSONLSource) index() *recordIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx
}

// Path returns the file being served.
func (s *JSONLSource) Path() string { return s.path }

// Len returns the number of records currently loaded.
func (s *JSONLSource) Len() int { return len(s.index().records) }

// LoadRoots returns the children of the context record as roots.
func (s *JSONLSource) LoadRoots(ctx context.Context, contextID string) ([]model.Record, error) {
	defer metrics.Timer(metrics.RootLoad)()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.index().roots(contextID, !s.opts.lazy), nil
}

// LoadChildren returns the direct children of parent.
func (s *JSONLSource) LoadChildren(ctx context.Context, parent tree.Entry) ([]model.Record, error) {
	defer metrics.Timer(metrics.ChildLoad)()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.index().childrenOf(parent.ID), nil
}

// Resolve returns the current version of id, or nil if it no longer exists.
func (s *JSONLSource) Resolve(ctx context.Context, id string) (*model.Record, error) {
	defer metrics.Timer(metrics.Resolve)()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx := s.index()
	r, ok := idx.get(id)
	if !ok {
		return nil, nil
	}
	out := idx.withChildState(r)
	return &out, nil
}

// Search matches query as a case-insensitive substring of title or id.
func (s *JSONLSource) Search(ctx context.Context, query string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.index().search(query), nil
}

// All returns every record.
func (s *JSONLSource) All(ctx context.Context) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	idx := s.index()
	out := make([]model.Record, len(idx.records))
	for i, r := range idx.records {
		out[i] = r.Clone()
	}
	return out, nil
}

// Contexts returns the top-level records, each a candidate context.
func (s *JSONLSource) Contexts(ctx context.Context) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.index().topLevel(), nil
}

// Close is a no-op; the file is not held open.
func (s *JSONLSource) Close() error { return nil }
