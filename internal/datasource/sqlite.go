package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/lazytree/pkg/metrics"
	"github.com/vanderheijden86/lazytree/pkg/model"
	"github.com/vanderheijden86/lazytree/pkg/tree"
)

// SQLiteSource serves records from a table described by a Mapping.
type SQLiteSource struct {
	db    *sql.DB
	path  string
	m     Mapping
	opts  sourceOptions
	group singleflight.Group

	cols string // select list shared by every query
}

// OpenSQLite opens a database read-only.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteSource, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	s, err := NewSQLiteSource(ctx, db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.path = path
	return s, nil
}

// NewSQLiteSource wraps an open database. The mapped table must exist.
func NewSQLiteSource(ctx context.Context, db *sql.DB, opts ...Option) (*SQLiteSource, error) {
	o := buildOptions(opts)
	if err := o.mapping.Validate(); err != nil {
		return nil, err
	}
	s := &SQLiteSource{db: db, m: o.mapping, opts: o}
	s.cols = s.selectList()
	if _, err := s.Count(ctx); err != nil {
		return nil, fmt.Errorf("table %s not readable: %w", s.m.Table, err)
	}
	return s, nil
}

func textCol(col string) string {
	if col == "" {
		return "''"
	}
	return fmt.Sprintf("COALESCE(CAST(t.%s AS TEXT), '')", col)
}

func (s *SQLiteSource) selectList() string {
	m := s.m
	cols := []string{
		textCol(m.IDColumn),
		textCol(m.ParentColumn),
		textCol(m.TitleColumn),
		textCol(m.IconColumn),
		textCol(m.ClassColumn),
		textCol(m.ChildrenColumn),
	}
	for _, e := range m.Extra {
		cols = append(cols, textCol(e))
	}
	var has string
	switch {
	case m.ParentColumn != "":
		has = fmt.Sprintf("EXISTS (SELECT 1 FROM %s c WHERE c.%s = t.%s)", m.Table, m.ParentColumn, m.IDColumn)
	case m.ChildrenColumn != "":
		has = fmt.Sprintf("(COALESCE(t.%s, '') NOT IN ('', '[]', 'null'))", m.ChildrenColumn)
	default:
		has = "0"
	}
	return strings.Join(append(cols, has), ", ")
}

func (s *SQLiteSource) query(ctx context.Context, where string, args ...any) ([]model.Record, error) {
	q := fmt.Sprintf("SELECT %s FROM %s t", s.cols, s.m.Table)
	if where != "" {
		q += " WHERE " + where
	}
	q += " ORDER BY t.rowid"
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.m.Table, err)
	}
	defer rows.Close()
	return s.scan(rows)
}

func (s *SQLiteSource) scan(rows *sql.Rows) ([]model.Record, error) {
	var out []model.Record
	for rows.Next() {
		var rec model.Record
		var children string
		var has bool
		extra := make([]string, len(s.m.Extra))
		dest := []any{&rec.ID, &rec.ParentID, &rec.Title, &rec.Icon, &rec.Class, &children}
		for i := range extra {
			dest = append(dest, &extra[i])
		}
		dest = append(dest, &has)
		if err := rows.Scan(dest...); err != nil {
			s.opts.warn(fmt.Sprintf("skipping unreadable row in %s: %v", s.m.Table, err))
			continue
		}
		rec.ChildIDs = splitIDs(children)
		rec.HasChildren = model.Bool(has)
		if len(extra) > 0 {
			rec.Attributes = make(map[string]string, len(extra))
			for i, name := range s.m.Extra {
				rec.Attributes[name] = extra[i]
			}
		}
		if err := rec.Validate(); err != nil {
			s.opts.warn(fmt.Sprintf("skipping invalid row in %s: %v", s.m.Table, err))
			continue
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", s.m.Table, err)
	}
	return out, nil
}

func (s *SQLiteSource) col(name string) string { return "t." + name }

func (s *SQLiteSource) topLevelWhere() string {
	p, id := s.col(s.m.ParentColumn), s.m.IDColumn
	return fmt.Sprintf("%s IS NULL OR %s = '' OR NOT EXISTS (SELECT 1 FROM %s p WHERE p.%s = %s)",
		p, p, s.m.Table, id, p)
}

func (s *SQLiteSource) byIDs(ctx context.Context, ids []string) ([]model.Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	marks := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	recs, err := s.query(ctx, fmt.Sprintf("%s IN (%s)", s.col(s.m.IDColumn), marks), args...)
	if err != nil {
		return nil, err
	}
	// Keep the order of the id list.
	pos := make(map[string]model.Record, len(recs))
	for _, r := range recs {
		pos[r.ID] = r
	}
	out := make([]model.Record, 0, len(recs))
	for _, id := range ids {
		if r, ok := pos[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *SQLiteSource) childrenOf(ctx context.Context, id string) ([]model.Record, error) {
	if s.m.ParentColumn != "" {
		return s.query(ctx, s.col(s.m.ParentColumn)+" = ?", id)
	}
	parent, err := s.get(ctx, id)
	if err != nil || parent == nil {
		return nil, err
	}
	return s.byIDs(ctx, parent.ChildIDs)
}

// subtree returns all descendants of the given records, breadth first.
func (s *SQLiteSource) subtree(ctx context.Context, top []model.Record) ([]model.Record, error) {
	if s.m.ParentColumn != "" && len(top) > 0 {
		return s.subtreeCTE(ctx, top)
	}
	seen := make(map[string]bool, len(top))
	for _, r := range top {
		seen[r.ID] = true
	}
	var out []model.Record
	queue := top
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		kids, err := s.childrenOf(ctx, next.ID)
		if err != nil {
			return nil, err
		}
		for _, k := range kids {
			if seen[k.ID] {
				continue
			}
			seen[k.ID] = true
			out = append(out, k)
			queue = append(queue, k)
		}
	}
	return out, nil
}

// subtreeCTE walks descendants in one recursive query. UNION on the id
// column alone terminates on cyclic parent links.
func (s *SQLiteSource) subtreeCTE(ctx context.Context, top []model.Record) ([]model.Record, error) {
	marks := strings.TrimSuffix(strings.Repeat("?,", len(top)), ",")
	args := make([]any, len(top))
	seen := make(map[string]bool, len(top))
	for i, r := range top {
		args[i] = r.ID
		seen[r.ID] = true
	}
	m := s.m
	q := fmt.Sprintf(`WITH RECURSIVE sub(id) AS (
	SELECT %[2]s FROM %[1]s WHERE %[3]s IN (%[4]s)
	UNION
	SELECT c.%[2]s FROM %[1]s c JOIN sub ON c.%[3]s = sub.id
)
SELECT %[5]s FROM %[1]s t JOIN sub ON t.%[2]s = sub.id ORDER BY t.rowid`,
		m.Table, m.IDColumn, m.ParentColumn, marks, s.cols)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s subtree: %w", m.Table, err)
	}
	defer rows.Close()
	recs, err := s.scan(rows)
	if err != nil {
		return nil, err
	}
	out := recs[:0]
	for _, r := range recs {
		if !seen[r.ID] {
			seen[r.ID] = true
			out = append(out, r)
		}
	}
	return out, nil
}

// LoadRoots returns the children of the context record, marked Root. In
// eager mode their descendants follow.
func (s *SQLiteSource) LoadRoots(ctx context.Context, contextID string) ([]model.Record, error) {
	defer metrics.Timer(metrics.RootLoad)()
	var top []model.Record
	var err error
	switch {
	case contextID == AllContext && s.m.ParentColumn != "":
		top, err = s.query(ctx, s.topLevelWhere())
	case contextID == AllContext:
		top, err = s.All(ctx)
	default:
		top, err = s.childrenOf(ctx, contextID)
	}
	if err != nil {
		return nil, err
	}
	for i := range top {
		top[i].Root = true
	}
	if s.opts.lazy {
		return top, nil
	}
	rest, err := s.subtree(ctx, top)
	if err != nil {
		return nil, err
	}
	return append(top, rest...), nil
}

// LoadChildren returns the direct children of parent.
func (s *SQLiteSource) LoadChildren(ctx context.Context, parent tree.Entry) ([]model.Record, error) {
	defer metrics.Timer(metrics.ChildLoad)()
	if s.m.ParentColumn == "" && len(parent.ChildIDs) > 0 {
		return s.byIDs(ctx, parent.ChildIDs)
	}
	return s.childrenOf(ctx, parent.ID)
}

func (s *SQLiteSource) get(ctx context.Context, id string) (*model.Record, error) {
	recs, err := s.query(ctx, s.col(s.m.IDColumn)+" = ?", id)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

// Resolve re-reads one record; concurrent calls for the same id share a
// query. A missing row resolves to nil.
func (s *SQLiteSource) Resolve(ctx context.Context, id string) (*model.Record, error) {
	defer metrics.Timer(metrics.Resolve)()
	v, err, _ := s.group.Do(id, func() (any, error) {
		return s.get(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	rec, _ := v.(*model.Record)
	if rec == nil {
		return nil, nil
	}
	out := rec.Clone()
	return &out, nil
}

// Search matches query as a substring of title or id (LIKE, ASCII case
// insensitive).
func (s *SQLiteSource) Search(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	pattern := "%" + escapeLike(query) + "%"
	where := fmt.Sprintf(`%s LIKE ? ESCAPE '\'`, s.col(s.m.IDColumn))
	args := []any{pattern}
	if s.m.TitleColumn != "" {
		where = fmt.Sprintf(`%s LIKE ? ESCAPE '\' OR %s`, s.col(s.m.TitleColumn), where)
		args = append(args, pattern)
	}
	recs, err := s.query(ctx, where, args...)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// All returns every row.
func (s *SQLiteSource) All(ctx context.Context) ([]model.Record, error) {
	return s.query(ctx, "")
}

// Contexts returns the top-level records.
func (s *SQLiteSource) Contexts(ctx context.Context) ([]model.Record, error) {
	if s.m.ParentColumn == "" {
		return s.All(ctx)
	}
	return s.query(ctx, s.topLevelWhere())
}

// Count returns the number of rows in the mapped table.
func (s *SQLiteSource) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.m.Table)).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

// Path returns the database file, empty for wrapped handles.
func (s *SQLiteSource) Path() string { return s.path }

// Close closes the database.
func (s *SQLiteSource) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func parseJSONStringArray(s string) ([]string, error) {
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}
