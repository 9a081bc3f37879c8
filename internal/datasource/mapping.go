package datasource

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vanderheijden86/lazytree/pkg/model"
)

// Mapping names the table and columns (or JSONL attributes) that carry each
// record field. Empty columns are not read.
type Mapping struct {
	Table          string
	IDColumn       string
	ParentColumn   string
	TitleColumn    string
	IconColumn     string
	ClassColumn    string
	ChildrenColumn string   // JSON array of child ids
	Extra          []string // copied into Record.Attributes
}

// DefaultMapping matches the column names of the bundled records schema.
func DefaultMapping() Mapping {
	return Mapping{
		Table:        "records",
		IDColumn:     "id",
		ParentColumn: "parent_id",
		TitleColumn:  "title",
		IconColumn:   "icon",
		ClassColumn:  "class",
	}
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate rejects identifiers that cannot be interpolated into SQL safely.
func (m Mapping) Validate() error {
	if m.Table == "" || m.IDColumn == "" {
		return fmt.Errorf("%w: table and id column are required", ErrInvalidMapping)
	}
	for _, name := range m.names() {
		if !identRe.MatchString(name) {
			return fmt.Errorf("%w: bad identifier %q", ErrInvalidMapping, name)
		}
	}
	return nil
}

func (m Mapping) names() []string {
	out := []string{m.Table, m.IDColumn}
	for _, c := range []string{m.ParentColumn, m.TitleColumn, m.IconColumn, m.ClassColumn, m.ChildrenColumn} {
		if c != "" {
			out = append(out, c)
		}
	}
	return append(out, m.Extra...)
}

// apply remaps attribute-carried fields of a JSONL record. Records that
// already use the canonical JSON names are returned unchanged.
func (m Mapping) apply(rec model.Record) model.Record {
	pick := func(col, canonical string, dst *string) {
		if col == "" || col == canonical || *dst != "" {
			return
		}
		if v, ok := rec.Attributes[col]; ok {
			*dst = v
		}
	}
	pick(m.ParentColumn, "parent_id", &rec.ParentID)
	pick(m.TitleColumn, "title", &rec.Title)
	pick(m.IconColumn, "icon", &rec.Icon)
	pick(m.ClassColumn, "class", &rec.Class)
	if m.ChildrenColumn != "" && m.ChildrenColumn != "child_ids" && len(rec.ChildIDs) == 0 {
		if v := rec.Attributes[m.ChildrenColumn]; v != "" {
			rec.ChildIDs = splitIDs(v)
		}
	}
	return rec
}

// splitIDs accepts a JSON array or a comma separated list.
func splitIDs(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "null" {
		return nil
	}
	if strings.HasPrefix(s, "[") {
		if ids, err := parseJSONStringArray(s); err == nil {
			return ids
		}
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
