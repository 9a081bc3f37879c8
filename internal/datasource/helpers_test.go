package datasource

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/vanderheijden86/lazytree/pkg/model"
)

// sampleJSONL describes two contexts:
//
//	p1 ─ a ─ c
//	   └ b
//	p2 ─ d
const sampleJSONL = `{"id":"p1","title":"Project One"}
{"id":"a","parent_id":"p1","title":"Alpha","attributes":{"status":"open"}}
{"id":"b","parent_id":"p1","title":"Beta","attributes":{"status":"closed"}}
{"id":"c","parent_id":"a","title":"Gamma db","attributes":{"status":"open"}}
{"id":"p2","title":"Project Two"}
{"id":"d","parent_id":"p2","title":"Delta"}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func openSample(t *testing.T, opts ...Option) *JSONLSource {
	t.Helper()
	opts = append([]Option{WithWarningHandler(func(string) {})}, opts...)
	src, err := OpenJSONL(writeFile(t, "records.jsonl", sampleJSONL), opts...)
	if err != nil {
		t.Fatal(err)
	}
	return src
}

// createSQLite writes the sample hierarchy into a records table.
func createSQLite(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "records.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	stmts := []string{
		`CREATE TABLE records (id TEXT PRIMARY KEY, parent_id TEXT, title TEXT, icon TEXT, class TEXT, status TEXT)`,
		`INSERT INTO records (id, parent_id, title, status) VALUES
			('p1', NULL, 'Project One', ''),
			('a', 'p1', 'Alpha', 'open'),
			('b', 'p1', 'Beta_x', 'closed'),
			('c', 'a', 'Gamma db', 'open'),
			('p2', '', 'Project Two', ''),
			('d', 'p2', 'Delta', '')`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}
	return path
}

func ids(recs []model.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func assertIDs(t *testing.T, what string, got, want []string) {
	t.Helper()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("%s: got [%s], want [%s]", what, strings.Join(got, " "), strings.Join(want, " "))
	}
}

func byID(recs []model.Record, id string) model.Record {
	for _, r := range recs {
		if r.ID == id {
			return r
		}
	}
	return model.Record{}
}

var bg = context.Background()
