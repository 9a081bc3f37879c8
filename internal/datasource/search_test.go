package datasource

import (
	"context"
	"errors"
	"testing"

	"github.com/vanderheijden86/lazytree/pkg/model"
)

func TestExprSearcher(t *testing.T) {
	s := NewExprSearcher(openSample(t))
	tests := []struct {
		query string
		want  []string
	}{
		{`status == "open"`, []string{"a", "c"}},
		{`title contains "db"`, []string{"c"}},
		{`attrs.status == "closed" || id == "d"`, []string{"b", "d"}},
		{`parent_id == "p1" && status != "closed"`, []string{"a"}},
		{"Gamma db", []string{"c"}}, // not an expression
		{"delta", []string{"d"}},    // never evaluates to a bool
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := s.Search(context.Background(), tt.query)
			if err != nil {
				t.Fatal(err)
			}
			assertIDs(t, tt.query, got, tt.want)
		})
	}
}

type failingLister struct{}

func (failingLister) All(context.Context) ([]model.Record, error) {
	return nil, errors.New("boom")
}

func TestExprSearcherListError(t *testing.T) {
	if _, err := NewExprSearcher(failingLister{}).Search(context.Background(), "x"); err == nil {
		t.Fatal("expected list error to surface")
	}
}

func TestExprSearcherCachesPrograms(t *testing.T) {
	s := NewExprSearcher(openSample(t))
	for i := 0; i < 3; i++ {
		if _, err := s.Search(context.Background(), `status == "open"`); err != nil {
			t.Fatal(err)
		}
	}
	if len(s.cache) != 1 {
		t.Fatalf("expected one cached program, got %d", len(s.cache))
	}
}
