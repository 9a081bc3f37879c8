//go:build ignore

// generate_testdata.go creates standard record sets for benchmarking and
// manual testing of lazytree.
// Usage: go run scripts/generate_testdata.go [output-dir]
//
// Creates (default output dir testdata/benchmark):
//
//	small.jsonl   (100 records)
//	medium.jsonl  (1000 records)
//	large.jsonl   (5000 records)
//	huge.jsonl    (20000 records)
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/lazytree/pkg/model"
	"github.com/vanderheijden86/lazytree/pkg/testutil"
)

type datasetSpec struct {
	name string
	size int
	desc string
}

var datasets = []datasetSpec{
	{"small", 100, "100 records - shallow forest, ~10% roots"},
	{"medium", 1000, "1000 records - random forest, ~5% roots"},
	{"large", 5000, "5000 records - random forest, ~2% roots"},
	{"huge", 20000, "20000 records - random forest, ~1% roots"},
}

func main() {
	outputDir := filepath.Join("testdata", "benchmark")
	if len(os.Args) > 1 {
		outputDir = os.Args[1]
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for _, ds := range datasets {
		fmt.Printf("Generating %s dataset (%d records)...\n", ds.name, ds.size)

		cfg := testutil.GeneratorConfig{
			Seed:         int64(ds.size), // Reproducible per-size
			IDPrefix:     "BENCH",
			KnownLeaves:  true,
			ClassMix:     []string{"folder", "open", "in_progress", "done", "blocked"},
			IncludeAttrs: true,
		}

		gen := testutil.New(cfg)
		f := gen.Random(ds.size, rootRate(ds.size))
		records := gen.ToRecords(f)
		addRealisticTitles(records)

		jsonl := testutil.ToJSONL(records)

		outputPath := filepath.Join(outputDir, ds.name+".jsonl")
		if err := os.WriteFile(outputPath, []byte(jsonl), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", outputPath, err)
			os.Exit(1)
		}

		fmt.Printf("  Written %s (%d bytes, %d roots)\n", outputPath, len(jsonl), f.Properties.Roots)
	}

	fmt.Println("\nDone! Record sets created in", outputDir)
}

// rootRate scales the share of roots inversely with size so trees stay deep.
func rootRate(size int) float64 {
	switch {
	case size <= 100:
		return 0.1
	case size <= 1000:
		return 0.05
	case size <= 5000:
		return 0.02
	default:
		return 0.01
	}
}

func addRealisticTitles(records []model.Record) {
	titles := []string{
		"Implement authentication flow",
		"Fix memory leak in cache",
		"Add API rate limiting",
		"Refactor database queries",
		"Update documentation",
		"Add unit tests for parser",
		"Optimize graph traversal",
		"Fix race condition in worker",
		"Add metrics dashboard",
		"Implement retry logic",
	}
	icons := []string{"📁", "📄", "🐛", "⚙"}

	for i := range records {
		records[i].Title = fmt.Sprintf("%s #%d", titles[i%len(titles)], i)
		records[i].Icon = icons[i%len(icons)]
	}
}
