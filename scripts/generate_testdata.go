//go:build ignore

// generate_testdata.go creates graph documents for benchmarking the viewer.
// Usage: go run scripts/generate_testdata.go
//
// Creates:
//
//	testdata/benchmark/small.json   (100 topics)
//	testdata/benchmark/medium.json  (1000 topics)
//	testdata/benchmark/large.json   (5000 topics)
//	testdata/benchmark/huge.json    (20000 topics)
//
// Large documents also carry overview and detailed levels built from the
// flat graph, the same way the viewer builds them at load time.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/kgview/pkg/lod"
	"github.com/vanderheijden86/kgview/pkg/model"
	"github.com/vanderheijden86/kgview/pkg/testutil"
)

type datasetSpec struct {
	name       string
	size       int
	withLevels bool
}

var datasets = []datasetSpec{
	{"small", 100, false},
	{"medium", 1000, false},
	{"large", 5000, true},
	{"huge", 20000, true},
}

var strands = []string{"Algebra", "Geometry", "Calculus", "Statistics", "Number Sense"}

// document is the on-disk shape read by pkg/loader.
type document struct {
	model.Graph
	Levels   map[model.Level]*model.Graph `json:"levels,omitempty"`
	Metadata model.Metadata               `json:"metadata"`
}

func main() {
	outputDir := "testdata/benchmark"
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for _, ds := range datasets {
		fmt.Printf("Generating %s dataset (%d topics)...\n", ds.name, ds.size)

		gen := testutil.New(testutil.GeneratorConfig{
			Seed:        int64(ds.size), // reproducible per size
			Groups:      strands,
			Description: true,
		})
		gf := gen.RandomDAG(ds.size, calculateDensity(ds.size))
		doc := gen.ToDocument(gf)
		if ds.withLevels {
			doc.Levels = lod.Build(doc.Graph, lod.DefaultFractions())
		}

		out := document{
			Graph:    *doc.Graph,
			Levels:   doc.Levels,
			Metadata: doc.Metadata,
		}
		out.Metadata.GeneratedAt = time.Now().UTC().Format(time.RFC3339)

		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode %s: %v\n", ds.name, err)
			os.Exit(1)
		}
		outputPath := filepath.Join(outputDir, ds.name+".json")
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", outputPath, err)
			os.Exit(1)
		}

		fmt.Printf("  Written %s (%d bytes, %d edges, %d levels)\n", outputPath, len(data), len(gf.Edges), len(out.Levels))
	}

	fmt.Println("\nDone! Test datasets created in", outputDir)
}

func calculateDensity(size int) float64 {
	// Keep the edge count in a range the force layout handles.
	switch {
	case size <= 100:
		return 0.05
	case size <= 1000:
		return 0.005
	case size <= 5000:
		return 0.001
	default:
		return 0.0003
	}
}
