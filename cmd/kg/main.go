package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/vanderheijden86/kgview/internal/datasource"
	"github.com/vanderheijden86/kgview/pkg/config"
	"github.com/vanderheijden86/kgview/pkg/debug"
	"github.com/vanderheijden86/kgview/pkg/export"
	"github.com/vanderheijden86/kgview/pkg/loader"
	"github.com/vanderheijden86/kgview/pkg/metrics"
	"github.com/vanderheijden86/kgview/pkg/model"
	"github.com/vanderheijden86/kgview/pkg/tui"
	"github.com/vanderheijden86/kgview/pkg/version"
	"github.com/vanderheijden86/kgview/pkg/view"
	"github.com/vanderheijden86/kgview/pkg/watcher"
)

// listFlag collects a repeatable flag. Comma-separated values are split.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			*l = append(*l, p)
		}
	}
	return nil
}

func main() {
	var graphs, masteries listFlag
	flag.Var(&graphs, "graph", "Graph document path or URL (repeatable, first that loads wins)")
	flag.Var(&masteries, "mastery", "Mastery scores: JSON file, SQLite database or URL (repeatable)")
	configPath := flag.String("config", "", "Config file (default: $XDG_CONFIG_HOME/kg/config.yaml)")
	exportPath := flag.String("export", "", "Write a snapshot to this path (.png or .svg) and exit")
	format := flag.String("format", "", "Snapshot format: png or svg (default: from the extension)")
	title := flag.String("title", "", "Snapshot title")
	level := flag.String("level", "", "Snapshot level: overview, detailed or complete")
	width := flag.Int("width", 0, "Snapshot width in pixels (default: canvas width from config)")
	height := flag.Int("height", 0, "Snapshot height in pixels (default: canvas height from config)")
	showMastery := flag.Bool("show-mastery", false, "Color nodes by mastery")
	noSummary := flag.Bool("no-summary", false, "Omit the summary caption from snapshots")
	wizard := flag.Bool("wizard", false, "Choose snapshot settings interactively")
	seed := flag.Int64("seed", 0, "Seed for laying out unpositioned topics (0 = random)")
	noWatch := flag.Bool("no-watch", false, "Do not reload when data files change")
	cpuProfile := flag.String("cpu-profile", "", "Write CPU profile to file")
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	if *help {
		fmt.Println("Usage: kg [options]")
		fmt.Println("\nAn interactive viewer for knowledge graphs.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("kg %s\n", version.Version)
		os.Exit(0)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		// Non-fatal: continue with defaults
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		cfg = config.DefaultConfig()
	}
	if *seed != 0 {
		cfg.Layout.Seed = *seed
	}
	if len(graphs) == 0 {
		graphs = cfg.Data.Graph
	}
	if len(masteries) == 0 {
		masteries = cfg.Data.Mastery
	}

	ms := masterySource(masteries)
	ctx, cancel := context.WithTimeout(context.Background(), loader.DefaultTimeout)
	res, loadErr := loader.New().LoadAll(ctx, graphs, ms)
	cancel()
	if loadErr != nil {
		fmt.Fprintf(os.Stderr, "Error loading graph: %v\n", loadErr)
		if *exportPath != "" || *wizard {
			os.Exit(1)
		}
		// The viewer still starts and shows the load failure.
	}
	if res.MasteryErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: mastery unavailable: %v\n", res.MasteryErr)
	}

	if *exportPath != "" || *wizard {
		opts := export.SnapshotOptions{
			Path:        *exportPath,
			Format:      *format,
			Title:       *title,
			Width:       firstPositive(*width, cfg.Canvas.Width),
			Height:      firstPositive(*height, cfg.Canvas.Height),
			Document:    res.Document,
			Level:       model.Level(*level),
			Mastery:     res.Mastery,
			ShowMastery: *showMastery || cfg.Features.MasteryOverlay,
			NoSummary:   *noSummary,
			Seed:        cfg.Layout.Seed,
		}
		if style, err := cfg.Style(); err == nil {
			opts.Style = style
		}
		w := export.NewWizard(res.Document, cfg)
		if *wizard {
			chosen, err := w.Run()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			chosen.Mastery, chosen.NoSummary, chosen.Seed = opts.Mastery, opts.NoSummary, opts.Seed
			opts = chosen
		}
		out, err := export.SaveSnapshot(opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting snapshot: %v\n", err)
			os.Exit(1)
		}
		w.PrintSuccess(out)
		if os.Getenv("KG_METRICS") == "1" {
			_ = metrics.WriteReport(os.Stderr)
		}
		os.Exit(0)
	}

	vo, err := viewOptions(cfg, *showMastery)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	vo.Mastery = res.Mastery

	topts := tui.Options{
		Document:      res.Document,
		LoadErr:       loadErr,
		Source:        res.Source,
		MasterySource: ms,
		View:          vo,
		ExportPath:    firstNonEmpty(*exportPath, "graph.png"),
		ExportWidth:   cfg.Canvas.Width,
		ExportHeight:  cfg.Canvas.Height,
	}

	if !*noWatch {
		if paths := watchPaths(res.Source, masteries); len(paths) > 0 {
			w, err := watcher.New(paths)
			if err == nil {
				err = w.Start()
			}
			if err != nil {
				debug.Log("watcher disabled: %v", err)
			} else {
				defer w.Stop()
				topts.Watcher = w
			}
		}
	}

	if err := tui.Run(topts); err != nil {
		fmt.Printf("Error running kg: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

// masterySource picks the reader for the given locations: a URL is fetched
// directly, local paths go through source discovery.
func masterySource(locations []string) loader.MasterySource {
	switch {
	case len(locations) == 0:
		return nil
	case len(locations) == 1 && loader.IsURL(locations[0]):
		return loader.FileMastery{Location: locations[0]}
	}
	var paths []string
	for _, l := range locations {
		if !loader.IsURL(l) {
			paths = append(paths, l)
		}
	}
	if len(paths) == 0 {
		return loader.FileMastery{Location: locations[0]}
	}
	return datasource.Mastery{Paths: paths, Logger: func(msg string) { debug.Log("%s", msg) }}
}

// viewOptions maps the config onto view options.
func viewOptions(cfg config.Config, showMastery bool) (view.Options, error) {
	vo := view.DefaultOptions()
	vo.EnableLOD = cfg.Features.LOD
	vo.EnableAnimation = cfg.Features.Animation
	vo.EnableMasteryOverlay = cfg.Features.MasteryOverlay || showMastery
	vo.EnableLoop = cfg.Features.FrameLoop
	vo.Thresholds = cfg.Thresholds()
	vo.Viewport = cfg.ViewportOptions()
	vo.FitPadding = cfg.Viewport.FitPadding
	vo.BuildLevels = cfg.LOD.BuildLevels
	vo.Fractions = cfg.Fractions()
	vo.Layout = cfg.LayoutEngine()
	style, err := cfg.Style()
	vo.Style = style
	return vo, err
}

// watchPaths lists local files worth watching. URLs are skipped.
func watchPaths(source string, masteries []string) []string {
	var paths []string
	seen := make(map[string]bool)
	for _, p := range append([]string{source}, masteries...) {
		if p == "" || loader.IsURL(p) || seen[p] {
			continue
		}
		seen[p] = true
		paths = append(paths, p)
	}
	return paths
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
