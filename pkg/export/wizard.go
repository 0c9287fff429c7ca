// Package export writes static snapshots of a knowledge graph.
//
// This file implements the interactive export wizard behind the -wizard
// flag. It asks for format, destination and level, and remembers the answers
// for the next run.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/goccy/go-json"
	"golang.org/x/term"

	"github.com/vanderheijden86/kgview/pkg/config"
	"github.com/vanderheijden86/kgview/pkg/model"
)

// WizardConfig holds the answers collected by the wizard.
type WizardConfig struct {
	Format      string `json:"format"`
	OutputPath  string `json:"output_path"`
	Title       string `json:"title,omitempty"`
	Level       string `json:"level,omitempty"`
	ShowMastery bool   `json:"show_mastery,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

// Wizard handles the interactive export flow.
type Wizard struct {
	config    *WizardConfig
	doc       *model.Document
	out       io.Writer
	statePath string
}

// NewWizard creates a wizard for doc. Canvas size defaults come from cfg.
func NewWizard(doc *model.Document, cfg config.Config) *Wizard {
	return &Wizard{
		config: &WizardConfig{
			Format:     "png",
			OutputPath: "graph.png",
			Title:      "Knowledge Graph",
			Level:      string(model.LevelComplete),
			Width:      cfg.Canvas.Width,
			Height:     cfg.Canvas.Height,
		},
		doc:       doc,
		out:       os.Stdout,
		statePath: WizardConfigPath(),
	}
}

// SetOutput redirects the wizard's prose; forms still use the terminal.
func (w *Wizard) SetOutput(out io.Writer) { w.out = out }

// isTerminal checks if stdin is connected to a terminal
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form with appropriate settings based on TTY detection
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// Run executes the interactive flow and returns the snapshot options to use.
func (w *Wizard) Run() (SnapshotOptions, error) {
	w.printBanner()

	saved, err := LoadWizardConfig(w.statePath)
	if err == nil && saved != nil && saved.OutputPath != "" {
		useSaved, err := w.offerSavedConfig(saved)
		if err != nil {
			return SnapshotOptions{}, err
		}
		if useSaved {
			w.config = saved
			return w.Options(), nil
		}
	}

	if err := w.collectOptions(); err != nil {
		return SnapshotOptions{}, err
	}
	if err := SaveWizardConfig(w.statePath, w.config); err != nil {
		fmt.Fprintf(w.out, "Warning: could not remember export settings: %v\n", err)
	}
	return w.Options(), nil
}

// GetConfig returns the collected wizard configuration.
func (w *Wizard) GetConfig() *WizardConfig {
	return w.config
}

// Options converts the collected answers into snapshot options.
func (w *Wizard) Options() SnapshotOptions {
	c := w.config
	return SnapshotOptions{
		Path:        c.OutputPath,
		Format:      c.Format,
		Title:       c.Title,
		Width:       c.Width,
		Height:      c.Height,
		Document:    w.doc,
		Level:       model.Level(c.Level),
		ShowMastery: c.ShowMastery,
	}
}

func (w *Wizard) printBanner() {
	fmt.Fprintln(w.out, "")
	fmt.Fprintln(w.out, "╔══════════════════════════════════════════╗")
	fmt.Fprintln(w.out, "║        kg → Graph Snapshot Export        ║")
	fmt.Fprintln(w.out, "╠══════════════════════════════════════════╣")
	fmt.Fprintln(w.out, "║  Press Ctrl+C anytime to cancel          ║")
	fmt.Fprintln(w.out, "╚══════════════════════════════════════════╝")
	fmt.Fprintln(w.out, "")
}

// offerSavedConfig asks if the user wants to use previously saved settings
func (w *Wizard) offerSavedConfig(saved *WizardConfig) (bool, error) {
	fmt.Fprintln(w.out, "Found previous export settings:")
	fmt.Fprintln(w.out, "───────────────────────────────")
	fmt.Fprintf(w.out, "  Format: %s\n", saved.Format)
	fmt.Fprintf(w.out, "  Path:   %s\n", saved.OutputPath)
	if saved.Level != "" {
		fmt.Fprintf(w.out, "  Level:  %s\n", saved.Level)
	}
	fmt.Fprintln(w.out, "")

	useSaved := true
	form := newForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Export again with these settings?").
				Description("Select No to choose new settings").
				Value(&useSaved).
				Affirmative("Yes, export").
				Negative("No, reconfigure"),
		),
	)
	if err := form.Run(); err != nil {
		return false, err
	}
	fmt.Fprintln(w.out, "")
	return useSaved, nil
}

func (w *Wizard) collectOptions() error {
	c := w.config
	width := strconv.Itoa(c.Width)
	height := strconv.Itoa(c.Height)

	levels := []huh.Option[string]{huh.NewOption("Complete graph", string(model.LevelComplete))}
	if w.doc != nil && w.doc.HasLevels() {
		levels = append(levels,
			huh.NewOption("Detailed (top half)", string(model.LevelDetailed)),
			huh.NewOption("Overview (key topics)", string(model.LevelOverview)),
		)
	}

	form := newForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Image format").
				Options(
					huh.NewOption("PNG (raster)", "png"),
					huh.NewOption("SVG (vector)", "svg"),
				).
				Value(&c.Format),
			huh.NewInput().
				Title("Output file").
				Value(&c.OutputPath).
				Validate(ValidateOutputPath),
			huh.NewInput().
				Title("Title").
				Value(&c.Title).
				Placeholder("Knowledge Graph"),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Level of detail").
				Options(levels...).
				Value(&c.Level),
			huh.NewConfirm().
				Title("Colour nodes by mastery?").
				Value(&c.ShowMastery),
			huh.NewInput().
				Title("Width (px)").
				Value(&width).
				Validate(validateDimension),
			huh.NewInput().
				Title("Height (px)").
				Value(&height).
				Validate(validateDimension),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	c.Width, _ = strconv.Atoi(strings.TrimSpace(width))
	c.Height, _ = strconv.Atoi(strings.TrimSpace(height))
	c.OutputPath = withFormatExt(c.OutputPath, c.Format)
	return nil
}

// ValidateOutputPath rejects empty paths and directories.
func ValidateOutputPath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("output path is required")
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

func validateDimension(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("enter a positive number of pixels")
	}
	if n > 16384 {
		return fmt.Errorf("at most 16384 pixels")
	}
	return nil
}

// withFormatExt makes the extension agree with the chosen format.
func withFormatExt(path, format string) string {
	path = strings.TrimSpace(path)
	ext := filepath.Ext(path)
	if strings.EqualFold(ext, "."+format) {
		return path
	}
	if strings.EqualFold(ext, ".png") || strings.EqualFold(ext, ".svg") {
		path = strings.TrimSuffix(path, ext)
	}
	return path + "." + format
}

// PrintSuccess reports a finished export.
func (w *Wizard) PrintSuccess(res SnapshotResult) {
	fmt.Fprintln(w.out, "")
	fmt.Fprintf(w.out, "✓ Wrote %s (%s)\n", res.Path, strings.ToUpper(res.Format))
	fmt.Fprintf(w.out, "  %d nodes, %d edges", res.Stats.NodesDrawn, res.Stats.EdgesDrawn)
	if res.Stats.EdgesDropped > 0 {
		fmt.Fprintf(w.out, " (%d dangling edges skipped)", res.Stats.EdgesDropped)
	}
	fmt.Fprintln(w.out, "")
}

// WizardConfigPath returns the path to the remembered export settings.
func WizardConfigPath() string {
	dir := config.StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "last-export.json")
}

// LoadWizardConfig loads previously saved wizard configuration. A missing
// file yields nil, nil.
func LoadWizardConfig(path string) (*WizardConfig, error) {
	if path == "" {
		return nil, fmt.Errorf("could not determine state path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var cfg WizardConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// SaveWizardConfig saves wizard configuration for future runs.
func SaveWizardConfig(path string, cfg *WizardConfig) error {
	if path == "" {
		return fmt.Errorf("could not determine state path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
