// Package config handles loading and saving kg configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/kg/config.yaml
//   - State:   ~/.local/state/kg/ (last export location)
package config

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/kgview/pkg/layout"
	"github.com/vanderheijden86/kgview/pkg/lod"
	"github.com/vanderheijden86/kgview/pkg/render"
	"github.com/vanderheijden86/kgview/pkg/viewport"
)

const appName = "kg"

// CanvasConfig sets the raster size used for exports and headless renders.
type CanvasConfig struct {
	Width  int `yaml:"width,omitempty"`
	Height int `yaml:"height,omitempty"`
}

// FeatureConfig toggles optional view behaviour.
type FeatureConfig struct {
	LOD            bool `yaml:"lod"`
	Animation      bool `yaml:"animation"`
	MasteryOverlay bool `yaml:"mastery_overlay"`
	FrameLoop      bool `yaml:"frame_loop"`
}

// ViewportConfig bounds zoom and fit.
type ViewportConfig struct {
	MinScale    float64 `yaml:"min_scale,omitempty"`
	MaxScale    float64 `yaml:"max_scale,omitempty"`
	MaxFitScale float64 `yaml:"max_fit_scale,omitempty"`
	AnimationMS int     `yaml:"animation_ms,omitempty"`
	FitPadding  float64 `yaml:"fit_padding,omitempty"`
}

// LODConfig holds level-of-detail boundaries and builder fractions.
type LODConfig struct {
	OverviewBelow float64 `yaml:"overview_below,omitempty"` // scale < this -> overview
	DetailedBelow float64 `yaml:"detailed_below,omitempty"` // scale < this -> detailed
	// BuildLevels derives levels from the flat graph when the document has none.
	BuildLevels      bool    `yaml:"build_levels"`
	OverviewFraction float64 `yaml:"overview_fraction,omitempty"`
	DetailedFraction float64 `yaml:"detailed_fraction,omitempty"`
}

// NodeConfig controls node sizing and labels.
type NodeConfig struct {
	BaseRadius    float64 `yaml:"base_radius,omitempty"`
	MinRadius     float64 `yaml:"min_radius,omitempty"`
	MaxRadius     float64 `yaml:"max_radius,omitempty"`
	LabelMinScale float64 `yaml:"label_min_scale,omitempty"`
	LabelMaxRunes int     `yaml:"label_max_runes,omitempty"`
}

// LayoutConfig tunes the force layout pass.
type LayoutConfig struct {
	Iterations int     `yaml:"iterations,omitempty"`
	Damping    float64 `yaml:"damping,omitempty"`
	Force      float64 `yaml:"force,omitempty"`
	Margin     float64 `yaml:"margin,omitempty"`
	Seed       int64   `yaml:"seed,omitempty"` // 0 = time-seeded
}

// DataConfig lists where graph and mastery data come from. Entries are file
// paths or http(s) URLs, tried in order.
type DataConfig struct {
	Graph   []string `yaml:"graph,omitempty"`
	Mastery []string `yaml:"mastery,omitempty"`
}

// Config is the top-level configuration for kg.
type Config struct {
	Canvas   CanvasConfig      `yaml:"canvas,omitempty"`
	Features FeatureConfig     `yaml:"features"`
	Viewport ViewportConfig    `yaml:"viewport,omitempty"`
	LOD      LODConfig         `yaml:"lod,omitempty"`
	Nodes    NodeConfig        `yaml:"nodes,omitempty"`
	Layout   LayoutConfig      `yaml:"layout,omitempty"`
	Data     DataConfig        `yaml:"data,omitempty"`
	Palette  map[string]string `yaml:"palette,omitempty"` // group -> #rrggbb
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	style := render.DefaultStyle()
	th := lod.DefaultThresholds()
	fr := lod.DefaultFractions()
	return Config{
		Canvas: CanvasConfig{Width: 1200, Height: 800},
		Features: FeatureConfig{
			LOD:            true,
			Animation:      true,
			MasteryOverlay: false,
			FrameLoop:      true,
		},
		Viewport: ViewportConfig{
			MinScale:    viewport.DefaultMinScale,
			MaxScale:    viewport.DefaultMaxScale,
			MaxFitScale: viewport.DefaultMaxFit,
			AnimationMS: int(viewport.DefaultDuration / time.Millisecond),
			FitPadding:  viewport.DefaultPadding,
		},
		LOD: LODConfig{
			OverviewBelow:    th.Overview,
			DetailedBelow:    th.Detailed,
			BuildLevels:      true,
			OverviewFraction: fr.Overview,
			DetailedFraction: fr.Detailed,
		},
		Nodes: NodeConfig{
			BaseRadius:    style.BaseRadius,
			MinRadius:     style.MinRadius,
			MaxRadius:     style.MaxRadius,
			LabelMinScale: style.LabelMinScale,
			LabelMaxRunes: style.LabelMaxRunes,
		},
		Layout: LayoutConfig{
			Iterations: layout.DefaultIterations,
			Damping:    layout.DefaultDamping,
			Force:      layout.DefaultForce,
			Margin:     layout.DefaultMargin,
		},
		Data: DataConfig{
			Graph: []string{"graph_data.json", "data/graph_data.json"},
		},
	}
}

// ConfigDir returns the XDG config directory for kg.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// StateDir returns the XDG state directory for kg.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", appName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	for i := range cfg.Data.Graph {
		cfg.Data.Graph[i] = expandHome(cfg.Data.Graph[i])
	}
	for i := range cfg.Data.Mastery {
		cfg.Data.Mastery[i] = expandHome(cfg.Data.Mastery[i])
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Validate rejects settings the view cannot honour.
func (c Config) Validate() error {
	var problems []string
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		problems = append(problems, fmt.Sprintf("canvas size %dx%d must be positive", c.Canvas.Width, c.Canvas.Height))
	}
	if c.Viewport.MinScale <= 0 || c.Viewport.MinScale >= c.Viewport.MaxScale {
		problems = append(problems, fmt.Sprintf("zoom bounds [%g, %g] are not increasing", c.Viewport.MinScale, c.Viewport.MaxScale))
	}
	if c.LOD.OverviewBelow > c.LOD.DetailedBelow {
		problems = append(problems, "lod.overview_below must not exceed lod.detailed_below")
	}
	if c.Nodes.MinRadius <= 0 || c.Nodes.MinRadius > c.Nodes.MaxRadius {
		problems = append(problems, fmt.Sprintf("node radius bounds [%g, %g] are invalid", c.Nodes.MinRadius, c.Nodes.MaxRadius))
	}
	for group, hex := range c.Palette {
		if _, err := render.ParseHex(hex); err != nil {
			problems = append(problems, fmt.Sprintf("palette %s: %v", group, err))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// ViewportOptions converts the zoom settings.
func (c Config) ViewportOptions() viewport.Options {
	return viewport.Options{
		MinScale: c.Viewport.MinScale,
		MaxScale: c.Viewport.MaxScale,
		MaxFit:   c.Viewport.MaxFitScale,
		Duration: time.Duration(c.Viewport.AnimationMS) * time.Millisecond,
		Animate:  c.Features.Animation,
	}
}

// Thresholds converts the level-of-detail boundaries.
func (c Config) Thresholds() lod.Thresholds {
	return lod.Thresholds{Overview: c.LOD.OverviewBelow, Detailed: c.LOD.DetailedBelow}
}

// Fractions converts the level builder fractions.
func (c Config) Fractions() lod.Fractions {
	return lod.Fractions{Overview: c.LOD.OverviewFraction, Detailed: c.LOD.DetailedFraction, Complete: 1}
}

// Style builds the renderer style, applying palette overrides.
func (c Config) Style() (render.Style, error) {
	s := render.DefaultStyle()
	s.BaseRadius = c.Nodes.BaseRadius
	s.MinRadius = c.Nodes.MinRadius
	s.MaxRadius = c.Nodes.MaxRadius
	s.LabelMinScale = c.Nodes.LabelMinScale
	s.LabelMaxRunes = c.Nodes.LabelMaxRunes
	p, err := s.Palette.WithOverrides(c.Palette)
	s.Palette = p
	return s, err
}

// LayoutEngine returns an engine sized to the canvas.
func (c Config) LayoutEngine() layout.Engine {
	e := layout.Engine{
		Width:       float64(c.Canvas.Width),
		Height:      float64(c.Canvas.Height),
		Iterations:  c.Layout.Iterations,
		Damping:     c.Layout.Damping,
		Force:       c.Layout.Force,
		Margin:      c.Layout.Margin,
		OnlyMissing: true,
	}
	if c.Layout.Seed != 0 {
		e.Rand = rand.New(rand.NewSource(c.Layout.Seed))
	}
	return e
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
