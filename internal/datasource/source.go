// Package datasource discovers, validates and reads learner mastery sources:
// JSON score maps and SQLite score tables. When several sources are
// configured the freshest valid one wins.
package datasource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SourceType identifies the type of mastery source
type SourceType string

const (
	// SourceTypeSQLite is a SQLite database with a mastery table
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeJSON is a {nodeId: score} JSON file
	SourceTypeJSON SourceType = "json"
)

// Priority values for source types (higher = more authoritative)
const (
	PrioritySQLite = 100
	PriorityJSON   = 50
)

// DataSource represents a potential source of mastery data
type DataSource struct {
	Type     SourceType `json:"type"`
	Path     string     `json:"path"`
	Priority int        `json:"priority"`
	ModTime  time.Time  `json:"mod_time"`
	// Valid indicates whether the source passed validation
	Valid           bool   `json:"valid"`
	ValidationError string `json:"validation_error,omitempty"`
	// ScoreCount is the number of scores in the source (set during validation)
	ScoreCount int   `json:"score_count"`
	Size       int64 `json:"size"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, scores=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.ScoreCount, status)
}

// TypeForPath infers the source type from a file extension.
func TypeForPath(path string) SourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return SourceTypeSQLite
	default:
		return SourceTypeJSON
	}
}

// DetectSource stats path and describes it as a DataSource.
func DetectSource(path string) (DataSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return DataSource{}, fmt.Errorf("mastery source %s: %w", path, err)
	}
	if info.IsDir() {
		return DataSource{}, fmt.Errorf("mastery source %s is a directory", path)
	}
	t := TypeForPath(path)
	prio := PriorityJSON
	if t == SourceTypeSQLite {
		prio = PrioritySQLite
	}
	return DataSource{
		Type:     t,
		Path:     path,
		Priority: prio,
		ModTime:  info.ModTime(),
		Size:     info.Size(),
	}, nil
}

// DiscoveryOptions configures source discovery behavior
type DiscoveryOptions struct {
	// ValidateAfterDiscovery runs validation on each discovered source
	ValidateAfterDiscovery bool
	// IncludeInvalid includes sources that failed validation in results
	IncludeInvalid bool
	// Logger receives discovery messages; nil discards them
	Logger func(msg string)
}

// DiscoverSources describes every existing path, optionally validates them,
// and sorts freshest first (priority breaks ties).
func DiscoverSources(paths []string, opts DiscoveryOptions) []DataSource {
	if opts.Logger == nil {
		opts.Logger = func(string) {}
	}

	var sources []DataSource
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		s, err := DetectSource(p)
		if err != nil {
			opts.Logger(err.Error())
			continue
		}
		if opts.ValidateAfterDiscovery {
			if err := ValidateSource(&s); err != nil {
				opts.Logger(fmt.Sprintf("Validation failed for %s: %v", s.Path, err))
				if !opts.IncludeInvalid {
					continue
				}
			}
		}
		sources = append(sources, s)
	}

	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})
	opts.Logger(fmt.Sprintf("Discovered %d mastery sources", len(sources)))
	return sources
}

// ValidateSource opens s and counts its scores, recording the outcome on s.
func ValidateSource(s *DataSource) error {
	m, err := LoadFromSource(context.Background(), *s)
	if err != nil {
		s.Valid = false
		s.ValidationError = err.Error()
		return err
	}
	s.Valid = true
	s.ValidationError = ""
	s.ScoreCount = len(m)
	return nil
}

// SelectBestSource returns the first valid source. Sources are expected in
// DiscoverSources order.
func SelectBestSource(sources []DataSource) (DataSource, error) {
	for _, s := range sources {
		if s.Valid {
			return s, nil
		}
	}
	return DataSource{}, fmt.Errorf("no valid mastery source among %d candidates", len(sources))
}
