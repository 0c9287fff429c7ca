// Package metrics records timings and event counts for kg's hot paths: frame
// rendering, layout, hit-testing, graph loading, level building and exports.
//
// Everything is kept in memory with atomics. Collection is on unless
// KG_METRICS=0; `kg -export` prints a report when KG_METRICS=1.
//
//	func drawFrame() {
//	    defer metrics.Timer(metrics.FrameRender)()
//	    // ... draw
//	}
package metrics

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"
)

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("KG_METRICS") != "0")
}

// Enabled returns whether metrics collection is enabled.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled turns collection on or off.
func SetEnabled(e bool) {
	enabled.Store(e)
}

// FrameBudget is the time one animation frame may take at 60 fps.
const FrameBudget = 16 * time.Millisecond

// TimingMetric aggregates durations for one operation. Samples longer than
// the budget, when one is set, are counted separately.
type TimingMetric struct {
	name   string
	budget time.Duration

	count      atomic.Int64
	totalNs    atomic.Int64
	maxNs      atomic.Int64
	minNs      atomic.Int64 // 0 until the first sample
	overBudget atomic.Int64
}

func newTimingMetric(name string, budget time.Duration) *TimingMetric {
	return &TimingMetric{name: name, budget: budget}
}

// Record adds one sample.
func (m *TimingMetric) Record(d time.Duration) {
	if !Enabled() {
		return
	}
	ns := d.Nanoseconds()
	m.count.Add(1)
	m.totalNs.Add(ns)
	if m.budget > 0 && d > m.budget {
		m.overBudget.Add(1)
	}
	for {
		old := m.maxNs.Load()
		if ns <= old || m.maxNs.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.minNs.Load()
		if (old != 0 && ns >= old) || m.minNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// Name returns the metric name.
func (m *TimingMetric) Name() string { return m.name }

// Budget returns the per-sample budget, or zero.
func (m *TimingMetric) Budget() time.Duration { return m.budget }

// Count returns the number of samples.
func (m *TimingMetric) Count() int64 { return m.count.Load() }

// Stats returns a snapshot of the metric.
func (m *TimingMetric) Stats() TimingStats {
	count := m.count.Load()
	total := m.totalNs.Load()
	st := TimingStats{
		Name:       m.name,
		Count:      count,
		TotalMs:    float64(total) / 1e6,
		MaxMs:      float64(m.maxNs.Load()) / 1e6,
		MinMs:      float64(m.minNs.Load()) / 1e6,
		OverBudget: m.overBudget.Load(),
	}
	if count > 0 {
		st.AvgMs = float64(total/count) / 1e6
	}
	return st
}

// Reset clears all samples.
func (m *TimingMetric) Reset() {
	m.count.Store(0)
	m.totalNs.Store(0)
	m.maxNs.Store(0)
	m.minNs.Store(0)
	m.overBudget.Store(0)
}

// TimingStats is a snapshot of a TimingMetric.
type TimingStats struct {
	Name       string  `json:"name"`
	Count      int64   `json:"count"`
	TotalMs    float64 `json:"total_ms"`
	AvgMs      float64 `json:"avg_ms"`
	MaxMs      float64 `json:"max_ms"`
	MinMs      float64 `json:"min_ms,omitempty"`
	OverBudget int64   `json:"over_budget,omitempty"`
}

// Timer starts timing m; call the returned func to record the sample.
func Timer(m *TimingMetric) func() {
	return TimerWithCallback(m, nil)
}

// TimerWithCallback is Timer that also hands the duration to cb.
func TimerWithCallback(m *TimingMetric, cb func(time.Duration)) func() {
	if !Enabled() || m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		d := time.Since(start)
		m.Record(d)
		if cb != nil {
			cb(d)
		}
	}
}

// Timing metrics.
var (
	FrameRender = newTimingMetric("frame_render", FrameBudget)
	LayoutPass  = newTimingMetric("layout_pass", 0)
	HitTest     = newTimingMetric("hit_test", time.Millisecond)
	GraphLoad   = newTimingMetric("graph_load", 0)
	LevelBuild  = newTimingMetric("level_build", 0)
	Export      = newTimingMetric("export", 0)
)

// AllTimingMetrics returns every timing metric in report order.
func AllTimingMetrics() []*TimingMetric {
	return []*TimingMetric{FrameRender, LayoutPass, HitTest, GraphLoad, LevelBuild, Export}
}

// ResetAll resets all timing metrics and counters.
func ResetAll() {
	for _, m := range AllTimingMetrics() {
		m.Reset()
	}
	for _, c := range AllCounters() {
		c.Reset()
	}
}

// AllTimingStats returns stats for the metrics that have samples.
func AllTimingStats() []TimingStats {
	var stats []TimingStats
	for _, m := range AllTimingMetrics() {
		if m.Count() > 0 {
			stats = append(stats, m.Stats())
		}
	}
	return stats
}

// WriteReport prints timings with samples and non-zero counters to w.
func WriteReport(w io.Writer) error {
	for _, st := range AllTimingStats() {
		line := fmt.Sprintf("%-14s n=%-5d avg=%.2fms max=%.2fms", st.Name, st.Count, st.AvgMs, st.MaxMs)
		if st.OverBudget > 0 {
			line += fmt.Sprintf(" slow=%d", st.OverBudget)
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	for _, c := range AllCounters() {
		if v := c.Value(); v > 0 {
			if _, err := fmt.Fprintf(w, "%-14s %d\n", c.Name(), v); err != nil {
				return err
			}
		}
	}
	return nil
}
