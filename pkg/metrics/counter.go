package metrics

import "sync/atomic"

// Counter is a monotonically increasing event count.
type Counter struct {
	name string
	n    int64
}

func newCounter(name string) *Counter {
	return &Counter{name: name}
}

// Add increments the counter by delta. Non-positive deltas are ignored.
func (c *Counter) Add(delta int64) {
	if !Enabled() || delta <= 0 {
		return
	}
	atomic.AddInt64(&c.n, delta)
}

// Inc increments the counter by one.
func (c *Counter) Inc() { c.Add(1) }

// Name returns the counter name.
func (c *Counter) Name() string { return c.name }

// Value returns the current count.
func (c *Counter) Value() int64 {
	return atomic.LoadInt64(&c.n)
}

// Reset zeroes the counter.
func (c *Counter) Reset() {
	atomic.StoreInt64(&c.n, 0)
}

// Global counters.
var (
	FramesDrawn     = newCounter("frames_drawn")
	FramesThrottled = newCounter("frames_throttled")
	EdgesDropped    = newCounter("edges_dropped")
	Reloads         = newCounter("reloads")
)

// AllCounters returns all registered counters.
func AllCounters() []*Counter {
	return []*Counter{FramesDrawn, FramesThrottled, EdgesDropped, Reloads}
}

// CounterSnapshot maps counter names to values, omitting zero counters.
func CounterSnapshot() map[string]int64 {
	out := make(map[string]int64)
	for _, c := range AllCounters() {
		if v := c.Value(); v > 0 {
			out[c.name] = v
		}
	}
	return out
}
