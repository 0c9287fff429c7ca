package view

import (
	"context"
	"sort"
	"sync"
	"time"
)

// FrameInterval is the minimum spacing between rendered frames (~60fps).
const FrameInterval = 16 * time.Millisecond

// frameSlack absorbs tick jitter so a ticker running at FrameInterval is not
// throttled on every other frame.
const frameSlack = time.Millisecond

// FrameID identifies a requested frame. Zero is never issued.
type FrameID uint64

// Scheduler delivers frame callbacks, in the manner of a host's
// animation-frame API. Callbacks receive the frame timestamp.
type Scheduler interface {
	RequestFrame(fn func(now time.Time)) FrameID
	CancelFrame(id FrameID)
}

// frameQueue is the pending-callback bookkeeping shared by schedulers.
type frameQueue struct {
	mu      sync.Mutex
	next    FrameID
	pending map[FrameID]func(time.Time)
}

func (q *frameQueue) request(fn func(time.Time)) FrameID {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending == nil {
		q.pending = make(map[FrameID]func(time.Time))
	}
	q.next++
	q.pending[q.next] = fn
	return q.next
}

func (q *frameQueue) cancel(id FrameID) {
	q.mu.Lock()
	delete(q.pending, id)
	q.mu.Unlock()
}

// take removes and returns the pending callbacks in request order.
func (q *frameQueue) take() []func(time.Time) {
	q.mu.Lock()
	ids := make([]FrameID, 0, len(q.pending))
	for id := range q.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(time.Time), len(ids))
	for i, id := range ids {
		fns[i] = q.pending[id]
	}
	q.pending = nil
	q.mu.Unlock()
	return fns
}

func (q *frameQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// ManualScheduler runs frames only when Flush is called. Hosts with their own
// tick source (the terminal UI) and tests drive it directly.
type ManualScheduler struct {
	q frameQueue
}

// NewManualScheduler returns an empty scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// RequestFrame implements Scheduler.
func (s *ManualScheduler) RequestFrame(fn func(time.Time)) FrameID { return s.q.request(fn) }

// CancelFrame implements Scheduler.
func (s *ManualScheduler) CancelFrame(id FrameID) { s.q.cancel(id) }

// Pending returns the number of queued callbacks.
func (s *ManualScheduler) Pending() int { return s.q.len() }

// Flush runs the callbacks queued before the call and returns how many ran.
// Callbacks requested while flushing wait for the next Flush.
func (s *ManualScheduler) Flush(now time.Time) int {
	fns := s.q.take()
	for _, fn := range fns {
		fn(now)
	}
	return len(fns)
}

// TickerScheduler delivers frames from a background ticker until its context
// is cancelled or Stop is called.
type TickerScheduler struct {
	q      frameQueue
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTickerScheduler starts a scheduler ticking every interval
// (FrameInterval when interval <= 0).
func NewTickerScheduler(ctx context.Context, interval time.Duration) *TickerScheduler {
	if interval <= 0 {
		interval = FrameInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &TickerScheduler{cancel: cancel, done: make(chan struct{})}
	go s.run(ctx, interval)
	return s
}

func (s *TickerScheduler) run(ctx context.Context, interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, fn := range s.q.take() {
				fn(now)
			}
		}
	}
}

// RequestFrame implements Scheduler.
func (s *TickerScheduler) RequestFrame(fn func(time.Time)) FrameID { return s.q.request(fn) }

// CancelFrame implements Scheduler.
func (s *TickerScheduler) CancelFrame(id FrameID) { s.q.cancel(id) }

// Stop halts the ticker and waits for an in-flight frame to finish.
func (s *TickerScheduler) Stop() {
	s.cancel()
	<-s.done
}
