package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_CoalescesRapidTriggers(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var callCount atomic.Int32

	// Trigger rapidly 10 times
	for i := 0; i < 10; i++ {
		d.Trigger(func() {
			callCount.Add(1)
		})
		time.Sleep(10 * time.Millisecond)
	}

	// Wait for debounce to complete
	time.Sleep(150 * time.Millisecond)

	if count := callCount.Load(); count != 1 {
		t.Errorf("expected 1 callback invocation, got %d", count)
	}
}

func TestDebouncer_RunsLastFunction(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var got atomic.Int32
	for i := int32(1); i <= 3; i++ {
		d.Trigger(func() { got.Store(i) })
	}
	time.Sleep(120 * time.Millisecond)
	if got.Load() != 3 {
		t.Errorf("expected last trigger to win, got %d", got.Load())
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var called atomic.Bool

	d.Trigger(func() {
		called.Store(true)
	})

	// Cancel before debounce completes
	d.Cancel()

	time.Sleep(100 * time.Millisecond)

	if called.Load() {
		t.Error("callback should not have been invoked after cancel")
	}
}

func TestDebouncer_DefaultDuration(t *testing.T) {
	d := NewDebouncer(0)
	if d.Duration() != DefaultDebounceDuration {
		t.Errorf("expected default duration %v, got %v", DefaultDebounceDuration, d.Duration())
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_DetectsFileChange(t *testing.T) {
	tmpDir := t.TempDir()
	graph := filepath.Join(tmpDir, "graph_data.json")
	writeFile(t, graph, `{"nodes":[]}`)

	var (
		changeMu sync.Mutex
		changed  []string
	)

	w, err := New([]string{graph},
		WithDebounceDuration(50*time.Millisecond),
		WithOnChange(func(paths []string) {
			changeMu.Lock()
			changed = paths
			changeMu.Unlock()
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	// Give watcher time to initialize
	time.Sleep(100 * time.Millisecond)
	writeFile(t, graph, `{"nodes":[{"id":"a"}]}`)

	ok := waitFor(t, 2*time.Second, func() bool {
		changeMu.Lock()
		defer changeMu.Unlock()
		return len(changed) == 1
	})
	if !ok {
		t.Fatal("expected change to be detected")
	}
	abs, _ := filepath.Abs(graph)
	if changed[0] != abs {
		t.Errorf("changed path = %s, want %s", changed[0], abs)
	}
}

func TestWatcher_PollingCoalescesPaths(t *testing.T) {
	tmpDir := t.TempDir()
	graph := filepath.Join(tmpDir, "graph.json")
	mastery := filepath.Join(tmpDir, "mastery.json")
	writeFile(t, graph, "{}")
	writeFile(t, mastery, "{}")

	w, err := New([]string{graph, mastery, "https://example.org/remote.json"},
		WithForcePoll(true),
		WithPollInterval(20*time.Millisecond),
		WithDebounceDuration(80*time.Millisecond),
	)
	if err != nil {
		t.Fatal(err)
	}
	if len(w.Paths()) != 2 {
		t.Fatalf("URLs must be skipped, got %v", w.Paths())
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if !w.IsPolling() {
		t.Fatal("expected polling mode")
	}

	writeFile(t, graph, `{"nodes":[]}`)
	writeFile(t, mastery, `{"a":1}`)

	select {
	case paths := <-w.Changed():
		if len(paths) != 2 {
			t.Fatalf("expected both paths in one batch, got %v", paths)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no change delivered")
	}
}

func TestWatcher_EnvForcePoll(t *testing.T) {
	t.Setenv(ForcePollEnv, "yes")
	path := filepath.Join(t.TempDir(), "g.json")
	writeFile(t, path, "{}")

	w, err := New([]string{path})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if !w.IsPolling() {
		t.Error("env var should force polling")
	}
}

func TestWatcher_FileRemoved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.json")
	writeFile(t, path, "{}")

	var removed atomic.Bool
	w, err := New([]string{path},
		WithForcePoll(true),
		WithPollInterval(20*time.Millisecond),
		WithOnError(func(err error) {
			if errors.Is(err, ErrFileRemoved) {
				removed.Store(true)
			}
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, time.Second, removed.Load) {
		t.Error("expected ErrFileRemoved")
	}
}

func TestWatcher_StartStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.json")
	w, err := New([]string{path}, WithForcePoll(true))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("missing file should not prevent start: %v", err)
	}
	if !errors.Is(w.Start(), ErrAlreadyStarted) {
		t.Error("expected ErrAlreadyStarted")
	}
	w.Stop()
	if w.IsStarted() {
		t.Error("expected stopped")
	}
	w.Stop() // idempotent
	if err := w.Start(); err != nil {
		t.Errorf("restart failed: %v", err)
	}
	w.Stop()
}

func TestNew_NoPaths(t *testing.T) {
	if _, err := New([]string{"", "http://host/graph.json"}); !errors.Is(err, ErrNoPaths) {
		t.Fatalf("expected ErrNoPaths, got %v", err)
	}
}

func TestEnvBool(t *testing.T) {
	tests := map[string]bool{
		"1": true, "true": true, "YES": true, " on ": true,
		"0": false, "false": false, "": false, "maybe": false,
	}
	for v, want := range tests {
		t.Setenv("KG_TEST_BOOL", v)
		if got := envBool("KG_TEST_BOOL"); got != want {
			t.Errorf("envBool(%q) = %v, want %v", v, got, want)
		}
	}
}
