package datasource

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/kgview/pkg/model"
)

func writeSQLite(t *testing.T, path string, scores model.Mastery) {
	t.Helper()
	store, err := OpenSQLiteStore(path)
	if err != nil {
		t.Fatalf("OpenSQLiteStore: %v", err)
	}
	defer store.Close()
	if err := store.SaveScores(context.Background(), scores); err != nil {
		t.Fatalf("SaveScores: %v", err)
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mastery.db")
	writeSQLite(t, path, model.Mastery{"a": 0.9, "b": 0.2})
	// Upsert replaces.
	writeSQLite(t, path, model.Mastery{"b": 0.5})

	store, err := OpenSQLiteReader(path)
	if err != nil {
		t.Fatalf("OpenSQLiteReader: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	m, err := store.LoadMastery(ctx)
	if err != nil {
		t.Fatalf("LoadMastery: %v", err)
	}
	if len(m) != 2 || m["a"] != 0.9 || m["b"] != 0.5 {
		t.Fatalf("mastery = %v", m)
	}
	n, err := store.CountScores(ctx)
	if err != nil || n != 2 {
		t.Fatalf("CountScores = %d, %v", n, err)
	}
	ts, err := store.GetLastModified(ctx)
	if err != nil || ts.IsZero() || time.Since(ts) > time.Hour {
		t.Fatalf("GetLastModified = %v, %v", ts, err)
	}
}

func TestOpenSQLiteReaderMissingTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	store, err := OpenSQLiteReader(path)
	if err != nil {
		return
	}
	defer store.Close()
	if _, err := store.LoadMastery(context.Background()); err == nil {
		t.Fatal("expected error for database without mastery table")
	}
}

func TestTypeForPath(t *testing.T) {
	tests := map[string]SourceType{
		"m.db":          SourceTypeSQLite,
		"m.SQLITE":      SourceTypeSQLite,
		"dir/m.sqlite3": SourceTypeSQLite,
		"m.json":        SourceTypeJSON,
		"no-extension":  SourceTypeJSON,
	}
	for path, want := range tests {
		if got := TypeForPath(path); got != want {
			t.Errorf("TypeForPath(%q) = %s, want %s", path, got, want)
		}
	}
}

func TestDiscoverAndSelectFreshest(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "old.json")
	newer := filepath.Join(dir, "new.db")
	broken := filepath.Join(dir, "broken.json")

	if err := os.WriteFile(older, []byte(`{"a": 0.1}`), 0644); err != nil {
		t.Fatal(err)
	}
	writeSQLite(t, newer, model.Mastery{"a": 0.95})
	if err := os.WriteFile(broken, []byte(`{`), 0644); err != nil {
		t.Fatal(err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatal(err)
	}

	var logs []string
	sources := DiscoverSources([]string{older, broken, newer, filepath.Join(dir, "missing.json"), ""},
		DiscoveryOptions{ValidateAfterDiscovery: true, Logger: func(s string) { logs = append(logs, s) }})
	if len(sources) != 2 {
		t.Fatalf("expected 2 valid sources, got %v", sources)
	}
	if sources[0].Path != newer {
		t.Fatalf("freshest should be first, got %s", sources[0].Path)
	}
	if !strings.Contains(strings.Join(logs, "\n"), "Validation failed") {
		t.Errorf("broken source not logged: %v", logs)
	}

	m, err := Mastery{Paths: []string{older, newer}}.LoadMastery(context.Background())
	if err != nil {
		t.Fatalf("LoadMastery: %v", err)
	}
	if m.Status("a") != model.MasteryMastered {
		t.Fatalf("expected the SQLite scores, got %v", m)
	}
}

func TestDiscoverIncludeInvalid(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(broken, []byte(`[1,2]`), 0644); err != nil {
		t.Fatal(err)
	}
	sources := DiscoverSources([]string{broken}, DiscoveryOptions{ValidateAfterDiscovery: true, IncludeInvalid: true})
	if len(sources) != 1 || sources[0].Valid || sources[0].ValidationError == "" {
		t.Fatalf("sources = %v", sources)
	}
	if _, err := SelectBestSource(sources); err == nil {
		t.Fatal("expected no valid source")
	}
	if !strings.Contains(sources[0].String(), "invalid") {
		t.Errorf("String() = %s", sources[0].String())
	}
}

func TestCompareMastery(t *testing.T) {
	a := model.Mastery{"x": 0.1, "y": 0.5, "z": 0.85}
	b := model.Mastery{"x": 0.9, "y": 0.6, "w": 0.3}
	d := CompareMastery(a, b)

	if strings.Join(d.Added, ",") != "w" || strings.Join(d.Removed, ",") != "z" {
		t.Fatalf("added=%v removed=%v", d.Added, d.Removed)
	}
	if len(d.StatusChanged) != 1 || d.StatusChanged[0] != (StatusChange{ID: "x", From: model.MasteryStruggling, To: model.MasteryMastered}) {
		t.Fatalf("status changes = %v", d.StatusChanged)
	}
	if !strings.Contains(d.Summary(), "x: struggling -> mastered") {
		t.Errorf("summary:\n%s", d.Summary())
	}

	same := CompareMastery(a, a)
	if same.HasChanges() || !strings.HasPrefix(same.Summary(), "Mastery unchanged") {
		t.Fatalf("identical snapshots reported changes: %+v", same)
	}
}
