package debug

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestLogDisabledWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetEnabled(false)
	Log("hidden %d", 1)
	LogTiming("hidden", time.Millisecond)
	Section("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestLogEnabled(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetEnabled(true)
	defer SetEnabled(false)

	Log("loaded %d nodes", 3)
	LogIf(false, "skipped")
	defer LogEnterExit("render")()
	out := buf.String()
	if !strings.Contains(out, "[KG_DEBUG] ") || !strings.Contains(out, "loaded 3 nodes") {
		t.Fatalf("unexpected output %q", out)
	}
	if strings.Contains(out, "skipped") {
		t.Fatal("LogIf(false) wrote output")
	}
	if !strings.Contains(out, "-> render") {
		t.Fatalf("missing enter line in %q", out)
	}
}

func TestLoggerDiscardsWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetEnabled(false)
	Logger().Printf("nope")
	if buf.Len() != 0 {
		t.Fatalf("expected discard, got %q", buf.String())
	}
}
