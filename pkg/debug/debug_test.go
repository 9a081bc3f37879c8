package debug

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogDisabledIsSilent(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetEnabled(false)
	defer SetOutput(nil)

	Log("hidden %d", 1)
	LogTiming("op", 0)
	LogEnterExit("fn")()

	if buf.Len() != 0 {
		t.Fatalf("expected no output while disabled, got %q", buf.String())
	}
}

func TestLogEnabledWritesPrefixedLines(t *testing.T) {
	var buf bytes.Buffer
	SetEnabled(true)
	SetOutput(&buf)
	defer func() {
		SetEnabled(false)
		SetOutput(nil)
	}()

	Log("merged %d records", 3)
	LogIf(false, "skipped")
	LogEnterExit("Store.Search")()

	out := buf.String()
	if !strings.Contains(out, "[LAZYTREE] ") {
		t.Errorf("expected prefix in output, got %q", out)
	}
	if !strings.Contains(out, "merged 3 records") {
		t.Errorf("expected formatted message, got %q", out)
	}
	if strings.Contains(out, "skipped") {
		t.Errorf("LogIf(false) should not write, got %q", out)
	}
	if !strings.Contains(out, "-> Store.Search") || !strings.Contains(out, "<- Store.Search") {
		t.Errorf("expected enter/exit lines, got %q", out)
	}
}
