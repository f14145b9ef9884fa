package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for raw, want := range tests {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestNew_FiltersBelowLevelAndWritesPlainText(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn)

	logger.Info("quote built", "total", "4814.00")
	logger.Warn("catalog miss", "match_key", "70000/92% AFUE")

	out := buf.String()
	if strings.Contains(out, "quote built") {
		t.Fatalf("info line should be filtered: %s", out)
	}
	if !strings.Contains(out, "catalog miss") || !strings.Contains(out, "match_key=") {
		t.Fatalf("warn line missing: %s", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no color codes for a buffer: %q", out)
	}
}
