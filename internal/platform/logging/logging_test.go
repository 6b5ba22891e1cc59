package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerWritesConsoleAndFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	logger, err := New(Config{Level: "info", Dir: dir, Filename: "test.log", Console: &console})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	logger.InfoTag("认证", "session restored for %s", "ada@example.com")
	logger.Debug("hidden")
	logger.Warn("cache miss", map[string]any{"key": "hotels", "entries": 2})

	if err := logger.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	out := console.String()
	if !strings.Contains(out, "[认证] session restored for ada@example.com") {
		t.Fatalf("console output missing tagged line: %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked at info level: %q", out)
	}
	if !strings.Contains(out, "entries=2") || !strings.Contains(out, "key=hotels") {
		t.Fatalf("console output missing fields: %q", out)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "test.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(raw), `"msg":"cache miss"`) {
		t.Fatalf("json sink missing entry: %s", raw)
	}
}

func TestFormatLog(t *testing.T) {
	if got := FormatLog("HTTP", "started"); got != "[HTTP] started" {
		t.Fatalf("unexpected %q", got)
	}
	if got := FormatLog("HTTP", "[API] already tagged"); got != "[API] already tagged" {
		t.Fatalf("unexpected %q", got)
	}
	if got := FormatLog("", "plain"); got != "plain" {
		t.Fatalf("unexpected %q", got)
	}
}
