package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestRecordMetricAccumulates(t *testing.T) {
	Reset()
	ctx := context.Background()

	RecordMetric(ctx, "api.requests", 1, map[string]string{"status": "200", "method": "GET"})
	RecordMetric(ctx, "api.requests", 1, map[string]string{"method": "GET", "status": "200"})
	RecordMetric(ctx, "cache.hits", 3, nil)

	snap := Snapshot()
	if got := snap["api.requests{method=GET,status=200}"]; got != 2 {
		t.Fatalf("expected 2 requests, got %v (%v)", got, snap)
	}
	if got := snap["cache.hits"]; got != 3 {
		t.Fatalf("expected 3 hits, got %v", got)
	}
}

func TestStartSpanLogsWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	shutdown, err := Setup(context.Background(), Config{Enabled: true}, logger)
	if err != nil {
		t.Fatalf("Setup error: %v", err)
	}
	defer shutdown(context.Background())

	_, end := StartSpan(context.Background(), "api.client", "GET /hotels")
	end(errors.New("boom"))

	out := buf.String()
	if !strings.Contains(out, "obs span start") || !strings.Contains(out, "obs span end") {
		t.Fatalf("span lines missing: %s", out)
	}
	if !strings.Contains(out, "boom") {
		t.Fatalf("span error missing: %s", out)
	}
}

func TestStartSpanNoopWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	shutdown, _ := Setup(context.Background(), Config{}, logger)
	defer shutdown(context.Background())
	buf.Reset()

	_, end := StartSpan(context.Background(), "c", "op")
	end(nil)
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %s", buf.String())
	}
	if Enabled() {
		t.Fatalf("expected disabled")
	}
}
