package observability

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	metricsMu sync.Mutex
	metrics   = map[string]float64{}
)

// StartSpan records a lightweight span lifecycle around an operation.
func StartSpan(ctx context.Context, component, operation string) (context.Context, func(error)) {
	logger, cfg := current()
	if logger == nil || !cfg.Enabled {
		return ctx, func(error) {}
	}

	start := time.Now()
	logger.LogAttrs(ctx, slog.LevelDebug, "obs span start",
		slog.String("component", component),
		slog.String("operation", operation),
	)

	return ctx, func(err error) {
		level := slog.LevelDebug
		attrs := []slog.Attr{
			slog.String("component", component),
			slog.String("operation", operation),
			slog.Duration("duration", time.Since(start)),
		}
		if err != nil {
			level = slog.LevelWarn
			attrs = append(attrs, slog.Any("error", err))
		}
		logger.LogAttrs(ctx, level, "obs span end", attrs...)
	}
}

// RecordMetric adds value to the named series and logs the datapoint when enabled.
func RecordMetric(ctx context.Context, name string, value float64, labels map[string]string) {
	metricsMu.Lock()
	metrics[seriesKey(name, labels)] += value
	metricsMu.Unlock()

	logger, cfg := current()
	if logger == nil || !cfg.Enabled {
		return
	}
	attrs := []slog.Attr{
		slog.String("metric", name),
		slog.Float64("value", value),
	}
	for k, v := range labels {
		attrs = append(attrs, slog.String(k, v))
	}
	logger.LogAttrs(ctx, slog.LevelDebug, "obs metric", attrs...)
}

// Snapshot returns the accumulated series keyed as name{k=v,...}.
func Snapshot() map[string]float64 {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	out := make(map[string]float64, len(metrics))
	for k, v := range metrics {
		out[k] = v
	}
	return out
}

// Reset clears every accumulated series.
func Reset() {
	metricsMu.Lock()
	metrics = map[string]float64{}
	metricsMu.Unlock()
}

func seriesKey(name string, labels map[string]string) string {
	if len(labels) == 0 {
		return name
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+labels[k])
	}
	return name + "{" + strings.Join(parts, ",") + "}"
}
