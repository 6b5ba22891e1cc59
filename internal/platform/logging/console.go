package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

const (
	colorReset = "\x1b[0m"
	colorTime  = "\x1b[90m"
)

var levelColors = map[slog.Level]string{
	slog.LevelDebug: "\x1b[36m",
	slog.LevelInfo:  "\x1b[32m",
	slog.LevelWarn:  "\x1b[33m",
	slog.LevelError: "\x1b[31m",
}

// 模块标签颜色
var tagColors = map[string]string{
	"[引导]":   "\x1b[96m",
	"[HTTP]": "\x1b[95m",
	"[API]":  "\x1b[94m",
	"[认证]":   "\x1b[34m",
	"[缓存]":   "\x1b[92m",
	"[酒店]":   "\x1b[35m",
	"[通知]":   "\x1b[97m",
}

// consoleHandler renders "[time] [LEVEL] msg { k=v }" with ANSI colours.
type consoleHandler struct {
	writer io.Writer
	level  slog.Level
	attrs  []slog.Attr
	mu     sync.Mutex
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%s]%s ", colorTime, r.Time.Format("2006-01-02 15:04:05.000"), colorReset)

	if color, ok := tagColor(r.Message); ok {
		fmt.Fprintf(&b, "%s%s%s", color, r.Message, colorReset)
	} else {
		fmt.Fprintf(&b, "%s[%s]%s %s", levelColors[r.Level], r.Level.String(), colorReset, r.Message)
	}

	if len(h.attrs) > 0 || r.NumAttrs() > 0 {
		b.WriteString(" {")
		for _, a := range h.attrs {
			fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
		}
		r.Attrs(func(a slog.Attr) bool {
			fmt.Fprintf(&b, " %s=%v", a.Key, a.Value)
			return true
		})
		b.WriteString(" }")
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &consoleHandler{writer: h.writer, level: h.level, attrs: merged}
}

func (h *consoleHandler) WithGroup(string) slog.Handler {
	return h
}

func tagColor(msg string) (string, bool) {
	if !strings.HasPrefix(msg, "[") {
		return "", false
	}
	end := strings.Index(msg, "]")
	if end < 0 {
		return "", false
	}
	color, ok := tagColors[msg[:end+1]]
	return color, ok
}
