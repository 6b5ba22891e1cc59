package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// 日志保留天数
const retentionDays = 7

// Config captures logging configuration options.
type Config struct {
	Level    string
	Dir      string
	Filename string
	// Console overrides the console sink; defaults to stdout.
	Console io.Writer
}

// Logger writes JSON lines to a daily rotated file and coloured text to the console.
type Logger struct {
	cfg         Config
	level       slog.Level
	jsonLogger  *slog.Logger
	textLogger  *slog.Logger
	file        *os.File
	currentDate string
	mu          sync.RWMutex
	ticker      *time.Ticker
	stopCh      chan struct{}
	closeOnce   sync.Once
}

// New creates a logger. An empty Dir disables the file sink.
func New(cfg Config) (*Logger, error) {
	level := ParseLevel(cfg.Level)
	console := cfg.Console
	if console == nil {
		console = os.Stdout
	}

	l := &Logger{
		cfg:         cfg,
		level:       level,
		textLogger:  slog.New(&consoleHandler{writer: console, level: level}),
		currentDate: time.Now().Format("2006-01-02"),
		stopCh:      make(chan struct{}),
	}

	if cfg.Dir == "" {
		l.jsonLogger = slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: level}))
		return l, nil
	}

	if cfg.Filename == "" {
		l.cfg.Filename = "hotel-admin.log"
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(l.path(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	l.file = file
	l.jsonLogger = slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}))

	l.ticker = time.NewTicker(time.Minute)
	go l.rotationLoop()
	return l, nil
}

// Discard returns a logger that writes nowhere, handy in tests.
func Discard() *Logger {
	l, _ := New(Config{Level: "error", Console: io.Discard})
	return l
}

// ParseLevel maps a config level name onto slog.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) path() string {
	return filepath.Join(l.cfg.Dir, l.cfg.Filename)
}

func (l *Logger) rotationLoop() {
	for {
		select {
		case <-l.ticker.C:
			today := time.Now().Format("2006-01-02")
			if today != l.currentDate {
				l.rotate(today)
				l.cleanOldLogs()
			}
		case <-l.stopCh:
			return
		}
	}
}

// rotate 将当前日志归档为 name-YYYY-MM-DD.ext 并重新打开
func (l *Logger) rotate(newDate string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		l.file.Close()
	}
	ext := filepath.Ext(l.cfg.Filename)
	base := strings.TrimSuffix(l.cfg.Filename, ext)
	archived := filepath.Join(l.cfg.Dir, fmt.Sprintf("%s-%s%s", base, l.currentDate, ext))
	if _, err := os.Stat(l.path()); err == nil {
		if err := os.Rename(l.path(), archived); err != nil {
			l.textLogger.Error("rotate log file failed", slog.String("error", err.Error()))
		}
	}

	file, err := os.OpenFile(l.path(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l.textLogger.Error("reopen log file failed", slog.String("error", err.Error()))
		return
	}
	l.file = file
	l.currentDate = newDate
	l.jsonLogger = slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{Level: l.level}))
}

func (l *Logger) cleanOldLogs() {
	entries, err := os.ReadDir(l.cfg.Dir)
	if err != nil {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	ext := filepath.Ext(l.cfg.Filename)
	base := strings.TrimSuffix(l.cfg.Filename, ext)

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, base+"-") || !strings.HasSuffix(name, ext) {
			continue
		}
		date, err := time.Parse("2006-01-02", strings.TrimSuffix(strings.TrimPrefix(name, base+"-"), ext))
		if err != nil || !date.Before(cutoff) {
			continue
		}
		_ = os.Remove(filepath.Join(l.cfg.Dir, name))
	}
}

// Close stops rotation and closes the file sink.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.ticker != nil {
			l.ticker.Stop()
		}
		close(l.stopCh)
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	if l == nil || level < l.level {
		return
	}
	var attrs []slog.Attr
	if len(args) > 0 && strings.Contains(msg, "%") {
		msg = fmt.Sprintf(msg, args...)
	} else if len(args) > 0 && args[0] != nil {
		if fields, ok := args[0].(map[string]any); ok {
			keys := make([]string, 0, len(fields))
			for k := range fields {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				attrs = append(attrs, slog.Any(k, fields[k]))
			}
		} else {
			attrs = append(attrs, slog.Any("fields", args[0]))
		}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	ctx := context.Background()
	l.jsonLogger.LogAttrs(ctx, level, msg, attrs...)
	l.textLogger.LogAttrs(ctx, level, msg, attrs...)
}

// Debug accepts either printf-style args or a single map of fields.
func (l *Logger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }

func (l *Logger) Info(msg string, args ...any) { l.log(slog.LevelInfo, msg, args...) }

func (l *Logger) Warn(msg string, args ...any) { l.log(slog.LevelWarn, msg, args...) }

func (l *Logger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

// FormatLog prefixes a message with a single tag: FormatLog("认证", "x") -> "[认证] x".
func FormatLog(tag, message string) string {
	tag = strings.TrimSpace(tag)
	message = strings.TrimSpace(message)
	if tag == "" || strings.HasPrefix(message, "[") {
		return message
	}
	return fmt.Sprintf("[%s] %s", tag, message)
}

func (l *Logger) DebugTag(tag, msg string, args ...any) {
	l.log(slog.LevelDebug, FormatLog(tag, msg), args...)
}

func (l *Logger) InfoTag(tag, msg string, args ...any) {
	l.log(slog.LevelInfo, FormatLog(tag, msg), args...)
}

func (l *Logger) WarnTag(tag, msg string, args ...any) {
	l.log(slog.LevelWarn, FormatLog(tag, msg), args...)
}

func (l *Logger) ErrorTag(tag, msg string, args ...any) {
	l.log(slog.LevelError, FormatLog(tag, msg), args...)
}

// Slog exposes the console logger for structured integrations.
func (l *Logger) Slog() *slog.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.textLogger
}
