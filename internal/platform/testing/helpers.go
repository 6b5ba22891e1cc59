package testing

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"hotel-admin-go/internal/platform/config"
	"hotel-admin-go/internal/platform/logging"
)

// SetupTestConfig returns defaults pointed at baseURL with a memory session store.
func SetupTestConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Server.IP = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Log.Level = "DEBUG"
	cfg.Log.Dir = ""
	cfg.Web.StaticDir = ""
	cfg.API.BaseURL = baseURL
	cfg.API.Timeout = 5 * time.Second
	cfg.Session.Store.Type = "memory"
	cfg.Session.Store.Namespace = t.Name()
	return cfg
}

// SetupTestLogger returns a logger that only writes when -v is set.
func SetupTestLogger(t *testing.T) *logging.Logger {
	t.Helper()

	var console io.Writer = io.Discard
	if testing.Verbose() {
		console = os.Stderr
	}
	logger, err := logging.New(logging.Config{Level: "debug", Console: console})
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })
	return logger
}

// Context returns a context cancelled with the test.
func Context(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// Eventually polls cond until it holds or the timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
