package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"hotel-admin-go/internal/platform/errors"
)

// Environment variables understood by the loader.
const (
	EnvConfigPath = "HOTEL_ADMIN_CONFIG"
	EnvAPIURL     = "HOTEL_API_URL"
	// EnvLegacyAPIURL is the variable name the web dashboard used.
	EnvLegacyAPIURL = "NEXT_PUBLIC_API_URL"
)

var candidatePaths = []string{"config.yaml", ".config.yaml"}

// Loader reads the yaml config, applies .env and environment overrides, then validates.
type Loader struct {
	useDotEnv bool
	path      string
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a loader that searches the working directory for config.yaml.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		lookupEnv: os.LookupEnv,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath pins the config file location.
func (l *Loader) WithPath(path string) *Loader {
	l.path = path
	return l
}

// WithEnv replaces the environment lookup (useful for tests).
func (l *Loader) WithEnv(lookup func(string) (string, bool)) *Loader {
	if lookup != nil {
		l.lookupEnv = lookup
	}
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load returns defaults merged with the first config file found.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		// a missing .env is normal outside development
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()
	path := l.resolvePath()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(errors.KindConfig, "config.read", "failed to read config file", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errors.Wrap(errors.KindConfig, "config.parse", fmt.Sprintf("failed to parse %s", path), err)
		}
	} else {
		path = "defaults"
	}

	l.applyEnv(cfg)
	if err := l.validate(cfg); err != nil {
		return nil, err
	}
	return &Result{Config: cfg, Path: path}, nil
}

func (l *Loader) resolvePath() string {
	if l.path != "" {
		return l.path
	}
	if p, ok := l.lookupEnv(EnvConfigPath); ok && p != "" {
		return p
	}
	for _, p := range candidatePaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func (l *Loader) applyEnv(cfg *Config) {
	for _, key := range []string{EnvAPIURL, EnvLegacyAPIURL} {
		if v, ok := l.lookupEnv(key); ok && strings.TrimSpace(v) != "" {
			cfg.API.BaseURL = strings.TrimSpace(v)
			return
		}
	}
	if strings.TrimSpace(cfg.API.BaseURL) == "" {
		cfg.API.BaseURL = FallbackAPIURL
	}
}

func (l *Loader) validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return errors.New(errors.KindConfig, "config.validate", fmt.Sprintf("invalid server port %d", cfg.Server.Port))
	}
	if !strings.HasPrefix(cfg.API.BaseURL, "http://") && !strings.HasPrefix(cfg.API.BaseURL, "https://") {
		return errors.New(errors.KindConfig, "config.validate", fmt.Sprintf("api base url must be http(s): %q", cfg.API.BaseURL))
	}
	if cfg.API.Timeout < 0 {
		return errors.New(errors.KindConfig, "config.validate", "api timeout must not be negative")
	}
	switch strings.ToLower(cfg.Session.Store.Type) {
	case "", "memory", "sqlite", "redis":
	default:
		return errors.New(errors.KindConfig, "config.validate", fmt.Sprintf("unsupported session store %q", cfg.Session.Store.Type))
	}
	if strings.EqualFold(cfg.Session.Store.Type, "redis") && cfg.Session.Store.Redis.Addr == "" {
		return errors.New(errors.KindConfig, "config.validate", "redis session store requires an address")
	}
	return nil
}
