package config

import (
	"time"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Web     WebConfig     `yaml:"web"`
	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Cache   CacheConfig   `yaml:"cache"`
	Uploads UploadConfig  `yaml:"uploads"`
}

type ServerConfig struct {
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

type WebConfig struct {
	StaticDir    string   `yaml:"static_dir"`
	CookieSecure bool     `yaml:"cookie_secure"`
	AllowOrigins []string `yaml:"allow_origins"`
}

// APIConfig points the client at the hotel backend.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type SessionConfig struct {
	CookieTTL time.Duration `yaml:"cookie_ttl"`
	Store     StoreConfig   `yaml:"store"`
}

type StoreConfig struct {
	Type      string        `yaml:"type"`
	Namespace string        `yaml:"namespace,omitempty"`
	Cleanup   time.Duration `yaml:"cleanup"`
	Redis     RedisStore    `yaml:"redis,omitempty"`
	SQLite    SQLiteStore   `yaml:"sqlite,omitempty"`
}

type RedisStore struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

type SQLiteStore struct {
	DSN string `yaml:"dsn,omitempty"`
}

// CacheConfig tunes the entity query cache.
type CacheConfig struct {
	ListStaleTime   time.Duration `yaml:"list_stale_time"`
	DetailStaleTime time.Duration `yaml:"detail_stale_time"`
	MaxEntries      int           `yaml:"max_entries"`
}

type UploadConfig struct {
	PhotoMaxBytes  int64 `yaml:"photo_max_bytes"`
	AvatarMaxBytes int64 `yaml:"avatar_max_bytes"`
	MaxWidth       int   `yaml:"max_width"`
	MaxHeight      int   `yaml:"max_height"`
}
