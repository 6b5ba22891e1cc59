package config

import "time"

// FallbackAPIURL is used when neither the config file nor the environment provide a base URL.
const FallbackAPIURL = "https://hotel-backend-production-eaf0.up.railway.app/api"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:   "0.0.0.0",
			Port: 3000,
		},
		Log: LogConfig{
			Level: "INFO",
			Dir:   "data/logs",
			File:  "hotel-admin.log",
		},
		Web: WebConfig{
			StaticDir:    "./web",
			AllowOrigins: []string{"*"},
		},
		API: APIConfig{
			BaseURL: FallbackAPIURL,
			Timeout: 30 * time.Second,
		},
		Session: SessionConfig{
			CookieTTL: 7 * 24 * time.Hour,
			Store: StoreConfig{
				Type:    "memory",
				Cleanup: 5 * time.Minute,
				SQLite:  SQLiteStore{DSN: "data/hotel-admin.db"},
			},
		},
		Cache: CacheConfig{
			ListStaleTime:   5 * time.Minute,
			DetailStaleTime: 0,
			MaxEntries:      512,
		},
		Uploads: UploadConfig{
			PhotoMaxBytes:  10 * 1024 * 1024,
			AvatarMaxBytes: 5 * 1024 * 1024,
			MaxWidth:       8192,
			MaxHeight:      8192,
		},
	}
}
