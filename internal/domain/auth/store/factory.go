package store

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Driver identifiers supported by the session store.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// DefaultNamespace scopes the console's token and session blob when the config names none.
const DefaultNamespace = "console"

// Dependencies captures external handles required by certain drivers.
type Dependencies struct {
	SQLiteDB *gorm.DB
}

// New opens the store holding the persisted session. An empty driver keeps
// the session in memory for the life of the process.
func New(cfg Config, deps Dependencies) (Store, error) {
	cfg.Driver = strings.ToLower(strings.TrimSpace(cfg.Driver))
	if cfg.Driver == "" {
		cfg.Driver = DriverMemory
	}
	cfg.Namespace = strings.TrimSpace(cfg.Namespace)
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}

	switch cfg.Driver {
	case DriverMemory:
		return NewMemory(cfg), nil
	case DriverSQLite:
		if deps.SQLiteDB == nil {
			return nil, fmt.Errorf("sqlite session store requires a database handle")
		}
		return NewSQLite(deps.SQLiteDB, cfg)
	case DriverRedis:
		return NewRedis(cfg)
	default:
		return nil, fmt.Errorf("unsupported session store driver %q (want memory, sqlite or redis)", cfg.Driver)
	}
}
