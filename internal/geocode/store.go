package geocode

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// StoreConfig selects and configures a persistent cache backend.
type StoreConfig struct {
	Backend string // memory, sqlite or redis
	Path    string
	TTL     time.Duration
	Redis   RedisConfig
}

// OpenStore opens the configured backend. The memory backend has no
// persistent store and returns nil.
func OpenStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "memory", "none":
		return nil, nil
	case "sqlite":
		return NewSQLiteCache(cfg.Path, cfg.TTL)
	case "redis":
		rc := cfg.Redis
		if rc.TTL == 0 {
			rc.TTL = cfg.TTL
		}
		return NewRedisCache(ctx, rc)
	default:
		return nil, fmt.Errorf("unknown cache backend %q (use memory, sqlite or redis)", cfg.Backend)
	}
}
