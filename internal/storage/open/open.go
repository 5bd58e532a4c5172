package open

import (
	"context"
	"fmt"

	"agro-report/internal/config"
	"agro-report/internal/storage"
	"agro-report/internal/storage/redis"
	"agro-report/internal/storage/sqldb"
)

type Store interface {
	storage.Store
	Close() error
}

// New opens the local store selected by cfg.Driver.
func New(ctx context.Context, cfg config.Storage) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "mysql", "":
		return sqldb.New(ctx, cfg)
	case "redis":
		return redis.New(ctx, cfg)
	default:
		return nil, fmt.Errorf("storage.open.New: unsupported driver %q", cfg.Driver)
	}
}
