package repository

import (
	"context"
	"log/slog"
	"strings"
)

// Migrator is implemented by stores that can create their own tables.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// OpenStore opens the job store named by cfg.DSN and runs migrations. A
// postgres:// URL selects the pgx-backed store; anything else is treated as
// an SQLite path (":memory:" for ephemeral, empty defaults to formbridge.db).
// The returned cleanup closes the underlying connection.
func OpenStore(ctx context.Context, cfg Config, logger *slog.Logger) (JobStore, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := strings.TrimSpace(cfg.DSN)
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		pool, err := OpenPool(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		if err := HealthCheck(ctx, pool, cfg.DialTimeout); err != nil {
			pool.Close()
			return nil, nil, err
		}
		store := NewPostgresJobStore(pool, logger)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil
	}

	if dsn == "" {
		dsn = "formbridge.db"
	}
	db, err := OpenSQLite(dsn, logger)
	if err != nil {
		return nil, nil, err
	}
	store := NewSQLiteJobStore(db, logger)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store, func() { _ = db.Close() }, nil
}
