package backend

import (
	"context"
	"fmt"

	"aidance/internal/cache"
	applog "aidance/internal/log"
	"aidance/internal/storage"
	"aidance/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
	caches *cache.Manager
}

// NewFactory creates a backend factory. Caches it builds are registered
// with caches when non-nil so they get swept.
func NewFactory(logger *applog.Logger, caches *cache.Manager) Factory {
	if logger == nil {
		logger = applog.Default(applog.ComponentBackend)
	}
	return &DefaultFactory{logger: logger, caches: caches}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	db, err := storage.NewSQLiteKV(config.SQLiteDBPath, storage.WithQuota(config.QuotaBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	seeded, err := storage.SeedFromDir(ctx, db, config.DataDirectory)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed SQLite store: %w", err)
	}

	var kv storage.KV = db
	if config.CacheTTL > 0 {
		size := config.CacheSize
		if size <= 0 {
			size = DefaultCacheSize
		}
		lru := cache.NewLRUCache[[]byte](size, config.CacheTTL)
		if f.caches != nil {
			f.caches.Register(lru)
		}
		kv = storage.NewCachedKV(db, lru)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"quota_bytes", config.QuotaBytes,
		"cache_ttl", config.CacheTTL.String(),
		"seeded", seeded)

	return &BackendResult{
		KV:      kv,
		Ready:   db.Ping,
		Cleanup: db.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*BackendResult, error) {
	kv, err := memory.NewFromDir(ctx, config.DataDirectory, config.QuotaBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory store: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized memory backend",
		"data_directory", config.DataDirectory,
		"quota_bytes", config.QuotaBytes)

	return &BackendResult{KV: kv}, nil
}
