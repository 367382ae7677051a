package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fjod/go_cart/cart-sync/internal/config"
	"github.com/fjod/go_cart/cart-sync/internal/remote"
	"github.com/fjod/go_cart/cart-sync/internal/storage"
	"github.com/fjod/go_cart/cart-sync/internal/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// openLocalStore connects the configured backend. The returned func releases
// its connections.
func openLocalStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (storage.LocalStore, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
		return storage.NewRedisStore(client, storage.WithTTL(cfg.RedisTTL)), func() { client.Close() }, nil

	case config.BackendMongo:
		db, err := storage.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		s := storage.NewMongoStore(db)
		if err := s.CreateIndexes(ctx); err != nil {
			log.Warn("mongo index creation failed", zap.Error(err))
		}
		log.Info("connected to mongodb", zap.String("db", cfg.MongoDBName))
		return s, func() { _ = db.Client().Disconnect(context.Background()) }, nil

	case config.BackendSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
		s, err := storage.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info("opened sqlite cart cache", zap.String("path", cfg.SQLitePath))
		return s, func() { _ = s.Close() }, nil

	default:
		return storage.NewMemoryStore(), func() {}, nil
	}
}

func newRemote(cfg *config.Config, log *zap.Logger) remote.CartService {
	if offline || cfg.APIBaseURL == "" {
		return nil
	}
	return remote.NewHTTPClient(cfg.APIBaseURL,
		remote.WithToken(cfg.APIToken),
		remote.WithTimeout(cfg.APITimeout),
		remote.WithLogger(log))
}

func storeOptions(cfg *config.Config, log *zap.Logger) []store.Option {
	return []store.Option{
		store.WithStorageKey(cfg.Key()),
		store.WithPageSize(cfg.PageSize),
		store.WithMirrorTimeout(cfg.APITimeout),
		store.WithLogger(log),
	}
}

// errEphemeralBackend is returned by one-shot commands when nothing they
// change would outlive the process.
var errEphemeralBackend = errors.New("CART_STORAGE_BACKEND=memory does not persist between commands; use sqlite, redis or mongo")

// withStore runs fn against a store seeded from the local cache and waits for
// its remote mirrors before returning.
func withStore(ctx context.Context, fn func(*store.Store) error) error {
	if cfg.StorageBackend == config.BackendMemory {
		return errEphemeralBackend
	}
	local, closeLocal, err := openLocalStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeLocal()

	s := store.New(ctx, local, newRemote(cfg, log), storeOptions(cfg, log)...)
	defer s.Close()
	return fn(s)
}
