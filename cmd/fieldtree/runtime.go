package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	// SQL drivers selectable through store.driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/goliatone/go-fieldtree/internal/config"
	"github.com/goliatone/go-fieldtree/pkg/cache"
	"github.com/goliatone/go-fieldtree/pkg/encoder"
	"github.com/goliatone/go-fieldtree/pkg/gate"
	"github.com/goliatone/go-fieldtree/pkg/metrics"
	"github.com/goliatone/go-fieldtree/pkg/registry"
	"github.com/goliatone/go-fieldtree/pkg/schema"
	"github.com/goliatone/go-fieldtree/pkg/service"
	"github.com/goliatone/go-fieldtree/pkg/store"
	"github.com/goliatone/go-fieldtree/pkg/store/memory"
	"github.com/goliatone/go-fieldtree/pkg/store/sqlstore"
)

// runtime holds the wired collaborators of one command invocation.
type runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry schema.Registry
	watcher  *registry.Watcher
	metrics  *metrics.Prometheus
	service  *service.Service

	closers []func() error
}

func openRuntime(ctx context.Context, cfg *config.Config, logger *zap.Logger, seedPath string) (*runtime, error) {
	rt := &runtime{cfg: cfg, logger: logger, metrics: metrics.NewPrometheus()}
	if err := rt.open(ctx, seedPath); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) open(ctx context.Context, seedPath string) error {
	if err := rt.openRegistry(); err != nil {
		return err
	}
	index := schema.NewIndex(rt.registry)

	values, content, seeder, err := rt.openStore(ctx, index)
	if err != nil {
		return err
	}
	if seedPath != "" {
		if err := loadSeed(ctx, seedPath, seeder, values); err != nil {
			return err
		}
	}

	treeCache, err := rt.openCache(ctx)
	if err != nil {
		return err
	}

	rt.service = service.New(
		service.WithRegistry(rt.registry),
		service.WithValueStore(values),
		service.WithContent(content),
		service.WithCache(treeCache),
		service.WithGate(gate.New(gate.WithTransientStatuses(rt.cfg.Write.TransientStatuses...))),
		service.WithLogger(rt.logger),
		service.WithMetrics(rt.metrics),
		service.WithEncoderOptions(encoder.WithMaxDepth(rt.cfg.Encoder.MaxDepth)),
	)
	return nil
}

func (rt *runtime) openRegistry() error {
	dir := rt.cfg.Registry.Dir
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("registry dir %q: %w", dir, err)
	}
	if rt.cfg.Registry.Watch {
		watcher, err := registry.NewWatcher(dir,
			registry.WithWatchPattern(rt.cfg.Registry.Pattern),
			registry.WithLogger(rt.logger),
		)
		if err != nil {
			return err
		}
		rt.watcher = watcher
		rt.registry = watcher
		return nil
	}
	reg, err := registry.LoadFS(os.DirFS(dir), registry.WithPattern(rt.cfg.Registry.Pattern))
	if err != nil {
		return err
	}
	rt.registry = reg
	return nil
}

func (rt *runtime) openStore(ctx context.Context, index schema.Index) (store.ValueStore, store.ContentSource, contentSeeder, error) {
	switch rt.cfg.Store.Driver {
	case config.DriverSQLite, config.DriverPgx:
		db, err := sql.Open(rt.cfg.Store.Driver, rt.cfg.Store.DSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open %s: %w", rt.cfg.Store.Driver, err)
		}
		rt.closers = append(rt.closers, db.Close)
		if err := db.PingContext(ctx); err != nil {
			return nil, nil, nil, fmt.Errorf("connect %s: %w", rt.cfg.Store.Driver, err)
		}
		sqlStore := sqlstore.New(db, index, sqlstore.WithDialect(sqlstore.DialectFor(rt.cfg.Store.Driver)))
		if err := sqlStore.Migrate(ctx); err != nil {
			return nil, nil, nil, err
		}
		return sqlStore, sqlStore, sqlStore, nil
	default:
		content := memory.NewContent()
		return memory.New(index, memory.WithContent(content)), content, memoryContentSeeder{content}, nil
	}
}

func (rt *runtime) openCache(ctx context.Context) (cache.Cache, error) {
	switch rt.cfg.Cache.Driver {
	case config.DriverNone:
		return cache.Nop{}, nil
	case config.DriverRedis:
		redisCfg := rt.cfg.Cache.Redis
		c := cache.NewRedis(redisCfg.Addr, redisCfg.Password, redisCfg.DB,
			cache.WithPrefix(redisCfg.Prefix),
			cache.WithTTL(rt.cfg.Cache.TTL),
		)
		rt.closers = append(rt.closers, c.Close)
		if err := c.Ping(ctx); err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		return c, nil
	default:
		return cache.NewMemory(), nil
	}
}

// Close releases database and cache connections.
func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
