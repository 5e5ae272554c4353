package cliwire

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/rizrmd/claystudio/internal/agentstream"
	"github.com/rizrmd/claystudio/internal/analysisjob"
	"github.com/rizrmd/claystudio/internal/config"
	"github.com/rizrmd/claystudio/internal/contextdoc"
	"github.com/rizrmd/claystudio/internal/dmcache"
	"github.com/rizrmd/claystudio/internal/dspool"
	"github.com/rizrmd/claystudio/internal/sandboxjs"
	"github.com/rizrmd/claystudio/internal/store"
	"github.com/rizrmd/claystudio/internal/store/pg"
	"github.com/rizrmd/claystudio/internal/tooling"
	"github.com/rizrmd/claystudio/internal/wsfanout"
)

// App is every collaborator cmd's serve/worker entrypoints wire
// together, built once from config and shared between the two.
type App struct {
	DB       *sql.DB
	Stores   *store.Stores
	Pool     *dspool.Manager
	Cache    *dmcache.Cache
	Compiler *contextdoc.Compiler
	Registry *tooling.Registry
	Engine   *agentstream.Engine
	Hub      *wsfanout.Hub
	Jobs     *analysisjob.Scheduler
}

// Build constructs the full dependency graph from cfg. Callers are
// responsible for calling DB.Close() on shutdown. serve and worker both
// call this; serve uses Hub+Engine, worker uses Jobs — each ignores the
// collaborators it doesn't run, so the two can share one code path.
func Build(cfg *config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = slog.Default()
	}

	stores, db, err := pg.NewPGStores(store.StoreConfig{
		PostgresDSN:  cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("cliwire: build stores: %w", err)
	}

	pool := dspool.New(dspool.Options{
		MaxOpenConnsPerPool: cfg.Dspool.MaxOpenConnsPerPool,
		MaxIdleConnsPerPool: cfg.Dspool.MaxIdleConnsPerPool,
		IdleTimeout:         durationOr(cfg.Dspool.IdleTimeout, 10*time.Minute),
		SweepInterval:       durationOr(cfg.Dspool.SweepInterval, time.Minute),
		ValidationTimeout:   durationOr(cfg.Dspool.ValidationTimeout, 3*time.Second),
		DefaultRowLimit:     cfg.Dspool.DefaultRowLimit,
	}, log)

	cache := dmcache.New(durationOr(cfg.Dmcache.TTL, time.Minute), tooling.NewDatasourceLoader(stores))

	compiler := contextdoc.New(NewContextSummarizer(stores), 5*time.Minute)

	registry := tooling.BuildRegistry(tooling.Deps{
		Stores:                 stores,
		Pool:                   pool,
		Cache:                  cache,
		Compiler:               compiler,
		DefaultRowLimit:        cfg.Dspool.DefaultRowLimit,
		UploadRoot:             cfg.Files.UploadRoot,
		MaxInlineContentBytes:  cfg.Files.MaxInlineContentBytes,
		DownloadMaxBytes:       cfg.Files.DownloadMaxBytes,
		DownloadWallTimeout:    durationOr(cfg.Files.DownloadWallTimeout, time.Minute),
		DownloadRequestTimeout: durationOr(cfg.Files.DownloadRequestTimeout, 30*time.Second),
	})

	dispatcher := tooling.NewDispatcher(registry, stores.ToolUsages, log)
	streams := agentstream.NewRegistry()

	// Engine and Hub are mutually referential (Engine broadcasts through
	// Hub, Hub replays live turns from Engine); Engine is built first
	// with no Broadcaster and wired to the Hub right after.
	engine := agentstream.NewEngine(cfg.Agent, stores, dispatcher, registry, streams, nil, log)
	hub := wsfanout.NewHub(stores, cache, compiler, engine, log)
	engine.SetBroadcaster(hub)

	executor := sandboxjs.NewExecutor(cfg.Analysis, registry, stores, log)
	jobs := analysisjob.New(cfg.Analysis, stores, executor, log)

	return &App{
		DB: db, Stores: stores, Pool: pool, Cache: cache, Compiler: compiler,
		Registry: registry, Engine: engine, Hub: hub, Jobs: jobs,
	}, nil
}

func durationOr(s string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return fallback
}
