package tasksync

import (
	"github.com/rs/zerolog"

	"github.com/colonyops/tasksync/internal/core/config"
	"github.com/colonyops/tasksync/internal/core/eventbus"
	"github.com/colonyops/tasksync/internal/core/kv"
	"github.com/colonyops/tasksync/internal/data/db"
	"github.com/colonyops/tasksync/internal/data/stores"
)

// App is the central entry point for all tasksync operations.
// Commands and the MCP server consume App instead of cherry-picking raw
// dependencies.
type App struct {
	Projects *ProjectService
	Scans    *ScanService
	Changes  *ChangeService
	Tasks    *TaskService
	Resolver *Resolver

	Bus    *eventbus.EventBus
	Cache  kv.KV
	Config *config.Config
	DB     *db.DB
}

// NewApp wires the sqlite stores and services together. provider is the
// remote repository source scans read from.
func NewApp(cfg *config.Config, database *db.DB, provider Provider, bus *eventbus.EventBus, log zerolog.Logger) *App {
	projectStore := stores.NewProjectStore(database).WithScanLease(cfg.Scan.StaleAfter)
	scanStore := stores.NewScanStore(database)
	taskStore := stores.NewTaskStore(database)
	tx := stores.NewTransactor(database)

	// A zero TTL keeps blob contents in process memory, expiring after
	// DefaultCacheTTL.
	var cache kv.KV = kv.NewMemory()
	if cfg.Scan.CacheTTL > 0 {
		cache = stores.NewKVStore(database)
	}

	fetcher := NewFetcher(provider, cache, FetcherOptions{
		BatchSize:        cfg.Scan.BatchSize,
		CacheTTL:         cfg.Scan.CacheTTL,
		RespectGitignore: cfg.Scan.Gitignore(),
	}, log)

	projects := NewProjectService(projectStore, cfg.Defaults, log)

	return &App{
		Projects: projects,
		Scans: NewScanService(projectStore, scanStore, tx, fetcher, bus, ScanOptions{
			Defaults:      cfg.Defaults,
			ContextBefore: cfg.Scan.ContextBefore,
			ContextAfter:  cfg.Scan.ContextAfter,
		}, log),
		Changes:  NewChangeService(projects, scanStore),
		Tasks:    NewTaskService(projects, taskStore),
		Resolver: NewResolver(projectStore, scanStore, taskStore, tx, bus, log),
		Bus:      bus,
		Cache:    cache,
		Config:   cfg,
		DB:       database,
	}
}
