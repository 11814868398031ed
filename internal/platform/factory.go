package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/projctx/pkg/adapters/fs"
	"github.com/aretw0/projctx/pkg/adapters/sqlite"
	"github.com/aretw0/projctx/pkg/cache"
	"github.com/aretw0/projctx/pkg/core"
	"github.com/aretw0/projctx/pkg/metrics"
	"github.com/aretw0/projctx/pkg/parser"
	"github.com/aretw0/projctx/pkg/patterns"
	"github.com/aretw0/projctx/pkg/projects"
)

// SQLiteFile is the content database name inside the system dir.
const SQLiteFile = "content.db"

// App is a wired projctx instance over one vault.
type App struct {
	Path      string
	SystemDir string

	Vault   *fs.Vault
	Storage *fs.Storage
	Content core.ContentStore
	Parsers *parser.Manager
	Cache   *cache.Cache
	Manager *projects.Manager
	Metrics *metrics.Metrics

	logger       *slog.Logger
	errorHandler func(error)
	closers      []func() error
}

// New wires an App for the vault at path.
//
//	app, err := platform.New("./vault", platform.WithProjects(projects))
func New(path string, opts ...Option) (*App, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	systemDir, _ := o.config["system_dir"].(string)
	if systemDir == "" {
		systemDir = DefaultSystemDir
	}
	autoInit, _ := o.config["auto_init"].(bool)
	concurrency, _ := o.config["concurrency"].(int)
	rateLimit, _ := o.config["rate_limit"].(float64)
	withMetrics, _ := o.config["metrics"].(bool)
	errorHandler, _ := o.config["watcher_error_handler"].(func(error))

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("vault not found: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault %s is not a directory", abs)
	}

	systemPath := filepath.Join(abs, systemDir)
	if autoInit {
		if err := Init(abs, systemDir, logger); err != nil {
			return nil, err
		}
	}

	app := &App{
		Path:         abs,
		SystemDir:    systemDir,
		logger:       logger,
		errorHandler: errorHandler,
	}

	app.Vault = fs.NewVault(fs.VaultConfig{
		Path:         abs,
		SystemDir:    systemDir,
		Logger:       logger,
		ErrorHandler: errorHandler,
	})
	app.Storage = fs.NewStorage(systemPath, logger)
	app.Parsers = parser.NewDefaultManager()

	switch o.backend {
	case BackendFS:
		app.Content = fs.NewContentStore(app.Storage, fs.DefaultContentDir, logger)
	case BackendSQLite:
		store, err := sqlite.Open(filepath.Join(systemPath, SQLiteFile))
		if err != nil {
			return nil, err
		}
		app.Content = store
		app.closers = append(app.closers, store.Close)
	default:
		return nil, fmt.Errorf("unknown content backend: %s", o.backend)
	}

	var recorder *metrics.Metrics
	if withMetrics {
		recorder = metrics.New()
		app.Metrics = recorder
	}

	cacheCfg := cache.Config{
		Storage: app.Storage,
		Content: app.Content,
		Vault:   app.Vault,
		Matcher: patterns.New(),
		Parsers: app.Parsers,
		Logger:  logger,
	}
	if recorder != nil {
		cacheCfg.Recorder = recorder
	}
	app.Cache, err = cache.New(cacheCfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	registry, err := projects.NewRegistry(o.projects)
	if err != nil {
		app.Close()
		return nil, err
	}

	managerCfg := projects.Config{
		Cache:       app.Cache,
		Vault:       app.Vault,
		Reader:      app.Vault,
		Parser:      app.Parsers,
		Registry:    registry,
		Logger:      logger,
		Concurrency: concurrency,
		RateLimit:   rateLimit,
	}
	if recorder != nil {
		managerCfg.Recorder = recorder
	}
	app.Manager, err = projects.NewManager(managerCfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

// Init creates the system directory of the vault at path and, in git
// checkouts, keeps it out of version control.
func Init(path, systemDir string, logger *slog.Logger) error {
	if systemDir == "" {
		systemDir = DefaultSystemDir
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := os.MkdirAll(filepath.Join(path, systemDir), 0755); err != nil {
		return fmt.Errorf("failed to create system directory: %w", err)
	}
	if _, err := fs.NewStorage(path, logger).EnsureIgnore(systemDir); err != nil {
		logger.Warn("failed to update .gitignore", "error", err)
	}
	return nil
}

// Project resolves a project by ID or name.
func (a *App) Project(ref string) (core.ProjectConfig, error) {
	return a.Manager.Registry().Find(ref)
}

// ClearContent empties the content store of every project.
func (a *App) ClearContent(ctx context.Context) error {
	return a.Content.Clear(ctx)
}

// Close releases resources held by the content store.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}
