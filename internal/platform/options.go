package platform

import (
	"log/slog"

	"github.com/aretw0/projctx/pkg/core"
)

// Content store backends.
const (
	BackendFS     = "fs"
	BackendSQLite = "sqlite"
)

// DefaultSystemDir is the hidden vault directory projctx keeps its state in.
const DefaultSystemDir = ".projctx"

// options holds the internal configuration of an App.
type options struct {
	logger   *slog.Logger
	backend  string
	projects []core.ProjectConfig
	config   map[string]interface{}
}

// Option configures New.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		backend: BackendFS,
		config:  make(map[string]interface{}),
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSystemDir sets the hidden directory name (e.g. ".projctx").
func WithSystemDir(name string) Option {
	return func(o *options) {
		o.config["system_dir"] = name
	}
}

// WithContentBackend selects where parsed file content lives: "fs" (one JSON
// file per entry, the default) or "sqlite" (a single database in the system dir).
func WithContentBackend(name string) Option {
	return func(o *options) {
		o.backend = name
	}
}

// WithProjects registers the projects the App serves.
func WithProjects(projects []core.ProjectConfig) Option {
	return func(o *options) {
		o.projects = projects
	}
}

// WithConcurrency bounds how many files are parsed at once during a load.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.config["concurrency"] = n
	}
}

// WithRateLimit caps parses per second during a load. Zero means unlimited.
func WithRateLimit(perSecond float64) Option {
	return func(o *options) {
		o.config["rate_limit"] = perSecond
	}
}

// WithMetrics records cache and loader activity in Prometheus collectors.
func WithMetrics(enabled bool) Option {
	return func(o *options) {
		o.config["metrics"] = enabled
	}
}

// WithAutoInit creates the system directory if it is missing.
func WithAutoInit(auto bool) Option {
	return func(o *options) {
		o.config["auto_init"] = auto
	}
}

// WithWatcherErrorHandler registers a callback for errors of the watch loop,
// which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.config["watcher_error_handler"] = fn
	}
}
