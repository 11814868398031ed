package projctx

import (
	"log/slog"

	"github.com/aretw0/projctx/internal/platform"
	"github.com/aretw0/projctx/pkg/core"
	"github.com/aretw0/projctx/pkg/projects"
)

// --- Types ---

// App is a wired projctx instance over one vault.
type App = platform.App

// Project is a workspace scoped to a subset of the vault.
type Project = core.ProjectConfig

// ContextSource holds the pattern lists of a project.
type ContextSource = core.ContextSource

// ProjectContext is the loaded context of a project.
type ProjectContext = projects.ProjectContext

// LoadState is the progress of the most recent context load.
type LoadState = projects.LoadState

// --- Configuration ---

// Option configures New.
type Option = platform.Option

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithSystemDir sets the hidden directory name (e.g. ".projctx").
func WithSystemDir(name string) Option {
	return platform.WithSystemDir(name)
}

// WithContentBackend selects the content store: "fs" or "sqlite".
func WithContentBackend(name string) Option {
	return platform.WithContentBackend(name)
}

// WithProjects registers the projects the App serves.
func WithProjects(projects []Project) Option {
	return platform.WithProjects(projects)
}

// WithConcurrency bounds how many files are parsed at once during a load.
func WithConcurrency(n int) Option {
	return platform.WithConcurrency(n)
}

// WithRateLimit caps parses per second during a load.
func WithRateLimit(perSecond float64) Option {
	return platform.WithRateLimit(perSecond)
}

// WithMetrics records activity in Prometheus collectors.
func WithMetrics(enabled bool) Option {
	return platform.WithMetrics(enabled)
}

// WithAutoInit creates the system directory if it is missing.
func WithAutoInit(auto bool) Option {
	return platform.WithAutoInit(auto)
}

// WithWatcherErrorHandler registers a callback for errors of the watch loop.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// --- Factory ---

// New wires projctx for the vault at path.
func New(path string, opts ...Option) (*App, error) {
	return platform.New(path, opts...)
}

// FindRoot looks upwards from dir for a vault root.
func FindRoot(dir string) (string, error) {
	return platform.FindRoot(dir, "")
}
