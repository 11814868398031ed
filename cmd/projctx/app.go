package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/projctx/internal/config"
	"github.com/aretw0/projctx/internal/platform"
	"github.com/aretw0/projctx/pkg/core"
)

// resolveVault returns the --vault flag, or the nearest vault root, or the
// working directory.
func resolveVault() string {
	if vaultPath != "" {
		abs, err := filepath.Abs(vaultPath)
		if err != nil {
			fatal("Invalid vault path", err)
		}
		return abs
	}
	wd, err := os.Getwd()
	if err != nil {
		fatal("Failed to get working directory", err)
	}
	if root, err := platform.FindRoot(wd, ""); err == nil {
		return root
	}
	return wd
}

func settingsPath(root string) string {
	if configPath != "" {
		return configPath
	}
	return config.Path(root, config.DefaultSystemDir)
}

func loadSettings(root string) *config.Settings {
	s, err := config.Load(settingsPath(root))
	if err != nil {
		fatal("Failed to load settings", err)
	}
	return s
}

// openApp wires projctx from the settings of the vault.
func openApp(extra ...platform.Option) (*platform.App, *config.Settings) {
	root := resolveVault()
	s := loadSettings(root)

	opts := []platform.Option{
		platform.WithLogger(slog.Default()),
		platform.WithSystemDir(s.SystemDir),
		platform.WithContentBackend(s.ContentBackend),
		platform.WithConcurrency(s.Concurrency),
		platform.WithRateLimit(s.RateLimit),
		platform.WithProjects(s.Projects),
	}
	app, err := platform.New(root, append(opts, extra...)...)
	if err != nil {
		fatal("Failed to open vault", err)
	}
	return app, s
}

// mustProject resolves a project argument by ID or name.
func mustProject(app *platform.App, ref string) core.ProjectConfig {
	p, err := app.Project(ref)
	if err != nil {
		fatal("Unknown project", err)
	}
	return p
}
