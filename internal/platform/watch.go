package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/projctx/pkg/adapters/fs"
	lcadapter "github.com/aretw0/projctx/pkg/adapters/lifecycle"
	"github.com/aretw0/projctx/pkg/core"
)

const stopTimeout = 5 * time.Second

// Watch keeps every registered project in step with the vault until ctx ends.
// The watcher runs under a supervisor that restarts it on failure; each change
// matching pattern is applied through the project manager. It returns nil
// once ctx ends.
func (a *App) Watch(ctx context.Context, pattern string) error {
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("invalid watch pattern: %q", pattern)
	}
	// Baseline for the reconciliation that follows a git checkout.
	if _, err := a.Vault.Reconcile(ctx); err != nil {
		return err
	}

	raw := make(chan core.Event, 64)

	spec := supervisor.Spec{
		Name: "vault-watcher",
		Type: string(worker.TypeGoroutine),
		Factory: func() (worker.Worker, error) {
			return fs.NewWatchWorker(a.Vault, pattern, raw), nil
		},
		Backoff: supervisor.Backoff{
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2,
			ResetDuration:   time.Minute,
			MaxRestarts:     10,
			MaxDuration:     10 * time.Minute,
		},
		RestartPolicy: supervisor.RestartOnFailure,
	}
	sup := supervisor.New("projctx-watch", supervisor.StrategyOneForOne, spec)
	if err := sup.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := sup.Stop(stopCtx); err != nil {
			a.logger.Warn("failed to stop watcher", "error", err)
		}
	}()

	src := lcadapter.NewSource(raw, lcadapter.WithFilter(a.parseable))
	if err := src.Start(ctx); err != nil {
		return err
	}

	a.logger.Info("watching vault", "path", a.Path, "pattern", pattern, "projects", len(a.Manager.Registry().All()))
	for e := range src.Events() {
		event, ok := e.(core.Event)
		if !ok {
			continue
		}
		touched, err := a.Manager.HandleEvent(ctx, event)
		if err != nil {
			a.reportError(fmt.Errorf("failed to apply %s: %w", event, err))
			continue
		}
		if len(touched) > 0 {
			a.logger.Info("vault change applied", "event", event.String(), "projects", touched)
		}
	}
	return nil
}

// parseable reports whether e concerns a file some parser handles. No project
// ever lists any other file.
func (a *App) parseable(e core.Event) bool {
	return a.Parsers.SupportsExtension(core.FileFromPath(e.Path).Extension)
}

func (a *App) reportError(err error) {
	if a.errorHandler != nil {
		a.errorHandler(err)
		return
	}
	a.logger.Error("watch error", "error", err)
}
