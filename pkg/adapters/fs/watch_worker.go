package fs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/projctx/pkg/core"
)

type watchWorker struct {
	*worker.BaseWorker
	vault     *Vault
	pattern   string
	events    chan<- core.Event
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	cancel    context.CancelFunc
}

func newWatchWorker(vault *Vault, pattern string, events chan<- core.Event) *watchWorker {
	return &watchWorker{
		BaseWorker: worker.NewBaseWorker("vault-watcher"),
		vault:      vault,
		pattern:    pattern,
		events:     events,
	}
}

// NewWatchWorker returns a lifecycle worker that sends vault changes matching
// pattern to events. It is meant to run under a supervisor, which may create
// several workers over time; events is never closed by the worker.
func NewWatchWorker(vault *Vault, pattern string, events chan<- core.Event) worker.Worker {
	return newWatchWorker(vault, pattern, events)
}

func (w *watchWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := w.vault.recursiveAdd(watcher, w.vault.Path); err != nil {
		_ = watcher.Close()
		return err
	}

	// Git checkouts rewrite many files at once; watch the lock to pause.
	_ = watcher.Add(filepath.Join(w.vault.Path, ".git"))

	w.watcher = watcher
	w.debouncer = newDebouncer(50 * time.Millisecond)
	w.vault.setWatcherActive(true)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *watchWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}

	return w.BaseWorker.Stop(ctx)
}

func (w *watchWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
			"pattern":           w.pattern,
		}
	})
}

func (w *watchWorker) logger() *slog.Logger {
	return w.vault.config.Logger
}

// handleGitLockEvent tracks .git/index.lock. handled is true when the event
// was about the lock.
func (w *watchWorker) handleGitLockEvent(event fsnotify.Event, gitLocked bool) (handled bool, locked bool) {
	if filepath.Base(event.Name) != "index.lock" || filepath.Base(filepath.Dir(event.Name)) != ".git" {
		return false, gitLocked
	}

	switch {
	case event.Has(fsnotify.Create):
		w.logger().Debug("git operations detected, pausing watcher")
		return true, true
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		w.logger().Debug("git operations finished, reconciling")
		return true, false
	}
	return true, gitLocked
}

// reconcileAfterGitUnlock emits the changes made while the watcher was paused.
func (w *watchWorker) reconcileAfterGitUnlock(ctx context.Context) {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		events, err := w.vault.Reconcile(ctx)
		if err != nil {
			w.logger().Error("reconcile failed", "error", err)
			return err
		}
		for _, e := range events {
			if w.matches(e.Path) {
				w.sendEvent(ctx, e)
			}
		}
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		w.reportError(fmt.Errorf("reconcile panic: %w", err))
	}))
}

func (w *watchWorker) matches(rel string) bool {
	return !w.vault.shouldIgnore(fsnotify.Event{Name: filepath.Join(w.vault.Path, filepath.FromSlash(rel))}, w.pattern)
}

// processFilesystemEvent filters, maps and debounces one fsnotify event.
func (w *watchWorker) processFilesystemEvent(ctx context.Context, event fsnotify.Event) bool {
	w.logger().Debug("event received", "name", event.Name, "op", event.Op.String())

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			rel, relErr := w.vault.rel(event.Name)
			if relErr == nil && w.vault.inVault(rel) {
				if err := w.vault.recursiveAdd(w.watcher, event.Name); err != nil {
					w.reportError(err)
				}
			}
			return false
		}
	}

	if w.vault.shouldIgnore(event, w.pattern) {
		return false
	}

	eType := mapEventType(event)
	if eType == "" {
		return false
	}

	rel, err := w.vault.rel(event.Name)
	if err != nil {
		w.reportError(fmt.Errorf("failed to resolve path for %s: %w", event.Name, err))
		return false
	}

	w.sendEvent(ctx, core.Event{
		Type:      eType,
		Path:      rel,
		Timestamp: time.Now().Unix(),
	})
	return true
}

// sendEvent enqueues an event via the debouncer, protecting against channel
// closure during shutdown.
func (w *watchWorker) sendEvent(ctx context.Context, event core.Event) {
	w.debouncer.add(event, func(e core.Event) {
		defer func() {
			_ = recover()
		}()
		select {
		case w.events <- e:
		case <-ctx.Done():
		}
	})
}

func (w *watchWorker) reportError(err error) {
	if w.vault.config.ErrorHandler != nil {
		w.vault.config.ErrorHandler(err)
		return
	}
	w.logger().Error("watcher error", "error", err)
}

func (w *watchWorker) run(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			panicErr := fmt.Errorf("watcher panic: %v", recovered)
			if w.logger().Enabled(ctx, slog.LevelDebug) {
				w.logger().Error("watcher panic", "error", panicErr, "stack", string(debug.Stack()))
			} else {
				w.logger().Error("watcher panic", "error", panicErr)
			}
			err = panicErr
		}
	}()
	defer w.vault.setWatcherActive(false)
	defer w.watcher.Close()

	err = w.loop(ctx)

	// Timers may still be sending; wait before the owner closes the channel.
	w.debouncer.stopAndWait(5 * time.Second)
	return err
}

func (w *watchWorker) loop(ctx context.Context) error {
	gitLocked := false
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}

			handled, locked := w.handleGitLockEvent(event, gitLocked)
			if handled {
				wasLocked := gitLocked
				gitLocked = locked
				switch {
				case !wasLocked && gitLocked:
					// Baseline for the changes made while paused.
					if _, err := w.vault.Reconcile(ctx); err != nil {
						w.reportError(err)
					}
				case wasLocked && !gitLocked:
					w.reconcileAfterGitUnlock(ctx)
				}
				continue
			}
			if gitLocked {
				continue
			}

			w.processFilesystemEvent(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger().Error("fsnotify error", "error", wErr)
			if w.vault.config.ErrorHandler != nil {
				w.vault.config.ErrorHandler(wErr)
			}
		}
	}
}
