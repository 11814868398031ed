package cache

import (
	"context"
	"fmt"

	"github.com/aretw0/projctx/pkg/core"
)

// UpdateSafely applies fn to the latest stored document and persists the
// result, holding the project's lock for the whole read-modify-write.
//
// When the project has no document, skipIfEmpty=true returns nil without
// calling fn; otherwise core.ErrCacheNotFound is returned. A nil result from
// fn leaves the document untouched.
func (c *Cache) UpdateSafely(ctx context.Context, p core.ProjectConfig, fn func(*core.ContextCache) *core.ContextCache, skipIfEmpty bool) error {
	return c.update(ctx, p, skipIfEmpty, func(_ context.Context, cc *core.ContextCache) (*core.ContextCache, error) {
		return fn(cc), nil
	})
}

// UpdateSafelyAsync is UpdateSafely for updaters that do their own blocking
// work. The lock is held while fn runs, so fn must not call back into update
// operations for the same project. An error from fn aborts without writing.
func (c *Cache) UpdateSafelyAsync(ctx context.Context, p core.ProjectConfig, fn func(context.Context, *core.ContextCache) (*core.ContextCache, error)) error {
	return c.update(ctx, p, false, fn)
}

func (c *Cache) update(ctx context.Context, p core.ProjectConfig, skipIfEmpty bool, fn func(context.Context, *core.ContextCache) (*core.ContextCache, error)) error {
	if err := validate(p); err != nil {
		return err
	}

	unlock, err := c.locks.lock(ctx, p.ID)
	if err != nil {
		return err
	}
	defer unlock()

	current, ok, err := c.load(ctx, p.ID)
	if err != nil {
		c.recorder.SafeUpdate(OutcomeFailed)
		return err
	}
	if !ok {
		if skipIfEmpty {
			c.recorder.SafeUpdate(OutcomeSkipped)
			return nil
		}
		c.recorder.SafeUpdate(OutcomeFailed)
		return fmt.Errorf("cannot update project %s: %w", p.ID, core.ErrCacheNotFound)
	}

	next, err := fn(ctx, current)
	if err != nil {
		c.recorder.SafeUpdate(OutcomeFailed)
		return fmt.Errorf("update of project %s aborted: %w", p.ID, err)
	}
	if next == nil {
		c.recorder.SafeUpdate(OutcomeUnchanged)
		return nil
	}

	if err := c.save(ctx, p.ID, next); err != nil {
		c.recorder.SafeUpdate(OutcomeFailed)
		return fmt.Errorf("failed to write cache for project %s: %w", p.ID, err)
	}
	c.recorder.SafeUpdate(OutcomeWritten)
	return nil
}
