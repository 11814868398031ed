package projects

import (
	"context"
	"errors"

	"github.com/aretw0/projctx/pkg/core"
)

// HandleEvent applies a vault change to every registered project it concerns
// and returns the IDs of the projects it touched. Projects without a cache
// are left alone; their first load picks the change up.
//
//   - CREATE of a tracked file adds it to the project.
//   - MODIFY of a tracked note invalidates the markdown context. Other files
//     are detected as stale on the next load.
//   - DELETE removes the entry and its content.
func (m *Manager) HandleEvent(ctx context.Context, e core.Event) ([]string, error) {
	m.recorder.VaultEvent(string(e.Type))

	file, ok, err := m.vault.FileByPath(ctx, e.Path)
	if err != nil {
		return nil, err
	}
	if !ok {
		file = core.FileFromPath(e.Path)
	}

	var touched []string
	var errs []error
	for _, p := range m.registry.All() {
		changed, err := m.applyEvent(ctx, p, e.Type, file)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if changed {
			touched = append(touched, p.ID)
		}
	}

	if len(touched) > 0 {
		m.logger.Debug("vault event applied", "event", e.String(), "projects", touched)
	}
	return touched, errors.Join(errs...)
}

func (m *Manager) applyEvent(ctx context.Context, p core.ProjectConfig, t core.EventType, file core.File) (bool, error) {
	cc, err := m.cache.Get(ctx, p)
	if errors.Is(err, core.ErrCacheNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	_, listed := cc.FileContexts[file.Path]

	switch t {
	case core.EventDelete:
		if !listed {
			return false, nil
		}
		return true, m.cache.CleanupProjectFileReferences(ctx, p)

	case core.EventCreate, core.EventModify:
		tracked, err := m.cache.Tracks(p, file)
		if err != nil {
			return false, err
		}
		if !tracked {
			// A file edited out of the project's patterns.
			if listed {
				return true, m.cache.CleanupProjectFileReferences(ctx, p)
			}
			return false, nil
		}
		if !listed {
			added := false
			err := m.cache.UpdateSafelyAsync(ctx, p, func(ctx context.Context, cc *core.ContextCache) (*core.ContextCache, error) {
				next, err := m.cache.AddProjectFiles(p, cc, []core.File{file})
				if err != nil {
					return nil, err
				}
				if len(next.FileContexts) == len(cc.FileContexts) {
					return nil, nil
				}
				added = true
				return next, nil
			})
			if errors.Is(err, core.ErrCacheNotFound) {
				return false, nil
			}
			return added && err == nil, err
		}
		if file.IsMarkdown() {
			return true, m.cache.InvalidateMarkdownContext(ctx, p, false)
		}
		return false, nil
	}
	return false, nil
}
