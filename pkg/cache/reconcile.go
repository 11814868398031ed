package cache

import (
	"context"
	"fmt"

	"github.com/aretw0/projctx/pkg/core"
)

// UpdateProjectFilesFromPatterns returns a copy of cc with an entry added for
// every vault file the project tracks but cc does not list yet. Existing
// entries are left alone and nothing is persisted; removal is the job of
// CleanupProjectFileReferences.
func (c *Cache) UpdateProjectFilesFromPatterns(ctx context.Context, p core.ProjectConfig, cc *core.ContextCache) (*core.ContextCache, error) {
	files, err := c.vault.Files(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list vault files: %w", err)
	}
	return c.reconcile(p, cc, files, false)
}

// UpdateProjectMarkdownFilesFromPatterns is UpdateProjectFilesFromPatterns over
// the given files, considering markdown notes only.
func (c *Cache) UpdateProjectMarkdownFilesFromPatterns(p core.ProjectConfig, cc *core.ContextCache, files []core.File) (*core.ContextCache, error) {
	return c.reconcile(p, cc, files, true)
}

// AddProjectFiles is UpdateProjectFilesFromPatterns over the given files.
// Any extension with a registered parser qualifies.
func (c *Cache) AddProjectFiles(p core.ProjectConfig, cc *core.ContextCache, files []core.File) (*core.ContextCache, error) {
	return c.reconcile(p, cc, files, false)
}

func (c *Cache) reconcile(p core.ProjectConfig, cc *core.ContextCache, files []core.File, markdownOnly bool) (*core.ContextCache, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	patterns, err := c.matcher.MatchingPatterns(p.ContextSource)
	if err != nil {
		return nil, fmt.Errorf("invalid patterns for project %s: %w", p.ID, err)
	}

	out := cc.Clone()
	if out == nil {
		out = core.NewContextCache(c.now())
	}
	out.Normalize()

	now := c.now().UnixMilli()
	added := 0
	for _, f := range files {
		if markdownOnly && !f.IsMarkdown() {
			continue
		}
		if !c.tracks(f, patterns) {
			continue
		}
		if _, ok := out.FileContexts[f.Path]; ok {
			continue
		}
		out.FileContexts[f.Path] = core.FileContextEntry{
			Timestamp: now,
			CacheKey:  c.content.CacheKey(f, p.ID),
		}
		if f.IsMarkdown() {
			out.MarkdownNeedsReload = true
		}
		added++
	}

	if added > 0 {
		c.logger.Debug("reconciled project files", "project", p.ID, "added", added, "markdown_only", markdownOnly)
	}
	return out, nil
}

// CleanupProjectFileReferences drops entries for files that left the vault or
// no longer match the project's patterns, and evicts their content.
// Projects without a cache are ignored.
func (c *Cache) CleanupProjectFileReferences(ctx context.Context, p core.ProjectConfig) error {
	if err := validate(p); err != nil {
		return err
	}
	patterns, err := c.matcher.MatchingPatterns(p.ContextSource)
	if err != nil {
		return fmt.Errorf("invalid patterns for project %s: %w", p.ID, err)
	}
	files, err := c.vault.Files(ctx)
	if err != nil {
		return fmt.Errorf("failed to list vault files: %w", err)
	}

	present := make(map[string]core.File, len(files))
	for _, f := range files {
		present[f.Path] = f
	}

	removed := make(map[string]core.FileContextEntry)
	err = c.UpdateSafely(ctx, p, func(cc *core.ContextCache) *core.ContextCache {
		for filePath, entry := range cc.FileContexts {
			if f, ok := present[filePath]; ok && c.tracks(f, patterns) {
				continue
			}
			removed[filePath] = entry
			delete(cc.FileContexts, filePath)
			if core.IsMarkdownPath(filePath) {
				cc.MarkdownNeedsReload = true
			}
		}
		if len(removed) == 0 {
			return nil
		}
		return cc
	}, true)
	if err != nil {
		return err
	}

	if len(removed) > 0 {
		c.removeContent(ctx, p.ID, removed)
		c.recorder.ReferencesRemoved(len(removed))
		c.logger.Info("removed stale file references", "project", p.ID, "count", len(removed))
	}
	return nil
}

// InvalidateMarkdownContext clears the aggregated markdown and flags it for
// rebuild, then optionally runs CleanupProjectFileReferences. Projects without
// a cache are ignored.
func (c *Cache) InvalidateMarkdownContext(ctx context.Context, p core.ProjectConfig, cleanup bool) error {
	err := c.UpdateSafely(ctx, p, func(cc *core.ContextCache) *core.ContextCache {
		cc.MarkdownContext = ""
		cc.MarkdownNeedsReload = true
		return cc
	}, true)
	if err != nil {
		return err
	}
	if !cleanup {
		return nil
	}
	return c.CleanupProjectFileReferences(ctx, p)
}

// Tracks reports whether the project would hold an entry for f.
func (c *Cache) Tracks(p core.ProjectConfig, f core.File) (bool, error) {
	patterns, err := c.matcher.MatchingPatterns(p.ContextSource)
	if err != nil {
		return false, err
	}
	return c.tracks(f, patterns), nil
}

func (c *Cache) tracks(f core.File, patterns core.Patterns) bool {
	return c.parsers.SupportsExtension(f.Extension) && c.matcher.ShouldIndexFile(f, patterns)
}
