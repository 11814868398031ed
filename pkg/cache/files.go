package cache

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/aretw0/projctx/pkg/core"
)

// SetFileContext stores content for the file at filePath and points the
// project's entry at it. Only markdown files flag the markdown context for
// rebuild. The cache is initialized if needed.
func (c *Cache) SetFileContext(ctx context.Context, p core.ProjectConfig, filePath string, content string) error {
	if _, err := c.GetOrInitializeCache(ctx, p); err != nil {
		return err
	}

	file, err := c.resolve(ctx, filePath)
	if err != nil {
		return err
	}
	key := c.content.CacheKey(file, p.ID)
	if err := c.content.Set(ctx, key, content); err != nil {
		return fmt.Errorf("failed to store content of %s: %w", file.Path, err)
	}

	var replaced string
	err = c.UpdateSafely(ctx, p, func(cc *core.ContextCache) *core.ContextCache {
		if prev, ok := cc.FileContexts[file.Path]; ok && prev.CacheKey != key {
			replaced = prev.CacheKey
		}
		cc.FileContexts[file.Path] = core.FileContextEntry{
			Timestamp: c.now().UnixMilli(),
			CacheKey:  key,
		}
		if file.IsMarkdown() {
			cc.MarkdownNeedsReload = true
		}
		return cc
	}, false)
	if err != nil {
		return err
	}

	// Keys embed the project ID, so the replaced content belongs to no one else.
	if replaced != "" {
		c.removeContent(ctx, p.ID, map[string]core.FileContextEntry{file.Path: {CacheKey: replaced}})
	}
	return nil
}

// GetOrReuseFileContext returns the stored content for filePath. ok is false
// when there is no entry, the file changed since it was stored, or the content
// store no longer holds it.
func (c *Cache) GetOrReuseFileContext(ctx context.Context, p core.ProjectConfig, filePath string) (string, bool, error) {
	cc, err := c.Get(ctx, p)
	if errors.Is(err, core.ErrCacheNotFound) {
		c.recorder.ContentLookup(LookupMiss)
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	file, err := c.resolve(ctx, filePath)
	if err != nil {
		return "", false, err
	}
	entry, ok := cc.FileContexts[file.Path]
	if !ok || entry.CacheKey == "" {
		c.recorder.ContentLookup(LookupMiss)
		return "", false, nil
	}
	if c.content.CacheKey(file, p.ID) != entry.CacheKey {
		c.recorder.ContentLookup(LookupStale)
		return "", false, nil
	}

	content, ok, err := c.content.Get(ctx, entry.CacheKey)
	if err != nil {
		return "", false, fmt.Errorf("failed to read content of %s: %w", file.Path, err)
	}
	if !ok {
		c.recorder.ContentLookup(LookupMiss)
		return "", false, nil
	}
	c.recorder.ContentLookup(LookupHit)
	return content, true, nil
}

// TrackedFiles returns the sorted paths the project's cache lists.
// A project without a cache tracks nothing.
func (c *Cache) TrackedFiles(ctx context.Context, p core.ProjectConfig) ([]string, error) {
	cc, err := c.Get(ctx, p)
	if errors.Is(err, core.ErrCacheNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(cc.FileContexts))
	for filePath := range cc.FileContexts {
		paths = append(paths, filePath)
	}
	slices.Sort(paths)
	return paths, nil
}

// resolve returns the vault file at filePath, or a path-only identity when the
// vault does not have it.
func (c *Cache) resolve(ctx context.Context, filePath string) (core.File, error) {
	file := core.FileFromPath(filePath)
	found, ok, err := c.vault.FileByPath(ctx, file.Path)
	if err != nil {
		return core.File{}, fmt.Errorf("failed to look up %s: %w", file.Path, err)
	}
	if ok {
		return found, nil
	}
	return file, nil
}
