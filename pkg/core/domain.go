// Package core holds the domain of projctx: projects, vault files, and the
// per-project context cache document, plus the ports the cache talks to.
package core

import (
	"maps"
	"path"
	"strings"
	"time"
)

// MarkdownExtension is the extension (without dot) of notes that feed the
// aggregated markdown context.
const MarkdownExtension = "md"

// ContextSource holds the raw, comma separated pattern lists of a project.
type ContextSource struct {
	Inclusions string `json:"inclusions,omitempty" yaml:"inclusions,omitempty" koanf:"inclusions"`
	Exclusions string `json:"exclusions,omitempty" yaml:"exclusions,omitempty" koanf:"exclusions"`
}

// ProjectConfig describes a workspace scoped to a subset of the vault.
// The cache only reads ID and ContextSource.
type ProjectConfig struct {
	ID             string        `json:"id" yaml:"id" koanf:"id"`
	Name           string        `json:"name" yaml:"name" koanf:"name"`
	Description    string        `json:"description,omitempty" yaml:"description,omitempty" koanf:"description"`
	SystemPrompt   string        `json:"systemPrompt,omitempty" yaml:"system_prompt,omitempty" koanf:"system_prompt"`
	ModelKey       string        `json:"projectModelKey,omitempty" yaml:"model_key,omitempty" koanf:"model_key"`
	ContextSource  ContextSource `json:"contextSource" yaml:"context_source" koanf:"context_source"`
	Created        int64         `json:"created,omitempty" yaml:"created,omitempty" koanf:"created"`
	UsageTimestamp int64         `json:"usageTimestamps,omitempty" yaml:"usage_timestamp,omitempty" koanf:"usage_timestamp"`
}

// FileStat is the subset of file metadata the cache cares about.
type FileStat struct {
	Mtime int64 `json:"mtime"` // milliseconds since epoch
	Size  int64 `json:"size"`
}

// File is a vault file. Path is vault relative and always uses '/'.
type File struct {
	Path      string   `json:"path"`
	Extension string   `json:"extension"`
	Basename  string   `json:"basename"`
	Stat      FileStat `json:"stat"`
}

// NewFile builds a File from a vault relative path, deriving extension and basename.
func NewFile(p string, mtime time.Time, size int64) File {
	f := FileFromPath(p)
	f.Stat = FileStat{Mtime: mtime.UnixMilli(), Size: size}
	return f
}

// FileFromPath builds a File with no stat information. Used as the identity of
// paths that are not (or no longer) present in the vault.
func FileFromPath(p string) File {
	p = strings.TrimPrefix(path.Clean(strings.ReplaceAll(p, "\\", "/")), "./")
	base := path.Base(p)
	ext := path.Ext(base)
	return File{
		Path:      p,
		Extension: strings.ToLower(strings.TrimPrefix(ext, ".")),
		Basename:  strings.TrimSuffix(base, ext),
	}
}

// IsMarkdown reports whether the file contributes to the markdown context.
func (f File) IsMarkdown() bool {
	return f.Extension == MarkdownExtension
}

// IsMarkdownPath is IsMarkdown for a bare path.
func IsMarkdownPath(p string) bool {
	return FileFromPath(p).IsMarkdown()
}

// FileContextEntry points at the parsed content of one file in the content store.
// It never holds the content itself.
type FileContextEntry struct {
	Timestamp int64  `json:"timestamp"`
	CacheKey  string `json:"cacheKey"`
}

// ContextCache is the persisted per-project document.
type ContextCache struct {
	MarkdownContext     string                      `json:"markdownContext"`
	MarkdownNeedsReload bool                        `json:"markdownNeedsReload"`
	FileContexts        map[string]FileContextEntry `json:"fileContexts"`
	Timestamp           int64                       `json:"timestamp"`
}

// NewContextCache returns an empty cache that needs a markdown reload.
func NewContextCache(now time.Time) *ContextCache {
	return &ContextCache{
		MarkdownContext:     "",
		MarkdownNeedsReload: true,
		FileContexts:        make(map[string]FileContextEntry),
		Timestamp:           now.UnixMilli(),
	}
}

// Clone returns a deep copy. Entries are values, so copying the map is enough.
func (c *ContextCache) Clone() *ContextCache {
	if c == nil {
		return nil
	}
	out := *c
	out.FileContexts = make(map[string]FileContextEntry, len(c.FileContexts))
	maps.Copy(out.FileContexts, c.FileContexts)
	return &out
}

// Normalize repairs fields a decoded document may lack.
func (c *ContextCache) Normalize() {
	if c.FileContexts == nil {
		c.FileContexts = make(map[string]FileContextEntry)
	}
}

// EventType represents the type of change in the vault.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change of one vault file.
type Event struct {
	Type      EventType
	Path      string // vault relative, '/' separated
	Timestamp int64  // Unix timestamp
}

// String implements lifecycle.Event.
func (e Event) String() string {
	return string(e.Type) + " " + e.Path
}
