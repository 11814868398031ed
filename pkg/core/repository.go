package core

import "context"

// Storage is the key-value file store the cache documents live in.
// Paths are relative to the store root and use '/'.
type Storage interface {
	Exists(ctx context.Context, path string) (bool, error)
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Remove(ctx context.Context, path string) error
	Mkdir(ctx context.Context, path string) error
	List(ctx context.Context, path string) (Listing, error)
}

// Listing is the result of Storage.List.
type Listing struct {
	Files   []string
	Folders []string
}

// ContentStore holds parsed file text addressed by opaque cache keys.
// Entries are independent of each other.
type ContentStore interface {
	// Get returns the content stored under key. ok is false on a miss.
	Get(ctx context.Context, key string) (content string, ok bool, err error)

	Set(ctx context.Context, key string, content string) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error

	// CacheKey derives a deterministic key for a file and extra context
	// (typically the project ID). Same inputs, same key.
	CacheKey(file File, additionalContext string) string
}

// Vault enumerates the files of the note vault.
type Vault interface {
	Files(ctx context.Context) ([]File, error)

	// FileByPath returns the file at path. ok is false if it does not exist.
	FileByPath(ctx context.Context, path string) (file File, ok bool, err error)
}

// Patterns is the compiled form of a ContextSource.
type Patterns struct {
	Inclusions []string
	Exclusions []string
}

// PatternMatcher decides which vault files belong to a project.
type PatternMatcher interface {
	MatchingPatterns(src ContextSource) (Patterns, error)
	ShouldIndexFile(file File, patterns Patterns) bool
}

// ParserRegistry reports which file extensions can be turned into text.
type ParserRegistry interface {
	SupportsExtension(ext string) bool
}

// Parser turns one vault file into text.
type Parser interface {
	Extensions() []string
	Parse(ctx context.Context, file File, data []byte) (string, error)
}

// FileReader reads the raw bytes of a vault file.
type FileReader interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
}
