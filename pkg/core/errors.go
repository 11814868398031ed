package core

import "errors"

// Common errors.
var (
	// ErrCacheNotFound is returned when a project has no persisted context cache.
	ErrCacheNotFound = errors.New("project context cache not found")

	// ErrInvalidProject is returned for projects without an ID.
	ErrInvalidProject = errors.New("project has no id")

	// ErrNoParser is returned when no parser is registered for an extension.
	ErrNoParser = errors.New("no parser registered for file type")
)
