package projects

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/projctx/pkg/core"
)

// ErrProjectNotFound is returned when no project matches a reference.
var ErrProjectNotFound = errors.New("project not found")

// Registry is the set of configured projects.
type Registry struct {
	mu       sync.RWMutex
	projects []core.ProjectConfig
}

// NewRegistry creates a Registry. Projects without an ID are rejected.
func NewRegistry(projects []core.ProjectConfig) (*Registry, error) {
	r := &Registry{}
	for _, p := range projects {
		if p.ID == "" {
			return nil, fmt.Errorf("project %q: %w", p.Name, core.ErrInvalidProject)
		}
		if _, err := r.Find(p.ID); err == nil {
			return nil, fmt.Errorf("duplicate project id %q", p.ID)
		}
		r.projects = append(r.projects, p)
	}
	return r, nil
}

// All returns the projects in registration order.
func (r *Registry) All() []core.ProjectConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.projects)
}

// Find returns the project whose ID equals ref, or whose name matches ref
// ignoring case.
func (r *Registry) Find(ref string) (core.ProjectConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.projects {
		if p.ID == ref {
			return p, nil
		}
	}
	for _, p := range r.projects {
		if strings.EqualFold(p.Name, ref) {
			return p, nil
		}
	}
	return core.ProjectConfig{}, fmt.Errorf("%w: %s", ErrProjectNotFound, ref)
}

// Add registers a new project with a generated ID and returns it.
func (r *Registry) Add(name string, src core.ContextSource) (core.ProjectConfig, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ProjectConfig{}, errors.New("project name is required")
	}
	if _, err := r.Find(name); err == nil {
		return core.ProjectConfig{}, fmt.Errorf("project %q already exists", name)
	}

	p := core.ProjectConfig{
		ID:            uuid.NewString(),
		Name:          name,
		ContextSource: src,
		Created:       time.Now().UnixMilli(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects = append(r.projects, p)
	return p, nil
}
