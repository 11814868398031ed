package cache

import (
	"slices"

	"github.com/aretw0/introspection"
)

// State is the observable state of a Cache.
type State struct {
	Dir      string   `json:"dir"`
	Projects []string `json:"projects"`
	Writes   int      `json:"writes"`
}

// State implements introspection.Introspectable.
func (c *Cache) State() any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	projects := make([]string, 0, len(c.mirror))
	for id := range c.mirror {
		projects = append(projects, id)
	}
	slices.Sort(projects)

	return State{
		Dir:      c.dir,
		Projects: projects,
		Writes:   c.writes,
	}
}

// ComponentType implements introspection.Component.
func (c *Cache) ComponentType() string {
	return "project-context-cache"
}

var _ introspection.Introspectable = (*Cache)(nil)
var _ introspection.Component = (*Cache)(nil)
