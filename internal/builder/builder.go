// Package builder runs the web framework's own build before staging.
package builder

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
)

// Builder compiles a project's source tree into build output.
type Builder interface {
	// Name returns the builder name (e.g., "next")
	Name() string

	// Build executes the build with the given options
	Build(ctx context.Context, opts *BuildOptions) error

	// Validate validates the build options
	Validate(opts *BuildOptions) error
}

// BuildOptions contains the options for a build operation
type BuildOptions struct {
	// ProjectRoot is the absolute path to the project root
	ProjectRoot string

	// Command overrides the builder's default command line
	Command []string

	// Env holds extra environment variables for the build
	Env map[string]string

	// Stdout and Stderr receive the build's output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// Registry holds all registered builders
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry creates a new builder registry
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]Builder),
	}
}

// Register registers a builder
func (r *Registry) Register(builder Builder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := builder.Name()
	if _, exists := r.builders[name]; exists {
		return fmt.Errorf("builder %q already registered", name)
	}
	r.builders[name] = builder
	return nil
}

// Get retrieves a builder by name
func (r *Registry) Get(name string) (Builder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	builder, exists := r.builders[name]
	if !exists {
		return nil, fmt.Errorf("builder %q not found", name)
	}
	return builder, nil
}

// List returns all registered builder names, sorted
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// DefaultRegistry is the global builder registry
var DefaultRegistry = NewRegistry()

// Register registers a builder in the default registry
func Register(builder Builder) error {
	return DefaultRegistry.Register(builder)
}

// Get retrieves a builder from the default registry
func Get(name string) (Builder, error) {
	return DefaultRegistry.Get(name)
}
