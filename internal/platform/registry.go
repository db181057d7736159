package platform

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/dosanma1/nextdeploy/internal/errs"
)

// Factory constructs a provider from its configuration record.
type Factory func(ctx context.Context, cfg Config) (*Provider, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register adds a provider factory. Registering a name twice panics.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("platform %q already registered", name))
	}
	factories[name] = factory
}

// New constructs the named provider.
func New(ctx context.Context, name string, cfg Config) (*Provider, error) {
	mu.RLock()
	factory, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, errs.Configf("unknown platform %q (available: %v)", name, List()).With("platform", name)
	}
	p, err := factory(ctx, cfg)
	if err != nil {
		return nil, err
	}
	p.Name = name
	return p, nil
}

// List returns all registered provider names, sorted.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	return slices.Sorted(maps.Keys(factories))
}
