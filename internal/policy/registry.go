package policy

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/greyline-dev/screenpilot/internal/runner"
)

// ErrUnknownPolicy is returned by Resolve for an unregistered name.
var ErrUnknownPolicy = errors.New("unknown policy")

// Registry maps behavior names to policies. Safe for concurrent use;
// registering an existing name replaces it.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]runner.Policy
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]runner.Policy)}
}

// Register adds or replaces a policy under the given name.
func (r *Registry) Register(name string, p runner.Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = p
}

// Resolve returns the policy registered under name.
func (r *Registry) Resolve(name string) (runner.Policy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
	return p, nil
}

// Names returns the registered policy names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
