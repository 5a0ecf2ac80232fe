// Package catalog defines the transformation contract and the registry that
// maps transformation identifiers to implementations.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound is returned when an identifier has no registered transformation.
var ErrNotFound = errors.New("transformation not found")

// Request is one invocation of a transformation.
type Request struct {
	InputPath string
	OutputDir string
	Params    Params
}

// Transformation converts one media file into one output file.
//
// Apply must be safe for concurrent use by independent jobs. On success it
// returns the path it wrote; an empty path means the caller should derive it
// from the {stem}_{Tag}.{ext} naming convention.
type Transformation interface {
	ID() string
	Tag() string
	Apply(ctx context.Context, req Request) (string, error)
}

// Registry is a lookup from identifier to Transformation. It is populated
// before a batch starts and only read while jobs run.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Transformation
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Transformation)}
}

// Register inserts or replaces the transformation under its ID.
func (r *Registry) Register(t Transformation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[t.ID()] = t
}

// Resolve returns the transformation registered under id.
func (r *Registry) Resolve(id string) (Transformation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return t, nil
}

// IDs returns registered identifiers in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len reports the number of registered transformations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Func adapts a plain function into a Transformation.
type Func struct {
	Name   string
	Suffix string
	Run    func(ctx context.Context, req Request) (string, error)
}

// ID returns the registry key.
func (f Func) ID() string { return f.Name }

// Tag returns the output file suffix.
func (f Func) Tag() string { return f.Suffix }

// Apply invokes Run.
func (f Func) Apply(ctx context.Context, req Request) (string, error) {
	return f.Run(ctx, req)
}
