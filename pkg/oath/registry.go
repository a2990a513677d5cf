package oath

import (
	"context"
	"fmt"
	"sync"
)

// ModuleID pairs a mechanism name with its persisted type ID.
type ModuleID struct {
	Name string
	ID   int64
}

// Registry maps configured second-factor mechanisms to their persisted type
// IDs and live Module instances.
//
// The name to ID mapping lives in storage so that credentials reference a
// compact integer while the configured mechanism set can evolve without
// migrations. The registry warms its mapping lazily from storage and creates
// type rows on first reference to a configured-but-unseen name.
type Registry struct {
	store   Store
	modules map[string]Module
	order   []string

	mu    sync.RWMutex
	ids   map[string]int64
	names map[int64]string
	warm  bool
}

// NewRegistry creates a registry over the given configured modules.
// Configuration order is preserved and determines ModuleIDs ordering.
// Duplicate module names are a configuration error.
func NewRegistry(store Store, modules ...Module) (*Registry, error) {
	r := &Registry{
		store:   store,
		modules: make(map[string]Module, len(modules)),
		order:   make([]string, 0, len(modules)),
		ids:     make(map[string]int64),
		names:   make(map[int64]string),
	}
	for _, m := range modules {
		name := m.Name()
		if _, ok := r.modules[name]; ok {
			return nil, fmt.Errorf("duplicate module %q", name)
		}
		r.modules[name] = m
		r.order = append(r.order, name)
	}
	return r, nil
}

// ModuleExists reports whether name is configured and resolvable to a type
// ID. Once the mapping is warm this answers without storage I/O.
func (r *Registry) ModuleExists(ctx context.Context, name string) bool {
	if _, ok := r.modules[name]; !ok {
		return false
	}
	_, err := r.ModuleID(ctx, name)
	return err == nil
}

// Module resolves a configured mechanism by name.
func (r *Registry) Module(name string) (Module, error) {
	m, ok := r.modules[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotConfigured, name)
	}
	return m, nil
}

// ModuleID returns the persisted type ID for a configured mechanism,
// creating the type row on first reference. Concurrent first use resolves to
// a single ID through the store's idempotent insert.
func (r *Registry) ModuleID(ctx context.Context, name string) (int64, error) {
	if _, ok := r.modules[name]; !ok {
		return 0, fmt.Errorf("%w: %s", ErrModuleNotConfigured, name)
	}

	r.mu.RLock()
	id, ok := r.ids[name]
	r.mu.RUnlock()
	if ok {
		return id, nil
	}

	if err := r.warmUp(ctx); err != nil {
		return 0, err
	}

	r.mu.RLock()
	id, ok = r.ids[name]
	r.mu.RUnlock()
	if ok {
		return id, nil
	}

	id, err := r.store.CreateType(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("register module type %q: %w", name, err)
	}

	r.mu.Lock()
	r.ids[name] = id
	r.names[id] = name
	r.mu.Unlock()
	return id, nil
}

// ModuleIDs returns the name to type ID mapping for every configured
// mechanism, in configuration order regardless of storage insertion order.
// Unseen names get their type rows created on the way.
func (r *Registry) ModuleIDs(ctx context.Context) ([]ModuleID, error) {
	out := make([]ModuleID, 0, len(r.order))
	for _, name := range r.order {
		id, err := r.ModuleID(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, ModuleID{Name: name, ID: id})
	}
	return out, nil
}

// ModuleName translates a persisted type ID back to its mechanism name.
func (r *Registry) ModuleName(ctx context.Context, typeID int64) (string, error) {
	r.mu.RLock()
	name, ok := r.names[typeID]
	r.mu.RUnlock()
	if ok {
		return name, nil
	}

	if err := r.warmUp(ctx); err != nil {
		return "", err
	}

	r.mu.RLock()
	name, ok = r.names[typeID]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: type %d", ErrTypeNotFound, typeID)
	}
	return name, nil
}

// warmUp loads the full type mapping from storage once.
func (r *Registry) warmUp(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.warm {
		return nil
	}

	types, err := r.store.ListTypes(ctx)
	if err != nil {
		return fmt.Errorf("load module types: %w", err)
	}
	for _, t := range types {
		r.ids[t.Name] = t.ID
		r.names[t.ID] = t.Name
	}
	r.warm = true
	return nil
}
