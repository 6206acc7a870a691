package registry

import (
	"fmt"
	"sync"

	"github.com/juju/errors"

	"github.com/flowcanvas/engine/types"
)

/**
 * Registry maps node type ids to executors and, optionally, to a
 * settings schema for that type. It is an explicit instance injected
 * into the engine rather than ambient process state; construct one at
 * startup, register the content-generation executors, and hand it to
 * NewEngine.
 *
 * Re-registering a type id overwrites the previous entry (last
 * registration wins), which supports hot-swapping executors in tests.
 */
type Registry struct {
	mu sync.RWMutex

	executors map[string]types.Executor
	schemas   map[string]*types.NodeTypeSchema
}

func New() *Registry {
	return &Registry{
		executors: make(map[string]types.Executor),
		schemas:   make(map[string]*types.NodeTypeSchema),
	}
}

func (r *Registry) Register(typeID string, exec types.Executor) error {
	if typeID == "" {
		return errors.BadRequestf("type id is empty")
	}
	if exec == nil {
		return errors.BadRequestf("executor for %s is nil", typeID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.executors[typeID] = exec
	return nil
}

// MustRegister registers an executor and panics on a bad contract.
// Intended for the one-time startup wiring of built-in node types.
func (r *Registry) MustRegister(typeID string, exec types.Executor) {
	if err := r.Register(typeID, exec); err != nil {
		panic(err)
	}
}

// RegisterSchema attaches a settings schema to a node type. Graph
// validation checks node settings against it; types without a schema
// keep fully opaque settings.
func (r *Registry) RegisterSchema(schema *types.NodeTypeSchema) error {
	if schema == nil || schema.TypeID == "" {
		return errors.BadRequestf("schema has no type id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.schemas[schema.TypeID] = schema
	return nil
}

func (r *Registry) Resolve(typeID string) (types.Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exec, exists := r.executors[typeID]
	if !exists {
		return nil, errors.NewNotFound(nil, fmt.Sprintf("no executor registered for %s", typeID))
	}
	return exec, nil
}

func (r *Registry) Schema(typeID string) (*types.NodeTypeSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schema, exists := r.schemas[typeID]
	return schema, exists
}

func (r *Registry) Has(typeID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.executors[typeID]
	return exists
}

// TypeIDs returns the registered type ids, unordered.
func (r *Registry) TypeIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.executors))
	for id := range r.executors {
		ids = append(ids, id)
	}
	return ids
}
