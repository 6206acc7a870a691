package engine

import (
	"github.com/juju/errors"

	"github.com/flowcanvas/engine/registry"
	"github.com/flowcanvas/engine/runtime"
	"github.com/flowcanvas/engine/store"
	"github.com/flowcanvas/engine/store/mem"
	"github.com/flowcanvas/engine/store/postgres"
	"github.com/flowcanvas/engine/types"
)

// NewEngine creates a workflow execution engine backed by the given
// executor registry and the store selected by the options.
func NewEngine(reg *registry.Registry, opts ...types.EngineOption) (types.Engine, error) {
	if reg == nil {
		return nil, errors.BadRequestf("registry is nil")
	}

	options := types.NewEngineOptions()
	for _, opt := range opts {
		opt(options)
	}

	var s store.Store
	var err error

	// PostgresConfig takes precedence over MemStore
	if options.PostgresConfig != nil {
		pgConfig := &postgres.Config{
			Host:     options.PostgresConfig.Host,
			Port:     options.PostgresConfig.Port,
			User:     options.PostgresConfig.User,
			Password: options.PostgresConfig.Password,
			Database: options.PostgresConfig.Database,
			SSLMode:  options.PostgresConfig.SSLMode,
		}

		s, err = postgres.NewPostgresStore(pgConfig)
		if err != nil {
			return nil, errors.Annotatef(err, "failed to create PostgreSQL store")
		}
	} else if options.MemStore {
		s = mem.NewMemStore()
	} else {
		// Default to mem store if not specified
		s = mem.NewMemStore()
	}

	return runtime.NewEngine(s, reg, options), nil
}
