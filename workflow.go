package workflow

import (
	"context"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/wfcompiler/compiler"
	"github.com/warriorguo/wfcompiler/registry"
	"github.com/warriorguo/wfcompiler/store"
	"github.com/warriorguo/wfcompiler/store/mem"
	"github.com/warriorguo/wfcompiler/store/postgres"
	"github.com/warriorguo/wfcompiler/template"
	"github.com/warriorguo/wfcompiler/types"
)

// NewEngine creates an engine over reg, the built-in node types when reg is nil.
// The artifact cache lives in PostgreSQL when configured, else in memory when
// enabled, else there is none.
func NewEngine(ctx context.Context, reg *registry.Registry, opts ...types.EngineOption) (*Engine, error) {
	options := types.NewEngineOptions()
	for _, opt := range opts {
		opt(options)
	}

	var s store.Store

	// PostgresConfig takes precedence over MemStore
	if options.PostgresConfig != nil {
		var err error
		s, err = postgres.NewPostgresStore(ctx, postgres.FromOptions(options.PostgresConfig))
		if err != nil {
			return nil, errors.Annotatef(err, "failed to create PostgreSQL store")
		}
	} else if options.MemStore {
		s = mem.NewMemStore()
	}

	return newEngine(reg, s, options), nil
}

// NewEngineWithStore creates an engine caching artifacts in s.
func NewEngineWithStore(reg *registry.Registry, s store.Store, opts ...types.EngineOption) *Engine {
	options := types.NewEngineOptions()
	for _, opt := range opts {
		opt(options)
	}
	return newEngine(reg, s, options)
}

func newEngine(reg *registry.Registry, s store.Store, options *types.EngineOptions) *Engine {
	if reg == nil {
		reg = registry.Builtin()
	}
	if options.Concurrency <= 0 {
		options.Concurrency = 1
	}

	e := &Engine{
		registry: reg,
		compiler: compiler.NewWithOptions(reg, options.Compile),
		resolver: template.NewResolver(reg, options.Samples),
		opts:     options,
	}
	if s != nil {
		e.cache = store.NewArtifactCache(s)
		log.Debugf("workflow engine caches artifacts in %T", s)
	}
	return e
}
