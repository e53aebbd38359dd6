package main

import (
	"context"
	"os"
	"strings"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	workflow "github.com/warriorguo/wfcompiler"
	"github.com/warriorguo/wfcompiler/store"
	"github.com/warriorguo/wfcompiler/store/mem"
	"github.com/warriorguo/wfcompiler/store/postgres"
	"github.com/warriorguo/wfcompiler/types"
)

// config is read from the environment, a .env file in the working directory
// is loaded into it first.
//
//	WFC_LOG_LEVEL     logrus level, default info
//	WFC_CONCURRENCY   batch workers, default 8
//	WFC_MEM_CACHE     cache artifacts in memory for the process
//	WFC_POSTGRES_DSN  "host=... port=... user=... password=... dbname=... sslmode=... table=..."
type config struct {
	LogLevel    string
	Concurrency int
	MemCache    bool
	PostgresDSN string
}

func loadConfig() *config {
	return &config{
		LogLevel:    envDefault("WFC_LOG_LEVEL", "info"),
		Concurrency: cast.ToInt(envDefault("WFC_CONCURRENCY", "8")),
		MemCache:    cast.ToBool(os.Getenv("WFC_MEM_CACHE")),
		PostgresDSN: strings.TrimSpace(os.Getenv("WFC_POSTGRES_DSN")),
	}
}

func envDefault(key, def string) string {
	if v, exists := os.LookupEnv(key); exists && v != "" {
		return v
	}
	return def
}

func setupLogging(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return &ExitError{Code: exitUsage, Message: err.Error()}
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stderr)
	return nil
}

// openStore returns the artifact store configured by c, nil when caching is off.
func openStore(ctx context.Context, c *config) (store.Store, error) {
	if c.PostgresDSN != "" {
		pc, err := postgres.ParseDSN(c.PostgresDSN)
		if err != nil {
			return nil, errors.Annotatef(err, "WFC_POSTGRES_DSN")
		}
		return postgres.NewPostgresStore(ctx, pc)
	}
	if c.MemCache {
		return mem.NewMemStore(), nil
	}
	return nil, nil
}

func newEngine(ctx context.Context, c *config, opts ...types.EngineOption) (*workflow.Engine, store.Store, error) {
	s, err := openStore(ctx, c)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	opts = append([]types.EngineOption{types.WithConcurrency(c.Concurrency)}, opts...)
	return workflow.NewEngineWithStore(nil, s, opts...), s, nil
}
