package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEngineOptionsDefaults(t *testing.T) {
	opts := NewEngineOptions()

	assert.Equal(t, 8, opts.Concurrency)
	assert.False(t, opts.MemStore)
	assert.Nil(t, opts.PostgresConfig)
	assert.Equal(t, 2, opts.Compile.IndentWidth)
	assert.Equal(t, "cloudflare:workers", opts.Compile.RuntimeModule)
	assert.Equal(t, "", opts.Compile.ClassName)
}

func TestWithPostgresConfig(t *testing.T) {
	config := &PostgresConfig{
		Host:     "dbhost",
		Port:     5433,
		User:     "user",
		Password: "pass",
		Database: "db",
		SSLMode:  "require",
	}

	opts := NewEngineOptions()
	WithPostgresConfig(config)(opts)

	assert.NotNil(t, opts.PostgresConfig)
	assert.Equal(t, "dbhost", opts.PostgresConfig.Host)
	assert.Equal(t, 5433, opts.PostgresConfig.Port)
	assert.Equal(t, "require", opts.PostgresConfig.SSLMode)
}

func TestMultipleOptions(t *testing.T) {
	opts := NewEngineOptions()

	EnableMemStore()(opts)
	WithConcurrency(2)(opts)
	WithCompileOptions(WithIndentWidth(4), WithClassName("AgifyFlow"), WithRuntimeModule("durable:steps"))(opts)
	WithSamples(NodeStateRecord{"n2": {Output: map[string]any{"age": 42}}})(opts)

	assert.True(t, opts.MemStore)
	assert.Equal(t, 2, opts.Concurrency)
	assert.Equal(t, 4, opts.Compile.IndentWidth)
	assert.Equal(t, "AgifyFlow", opts.Compile.ClassName)
	assert.Equal(t, "durable:steps", opts.Compile.RuntimeModule)
	assert.Contains(t, opts.Samples, "n2")
}
