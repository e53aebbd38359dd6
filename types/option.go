package types

import (
	"github.com/mcuadros/go-defaults"
)

func NewCompileOptions() *CompileOptions {
	opts := &CompileOptions{}
	defaults.SetDefaults(opts)
	return opts
}

// CompileOptions tunes the text the forward emitter produces. Two compilations
// with equal options and equal graphs are byte-identical.
type CompileOptions struct {
	/**
	 * default: 2, number of spaces per indentation level.
	 */
	IndentWidth int `default:"2"`
	/**
	 * default: cloudflare:workers, module the durable-step runtime is imported from.
	 */
	RuntimeModule string `default:"cloudflare:workers"`
	/**
	 * default: empty, the class name is derived from the graph name.
	 */
	ClassName string
}

type CompileOption func(*CompileOptions)

func WithIndentWidth(width int) CompileOption {
	return func(opts *CompileOptions) {
		opts.IndentWidth = width
	}
}

func WithRuntimeModule(module string) CompileOption {
	return func(opts *CompileOptions) {
		opts.RuntimeModule = module
	}
}

func WithClassName(name string) CompileOption {
	return func(opts *CompileOptions) {
		opts.ClassName = name
	}
}

func NewEngineOptions() *EngineOptions {
	opts := &EngineOptions{Compile: NewCompileOptions()}
	defaults.SetDefaults(opts)
	return opts
}

type EngineOptions struct {
	Compile *CompileOptions
	/**
	 * default: 8
	 * CompileBatch runs at most this many compilations at once.
	 */
	Concurrency int `default:"8"`
	/**
	 * default: false, keep compiled artifacts in process memory.
	 */
	MemStore bool `default:"false"`
	/**
	 * Samples are captured node states used by template previews,
	 * they win over the preset outputs of the registry.
	 */
	Samples NodeStateRecord

	// PostgreSQL artifact cache configuration
	// If both MemStore and PostgresConfig are set, PostgresConfig takes precedence
	PostgresConfig *PostgresConfig
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // disable, require, verify-ca, verify-full
}

type EngineOption func(*EngineOptions)

func WithConcurrency(concurrency int) EngineOption {
	return func(opts *EngineOptions) {
		opts.Concurrency = concurrency
	}
}

func WithCompileOptions(options ...CompileOption) EngineOption {
	return func(opts *EngineOptions) {
		for _, o := range options {
			o(opts.Compile)
		}
	}
}

func WithSamples(samples NodeStateRecord) EngineOption {
	return func(opts *EngineOptions) {
		opts.Samples = samples
	}
}

func EnableMemStore() EngineOption {
	return func(opts *EngineOptions) {
		opts.MemStore = true
	}
}

// WithPostgresConfig caches compiled artifacts in PostgreSQL
func WithPostgresConfig(config *PostgresConfig) EngineOption {
	return func(opts *EngineOptions) {
		opts.PostgresConfig = config
	}
}
