package types

import (
	"context"
	"time"

	"github.com/mcuadros/go-defaults"
)

func NewEngineOptions() *EngineOptions {
	opts := &EngineOptions{Ctx: context.Background()}
	defaults.SetDefaults(opts)
	return opts
}

type EngineOptions struct {
	Ctx context.Context

	/**
	 * default: 16
	 * upper bound on concurrently executing runs. Nodes inside one run
	 * are always sequential; this only caps run-level parallelism.
	 */
	MaxConcurrentRuns int `default:"16"`
	/**
	 * default: 3
	 * attempts per step, first try included. Only transient errors are
	 * retried; fatal ones abort the run immediately.
	 */
	MaxStepAttempts int `default:"3"`
	/**
	 * retry backoff schedule: base doubles per attempt, capped at max,
	 * with +/-50% jitter.
	 */
	RetryBaseBackoff time.Duration `default:"200ms"`
	RetryMaxBackoff  time.Duration `default:"5s"`
	/**
	 * default: 30s, timeout of each handler's outbound HTTP call.
	 * The engine imposes no whole-run timeout; cap that via Ctx.
	 */
	HTTPTimeout time.Duration `default:"30s"`
	/**
	 * default: 4000, bytes of extracted file text kept in context.
	 * Full content never enters the context.
	 */
	ExtractPreviewLimit int `default:"4000"`

	// AI provider settings for the prompt handler.
	AIModel    string `default:"gemini-2.5-flash"`
	AIEndpoint string
	AIAPIKey   string

	// Bot token used by the messaging handler when the node config does
	// not carry its own.
	TelegramBotToken string

	/**
	 * default: false, only set it to true when doing testing or developing.
	 */
	MemStore bool `default:"false"`

	// PostgreSQL store configuration.
	// If both MemStore and Postgres are set, Postgres takes precedence.
	Postgres *PostgresConfig
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"` // disable, require, verify-ca, verify-full
}

type EngineOption func(*EngineOptions)

func WithContext(ctx context.Context) EngineOption {
	return func(opts *EngineOptions) {
		opts.Ctx = ctx
	}
}

func SetMaxConcurrentRuns(n int) EngineOption {
	return func(opts *EngineOptions) {
		opts.MaxConcurrentRuns = n
	}
}

func SetMaxStepAttempts(n int) EngineOption {
	return func(opts *EngineOptions) {
		opts.MaxStepAttempts = n
	}
}

func SetRetryBackoff(base, max time.Duration) EngineOption {
	return func(opts *EngineOptions) {
		opts.RetryBaseBackoff = base
		opts.RetryMaxBackoff = max
	}
}

func SetHTTPTimeout(d time.Duration) EngineOption {
	return func(opts *EngineOptions) {
		opts.HTTPTimeout = d
	}
}

func SetAIProvider(model, endpoint, apiKey string) EngineOption {
	return func(opts *EngineOptions) {
		opts.AIModel = model
		opts.AIEndpoint = endpoint
		opts.AIAPIKey = apiKey
	}
}

func SetTelegramBotToken(token string) EngineOption {
	return func(opts *EngineOptions) {
		opts.TelegramBotToken = token
	}
}

func EnableMemStore() EngineOption {
	return func(opts *EngineOptions) {
		opts.MemStore = true
	}
}

// WithPostgresConfig configures the engine to use the PostgreSQL store
func WithPostgresConfig(config *PostgresConfig) EngineOption {
	return func(opts *EngineOptions) {
		opts.Postgres = config
	}
}
