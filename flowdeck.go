package flowdeck

import (
	"net/http"

	"github.com/juju/errors"

	"github.com/flowdeck/flowdeck/engine"
	"github.com/flowdeck/flowdeck/handler"
	"github.com/flowdeck/flowdeck/store"
	"github.com/flowdeck/flowdeck/store/mem"
	"github.com/flowdeck/flowdeck/store/postgres"
	"github.com/flowdeck/flowdeck/types"
)

// NewDispatcher wires up a ready-to-use workflow engine with the given options:
// store, handler registry, retrying step runner and the async run queue.
func NewDispatcher(opts ...types.EngineOption) (*engine.Dispatcher, error) {
	options := types.NewEngineOptions()
	for _, opt := range opts {
		opt(options)
	}

	s, err := newStore(options)
	if err != nil {
		return nil, errors.Trace(err)
	}

	client := &http.Client{Timeout: options.HTTPTimeout}
	registry := handler.NewRegistry(handler.Deps{
		Client: client,
		Generator: &handler.GeminiGenerator{
			Client:   client,
			Endpoint: options.AIEndpoint,
			Model:    options.AIModel,
			APIKey:   options.AIAPIKey,
		},
		BotToken:     options.TelegramBotToken,
		PreviewLimit: options.ExtractPreviewLimit,
	})

	stepRunner := engine.NewRetryRunner(options.MaxStepAttempts, options.RetryBaseBackoff, options.RetryMaxBackoff)
	e := engine.New(s, registry, stepRunner)

	return engine.NewDispatcher(options.Ctx, e, options.MaxConcurrentRuns), nil
}

func newStore(options *types.EngineOptions) (store.Store, error) {
	// Postgres takes precedence over MemStore
	if options.Postgres != nil {
		pgConfig := &postgres.Config{
			Host:     options.Postgres.Host,
			Port:     options.Postgres.Port,
			User:     options.Postgres.User,
			Password: options.Postgres.Password,
			Database: options.Postgres.Database,
			SSLMode:  options.Postgres.SSLMode,
		}

		s, err := postgres.NewPostgresStore(pgConfig)
		if err != nil {
			return nil, errors.Annotatef(err, "failed to create PostgreSQL store")
		}
		return s, nil
	}

	// default to mem store if not specified
	return mem.NewMemStore(), nil
}
