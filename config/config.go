package config

import (
	"bytes"
	"io"
	"os"
	"time"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"

	"github.com/flowdeck/flowdeck/types"
)

// fileConfig is the YAML schema. Durations are strings in Go duration
// syntax ("200ms", "5s"). Pointer fields distinguish "absent" from
// "zero" so the file only overrides what it actually sets.
type fileConfig struct {
	MaxConcurrentRuns   *int   `yaml:"maxConcurrentRuns"`
	MaxStepAttempts     *int   `yaml:"maxStepAttempts"`
	RetryBaseBackoff    string `yaml:"retryBaseBackoff"`
	RetryMaxBackoff     string `yaml:"retryMaxBackoff"`
	HTTPTimeout         string `yaml:"httpTimeout"`
	ExtractPreviewLimit *int   `yaml:"extractPreviewLimit"`

	AIModel    string `yaml:"aiModel"`
	AIEndpoint string `yaml:"aiEndpoint"`
	AIAPIKey   string `yaml:"aiApiKey"`

	TelegramBotToken string `yaml:"telegramBotToken"`

	MemStore *bool                 `yaml:"memStore"`
	Postgres *types.PostgresConfig `yaml:"postgres"`
}

// Load reads engine options from a YAML file. Fields missing from the
// file keep their defaults; unknown keys are an error so a typo in a
// deployment config fails loudly at startup.
func Load(path string) (*types.EngineOptions, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotatef(err, "reading config %s", path)
	}
	opts, err := Parse(b)
	return opts, errors.Annotatef(err, "config %s", path)
}

func Parse(b []byte) (*types.EngineOptions, error) {
	opts := types.NewEngineOptions()

	fc := &fileConfig{}
	decoder := yaml.NewDecoder(bytes.NewReader(b))
	decoder.KnownFields(true)
	if err := decoder.Decode(fc); err != nil {
		if err == io.EOF {
			return opts, nil
		}
		return nil, errors.Trace(err)
	}

	if fc.MaxConcurrentRuns != nil {
		opts.MaxConcurrentRuns = *fc.MaxConcurrentRuns
	}
	if fc.MaxStepAttempts != nil {
		opts.MaxStepAttempts = *fc.MaxStepAttempts
	}
	if fc.ExtractPreviewLimit != nil {
		opts.ExtractPreviewLimit = *fc.ExtractPreviewLimit
	}
	if fc.MemStore != nil {
		opts.MemStore = *fc.MemStore
	}
	if fc.Postgres != nil {
		opts.Postgres = fc.Postgres
	}
	if fc.AIModel != "" {
		opts.AIModel = fc.AIModel
	}
	if fc.AIEndpoint != "" {
		opts.AIEndpoint = fc.AIEndpoint
	}
	if fc.AIAPIKey != "" {
		opts.AIAPIKey = fc.AIAPIKey
	}
	if fc.TelegramBotToken != "" {
		opts.TelegramBotToken = fc.TelegramBotToken
	}

	if err := setDuration(&opts.RetryBaseBackoff, fc.RetryBaseBackoff, "retryBaseBackoff"); err != nil {
		return nil, errors.Trace(err)
	}
	if err := setDuration(&opts.RetryMaxBackoff, fc.RetryMaxBackoff, "retryMaxBackoff"); err != nil {
		return nil, errors.Trace(err)
	}
	if err := setDuration(&opts.HTTPTimeout, fc.HTTPTimeout, "httpTimeout"); err != nil {
		return nil, errors.Trace(err)
	}

	return opts, nil
}

func setDuration(dst *time.Duration, value, name string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return errors.Annotatef(err, "parsing %s", name)
	}
	*dst = d
	return nil
}
