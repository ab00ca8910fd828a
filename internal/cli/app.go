// Package cli turns a loaded configuration into a running engine for the
// jarvis commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/jarvis"
	"github.com/aretw0/jarvis/internal/config"
	"github.com/aretw0/jarvis/internal/metrics"
	"github.com/aretw0/jarvis/pkg/adapters/file"
	"github.com/aretw0/jarvis/pkg/adapters/memory"
	"github.com/aretw0/jarvis/pkg/adapters/openai"
	"github.com/aretw0/jarvis/pkg/adapters/redis"
	"github.com/aretw0/jarvis/pkg/adapters/scripted"
	"github.com/aretw0/jarvis/pkg/adapters/websearch"
	"github.com/aretw0/jarvis/pkg/bridge"
	"github.com/aretw0/jarvis/pkg/capabilities"
	"github.com/aretw0/jarvis/pkg/capconfig"
	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/persistence/middleware"
	"github.com/aretw0/jarvis/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// App is everything a command needs to serve one configuration.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Engine  *jarvis.Engine
	Tools   *capconfig.Store
	Hub     *bridge.Hub
	Metrics *metrics.Metrics
	Store   ports.CheckpointStore
	// Speaker is nil unless the OpenAI key is set.
	Speaker ports.Speaker

	redis *backend.Client
}

// Option adjusts how Build assembles the App.
type Option func(*options)

type options struct {
	oracle ports.Oracle
	debug  bool
}

// WithOracle replaces the configured oracle.
func WithOracle(o ports.Oracle) Option {
	return func(opts *options) {
		opts.oracle = o
	}
}

// WithDebugHooks logs every node and capability at debug level.
func WithDebugHooks() Option {
	return func(opts *options) {
		opts.debug = true
	}
}

// Build assembles the stores, services, oracle and engine described by cfg.
func Build(cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{Config: cfg, Logger: logger}
	if cfg.Store == config.StoreRedis {
		app.redis = redis.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	}

	store, err := app.newStore()
	if err != nil {
		return nil, err
	}
	app.Store = store

	services, err := app.newServices()
	if err != nil {
		return nil, err
	}

	oracle := o.oracle
	if oracle == nil {
		if oracle, err = NewOracle(cfg, logger); err != nil {
			return nil, err
		}
	}

	if cfg.OpenAI.APIKey != "" {
		speaker, err := openai.NewSpeaker(openAIConfig(cfg, logger))
		if err != nil {
			return nil, err
		}
		app.Speaker = speaker
	}

	tools, err := capconfig.Open(cfg.CapabilityFile, capconfig.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("loading capability config: %w", err)
	}
	app.Tools = tools

	app.Hub = bridge.NewHub(bridge.WithLogger(logger))
	app.Metrics = metrics.New(app.Hub.Len)

	hooks := app.Metrics.Hooks()
	if o.debug {
		hooks = domain.ChainHooks(hooks, DebugHooks(logger))
	}

	engineOpts := []jarvis.Option{
		jarvis.WithServices(services),
		jarvis.WithStore(store),
		jarvis.WithEnabledSource(tools),
		jarvis.WithLifecycleHooks(hooks),
		jarvis.WithRunObserver(app.Metrics.ObserveRun),
		jarvis.WithMaxIterations(cfg.MaxIterations),
		jarvis.WithTimeouts(cfg.OracleTimeout, cfg.CapabilityTimeout),
		jarvis.WithLogger(logger),
	}
	if app.redis != nil {
		engineOpts = append(engineOpts, jarvis.WithLocker(redis.NewLocker(app.redis, redis.DefaultPrefix, redis.WithLockerLogger(logger)), cfg.LockTTL))
	}

	eng, err := jarvis.New(oracle, engineOpts...)
	if err != nil {
		return nil, err
	}
	app.Engine = eng
	return app, nil
}

// WatchTools reloads the capability map on file changes until ctx ends.
func (a *App) WatchTools(ctx context.Context) {
	go func() {
		if err := a.Tools.Watch(ctx); err != nil {
			a.Logger.Warn("Capability config watch stopped", "err", err)
		}
	}()
}

// Close releases the backend connections.
func (a *App) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}

func (a *App) newStore() (ports.CheckpointStore, error) {
	cfg := a.Config
	var store ports.CheckpointStore
	switch cfg.Store {
	case config.StoreMemory:
		store = memory.NewStore()
	case config.StoreFile:
		store = file.New(filepath.Join(cfg.DataDir, "threads"))
	case config.StoreRedis:
		store = redis.NewFromClient(a.redis, redis.WithTTL(cfg.CheckpointTTL))
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	if cfg.EncryptionKey == "" {
		return store, nil
	}
	key, err := middleware.ParseKey(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}
	return middleware.Chain(store, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})), nil
}

func (a *App) newServices() (capabilities.Services, error) {
	cfg := a.Config
	svc := capabilities.Services{
		Profiles: memory.NewProfiles(),
		Journal:  memory.NewJournal(),
		Calendar: memory.NewCalendar(),
		Mailbox:  memory.NewMailbox(cfg.UserID + "@jarvis.local"),
	}
	switch cfg.Store {
	case config.StoreFile:
		svc.Profiles = file.NewProfiles(filepath.Join(cfg.DataDir, "profiles"))
	case config.StoreRedis:
		svc.Profiles = redis.NewProfiles(a.redis, redis.DefaultPrefix)
		svc.Journal = redis.NewJournal(a.redis, redis.DefaultPrefix)
		svc.Memories = redis.NewMemories(a.redis, redis.DefaultPrefix)
	}
	if svc.Memories == nil {
		memories, err := memory.NewMemories()
		if err != nil {
			return capabilities.Services{}, err
		}
		svc.Memories = memories
	}

	if key := cfg.Search.APIKey(); key != "" {
		searcher, err := websearch.New(websearch.Config{
			Provider: cfg.Search.Provider,
			APIKey:   key,
			BaseURL:  cfg.Search.BaseURL,
			Logger:   a.Logger,
		})
		if err != nil {
			return capabilities.Services{}, err
		}
		svc.Search = searcher
	} else {
		a.Logger.Debug("Web search disabled, no API key", "provider", cfg.Search.Provider)
	}
	return svc, nil
}

// NewOracle builds the oracle selected by cfg.
func NewOracle(cfg *config.Config, logger *slog.Logger) (ports.Oracle, error) {
	switch cfg.Oracle {
	case config.OracleEcho:
		return scripted.Echo{}, nil
	case config.OracleOpenAI:
		if cfg.OpenAI.APIKey == "" {
			return nil, errors.New("openai api key is not set (JARVIS_OPENAI_API_KEY or OPENAI_API_KEY); use --oracle echo to run offline")
		}
		return openai.New(openAIConfig(cfg, logger))
	}
	return nil, fmt.Errorf("unknown oracle %q", cfg.Oracle)
}

func openAIConfig(cfg *config.Config, logger *slog.Logger) openai.Config {
	return openai.Config{
		APIKey:      cfg.OpenAI.APIKey,
		Model:       cfg.OpenAI.Model,
		BaseURL:     cfg.OpenAI.BaseURL,
		SpeechModel: cfg.OpenAI.TTSModel,
		Voice:       cfg.OpenAI.Voice,
		Prompts:     capabilities.Prompts,
		Logger:      logger,
	}
}
