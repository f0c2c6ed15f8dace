package app

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"voice-scribe-service/internal/api/ws"
	"voice-scribe-service/internal/config"
	"voice-scribe-service/internal/events"
	"voice-scribe-service/internal/languages"
	"voice-scribe-service/internal/observability/logging"
	"voice-scribe-service/internal/schema"
	"voice-scribe-service/internal/service/dictation"
	"voice-scribe-service/internal/service/recognizer"
	"voice-scribe-service/internal/service/recognizer/google"
	"voice-scribe-service/internal/service/recognizer/mock"
	"voice-scribe-service/internal/service/recognizer/remote"
	"voice-scribe-service/internal/settings"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration

	Settings  settings.Provider
	Publisher *events.Publisher
	Sink      *events.Sink
	Gateway   *ws.Handler

	redis *redis.Client
	ready atomic.Bool
}

// New constructs a new Application from the provided configuration.
func New(cfg *config.Configuration) (*Application, error) {
	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     logFormat(cfg),
		TimeFormat: time.RFC3339,
	})

	a := &Application{
		Cfg:    cfg,
		Logger: logging.WithComponent("application"),
	}

	appLogger := a.Logger.With().Str("method", "New").Logger()

	newSource, err := sourceFactory(cfg.Recognizer)
	if err != nil {
		return nil, err
	}
	provider, err := a.settingsProvider(cfg.Settings)
	if err != nil {
		return nil, err
	}
	a.Settings = provider

	a.Publisher = events.New(&events.Config{
		Enabled:      cfg.Kafka.Enabled,
		Brokers:      cfg.Kafka.Brokers,
		TopicPartial: cfg.Kafka.TopicPartial,
		TopicFinal:   cfg.Kafka.TopicFinal,
		Principal:    cfg.Kafka.Principal,
	})
	a.Sink = events.NewSink(a.Publisher, schema.New(), events.SinkConfig{
		Principal: cfg.Kafka.Principal,
	})

	a.Gateway = ws.NewHandler(ws.Deps{
		Settings:  a.Settings,
		NewSource: newSource,
		Sink:      a.Sink,
		Config: dictation.Config{
			MergeInterim: cfg.Dictation.MergeInterim,
			Limits: dictation.Limits{
				MaxDuration: cfg.Dictation.MaxDuration,
				MaxResults:  cfg.Dictation.MaxResults,
			},
		},
	})

	appLogger.Info().
		Str("recognizer", cfg.Recognizer.Provider).
		Str("settingsBackend", cfg.Settings.Backend).
		Bool("kafka", a.Publisher.Enabled()).
		Msg("Voice scribe application created")
	return a, nil
}

func logFormat(cfg *config.Configuration) string {
	if cfg.Service.Env == "dev" {
		return "console"
	}
	return cfg.Observability.LogFormat
}

// sourceFactory picks the recognition source created for each connection.
func sourceFactory(cfg config.RecognizerConfig) (ws.SourceFactory, error) {
	switch strings.ToLower(cfg.Provider) {
	case "remote", "":
		return ws.RemoteSources, nil
	case "mock":
		return func(context.Context, remote.Controller) (recognizer.Source, error) {
			return mock.New(mock.DefaultConfig()), nil
		}, nil
	case "google":
		gcfg := google.Config{
			LanguageCode:   cfg.LanguageCode,
			SampleRateHz:   int32(cfg.SampleRateHz),
			InterimResults: cfg.InterimResults,
			AudioEncoding:  cfg.AudioEncoding,
			Punctuation:    true,
		}
		return func(ctx context.Context, _ remote.Controller) (recognizer.Source, error) {
			return google.New(ctx, gcfg)
		}, nil
	default:
		return nil, fmt.Errorf("unknown recognizer provider %q", cfg.Provider)
	}
}

func (a *Application) settingsProvider(cfg config.SettingsConfig) (settings.Provider, error) {
	switch strings.ToLower(cfg.Backend) {
	case "memory", "":
		return settings.NewMemoryStore(), nil
	case "file":
		return settings.NewFileStore(cfg.Path), nil
	case "redis":
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return settings.NewRedisStore(a.redis, cfg.RedisPrefix, cfg.User), nil
	default:
		return nil, fmt.Errorf("unknown settings backend %q", cfg.Backend)
	}
}

// Start performs any startup work required before serving traffic.
func (a *Application) Start(ctx context.Context) error {
	startLogger := a.Logger.With().
		Str("method", "Start").
		Logger()

	if a.redis != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := a.redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("settings redis at %s: %w", a.Cfg.Settings.RedisAddr, err)
		}
	}

	if _, ok := a.Settings.(*settings.MemoryStore); ok {
		if err := a.seedLanguage(ctx); err != nil {
			return err
		}
	}

	a.StartupTime = time.Now().UTC()
	a.ready.Store(true)
	startLogger.Info().
		Time("startupTime", a.StartupTime).
		Msg("Voice scribe service starting")

	return nil
}

// seedLanguage applies the configured default language to a fresh store.
func (a *Application) seedLanguage(ctx context.Context) error {
	tag, err := languages.Normalize(a.Cfg.Settings.DefaultLanguage)
	if err != nil {
		return fmt.Errorf("default language: %w", err)
	}
	prefs := settings.Defaults()
	prefs.Language = tag
	return a.Settings.Save(ctx, prefs)
}

// Ready reports whether Start completed and Shutdown has not begun.
func (a *Application) Ready() bool {
	return a.ready.Load()
}

// Shutdown performs a best-effort cleanup before process exit. Open dictation
// connections are closed first so their last events still reach the sink.
func (a *Application) Shutdown() {
	shutdownLogger := a.Logger.With().
		Str("method", "Shutdown").
		Logger()

	a.ready.Store(false)
	shutdownLogger.Info().Msg("Voice scribe service shutting down")

	a.Gateway.Shutdown()
	a.Sink.Close()
	if err := a.Publisher.Close(); err != nil {
		shutdownLogger.Warn().Err(err).Msg("Failed to close publisher")
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			shutdownLogger.Warn().Err(err).Msg("Failed to close redis client")
		}
	}
}
