// Package app wires the configured components together and owns the
// process lifecycle: restore snapshot, connect, serve, shut down in order.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hostfolk/porter/internal/admin"
	"github.com/hostfolk/porter/internal/archive"
	"github.com/hostfolk/porter/internal/channel"
	"github.com/hostfolk/porter/internal/config"
	"github.com/hostfolk/porter/internal/engine"
	"github.com/hostfolk/porter/internal/policy"
	"github.com/hostfolk/porter/internal/prompt"
	"github.com/hostfolk/porter/internal/provider"
	"github.com/hostfolk/porter/internal/ratelimit"
	"github.com/hostfolk/porter/internal/schedule"
	"github.com/hostfolk/porter/internal/session"
	"github.com/hostfolk/porter/internal/storage"
	"github.com/hostfolk/porter/internal/telemetry"
	"github.com/hostfolk/porter/modules/provider/anthropic"
	"github.com/hostfolk/porter/modules/provider/gemini"
)

const shutdownTimeout = 15 * time.Second

// App holds the wired components.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	store     *session.Store
	tracker   *ratelimit.Tracker
	persister *storage.Persister
	archive   *archive.Archive
	metrics   *admin.Metrics
	gateway   *channel.Gateway
	admin     *admin.Server
	scheduler *schedule.Scheduler
	engine    *engine.Engine

	telemetryShutdown telemetry.ShutdownFunc
}

// New builds the application from a validated config.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	telemetryShutdown, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:               cfg,
		logger:            logger,
		metrics:           admin.NewMetrics(),
		telemetryShutdown: telemetryShutdown,
	}

	a.store = session.NewStore(session.Config{
		MaxMessages: cfg.Memory.MaxMessages,
		Expiry:      cfg.Memory.Expiry.Std(),
	}, logger)

	a.tracker = ratelimit.NewTracker(ratelimit.Config{
		Window:      cfg.RateLimit.Window.Std(),
		MaxMessages: cfg.RateLimit.MaxMessages,
	})

	pol := policy.New(policy.Config{
		SupportRoleID:    cfg.Escalation.SupportRoleID,
		BotUserID:        cfg.Chat.BotUserID,
		BurstWindow:      cfg.Escalation.BurstWindow.Std(),
		BurstThreshold:   cfg.Escalation.BurstThreshold,
		UrgentKeywords:   cfg.Escalation.UrgentKeywords,
		QuestionStarters: cfg.Escalation.QuestionStarters,
		HelpPhrases:      cfg.Escalation.HelpPhrases,
	}, a.tracker)

	primer, err := prompt.Load(cfg.Prompt.Path)
	if err != nil {
		return nil, err
	}

	generator, err := BuildChain(cfg.Provider, logger)
	if err != nil {
		return nil, err
	}

	snapshot := storage.NewFile(cfg.Storage.SnapshotPath)
	a.persister = storage.NewPersister(a.store, snapshot, cfg.Storage.Schedule, logger)
	a.persister.OnError(func() { a.metrics.SnapshotFailures.Inc() })

	if cfg.Archive.Enabled {
		arch, err := archive.Open(cfg.Archive.Path)
		if err != nil {
			return nil, err
		}
		a.archive = arch
	}

	a.gateway, err = channel.NewGateway(channel.GatewayConfig{
		URL:       cfg.Chat.URL,
		Token:     cfg.Chat.Token,
		BotUserID: cfg.Chat.BotUserID,
		BotName:   cfg.Chat.BotName,
	}, logger)
	if err != nil {
		return nil, err
	}

	engineOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithFlusher(a.persister),
	}
	if a.archive != nil {
		engineOpts = append(engineOpts, engine.WithArchive(a.archive))
	}
	a.engine = engine.New(engine.Config{
		BotUserID:       cfg.Chat.BotUserID,
		Primer:          primer,
		TypingIndicator: cfg.Chat.TypingIndicator,
	}, a.store, a.tracker, pol, generator, a.gateway, a.metrics, engineOpts...)

	a.gateway.SetInbox(a.engine.HandleMessage)

	if cfg.Admin.Enabled {
		adminOpts := []admin.Option{
			admin.WithLogger(logger),
			admin.WithModelName(generator.ModelName()),
		}
		if a.archive != nil {
			adminOpts = append(adminOpts, admin.WithArchive(a.archive))
		}
		a.admin, err = admin.NewServer(admin.Config{
			Bind:        cfg.Admin.Bind,
			BearerToken: cfg.Admin.BearerToken,
		}, a.store, a.metrics, adminOpts...)
		if err != nil {
			return nil, err
		}
	}

	if err := a.registerJobs(); err != nil {
		return nil, err
	}

	return a, nil
}

// newLogger builds the slog logger from the logging config.
func newLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("app: invalid log level %q: %w", cfg.Level, err)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		return nil, fmt.Errorf("app: invalid log format %q (text, json)", cfg.Format)
	}
	return slog.New(handler), nil
}

// BuildChain constructs the primary provider and optional fallback.
func BuildChain(cfg config.ProviderConfig, logger *slog.Logger) (provider.Generator, error) {
	primary, err := buildGenerator(cfg.Primary)
	if err != nil {
		return nil, err
	}

	opts := []provider.ChainOption{provider.WithLogger(logger)}
	if cfg.Fallback != nil {
		fallback, err := buildGenerator(*cfg.Fallback)
		if err != nil {
			return nil, err
		}
		opts = append(opts, provider.WithFallback(fallback))
	}

	return provider.NewChain(primary, opts...)
}

func buildGenerator(entry config.ProviderEntry) (provider.Generator, error) {
	switch entry.Type {
	case config.ProviderGemini:
		return gemini.New(gemini.Config{
			APIKey:    entry.APIKey,
			Model:     entry.Model,
			BaseURL:   entry.BaseURL,
			MaxTokens: entry.MaxTokens,
			Timeout:   entry.Timeout.Std(),
		}), nil
	case config.ProviderAnthropic:
		return anthropic.New(anthropic.Config{
			APIKey:    entry.APIKey,
			Model:     entry.Model,
			BaseURL:   entry.BaseURL,
			MaxTokens: entry.MaxTokens,
			Timeout:   entry.Timeout.Std(),
		}), nil
	default:
		return nil, fmt.Errorf("app: unknown provider type %q", entry.Type)
	}
}

// registerJobs wires the periodic snapshot and prune jobs.
func (a *App) registerJobs() error {
	a.scheduler = schedule.NewScheduler(a.logger)

	if err := a.scheduler.Register(a.persister); err != nil {
		return err
	}

	prune := schedule.JobFunc("prune", a.cfg.Storage.PruneSchedule, func(ctx context.Context) error {
		conversations := a.store.Prune()
		users := a.tracker.Prune()
		if conversations > 0 || users > 0 {
			a.logger.Info("pruned stale state",
				"conversations", conversations,
				"users", users,
			)
		}

		if a.archive != nil && a.cfg.Archive.Retention > 0 {
			cutoff := time.Now().Add(-a.cfg.Archive.Retention.Std())
			rows, err := a.archive.DeleteOlderThan(ctx, cutoff)
			if err != nil {
				return err
			}
			if rows > 0 {
				a.logger.Info("pruned archived transcripts", "rows", rows)
			}
		}
		return nil
	})
	return a.scheduler.Register(prune)
}
