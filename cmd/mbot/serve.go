package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/memohai/mbot/internal/channel"
	"github.com/memohai/mbot/internal/channel/adapters/messenger"
	"github.com/memohai/mbot/internal/channel/inbound"
	"github.com/memohai/mbot/internal/completion"
	"github.com/memohai/mbot/internal/config"
	"github.com/memohai/mbot/internal/conversation"
	"github.com/memohai/mbot/internal/conversation/flow"
	"github.com/memohai/mbot/internal/handlers"
	"github.com/memohai/mbot/internal/healthcheck"
	completionchecker "github.com/memohai/mbot/internal/healthcheck/checkers/completion"
	messengerchecker "github.com/memohai/mbot/internal/healthcheck/checkers/messenger"
	storagechecker "github.com/memohai/mbot/internal/healthcheck/checkers/storage"
	"github.com/memohai/mbot/internal/logger"
	"github.com/memohai/mbot/internal/media"
	"github.com/memohai/mbot/internal/prompt"
	"github.com/memohai/mbot/internal/server"
	"github.com/memohai/mbot/internal/settings"
)

func runServe() {
	fx.New(
		fx.Provide(
			loadConfig,
			provideLogger,
			provideStores,
			conversation.NewService,
			settings.NewService,
			provideDeduplicator,
			provideMessengerClient,
			provideDispatcher,
			provideMediaDescriber,
			provideNormalizer,
			provideCredentialSource,
			provideCompleter,
			providePromptLoader,
			provideSession,
			provideSweeper,
			provideServerHandler(providePingHandler),
			provideServerHandler(provideHealthHandler),
			provideServerHandler(handlers.NewPrivacyHandler),
			provideServerHandler(handlers.NewAuthHandler),
			provideServerHandler(handlers.NewConversationsHandler),
			provideServerHandler(handlers.NewSettingsHandler),
			provideServerHandler(messenger.NewWebhookServerHandler),
			provideServer,
		),
		fx.Invoke(
			startSweeper,
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

type storesResult struct {
	fx.Out
	Conversations conversation.Store
	Settings      settings.Store
	Storage       *storagechecker.Checker
}

func provideStores(lc fx.Lifecycle, log *slog.Logger, cfg config.Config) (storesResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s, err := openStores(ctx, log, cfg)
	if err != nil {
		return storesResult{}, err
	}
	lc.Append(fx.Hook{OnStop: func(context.Context) error { s.Close(); return nil }})
	return storesResult{
		Conversations: s.Conversations,
		Settings:      s.Settings,
		Storage:       storagechecker.NewChecker(log, s.Backend, s.Ping),
	}, nil
}

func provideDeduplicator(cfg config.Config) *channel.Deduplicator {
	return channel.NewDeduplicator(cfg.Dedup.TTL(), cfg.Dedup.Capacity)
}

func provideMessengerClient(log *slog.Logger, cfg config.Config) *messenger.Client {
	if strings.TrimSpace(cfg.Messenger.PageAccessToken) == "" {
		log.Warn("messenger page access token not configured; replies will fail")
	}
	return messenger.NewClientFromConfig(log, cfg)
}

func provideDispatcher(log *slog.Logger, client *messenger.Client) *channel.Dispatcher {
	return channel.NewDispatcher(log, client)
}

// provideMediaDescriber returns nil when no primary key is configured, in
// which case attachments degrade to the "can't be seen" marker.
func provideMediaDescriber(log *slog.Logger, cfg config.Config) (inbound.MediaDescriber, error) {
	apiKey := strings.TrimSpace(cfg.Completion.APIKey)
	if apiKey == "" {
		log.Warn("no completion api key configured; media descriptions disabled")
		return nil, nil
	}
	models, err := completion.NewGenAIGenerator(context.Background(), apiKey)
	if err != nil {
		return nil, err
	}
	return media.NewDescriber(log, models, media.Options{
		Model:       cfg.Completion.MediaModel,
		Instruction: cfg.Completion.MediaInstruction,
		MaxBytes:    cfg.Completion.MediaMaxBytes,
		Timeout:     cfg.Completion.MediaTimeout(),
	}), nil
}

func provideNormalizer(log *slog.Logger, cfg config.Config, describer inbound.MediaDescriber) *inbound.Normalizer {
	return inbound.NewNormalizer(log, describer, inbound.ReplyPolicy(cfg.Completion.ReplyPolicy))
}

func provideCredentialSource(settingsService *settings.Service) completion.CredentialSource {
	return completion.CredentialSourceFunc(func(ctx context.Context) ([]completion.Credential, error) {
		stored, err := settingsService.ListCredentials(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]completion.Credential, 0, len(stored))
		for _, c := range stored {
			out = append(out, completion.Credential{Name: c.Name, APIKey: c.APIKey})
		}
		return out, nil
	})
}

func provideCompleter(log *slog.Logger, cfg config.Config, credentials completion.CredentialSource) *completion.Orchestrator {
	return completion.NewOrchestrator(log, completion.NewGeminiEngine(log, nil), credentials, completion.Options{
		Models:         cfg.Completion.Models,
		Primary:        completion.Credential{Name: "primary", APIKey: cfg.Completion.APIKey},
		AttemptTimeout: cfg.Completion.Timeout(),
	})
}

func providePromptLoader(log *slog.Logger, cfg config.Config) *prompt.Loader {
	return prompt.NewLoader(log, afero.NewOsFs(), cfg.Prompts.Dir)
}

func provideSession(
	log *slog.Logger,
	cfg config.Config,
	dedup *channel.Deduplicator,
	normalizer *inbound.Normalizer,
	completer *completion.Orchestrator,
	dispatcher *channel.Dispatcher,
	store conversation.Store,
	prompts *prompt.Loader,
	settingsService *settings.Service,
) *flow.Session {
	return flow.NewSession(log, flow.Deps{
		Dedup:      dedup,
		Normalizer: normalizer,
		Completer:  completer,
		Dispatcher: dispatcher,
		Store:      store,
		Prompts:    prompts,
		Settings:   settingsService,
	}, flow.Options{
		MaxHistoryTurns: cfg.Session.MaxHistoryTurns,
		Temperature:     cfg.Completion.Temperature,
	})
}

func provideSweeper(log *slog.Logger, cfg config.Config, store conversation.Store) *conversation.Sweeper {
	return conversation.NewSweeper(log, store, time.Duration(cfg.Retention.MaxAgeDays)*24*time.Hour)
}

func providePingHandler(log *slog.Logger) *handlers.PingHandler {
	return handlers.NewPingHandler(log, version)
}

func provideHealthHandler(
	log *slog.Logger,
	cfg config.Config,
	storage *storagechecker.Checker,
	credentials completion.CredentialSource,
) *handlers.HealthHandler {
	return handlers.NewHealthHandler(log,
		storage,
		messengerchecker.NewChecker(cfg),
		completionchecker.NewChecker(log, cfg.Completion.APIKey, credentials),
	)
}

var _ healthcheck.Checker = (*storagechecker.Checker)(nil)

type serverParams struct {
	fx.In
	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	if strings.TrimSpace(params.Config.Auth.JWTSecret) == "" {
		params.Logger.Warn("auth.jwt_secret is empty; admin routes will reject every request")
	}
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.Config.Auth.JWTSecret, params.ServerHandlers...)
}

func startSweeper(lc fx.Lifecycle, cfg config.Config, sweeper *conversation.Sweeper) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error { return sweeper.Start(cfg.Retention.Schedule) },
		OnStop:  func(ctx context.Context) error { sweeper.Stop(ctx); return nil },
	})
}

func startServer(lc fx.Lifecycle, logger *slog.Logger, srv *server.Server, shutdowner fx.Shutdowner, cfg config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting mbot",
				slog.String("version", version),
				slog.String("addr", cfg.Server.Addr),
				slog.String("storage", cfg.Storage.Backend))
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
