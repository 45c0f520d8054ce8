package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/autonome/autonome/internal/cache"
	"github.com/autonome/autonome/internal/config"
	"github.com/autonome/autonome/internal/history"
	"github.com/autonome/autonome/internal/logger"
	"github.com/autonome/autonome/internal/metrics"
	"github.com/autonome/autonome/internal/registry"
	"github.com/autonome/autonome/internal/relay"
	"github.com/autonome/autonome/internal/server"
	"github.com/autonome/autonome/internal/service"
	"github.com/autonome/autonome/internal/telegram"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newAIServiceCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAIService(cmd.Context(), name)
		},
	}
}

func newBotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   config.ServiceBot,
		Short: "Run the Telegram bot that relays group chats to the AI services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context())
		},
	}
}

func newRegistryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   config.ServiceRegistry,
		Short: "Serve the user registration API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegistry(cmd.Context())
		},
	}
}

// setup loads configuration and initializes logging for one service
func setup(name string) (*config.Config, error) {
	cfg, err := config.Load(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.InitLogger(cfg.LogLevel, cfg.LogDir, name); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Service is starting", map[string]interface{}{
		"service":   name,
		"version":   version,
		"port":      cfg.Port,
		"log_level": cfg.LogLevel,
	})
	return cfg, nil
}

func runAIService(ctx context.Context, name string) error {
	cfg, err := setup(name)
	if err != nil {
		return err
	}

	m := metrics.NewCollector()
	transport, err := service.NewTransport(ctx, cfg.Agent)
	if err != nil {
		logger.Error("Failed to create agent transport", map[string]interface{}{
			"provider": cfg.Agent.Provider,
			"error":    err.Error(),
		})
		return err
	}

	var svc *service.Service
	switch name {
	case config.ServiceAdvisor:
		svc = service.NewAdvisorService(cfg, transport, m)
	case config.ServiceCommentator:
		store := history.NewStore(cfg.ChatHistoryPath)
		store.SetPrimaryChat(cfg.CommentaryChatID)
		svc = service.NewCommentatorService(cfg, transport, store, m)
	default:
		return fmt.Errorf("unknown AI service %q", name)
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn("Failed to close request queue", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	srv := server.New(name, cfg.Port, prometheus.DefaultGatherer)
	server.RegisterAIRoutes(srv, svc, cfg.CallerTimeout)

	logger.Info("AI service ready", map[string]interface{}{
		"service":  name,
		"provider": cfg.Agent.Provider,
		"policy":   svc.Queue.Policy().Name(),
	})
	return serve(ctx, srv)
}

func runRegistry(ctx context.Context) error {
	cfg, err := setup(config.ServiceRegistry)
	if err != nil {
		return err
	}

	store, err := registry.Open(cfg.PostgreDSN, cfg.UsersPath)
	if err != nil {
		logger.Error("Failed to open user store", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	defer store.Close()

	srv := server.New(config.ServiceRegistry, cfg.Port, prometheus.DefaultGatherer)
	server.RegisterRegistryRoutes(srv, store, cfg.CORSOrigin)

	return serve(ctx, srv)
}

func runBot(ctx context.Context) error {
	cfg, err := setup(config.ServiceBot)
	if err != nil {
		return err
	}

	api, err := telegram.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		logger.Error("Failed to create Telegram bot", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}

	users, err := registry.Open(cfg.PostgreDSN, cfg.UsersPath)
	if err != nil {
		logger.Error("Failed to open user store", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	defer users.Close()

	monitoring := registry.NewMonitoringCache(users, cache.DefaultExpiry)
	defer monitoring.Close()

	store := history.NewStore(cfg.ChatHistoryPath)
	store.SetPrimaryChat(cfg.CommentaryChatID)

	m := metrics.NewCollector()
	opts := telegram.Options{
		Username: api.Self.UserName,
		BotID:    api.Self.ID,
		Advisor:  relay.NewClient(cfg.AdvisorURL, 0),
		History:  store,
		Users:    monitoring,
		Metrics:  m,
	}
	if cfg.HasCommentaryConfig() {
		opts.Commentator = relay.NewClient(cfg.CommentatorURL, 0)
		opts.CommentaryChatID = cfg.CommentaryChatID
		opts.TurnInterval = cfg.TurnInterval
		opts.StartWithTurn = cfg.StartWithTurn
	}
	bot := telegram.NewBot(api, opts)

	srv := server.New(config.ServiceBot, cfg.Port, prometheus.DefaultGatherer)
	srv.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(bot.GetWorkerPoolStats())
	})
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("Metrics server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- bot.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Bot error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	case <-ctx.Done():
		logger.InfoMsg("Shutdown signal received")
	}

	if err := bot.Stop(); err != nil {
		logger.Warn("Bot did not stop cleanly", map[string]interface{}{
			"error": err.Error(),
		})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// serve runs srv until it fails or the process is signalled
func serve(ctx context.Context, srv *server.Server) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.InfoMsg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
