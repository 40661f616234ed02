package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eldtechnologies/fileshare/internal/api"
	"github.com/eldtechnologies/fileshare/internal/config"
	"github.com/eldtechnologies/fileshare/internal/handlers"
	"github.com/eldtechnologies/fileshare/internal/store"
	"github.com/eldtechnologies/fileshare/internal/telegram"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot and the ops HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info().Str("backend", string(cfg.Backend())).Msg("running database migrations...")
	if err := migrate(ctx, cfg, logger); err != nil {
		return err
	}

	ds, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer ds.Close()
	logger.Info().Str("backend", string(cfg.Backend())).Msg("connected to store")

	var redisStore *store.RedisStore
	if cfg.RedisURL != "" {
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisStore.Close()
		logger.Info().Msg("connected to Redis")
	}

	bot, err := telegram.New(cfg.BotToken, cfg.StorageChannelID, logger)
	if err != nil {
		return err
	}
	username := cfg.BotUsername
	if username == "" {
		username = bot.Username()
	}

	h := handlers.NewHandler(ds, redisStore, bot, handlers.Options{
		OwnerID:      cfg.OwnerID,
		BotUsername:  username,
		ListLimit:    cfg.ListLimit,
		RelayTimeout: cfg.RelayTimeout,
	}, logger)
	if err := h.EnsureOwner(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewRouter(logger, h),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting ops server")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("ops server failed")
			stop()
		}
	}()

	logger.Info().Str("bot", username).Msg("bot started")
	bot.Run(ctx, cfg.ShutdownTimeout, h.Dispatch)

	logger.Info().Msg("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("ops server forced to shutdown")
	}

	logger.Info().Msg("stopped")
	return nil
}
