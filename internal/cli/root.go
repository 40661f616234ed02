// Package cli wires configuration, stores and the bot into cobra commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/eldtechnologies/fileshare/internal/config"
	"github.com/eldtechnologies/fileshare/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "fileshare",
	Short: "Gated file-sharing bot",
	Long: `fileshare runs a chat bot that stores batches of files in a private archive
and hands them out through share links to users who belong to every required group.`,
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, statsCmd, versionCmd)
}

// newLogger builds the process logger: console output in development, JSON
// otherwise.
func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDevelopment() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	}
	return zerolog.New(os.Stdout).
		With().
		Timestamp().
		Logger()
}

// openStore connects the configured document store.
func openStore(ctx context.Context, cfg *config.Config) (store.DataStore, error) {
	switch cfg.Backend() {
	case config.BackendMongo:
		s, err := store.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("mongo connection failed: %w", err)
		}
		return s, nil
	case config.BackendPostgres:
		s, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres connection failed: %w", err)
		}
		return s, nil
	default:
		s, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite open failed: %w", err)
		}
		return s, nil
	}
}

// migrate prepares the schema of the configured backend.
func migrate(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	switch cfg.Backend() {
	case config.BackendMongo:
		s, err := store.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return fmt.Errorf("mongo connection failed: %w", err)
		}
		defer s.Close()
		if err := s.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("ensure indexes: %w", err)
		}
	case config.BackendPostgres:
		if err := store.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	default:
		// NewSQLiteStore applies the schema on open.
		s, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("sqlite open failed: %w", err)
		}
		s.Close()
	}
	logger.Info().Str("backend", string(cfg.Backend())).Msg("migrations completed")
	return nil
}
