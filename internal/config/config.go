package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Backend names the document store in use.
type Backend string

const (
	BackendMongo    Backend = "mongo"
	BackendPostgres Backend = "postgres"
	BackendSQLite   Backend = "sqlite"
)

// Config holds all configuration for the application.
type Config struct {
	Port string
	Env  string

	// Bot
	BotToken         string
	BotUsername      string
	OwnerID          int64
	StorageChannelID int64

	// Storage
	MongoURI    string
	MongoDB     string
	DatabaseURL string
	SQLitePath  string
	RedisURL    string

	// Behaviour
	RelayTimeout    time.Duration
	ListLimit       int
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := FromViper(newViper())

	if cfg.Env == "production" {
		if err := cfg.Validate(); err != nil {
			panic(err.Error())
		}
	}

	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("MONGO_DB", "file_sharing_bot")
	v.SetDefault("SQLITE_PATH", "./data/fileshare.db")
	v.SetDefault("RELAY_TIMEOUT", "30s")
	v.SetDefault("LIST_LIMIT", 20)
	v.SetDefault("SHUTDOWN_TIMEOUT", "60s")
	return v
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Port:             v.GetString("PORT"),
		Env:              v.GetString("ENV"),
		BotToken:         v.GetString("BOT_TOKEN"),
		BotUsername:      strings.TrimPrefix(v.GetString("BOT_USERNAME"), "@"),
		OwnerID:          v.GetInt64("OWNER_ID"),
		StorageChannelID: v.GetInt64("STORAGE_CHANNEL_ID"),
		MongoURI:         v.GetString("MONGO_URI"),
		MongoDB:          v.GetString("MONGO_DB"),
		DatabaseURL:      v.GetString("DATABASE_URL"),
		SQLitePath:       v.GetString("SQLITE_PATH"),
		RedisURL:         v.GetString("REDIS_URL"),
		RelayTimeout:     v.GetDuration("RELAY_TIMEOUT"),
		ListLimit:        v.GetInt("LIST_LIMIT"),
		ShutdownTimeout:  v.GetDuration("SHUTDOWN_TIMEOUT"),
	}
	if cfg.RelayTimeout <= 0 {
		cfg.RelayTimeout = 30 * time.Second
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = 20
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 60 * time.Second
	}
	return cfg
}

// Backend returns the document store to use: Mongo, then Postgres, then SQLite.
func (c *Config) Backend() Backend {
	switch {
	case c.MongoURI != "":
		return BackendMongo
	case c.DatabaseURL != "":
		return BackendPostgres
	default:
		return BackendSQLite
	}
}

// Validate reports every missing key needed to run the bot.
func (c *Config) Validate() error {
	var missing []string
	if c.BotToken == "" {
		missing = append(missing, "BOT_TOKEN")
	}
	if c.OwnerID == 0 {
		missing = append(missing, "OWNER_ID")
	}
	if c.StorageChannelID == 0 {
		missing = append(missing, "STORAGE_CHANNEL_ID")
	}
	if c.Env == "production" && c.Backend() == BackendSQLite {
		missing = append(missing, "MONGO_URI or DATABASE_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
