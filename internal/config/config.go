package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the bot.
type Config struct {
	// BotToken is the Telegram Bot API token.
	BotToken string

	// ChannelUsername is the source channel handle, without the leading @.
	ChannelUsername string

	// DatabasePath is the SQLite file location.
	DatabasePath string

	// RulesPath optionally points at a YAML category rule table. Empty
	// means the built-in table.
	RulesPath string

	// AdminIDs are the Telegram user ids allowed to delete posts and
	// assign categories manually.
	AdminIDs map[int64]bool

	// LogLevel controls slog verbosity.
	LogLevel slog.Level
}

// Load reads configuration from the environment, after loading a .env file
// when one is present. BOT_TOKEN is required; everything else has a
// default.
func Load() (*Config, error) {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	token := os.Getenv("BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}

	channel := os.Getenv("CHANNEL_USERNAME")
	if channel == "" {
		channel = "nikitaFlooDed"
	}
	channel = strings.TrimPrefix(channel, "@")

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "content_bot.db"
	}

	admins := make(map[int64]bool)
	if raw := os.Getenv("ADMIN_IDS"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid ADMIN_IDS entry %q: %w", part, err)
			}
			admins[id] = true
		}
	}

	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	return &Config{
		BotToken:        token,
		ChannelUsername: channel,
		DatabasePath:    dbPath,
		RulesPath:       os.Getenv("CATEGORY_RULES_PATH"),
		AdminIDs:        admins,
		LogLevel:        level,
	}, nil
}
