package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultDatabasePath is used when DATABASE_PATH is not set.
const DefaultDatabasePath = "data/foodplanner.db"

// Config holds the configuration for the application.
type Config struct {
	DatabasePath string

	// Default number of plan days when a request does not specify one.
	PlanDays int

	// Telegram Config
	TelegramBotToken     string
	TelegramWebhookURL   string
	TelegramAllowUserIDs []int64
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	databasePath := os.Getenv("DATABASE_PATH")
	if databasePath == "" {
		databasePath = DefaultDatabasePath
	}

	planDays := 3
	if value := os.Getenv("PLAN_DAYS"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("PLAN_DAYS must be a positive integer, got %q", value)
		}
		planDays = parsed
	}

	// Telegram Config (Optional for CLI, required for Bot)
	telegramBotToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	telegramWebhookURL := os.Getenv("TELEGRAM_WEBHOOK_URL")

	var allowUserIDs []int64
	if raw := os.Getenv("TELEGRAM_ALLOW_USER_IDS"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("TELEGRAM_ALLOW_USER_IDS contains a non-numeric id %q", part)
			}
			allowUserIDs = append(allowUserIDs, id)
		}
	}

	return &Config{
		DatabasePath:         databasePath,
		PlanDays:             planDays,
		TelegramBotToken:     telegramBotToken,
		TelegramWebhookURL:   telegramWebhookURL,
		TelegramAllowUserIDs: allowUserIDs,
	}, nil
}

// AllowsTelegramUser reports whether the user may talk to the bot. An empty
// allow list means the bot is open to everyone.
func (c *Config) AllowsTelegramUser(id int64) bool {
	if len(c.TelegramAllowUserIDs) == 0 {
		return true
	}
	for _, allowed := range c.TelegramAllowUserIDs {
		if allowed == id {
			return true
		}
	}
	return false
}
