package config

import (
	"os"
	"testing"
)

func TestNewFromEnv(t *testing.T) {
	// Helper function to set environment variables for a test
	setEnv := func(key, value string) {
		t.Helper()
		t.Setenv(key, value)
	}

	t.Run("Defaults", func(t *testing.T) {
		os.Unsetenv("DATABASE_PATH")
		os.Unsetenv("PLAN_DAYS")
		os.Unsetenv("TELEGRAM_ALLOW_USER_IDS")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.DatabasePath != DefaultDatabasePath {
			t.Errorf("Expected default database path, got '%s'", cfg.DatabasePath)
		}
		if cfg.PlanDays != 3 {
			t.Errorf("Expected default PlanDays 3, got %d", cfg.PlanDays)
		}
	})

	t.Run("Success", func(t *testing.T) {
		setEnv("DATABASE_PATH", "/tmp/test.db")
		setEnv("PLAN_DAYS", "7")
		setEnv("TELEGRAM_BOT_TOKEN", "token123")
		setEnv("TELEGRAM_WEBHOOK_URL", "https://bot.test/webhook")
		setEnv("TELEGRAM_ALLOW_USER_IDS", "100, 200,300")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.DatabasePath != "/tmp/test.db" {
			t.Errorf("Expected DatabasePath '/tmp/test.db', got '%s'", cfg.DatabasePath)
		}
		if cfg.PlanDays != 7 {
			t.Errorf("Expected PlanDays 7, got %d", cfg.PlanDays)
		}
		if cfg.TelegramBotToken != "token123" {
			t.Errorf("Expected bot token 'token123', got '%s'", cfg.TelegramBotToken)
		}
		if len(cfg.TelegramAllowUserIDs) != 3 || cfg.TelegramAllowUserIDs[1] != 200 {
			t.Errorf("Expected allow list [100 200 300], got %v", cfg.TelegramAllowUserIDs)
		}
	})

	t.Run("InvalidPlanDays", func(t *testing.T) {
		setEnv("PLAN_DAYS", "zero")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for non-numeric PLAN_DAYS, got nil")
		}
	})

	t.Run("NonPositivePlanDays", func(t *testing.T) {
		setEnv("PLAN_DAYS", "0")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for PLAN_DAYS=0, got nil")
		}
	})

	t.Run("InvalidAllowList", func(t *testing.T) {
		setEnv("TELEGRAM_ALLOW_USER_IDS", "100,abc")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for a non-numeric allow list id, got nil")
		}
	})
}

func TestAllowsTelegramUser(t *testing.T) {
	open := &Config{}
	if !open.AllowsTelegramUser(42) {
		t.Error("Expected empty allow list to admit everyone")
	}

	restricted := &Config{TelegramAllowUserIDs: []int64{100, 200}}
	if !restricted.AllowsTelegramUser(200) {
		t.Error("Expected listed user to be allowed")
	}
	if restricted.AllowsTelegramUser(300) {
		t.Error("Expected unlisted user to be rejected")
	}
}
