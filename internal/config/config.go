package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// TimeoutPolicy decides what happens when an approval pause expires.
type TimeoutPolicy string

const (
	// TimeoutApprove proceeds with the last generated plan.
	TimeoutApprove TimeoutPolicy = "approve"
	// TimeoutReject terminates the flow without creating tasks.
	TimeoutReject TimeoutPolicy = "reject"
)

// Config holds the configuration for the application.
type Config struct {
	GeminiAPIKey string
	GeminiModel  string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramWebhookSecret  string
	TelegramChatID         int64
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64

	// Todoist MCP Server
	TodoistMCPServerURL     string
	TodoistMCPAuthToken     string
	TodoistGroceryProjectID string

	// Flow Configuration
	DatabasePath            string
	ApprovalTimeoutSeconds  int
	ApprovalTimeoutPolicy   TimeoutPolicy
	MaxRegenerationAttempts int
	DietaryPreferences      string
}

const defaultPreferences = "I like quick, healthy meals under 20 minutes for 2 people."

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	geminiAPIKey := os.Getenv("GEMINI_API_KEY")
	if geminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	geminiModel := os.Getenv("GEMINI_MODEL")
	if geminiModel == "" {
		geminiModel = "gemini-1.5-pro"
	}

	telegramBotToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	if telegramBotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}

	telegramChatIDStr := os.Getenv("TELEGRAM_CHAT_ID")
	if telegramChatIDStr == "" {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID environment variable not set")
	}
	telegramChatID, err := strconv.ParseInt(telegramChatIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID must be numeric: %w", err)
	}

	mcpServerURL := os.Getenv("TODOIST_MCP_SERVER_URL")
	if mcpServerURL == "" {
		return nil, fmt.Errorf("TODOIST_MCP_SERVER_URL environment variable not set")
	}

	groceryProjectID := os.Getenv("TODOIST_GROCERY_PROJECT_ID")
	if groceryProjectID == "" {
		return nil, fmt.Errorf("TODOIST_GROCERY_PROJECT_ID environment variable not set")
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "data/meal-planner.db"
	}

	timeoutSeconds := 86400
	if v := os.Getenv("APPROVAL_TIMEOUT_SECONDS"); v != "" {
		timeoutSeconds, err = strconv.Atoi(v)
		if err != nil || timeoutSeconds <= 0 {
			return nil, fmt.Errorf("APPROVAL_TIMEOUT_SECONDS must be a positive integer, got %q", v)
		}
	}

	timeoutPolicy := TimeoutApprove
	if v := os.Getenv("APPROVAL_TIMEOUT_POLICY"); v != "" {
		switch TimeoutPolicy(v) {
		case TimeoutApprove, TimeoutReject:
			timeoutPolicy = TimeoutPolicy(v)
		default:
			return nil, fmt.Errorf("APPROVAL_TIMEOUT_POLICY must be 'approve' or 'reject', got %q", v)
		}
	}

	maxAttempts := 3
	if v := os.Getenv("MAX_REGENERATION_ATTEMPTS"); v != "" {
		maxAttempts, err = strconv.Atoi(v)
		if err != nil || maxAttempts < 0 {
			return nil, fmt.Errorf("MAX_REGENERATION_ATTEMPTS must be a non-negative integer, got %q", v)
		}
	}

	preferences := os.Getenv("DIETARY_PREFERENCES")
	if preferences == "" {
		preferences = defaultPreferences
	}

	var allowedUserIDs []int64
	if v := os.Getenv("TELEGRAM_ALLOWED_USER_IDS"); v != "" {
		for _, part := range strings.Split(v, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("TELEGRAM_ALLOWED_USER_IDS contains a non-numeric entry %q", part)
			}
			allowedUserIDs = append(allowedUserIDs, id)
		}
	}

	var adminID int64
	if v := os.Getenv("ADMIN_TELEGRAM_ID"); v != "" {
		adminID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_TELEGRAM_ID must be numeric: %w", err)
		}
	}

	return &Config{
		GeminiAPIKey:            geminiAPIKey,
		GeminiModel:             geminiModel,
		TelegramBotToken:        telegramBotToken,
		TelegramWebhookURL:      os.Getenv("TELEGRAM_WEBHOOK_URL"),
		TelegramWebhookSecret:   os.Getenv("TELEGRAM_WEBHOOK_SECRET"),
		TelegramChatID:          telegramChatID,
		TelegramAllowedUserIDs:  allowedUserIDs,
		AdminTelegramID:         adminID,
		TodoistMCPServerURL:     mcpServerURL,
		TodoistMCPAuthToken:     os.Getenv("TODOIST_MCP_AUTH_TOKEN"),
		TodoistGroceryProjectID: groceryProjectID,
		DatabasePath:            dbPath,
		ApprovalTimeoutSeconds:  timeoutSeconds,
		ApprovalTimeoutPolicy:   timeoutPolicy,
		MaxRegenerationAttempts: maxAttempts,
		DietaryPreferences:      preferences,
	}, nil
}
