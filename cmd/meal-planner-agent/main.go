package main

import (
	"context"
	"log"

	"meal-planner-agent/internal/config"
	"meal-planner-agent/internal/database"
	"meal-planner-agent/internal/flow"
	"meal-planner-agent/internal/llm"
	"meal-planner-agent/internal/meal"
	"meal-planner-agent/internal/metrics"
	"meal-planner-agent/internal/security"
	"meal-planner-agent/internal/telegram"
	"meal-planner-agent/internal/todoist"

	"github.com/joho/godotenv"
)

// This binary starts one weekly planning flow and exits: it generates the
// plan, posts it to Telegram for approval and suspends the flow in the
// database. The approval-bot process picks it up from there. Intended to run
// from cron or a systemd timer.
func main() {
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	geminiClient, err := llm.NewGeminiClient(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create Gemini client: %v", err)
	}
	if closer, ok := geminiClient.(llm.Closer); ok {
		defer closer.Close()
	}

	gate := security.NewGate(cfg.TodoistGroceryProjectID, security.NewIncidentStore(db.SQL))
	todoistClient, err := todoist.NewClient(ctx, cfg, gate)
	if err != nil {
		log.Fatalf("Failed to connect to Todoist MCP server: %v", err)
	}
	defer todoistClient.Close()

	api, err := telegram.NewAPI(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram API: %v", err)
	}
	channel := telegram.NewChannel(api, cfg.TelegramChatID, cfg.MaxRegenerationAttempts)

	metricsStore := metrics.NewStore(db.SQL)
	generator := meal.NewGenerator(geminiClient)
	store := flow.NewStore(db.SQL)
	engine := flow.NewEngine(store, generator, channel, todoistClient, metricsStore, cfg)

	id, err := engine.Start(ctx)
	if err != nil {
		log.Fatalf("Planning flow failed: %v", err)
	}

	if err := metricsStore.Cleanup(90); err != nil {
		log.Printf("Metrics cleanup failed: %v", err)
	}

	log.Printf("Planning flow %s suspended, awaiting approval in Telegram", id)
}
