package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

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

const sweepInterval = 1 * time.Minute

// The approval-bot is the long-running half of the agent: it receives
// Telegram replies over a webhook, resumes suspended planning flows and
// resolves expired approval pauses.
func main() {
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
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

	bot, err := telegram.NewBot(cfg, api, engine, metricsStore)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram Bot: %v", err)
	}
	bot.RegisterHandlers()

	// Resolve expired approval pauses in the background.
	sweepCtx, stopSweep := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := engine.SweepTimeouts(sweepCtx, time.Now()); err != nil {
					log.Printf("Timeout sweep failed: %v", err)
				}
			case <-sweepCtx.Done():
				return
			}
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: nil,
	}

	go func() {
		log.Printf("Approval Bot Server listening on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	stopSweep()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
