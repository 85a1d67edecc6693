package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"meal-planner-agent/internal/approval"
	"meal-planner-agent/internal/config"
	"meal-planner-agent/internal/flow"
	"meal-planner-agent/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot wraps the Telegram API and routes free-text replies into the flow
// engine as approval decisions.
type Bot struct {
	api          *tgbotapi.BotAPI
	engine       *flow.Engine
	metricsStore *metrics.Store
	cfg          *config.Config
}

// NewAPI authorizes against the Telegram API. The same client is shared by
// the Bot and the review Channel.
func NewAPI(cfg *config.Config) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	log.Printf("Authorized on account %s", api.Self.UserName)
	return api, nil
}

// NewBot wraps an authorized API client and sets the Webhook.
func NewBot(cfg *config.Config, api *tgbotapi.BotAPI, engine *flow.Engine, metricsStore *metrics.Store) (*Bot, error) {
	params := tgbotapi.Params{"url": cfg.TelegramWebhookURL}
	if cfg.TelegramWebhookSecret != "" {
		params["secret_token"] = cfg.TelegramWebhookSecret
	}
	resp, err := api.MakeRequest("setWebhook", params)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	log.Printf("Webhook set response: %s", resp.Description)

	return &Bot{
		api:          api,
		engine:       engine,
		metricsStore: metricsStore,
		cfg:          cfg,
	}, nil
}

// RegisterHandlers registers the webhook handler with the default HTTP mux.
func (b *Bot) RegisterHandlers() {
	http.HandleFunc("/webhook", b.handleWebhook)
	http.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if b.cfg.TelegramWebhookSecret != "" &&
		r.Header.Get("X-Telegram-Bot-Api-Secret-Token") != b.cfg.TelegramWebhookSecret {
		log.Printf("⚠️ Webhook request with bad secret token rejected")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	update, err := b.api.HandleUpdate(r)
	if err != nil {
		log.Printf("Error parsing update: %v", err)
		return
	}

	if update.Message == nil {
		return
	}

	isAllowed := len(b.cfg.TelegramAllowedUserIDs) == 0
	for _, id := range b.cfg.TelegramAllowedUserIDs {
		if update.Message.From.ID == id {
			isAllowed = true
			break
		}
	}
	if !isAllowed {
		log.Printf("⚠️ Unauthorized access attempt from UserID: %d (@%s)", update.Message.From.ID, update.Message.From.UserName)
		return
	}

	go b.processMessage(update.Message)
}

func (b *Bot) processMessage(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch msg.Text {
	case "/plan":
		b.handlePlanCommand(ctx, msg)
		return
	case "/cancel":
		b.handleCancelCommand(ctx, msg)
		return
	case "/metrics":
		b.handleMetricsRequest(msg)
		return
	}

	b.handleDecision(ctx, msg)
}

func (b *Bot) handlePlanCommand(ctx context.Context, msg *tgbotapi.Message) {
	b.reply(msg.Chat.ID, "🧑‍🍳 Generating your weekly meal plan...")

	if _, err := b.engine.Start(ctx); err != nil {
		log.Printf("Error starting planning flow: %v", err)
	}
}

func (b *Bot) handleCancelCommand(ctx context.Context, msg *tgbotapi.Message) {
	st, err := b.engine.Store().LatestAwaiting(ctx, msg.Chat.ID)
	if err != nil {
		log.Printf("Error looking up pending flow: %v", err)
		return
	}
	if st == nil {
		b.reply(msg.Chat.ID, "There is no plan awaiting approval.")
		return
	}
	if err := b.engine.Cancel(ctx, st.ID); err != nil && !errors.Is(err, flow.ErrPauseClosed) {
		log.Printf("Error cancelling flow %s: %v", st.ID, err)
	}
}

// handleDecision classifies a free-text message and resumes the suspended
// flow it targets. A reply to a specific review message resolves to that
// flow; otherwise the newest suspended flow in the chat is assumed.
// Unrecognized text never consumes the pause; the bot re-prompts instead.
func (b *Bot) handleDecision(ctx context.Context, msg *tgbotapi.Message) {
	st, err := b.resolveFlow(ctx, msg)
	if err != nil {
		log.Printf("Error resolving flow for message: %v", err)
		return
	}
	if st == nil {
		b.reply(msg.Chat.ID, "There is no plan awaiting approval. Send /plan to start one.")
		return
	}

	decision := approval.Classify(msg.Text)
	if decision.Kind == approval.Unrecognized {
		b.reply(msg.Chat.ID, "I didn't understand that. Reply *approve*, *reject*, or *feedback: <your changes>*.")
		return
	}

	if err := b.engine.Resume(ctx, st.ID, decision); err != nil {
		switch {
		case errors.Is(err, flow.ErrPauseClosed):
			b.reply(msg.Chat.ID, "That plan was already decided.")
		default:
			log.Printf("Error resuming flow %s: %v", st.ID, err)
		}
	}
}

func (b *Bot) resolveFlow(ctx context.Context, msg *tgbotapi.Message) (*flow.State, error) {
	if msg.ReplyToMessage != nil {
		st, err := b.engine.Store().GetByReviewMessage(ctx, msg.Chat.ID, msg.ReplyToMessage.MessageID)
		if err != nil || st != nil {
			return st, err
		}
	}
	return b.engine.Store().LatestAwaiting(ctx, msg.Chat.ID)
}

func (b *Bot) handleMetricsRequest(msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.AdminTelegramID {
		b.reply(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}

	usage, err := b.metricsStore.GetDailyUsage(7)
	if err != nil {
		b.reply(msg.Chat.ID, "❌ Error fetching metrics.")
		return
	}
	health := metrics.GetSysHealth(filepath.Dir(b.cfg.DatabasePath))
	b.reply(msg.Chat.ID, formatMetricsReport(usage, health))
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Failed to send reply: %v", err)
	}
}
