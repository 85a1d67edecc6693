package telegram

import (
	"context"
	"fmt"

	"meal-planner-agent/internal/flow"
	"meal-planner-agent/internal/meal"
	"meal-planner-agent/internal/todoist"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// apiSender is the slice of the Telegram API the channel needs. Satisfied by
// *tgbotapi.BotAPI.
type apiSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Channel posts review and outcome messages into the configured chat. It is
// the flow engine's view of Telegram.
type Channel struct {
	api         apiSender
	chatID      int64
	maxAttempts int
}

// NewChannel creates a review channel targeting a single chat.
func NewChannel(api apiSender, chatID int64, maxAttempts int) *Channel {
	return &Channel{api: api, chatID: chatID, maxAttempts: maxAttempts}
}

// PostForReview sends the plan with approval instructions and returns the
// handle a reply will point back at.
func (c *Channel) PostForReview(ctx context.Context, plan *meal.Plan, correlationID string, attempt int) (flow.ReviewHandle, error) {
	msg := tgbotapi.NewMessage(c.chatID, formatPlanForReview(plan, attempt, c.maxAttempts))
	msg.ParseMode = "Markdown"
	sent, err := c.api.Send(msg)
	if err != nil {
		return flow.ReviewHandle{}, fmt.Errorf("failed to post plan for review: %w", err)
	}
	return flow.ReviewHandle{ChatID: sent.Chat.ID, MessageID: sent.MessageID}, nil
}

// PostFinal sends the approved plan with the grocery task summary.
func (c *Channel) PostFinal(ctx context.Context, plan *meal.Plan, report todoist.Report) error {
	msg := tgbotapi.NewMessage(c.chatID, formatFinal(plan, report))
	msg.ParseMode = "Markdown"
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("failed to post final plan: %w", err)
	}
	return nil
}

// PostNotice sends a plain status notice.
func (c *Channel) PostNotice(ctx context.Context, text string) error {
	if _, err := c.api.Send(tgbotapi.NewMessage(c.chatID, text)); err != nil {
		return fmt.Errorf("failed to post notice: %w", err)
	}
	return nil
}
