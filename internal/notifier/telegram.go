package notifier

import (
	"context"
	"fmt"
	"log"
	"time"

	"ZucchiniBot/internal/ledger"
	"ZucchiniBot/internal/model"

	"gopkg.in/telebot.v3"
)

// Sender is the part of *telebot.Bot the notifier needs.
type Sender interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// ChatRecipient addresses a group or channel by numeric id or @username.
// Telegram accepts both forms as chat_id.
type ChatRecipient string

func (c ChatRecipient) Recipient() string { return string(c) }

// TelegramNotifier announces results to the configured group chat.
type TelegramNotifier struct {
	Bot        Sender
	Chat       telebot.Recipient
	MaxRetries int
	Backoff    time.Duration // first retry delay, doubled each attempt
}

// NewTelegramNotifier creates a notifier posting to chatID.
func NewTelegramNotifier(bot Sender, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		Bot:        bot,
		Chat:       ChatRecipient(chatID),
		MaxRetries: 3,
		Backoff:    time.Second,
	}
}

// Send sends an HTML message to the configured chat.
func (t *TelegramNotifier) Send(text string) error {
	if _, err := t.Bot.Send(t.Chat, text, telebot.ModeHTML, telebot.NoPreview); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := t.Send(text); err != nil {
			lastErr = err
			if i == maxRetries {
				break
			}
			backoff := t.Backoff * time.Duration(1<<uint(i))
			log.Printf("[WARN] Telegram send failed (attempt %d/%d): %v, retrying in %v", i+1, maxRetries+1, err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}

// RoundSettled posts the lottery result to the group.
func (t *TelegramNotifier) RoundSettled(ctx context.Context, s model.RoundSettlement) error {
	return t.SendWithRetry(ctx, FormatRoundResult(&s), t.MaxRetries)
}

// EscrowsExpired tells the group which unanswered challenges were refunded.
func (t *TelegramNotifier) EscrowsExpired(ctx context.Context, refunds []ledger.Refund) error {
	return t.SendWithRetry(ctx, FormatExpired(refunds), t.MaxRetries)
}
