package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pump-sentinel/internal/domain"
)

// Telegram sends pump alerts to a Telegram chat.
type Telegram struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Telegram{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// Compile-time interface check.
var _ Notifier = (*Telegram)(nil)

// Notify formats and sends a pump alert with linear-backoff retry.
func (t *Telegram) Notify(ctx context.Context, event *domain.PumpEvent) error {
	return t.sendMarkdownV2(ctx, formatPumpAlert(event))
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (t *Telegram) sendMarkdownV2(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = "MarkdownV2"

	return retryLinear(ctx, t.maxRetries, t.retryDelayBase, func() error {
		_, err := t.bot.Send(msg)
		return err
	})
}

// retryLinear runs send up to attempts times, sleeping base*(i+1)
// between attempts. The final failure returns without sleeping.
func retryLinear(ctx context.Context, attempts int, base time.Duration, send func() error) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := send(); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(base * time.Duration(i+1)):
		}
	}
	return fmt.Errorf("failed after %d retries: %w", attempts, lastErr)
}

// formatPumpAlert builds the Telegram MarkdownV2 alert text.
func formatPumpAlert(event *domain.PumpEvent) string {
	var b strings.Builder
	b.WriteString("🚨 *PUMP DETECTED*\n\n")
	b.WriteString(fmt.Sprintf("Pair: *%s*\n", escapeMarkdownV2(event.Symbol)))
	b.WriteString(fmt.Sprintf("Price: %s → %s \\(%s\\)\n",
		escapeMarkdownV2(formatPrice(event.PriceBefore)),
		escapeMarkdownV2(formatPrice(event.PriceAfter)),
		escapeMarkdownV2(fmt.Sprintf("%+.2f%%", event.PriceChangePct))))
	b.WriteString(fmt.Sprintf("Volume: %s\n",
		escapeMarkdownV2(fmt.Sprintf("%+.2f%%", event.VolumeChangePct))))
	b.WriteString(fmt.Sprintf("Time: %s",
		escapeMarkdownV2(event.ObservedAt.Format("2006-01-02 15:04:05"))))
	return b.String()
}

// formatPrice trims trailing zeros so IDR pairs with integer prices
// read naturally.
func formatPrice(p float64) string {
	s := strconv.FormatFloat(p, 'f', -1, 64)
	return s
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
