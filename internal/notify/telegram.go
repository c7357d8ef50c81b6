// Package notify sends prediction alerts to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/MSMEPredictor/internal/present"
	"github.com/Alias1177/MSMEPredictor/models"
)

// Notifier reports notable prediction outcomes
type Notifier interface {
	ManualResult(ctx context.Context, result *models.PredictionResult) error
	BulkSummary(ctx context.Context, batch *models.Batch, summary models.Summary) error
}

// SendTimeout bounds every call to the Telegram API
const SendTimeout = 10 * time.Second

// Sender is the part of tgbotapi.BotAPI used here
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts messages to one chat
type Telegram struct {
	bot    Sender
	chatID int64
	logger zerolog.Logger
}

// NewTelegram authorizes the bot token and returns a notifier for chatID
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: SendTimeout})
	if err != nil {
		return nil, fmt.Errorf("initializing telegram bot: %w", err)
	}
	n := NewTelegramWithSender(bot, chatID)
	n.logger.Info().Str("username", bot.Self.UserName).Msg("Authorized on Telegram")
	return n, nil
}

// NewTelegramWithSender builds a notifier on an existing sender
func NewTelegramWithSender(bot Sender, chatID int64) *Telegram {
	return &Telegram{
		bot:    bot,
		chatID: chatID,
		logger: log.With().Str("component", "telegram_notifier").Logger(),
	}
}

// ManualResult alerts on High Risk manual predictions only
func (t *Telegram) ManualResult(ctx context.Context, result *models.PredictionResult) error {
	if result == nil || result.IsError() || result.Prediction != models.RiskHigh {
		return nil
	}
	return t.send(ctx, ManualAlertText(result))
}

// BulkSummary posts a digest of a bulk batch
func (t *Telegram) BulkSummary(ctx context.Context, batch *models.Batch, summary models.Summary) error {
	if summary.Total == 0 {
		return nil
	}
	return t.send(ctx, BulkDigestText(batch, summary))
}

func (t *Telegram) send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	// Sender has no context, so a stalled call is abandoned when ctx is done.
	done := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(msg)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("sending telegram message to chat %d: %w", t.chatID, err)
		}
	case <-ctx.Done():
		return fmt.Errorf("sending telegram message to chat %d: %w", t.chatID, ctx.Err())
	}
	t.logger.Debug().Int64("chat_id", t.chatID).Msg("Telegram message sent")
	return nil
}

// ManualAlertText formats the alert for a single high risk business
func ManualAlertText(r *models.PredictionResult) string {
	var sb strings.Builder
	sb.WriteString("*High risk business detected*\n\n")
	fmt.Fprintf(&sb, "Status: %s\n", escapeMarkdown(r.Status))
	fmt.Fprintf(&sb, "Risk score: %s\n", present.Number(r.RiskScore))
	fmt.Fprintf(&sb, "Confidence: %s\n", present.FractionPercent(r.Confidence))
	if len(r.KeyFactors) > 0 {
		sb.WriteString("Key factors:\n")
		for _, f := range present.FormatFactors(r.KeyFactors) {
			fmt.Fprintf(&sb, "• %s\n", escapeMarkdown(f))
		}
	}
	return sb.String()
}

// BulkDigestText formats the digest of a bulk batch
func BulkDigestText(b *models.Batch, s models.Summary) string {
	var sb strings.Builder
	sb.WriteString("*Bulk prediction completed*\n\n")
	if b != nil && b.FileName != "" {
		fmt.Fprintf(&sb, "File: %s\n", escapeMarkdown(b.FileName))
	}
	fmt.Fprintf(&sb, "Businesses: %d\n", s.Total)
	fmt.Fprintf(&sb, "Low risk: %d\n", s.LowRisk)
	fmt.Fprintf(&sb, "Medium risk: %d\n", s.MediumRisk)
	fmt.Fprintf(&sb, "High risk: %d\n", s.HighRisk)
	fmt.Fprintf(&sb, "Health rate: %s\n", present.Percent(s.HealthRate))
	if b != nil && b.Mismatch() {
		fmt.Fprintf(&sb, "\nWarning: file has %d rows but %d results were returned\n", b.CSVRows, len(b.Rows))
	}
	return sb.String()
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// Nop discards every notification
type Nop struct{}

func (Nop) ManualResult(context.Context, *models.PredictionResult) error { return nil }

func (Nop) BulkSummary(context.Context, *models.Batch, models.Summary) error { return nil }
