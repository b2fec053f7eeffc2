package telegram

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"firewatch-worker-go/internal/alerts"
	"firewatch-worker-go/internal/config"
	"firewatch-worker-go/internal/models"
)

// sentMessage remembers where an alert landed so its caption can be edited
// once the operator decides.
type sentMessage struct {
	chatID    int64
	messageID int
	caption   string
}

// BotChannel delivers alert snapshots to a Telegram chat with inline
// confirm/reject buttons, and runs a long-poll loop that feeds the operator's
// button presses back as status decisions.
type BotChannel struct {
	bot          *tgbotapi.BotAPI
	chatID       int64
	pollTimeout  time.Duration
	errorBackoff time.Duration

	mu   sync.Mutex
	sent map[int64]sentMessage

	// poll loop state, touched only by the ingress goroutine
	lastSeen int

	stop chan struct{}
	done chan struct{}
}

// New connects to the Telegram Bot API with the configured token. The HTTP
// client timeout must outlast a full long poll, so it is the poll timeout
// plus the send timeout.
func New(cfg *config.Config) (*BotChannel, error) {
	client := &http.Client{Timeout: cfg.TelegramPollTimeout + cfg.TelegramSendTimeout}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.TelegramBotToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Telegram: %w", err)
	}

	log.Info().Str("bot_username", bot.Self.UserName).Msg("Telegram bot connected")

	return NewWithBot(bot, cfg.TelegramChatID, cfg.TelegramPollTimeout, cfg.TelegramErrorBackoff), nil
}

// NewWithBot wraps an already-connected bot client.
func NewWithBot(bot *tgbotapi.BotAPI, chatID int64, pollTimeout, errorBackoff time.Duration) *BotChannel {
	return &BotChannel{
		bot:          bot,
		chatID:       chatID,
		pollTimeout:  pollTimeout,
		errorBackoff: errorBackoff,
		sent:         make(map[int64]sentMessage),
	}
}

func (c *BotChannel) Name() string {
	return "telegram"
}

// Send pushes the alert snapshot as a photo message with confirm/reject
// buttons. The message id is remembered for the later caption edit.
func (c *BotChannel) Send(ctx context.Context, alert *models.Alert) bool {
	if err := ctx.Err(); err != nil {
		return false
	}

	caption := buildCaption(alert)

	photo := tgbotapi.NewPhoto(c.chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("alert_%d.jpg", alert.ID),
		Bytes: alert.Image,
	})
	photo.Caption = caption
	photo.ReplyMarkup = decisionKeyboard(alert.ID)

	msg, err := c.bot.Send(photo)
	if err != nil {
		log.Error().
			Err(err).
			Int64("alert_id", alert.ID).
			Int64("chat_id", c.chatID).
			Msg("Failed to send Telegram alert")
		return false
	}

	c.mu.Lock()
	c.sent[alert.ID] = sentMessage{
		chatID:    msg.Chat.ID,
		messageID: msg.MessageID,
		caption:   caption,
	}
	c.mu.Unlock()

	log.Info().
		Int64("alert_id", alert.ID).
		Int("message_id", msg.MessageID).
		Msg("Telegram alert sent")
	return true
}

// StartIngress launches the callback poll loop. The callback applies the
// operator's decision and reports whether the alert exists.
func (c *BotChannel) StartIngress(cb models.StatusCallback) {
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.pollLoop(cb)
}

// StopIngress signals the poll loop to exit and waits for it, bounded by one
// long-poll interval so shutdown never hangs on a slow network.
func (c *BotChannel) StopIngress() {
	if c.stop == nil {
		return
	}
	close(c.stop)
	select {
	case <-c.done:
	case <-time.After(c.pollTimeout + c.errorBackoff):
		log.Warn().Msg("Telegram poll loop did not stop in time")
	}
}

func (c *BotChannel) pollLoop(cb models.StatusCallback) {
	defer close(c.done)

	log.Info().Msg("🔄 Telegram callback poll loop started")

	for {
		select {
		case <-c.stop:
			log.Info().Msg("Telegram callback poll loop stopped")
			return
		default:
		}

		updates, err := c.bot.GetUpdates(tgbotapi.UpdateConfig{
			Offset:         c.lastSeen + 1,
			Timeout:        int(c.pollTimeout.Seconds()),
			AllowedUpdates: []string{"callback_query"},
		})
		if err != nil {
			log.Warn().Err(err).Msg("Telegram getUpdates failed, backing off")
			select {
			case <-c.stop:
				return
			case <-time.After(c.errorBackoff):
			}
			continue
		}

		for _, update := range updates {
			// Advance the offset before handling so a crash in the
			// handler never replays the same update.
			if update.UpdateID > c.lastSeen {
				c.lastSeen = update.UpdateID
			}
			if update.CallbackQuery == nil {
				continue
			}
			c.handleCallback(update.CallbackQuery, cb)
		}
	}
}

// handleCallback parses one "<action>_<alertID>" button press. Malformed
// tokens are dropped without a reply.
func (c *BotChannel) handleCallback(cq *tgbotapi.CallbackQuery, cb models.StatusCallback) {
	alertID, action, ok := parseCallbackData(cq.Data)
	if !ok {
		log.Debug().Str("data", cq.Data).Msg("Dropping malformed callback data")
		return
	}

	if !cb(alertID, action) {
		c.answer(cq.ID, fmt.Sprintf("Alert %d not found", alertID))
		log.Warn().Int64("alert_id", alertID).Msg("Callback for unknown alert")
		return
	}

	status := action.Status()
	c.answer(cq.ID, fmt.Sprintf("Alert %d %s", alertID, status))
	c.editCaption(alertID, status)

	log.Info().
		Int64("alert_id", alertID).
		Str("action", string(action)).
		Msg("Telegram decision applied")
}

// answer acks a callback query so the client stops its spinner.
func (c *BotChannel) answer(callbackID, text string) {
	if _, err := c.bot.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		log.Warn().Err(err).Msg("Failed to answer Telegram callback")
	}
}

// editCaption appends the decision to the original alert message and drops
// the inline keyboard so the buttons cannot be pressed twice.
func (c *BotChannel) editCaption(alertID int64, status models.AlertStatus) {
	c.mu.Lock()
	sent, ok := c.sent[alertID]
	c.mu.Unlock()
	if !ok {
		return
	}

	caption := fmt.Sprintf("%s\n\nStatus: %s", sent.caption, statusLine(status))
	edit := tgbotapi.NewEditMessageCaption(sent.chatID, sent.messageID, caption)
	if _, err := c.bot.Request(edit); err != nil {
		log.Warn().
			Err(err).
			Int64("alert_id", alertID).
			Msg("Failed to edit Telegram alert caption")
	}
}

// buildCaption renders the alert summary shown under the snapshot.
func buildCaption(alert *models.Alert) string {
	return fmt.Sprintf("🚨 ALERT: %s detected\nCount: %d\nConfidence: %s\nSource: %s\nAlert ID: %d",
		alert.Label, alert.Count, alerts.JoinConfidences(alert.Confidences), alert.Source, alert.ID)
}

func decisionKeyboard(alertID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Confirm", fmt.Sprintf("confirm_%d", alertID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Reject", fmt.Sprintf("reject_%d", alertID)),
		),
	)
}

func statusLine(status models.AlertStatus) string {
	if status == models.AlertStatusConfirmed {
		return "✅ CONFIRMED"
	}
	return "❌ REJECTED"
}
