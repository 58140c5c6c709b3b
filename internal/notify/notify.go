// Package notify delivers formatted chat messages to the operator channel.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"alertbot/internal/config"
	"alertbot/internal/format"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

// Message is one outbound chat message with optional inline actions.
// Params: HTML body text and button rows.
// Returns: transport-agnostic payload for any sink.
type Message struct {
	Text string
	Rows []format.Row
}

// Sink sends one message to the operator channel.
// Params: context and message payload.
// Returns: transport error when delivery fails.
type Sink interface {
	Send(ctx context.Context, message Message) error
}

// TelegramSender sends messages to the allow-listed Telegram chat.
// Params: bot token, numeric chat id, and optional API base URL.
// Returns: Telegram sink.
type TelegramSender struct {
	client  *tgbot.Bot
	chatID  int64
	initErr error
}

// NewTelegramSender creates the Telegram sink.
// Params: Telegram config section.
// Returns: initialized sender; init failures surface on first Send.
func NewTelegramSender(cfg config.TelegramConfig) *TelegramSender {
	sender := &TelegramSender{chatID: cfg.ChatID}

	if strings.TrimSpace(cfg.BotToken) == "" {
		sender.initErr = errors.New("telegram bot token is required")
		return sender
	}
	if cfg.ChatID == 0 {
		sender.initErr = errors.New("telegram chat_id is required")
		return sender
	}

	options := []tgbot.Option{tgbot.WithSkipGetMe()}
	if base := strings.TrimSpace(cfg.APIBase); base != "" {
		options = append(options, tgbot.WithServerURL(strings.TrimRight(base, "/")))
	}
	botClient, err := tgbot.New(cfg.BotToken, options...)
	if err != nil {
		sender.initErr = fmt.Errorf("init telegram bot: %w", err)
		return sender
	}
	sender.client = botClient
	return sender
}

// Client exposes the underlying bot for long-poll command handling.
// Params: none.
// Returns: bot client or nil before successful init.
func (s *TelegramSender) Client() *tgbot.Bot {
	return s.client
}

// Send posts one message to the configured chat.
// Params: context and message payload.
// Returns: transport or HTTP error.
func (s *TelegramSender) Send(ctx context.Context, message Message) error {
	if s.initErr != nil {
		return s.initErr
	}
	if s.client == nil {
		return errors.New("telegram client is not initialized")
	}

	noPreview := true
	request := &tgbot.SendMessageParams{
		ChatID:             s.chatID,
		Text:               message.Text,
		ParseMode:          tgmodels.ParseModeHTML,
		LinkPreviewOptions: &tgmodels.LinkPreviewOptions{IsDisabled: &noPreview},
	}
	if markup := InlineKeyboard(message.Rows); markup != nil {
		request.ReplyMarkup = markup
	}

	sent, err := s.client.SendMessage(ctx, request)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if sent == nil || sent.ID <= 0 {
		return errors.New("telegram send returned empty message id")
	}
	return nil
}

// InlineKeyboard converts button rows to Telegram inline markup.
// Params: formatter rows; buttons carry either a callback or a URL.
// Returns: markup or nil when there are no buttons.
func InlineKeyboard(rows []format.Row) *tgmodels.InlineKeyboardMarkup {
	var keyboard [][]tgmodels.InlineKeyboardButton
	for _, row := range rows {
		var line []tgmodels.InlineKeyboardButton
		for _, button := range row {
			converted := tgmodels.InlineKeyboardButton{Text: button.Label}
			switch {
			case button.Callback != "":
				converted.CallbackData = button.Callback
			case button.URL != "":
				converted.URL = button.URL
			default:
				continue
			}
			line = append(line, converted)
		}
		if len(line) > 0 {
			keyboard = append(keyboard, line)
		}
	}
	if len(keyboard) == 0 {
		return nil
	}
	return &tgmodels.InlineKeyboardMarkup{InlineKeyboard: keyboard}
}
