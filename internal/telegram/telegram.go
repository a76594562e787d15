// Package telegram wraps the Bot API client used as the chat transport.
//
// It implements the sender interfaces consumed by the conversation flow and
// the notifier, decodes inbound webhook envelopes into transport-neutral
// messages, and manages the webhook registration for the liveness
// supervisor. The underlying Bot API client performs its own HTTP calls
// without context support; ctx parameters are accepted for interface
// compatibility with the rest of the service.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rahimovschool/intakebot/internal/models"
)

// Client is the Telegram transport.
type Client struct {
	bot *tgbotapi.BotAPI
}

// NewClient authenticates against the Bot API with the given token.
func NewClient(token string) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("authorize bot: %w", err)
	}
	slog.Info("Telegram client authorized", "username", bot.Self.UserName)
	return &Client{bot: bot}, nil
}

// SendMessage sends plain text to a chat.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendMessageWithKeyboard sends text with a resizable reply keyboard built
// from the given button rows.
func (c *Client) SendMessageWithKeyboard(ctx context.Context, chatID int64, text string, buttonRows [][]string) error {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(buttonRows))
	for _, labels := range buttonRows {
		row := make([]tgbotapi.KeyboardButton, 0, len(labels))
		for _, label := range labels {
			row = append(row, tgbotapi.NewKeyboardButton(label))
		}
		rows = append(rows, row)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewReplyKeyboard(rows...)
	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("send keyboard message: %w", err)
	}
	return nil
}

// SendContactRequest sends text with a single contact-sharing button.
func (c *Client) SendContactRequest(ctx context.Context, chatID int64, text, button string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewReplyKeyboard(
		[]tgbotapi.KeyboardButton{tgbotapi.NewKeyboardButtonContact(button)},
	)
	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("send contact request: %w", err)
	}
	return nil
}

// SendMessageRemoveKeyboard sends text and clears any reply keyboard.
func (c *Client) SendMessageRemoveKeyboard(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	if _, err := c.bot.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// WebhookURL returns the currently registered webhook target, or "" when
// none is registered.
func (c *Client) WebhookURL(ctx context.Context) (string, error) {
	info, err := c.bot.GetWebhookInfo()
	if err != nil {
		return "", fmt.Errorf("get webhook info: %w", err)
	}
	return info.URL, nil
}

// SetWebhook registers the given URL as the webhook target.
func (c *Client) SetWebhook(ctx context.Context, url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("build webhook config: %w", err)
	}
	if _, err := c.bot.Request(wh); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	slog.Info("Telegram webhook registered", "url", url)
	return nil
}

// DeleteWebhook removes the current webhook registration.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	if _, err := c.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("delete webhook: %w", err)
	}
	return nil
}

// Identity returns the bot's own handle, used as liveness telemetry.
func (c *Client) Identity(ctx context.Context) (string, error) {
	user, err := c.bot.GetMe()
	if err != nil {
		return "", fmt.Errorf("get me: %w", err)
	}
	return "@" + user.UserName, nil
}

// DecodeIncoming reads one webhook update envelope and reduces it to a
// transport-neutral message. It reports ok=false for update types the flow
// does not handle (edits, channel posts, callback queries and so on).
func DecodeIncoming(body io.Reader) (models.IncomingMessage, bool, error) {
	var update tgbotapi.Update
	if err := json.NewDecoder(body).Decode(&update); err != nil {
		return models.IncomingMessage{}, false, fmt.Errorf("decode update: %w", err)
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return models.IncomingMessage{}, false, nil
	}

	im := models.IncomingMessage{
		UserID:      msg.From.ID,
		ChatID:      msg.Chat.ID,
		Username:    msg.From.UserName,
		DisplayName: strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName),
		Text:        msg.Text,
		Time:        msg.Time(),
	}
	if msg.Contact != nil {
		im.Contact = &models.Contact{
			PhoneNumber: msg.Contact.PhoneNumber,
			UserID:      msg.Contact.UserID,
		}
	}
	return im, true, nil
}
