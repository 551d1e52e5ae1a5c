package notify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"hazacheck/internal/config"
)

// TelegramSender posts events to the staff chat
type TelegramSender struct {
	cfg       config.TelegramConfig
	formatter Formatter
	client    *http.Client
}

// NewTelegramSender creates a sender; it is disabled unless both the bot token
// and the chat id are configured.
func NewTelegramSender(cfg config.TelegramConfig, formatter Formatter, client *http.Client) *TelegramSender {
	if client == nil {
		client = http.DefaultClient
	}
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = tgbotapi.APIEndpoint
	}
	return &TelegramSender{cfg: cfg, formatter: formatter, client: client}
}

func (s *TelegramSender) Name() string { return "telegram" }

func (s *TelegramSender) Enabled() bool { return s.cfg.Enabled() }

// Send delivers e as an HTML message with link previews disabled
func (s *TelegramSender) Send(ctx context.Context, e Event) error {
	if !s.Enabled() {
		return nil
	}
	text := s.formatter.HTML(e)
	if text == "" {
		return fmt.Errorf("telegram: unsupported event kind %q", e.Kind)
	}
	return s.SendText(ctx, text)
}

// SendText posts raw HTML text to the configured chat
func (s *TelegramSender) SendText(ctx context.Context, text string) error {
	bot, err := s.bot(ctx)
	if err != nil {
		return err
	}

	var msg tgbotapi.MessageConfig
	chat := strings.TrimSpace(s.cfg.ChatID)
	if strings.HasPrefix(chat, "@") {
		msg = tgbotapi.NewMessageToChannel(chat, text)
	} else {
		chatID, err := strconv.ParseInt(chat, 10, 64)
		if err != nil {
			return fmt.Errorf("telegram chat id must be @channel or numeric id")
		}
		msg = tgbotapi.NewMessage(chatID, text)
	}
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// Verify checks the bot token and returns the bot's username
func (s *TelegramSender) Verify(ctx context.Context) (string, error) {
	bot, err := s.bot(ctx)
	if err != nil {
		return "", err
	}
	return bot.Self.UserName, nil
}

// bot authenticates against the Bot API with requests bound to ctx
func (s *TelegramSender) bot(ctx context.Context) (*tgbotapi.BotAPI, error) {
	if s.cfg.BotToken == "" {
		return nil, fmt.Errorf("telegram bot token is not configured")
	}
	bot, err := tgbotapi.NewBotAPIWithClient(s.cfg.BotToken, s.cfg.APIEndpoint, &contextClient{ctx: ctx, client: s.client})
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return bot, nil
}

// contextClient attaches ctx to every Bot API request
type contextClient struct {
	ctx    context.Context
	client *http.Client
}

func (c *contextClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req.WithContext(c.ctx))
}
