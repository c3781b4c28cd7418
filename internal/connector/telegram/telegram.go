// Package telegram runs the Telegram intake channel.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tooldesk-io/tooldesk/internal/connector"
)

// Config holds Telegram connector configuration.
type Config struct {
	Token     string  // Bot token from @BotFather
	AllowFrom []int64 // Allowed Telegram user IDs (empty = allow all)
}

// Connector implements connector.Connector for Telegram long polling.
// Session identifiers are "telegram:<chat_id>", so one Telegram chat is one
// intake conversation.
type Connector struct {
	bot     *tgbotapi.BotAPI
	config  Config
	handler connector.InboundHandler
	logger  *slog.Logger
	cancel  context.CancelFunc
}

// New creates a Telegram connector. logger may be nil.
func New(cfg Config, handler connector.InboundHandler, logger *slog.Logger) (*Connector, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: init bot: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("telegram bot authorized", "username", bot.Self.UserName)

	return &Connector{
		bot:     bot,
		config:  cfg,
		handler: handler,
		logger:  logger,
	}, nil
}

func (c *Connector) Name() string { return "telegram" }

// Start begins long-polling for updates. Blocks until the context is cancelled.
func (c *Connector) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := c.bot.GetUpdatesChan(u)

	c.logger.Info("telegram connector started", "bot", c.bot.Self.UserName)

	for {
		select {
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			c.handleMessage(ctx, update.Message)

		case <-ctx.Done():
			c.bot.StopReceivingUpdates()
			c.logger.Info("telegram connector stopped")
			return ctx.Err()
		}
	}
}

// Stop gracefully shuts down the connector.
func (c *Connector) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

func (c *Connector) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if len(c.config.AllowFrom) > 0 && !allowed(c.config.AllowFrom, userID) {
		c.logger.Warn("unauthorized telegram user", "user_id", userID, "username", msg.From.UserName)
		return
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if msg.IsCommand() {
		// /start and friends just get the standard greeting flow.
		text = commandText(msg)
	}
	if text == "" {
		return
	}

	typing := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	c.bot.Send(typing)

	sessionID := "telegram:" + strconv.FormatInt(chatID, 10)
	reply, err := c.handler(ctx, "telegram", sessionID, text)
	if err != nil {
		c.logger.Error("telegram turn failed", "chat_id", chatID, "error", err)
		reply = "Sorry, something went wrong on our side. Please try again."
	}
	if reply == "" {
		return
	}

	out := tgbotapi.NewMessage(chatID, reply)
	if _, err := c.bot.Send(out); err != nil {
		c.logger.Error("telegram send failed", "chat_id", chatID, "error", err)
	}
}

// commandText turns a bot command into plain text for the agent, since the
// intake agent has no command vocabulary of its own.
func commandText(msg *tgbotapi.Message) string {
	switch msg.Command() {
	case "start", "new":
		return "Hi"
	default:
		text := "/" + msg.Command()
		if args := msg.CommandArguments(); args != "" {
			text += " " + args
		}
		return text
	}
}

func allowed(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
