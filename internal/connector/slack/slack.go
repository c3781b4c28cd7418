// Package slackconn runs the Slack intake channel over Socket Mode.
package slackconn

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/tooldesk-io/tooldesk/internal/connector"
)

// Config holds Slack connector configuration.
type Config struct {
	BotToken string   // xoxb-... Bot User OAuth Token
	AppToken string   // xapp-... App-Level Token (Socket Mode)
	Channels []string // Optional: only respond in these channels (empty = all)
}

// Connector implements connector.Connector for Slack via Socket Mode.
// Threads get their own sessions: the session id is
// "slack:<channel>" or "slack:<channel>:<thread_ts>".
type Connector struct {
	api     *slack.Client
	socket  *socketmode.Client
	config  Config
	handler connector.InboundHandler
	logger  *slog.Logger
	cancel  context.CancelFunc
	botID   string
}

// New creates a Slack connector. logger may be nil.
func New(cfg Config, handler connector.InboundHandler, logger *slog.Logger) (*Connector, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("slack: bot_token is required")
	}
	if cfg.AppToken == "" {
		return nil, fmt.Errorf("slack: app_token is required (Socket Mode)")
	}
	if logger == nil {
		logger = slog.Default()
	}

	api := slack.New(cfg.BotToken, slack.OptionAppLevelToken(cfg.AppToken))

	authResp, err := api.AuthTest()
	if err != nil {
		return nil, fmt.Errorf("slack: auth test: %w", err)
	}
	logger.Info("slack bot authorized", "user", authResp.User, "team", authResp.Team)

	return &Connector{
		api:     api,
		socket:  socketmode.New(api),
		config:  cfg,
		handler: handler,
		logger:  logger,
		botID:   authResp.UserID,
	}, nil
}

func (c *Connector) Name() string { return "slack" }

// Start begins listening for events. Blocks until the context is cancelled.
func (c *Connector) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	go c.handleEvents(ctx)

	c.logger.Info("slack connector started (socket mode)")
	return c.socket.RunContext(ctx)
}

// Stop gracefully shuts down the connector.
func (c *Connector) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

func (c *Connector) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-c.socket.Events:
			if event.Type != socketmode.EventTypeEventsAPI {
				continue
			}
			apiEvent, ok := event.Data.(slackevents.EventsAPIEvent)
			if !ok {
				continue
			}
			c.socket.Ack(*event.Request)

			switch ev := apiEvent.InnerEvent.Data.(type) {
			case *slackevents.MessageEvent:
				c.handleMessage(ctx, ev)
			case *slackevents.AppMentionEvent:
				c.handleMention(ctx, ev)
			}
		}
	}
}

func (c *Connector) handleMessage(ctx context.Context, ev *slackevents.MessageEvent) {
	// Ignore bot messages (including our own) and subtypes (edits, deletes).
	if ev.BotID != "" || ev.User == "" || ev.User == c.botID || ev.SubType != "" {
		return
	}
	if !c.allowedChannel(ev.Channel) || ev.Text == "" {
		return
	}
	c.respond(ctx, ev.Channel, ev.ThreadTimeStamp, ev.Text)
}

func (c *Connector) handleMention(ctx context.Context, ev *slackevents.AppMentionEvent) {
	if ev.User == c.botID {
		return
	}
	text := stripMention(ev.Text, c.botID)
	if text == "" {
		return
	}
	c.respond(ctx, ev.Channel, ev.ThreadTimeStamp, text)
}

func (c *Connector) respond(ctx context.Context, channel, threadTS, text string) {
	sessionID := "slack:" + channel
	if threadTS != "" {
		sessionID += ":" + threadTS
	}

	reply, err := c.handler(ctx, "slack", sessionID, text)
	if err != nil {
		c.logger.Error("slack turn failed", "channel", channel, "error", err)
		reply = "Sorry, something went wrong on our side. Please try again."
	}
	if reply == "" {
		return
	}

	opts := []slack.MsgOption{slack.MsgOptionText(reply, false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}
	if _, _, err := c.api.PostMessage(channel, opts...); err != nil {
		c.logger.Error("slack send failed", "channel", channel, "error", err)
	}
}

func (c *Connector) allowedChannel(channel string) bool {
	if len(c.config.Channels) == 0 {
		return true
	}
	for _, ch := range c.config.Channels {
		if ch == channel {
			return true
		}
	}
	return false
}

// stripMention removes the <@BOTID> mention from message text.
func stripMention(text, botID string) string {
	mention := fmt.Sprintf("<@%s>", botID)
	return strings.TrimSpace(strings.Replace(text, mention, "", 1))
}
