// Package connector defines the interface for external messaging platforms
// that feed the intake flow.
package connector

import "context"

// Connector is an external chat platform (Telegram, Slack) acting as an
// intake channel.
type Connector interface {
	// Name returns the connector type (e.g. "telegram", "slack").
	Name() string
	// Start begins listening for inbound messages. Blocks until the context
	// is cancelled.
	Start(ctx context.Context) error
	// Stop gracefully shuts down the connector.
	Stop() error
}

// InboundHandler processes a message from an external platform and returns
// the reply to send back. Implementations run the same intake turn the web
// chat endpoint does; the chat id doubles as the session id.
type InboundHandler func(ctx context.Context, channel, chatID, text string) (string, error)
