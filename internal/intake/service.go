// Package intake orchestrates a chat turn: admission gate, session lookup,
// agent loop, reply.
package intake

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tooldesk-io/tooldesk/internal/agent"
	"github.com/tooldesk-io/tooldesk/internal/session"
	"github.com/tooldesk-io/tooldesk/internal/tool"
	"github.com/tooldesk-io/tooldesk/pkg/protocol"
)

// Admitter is the admission gate as the service sees it. A nil Admitter
// disables admission control entirely.
type Admitter interface {
	Allow(ctx context.Context) bool
	DeclineMessage() string
}

// Service handles intake conversation turns from every channel.
type Service struct {
	sessions *session.Registry
	agent    *agent.Agent
	gate     Admitter // nil when the cap is disabled
	logger   *slog.Logger
}

// New creates a Service. gate may be nil; logger may be nil.
func New(sessions *session.Registry, ag *agent.Agent, gate Admitter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		sessions: sessions,
		agent:    ag,
		gate:     gate,
		logger:   logger,
	}
}

// Handle runs one chat turn for the given session and returns the reply
// text. channel names the intake surface ("web", "telegram", "slack") and is
// recorded on any ticket the model logs during the turn.
//
// When the gate declines, the fixed decline message is returned and the
// model is never invoked. A provider failure propagates to the caller with
// the session history rolled back to its pre-turn state.
func (s *Service) Handle(ctx context.Context, channel, sessionID, message string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("intake: session id is required")
	}
	if message == "" {
		return "", fmt.Errorf("intake: message is required")
	}

	if s.gate != nil && !s.gate.Allow(ctx) {
		s.logger.Info("turn declined by admission gate",
			"channel", channel,
			"session", sessionID,
		)
		return s.gate.DeclineMessage(), nil
	}

	sess := s.sessions.GetOrCreate(sessionID)
	ctx = tool.WithOrigin(ctx, tool.Origin{Channel: channel, SessionID: sessionID})

	var reply string
	err := sess.Turn(func(history []protocol.ChatMessage) ([]protocol.ChatMessage, error) {
		history = append(history, protocol.ChatMessage{
			Role:    protocol.RoleUser,
			Content: message,
		})

		text, updated, err := s.agent.Run(ctx, history)
		if err != nil {
			return nil, err
		}
		reply = text
		return updated, nil
	})
	if err != nil {
		return "", fmt.Errorf("intake: %w", err)
	}

	s.logger.Debug("turn complete",
		"channel", channel,
		"session", sessionID,
		"reply_len", len(reply),
	)
	return reply, nil
}
