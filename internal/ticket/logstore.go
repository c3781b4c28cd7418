package ticket

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tooldesk-io/tooldesk/pkg/protocol"
)

// LogStore is the storeless driver: it journals each ticket to the
// operational log instead of persisting it. It stands in for a downstream
// queue publish in deployments that have no database of their own.
// List always returns nothing and the admission window never fills.
type LogStore struct {
	logger *slog.Logger
}

// NewLogStore creates a LogStore. logger may be nil.
func NewLogStore(logger *slog.Logger) *LogStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogStore{logger: logger}
}

func (s *LogStore) Append(_ context.Context, t *protocol.Ticket) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Priority == "" {
		t.Priority = protocol.DefaultPriority
	}
	s.logger.Info("ticket journaled",
		"id", t.ID,
		"tool_name", t.ToolName,
		"issue_description", t.IssueDescription,
		"business_impact", t.BusinessImpact,
		"priority", t.Priority,
		"channel", t.Channel,
	)
	return nil
}

func (s *LogStore) List(_ context.Context, _ int) ([]*protocol.Ticket, error) {
	return nil, nil
}

func (s *LogStore) CountSince(_ context.Context, _ time.Time) (int, error) {
	return 0, nil
}

func (s *LogStore) Close() error { return nil }
