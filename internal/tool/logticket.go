package tool

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tooldesk-io/tooldesk/pkg/protocol"
)

// TicketAppender is the slice of the ticket store the capability needs.
type TicketAppender interface {
	Append(ctx context.Context, t *protocol.Ticket) error
}

// LogTicketTool is the single capability exposed to the intake agent. It
// persists a friction report once the model has collected the tool, the
// issue, and the business impact.
//
// Execute never returns a Go error: an error would surface into the
// conversation loop and abort the turn, so a store failure degrades to an
// apologetic acknowledgment instead.
type LogTicketTool struct {
	Store  TicketAppender
	Logger *slog.Logger
}

// degradedReply is returned verbatim when the store rejects the write.
const degradedReply = "I've noted the issue, but had a sync error. I'll retry in the background."

func (t *LogTicketTool) Name() string { return "log_engineering_ticket" }

func (t *LogTicketTool) Description() string {
	return "Log an engineering tooling or process friction ticket once the specific tool, the specific issue, and the business impact are all known."
}

func (t *LogTicketTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"tool_name":         map[string]any{"type": "string", "description": "The specific tool (e.g. GitHub, Docker, CI/CD pipeline, local compiler)"},
			"issue_description": map[string]any{"type": "string", "description": "The specific issue (e.g. timing out, throwing a memory error)"},
			"business_impact":   map[string]any{"type": "string", "description": "The business impact (e.g. can't merge PRs, wasting 2 hours a day)"},
			"priority":          map[string]any{"type": "string", "description": "Ticket priority: Low, Medium, or High. Defaults to Medium."},
		},
		"required": []string{"tool_name", "issue_description", "business_impact"},
	}
}

func (t *LogTicketTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// The model occasionally passes numbers or nested values; coerce
	// everything to strings rather than rejecting the ticket.
	origin := OriginFromContext(ctx)
	ticket := &protocol.Ticket{
		ToolName:         coerceString(params, "tool_name"),
		IssueDescription: coerceString(params, "issue_description"),
		BusinessImpact:   coerceString(params, "business_impact"),
		Priority:         coerceString(params, "priority"),
		Channel:          origin.Channel,
		SessionID:        origin.SessionID,
	}
	if ticket.Priority == "" {
		ticket.Priority = protocol.DefaultPriority
	}

	logger.Info("writing ticket",
		"tool_name", ticket.ToolName,
		"priority", ticket.Priority,
		"channel", ticket.Channel,
	)

	if err := t.Store.Append(ctx, ticket); err != nil {
		logger.Error("ticket write failed", "error", err)
		return degradedReply, nil
	}

	return fmt.Sprintf("Ticket logged: %s is being tracked with %s priority.", ticket.ToolName, ticket.Priority), nil
}

// coerceString extracts params[key] as a string, stringifying other types.
func coerceString(params map[string]any, key string) string {
	raw, ok := params[key]
	if !ok || raw == nil {
		return ""
	}
	if s, ok := raw.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", raw)
}
