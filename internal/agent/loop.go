package agent

import (
	"context"
	"fmt"

	"github.com/tooldesk-io/tooldesk/pkg/protocol"
)

// Run executes one conversation turn over the given history: send it to the
// model, execute any requested tool calls, and repeat until the model
// produces a final text reply or the iteration limit is hit. It returns the
// reply and the full updated history (assistant and tool messages included)
// for the session to keep.
func (a *Agent) Run(ctx context.Context, history []protocol.ChatMessage) (string, []protocol.ChatMessage, error) {
	maxIter := a.MaxIterations
	if maxIter <= 0 {
		maxIter = defaultMaxIterations
	}

	messages := history
	toolDefs := a.Tools.Definitions()

	for i := 0; i < maxIter; i++ {
		if err := ctx.Err(); err != nil {
			return "", history, fmt.Errorf("agent: context cancelled: %w", err)
		}

		resp, err := a.Provider.Chat(ctx, protocol.ChatRequest{
			Messages: messages,
			Tools:    toolDefs,
		})
		if err != nil {
			return "", history, fmt.Errorf("agent: provider error: %w", err)
		}

		a.Logger.Debug("model response",
			"iteration", i+1,
			"tool_calls", len(resp.ToolCalls),
			"tokens", resp.Usage.TotalTokens(),
		)

		if !resp.HasToolCalls() {
			messages = append(messages, protocol.ChatMessage{
				Role:    protocol.RoleAssistant,
				Content: resp.Content,
			})
			return resp.Content, messages, nil
		}

		messages = append(messages, protocol.ChatMessage{
			Role:      protocol.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, tc := range resp.ToolCalls {
			result, err := a.Tools.Execute(ctx, tc.Name, tc.Arguments)
			if err != nil {
				// Feed the error back as the tool result so the model
				// can recover within the same turn.
				result = fmt.Sprintf("Error: %v", err)
				a.Logger.Warn("tool error", "tool", tc.Name, "error", err)
			} else {
				a.Logger.Info("tool executed", "tool", tc.Name, "call_id", tc.ID)
			}

			messages = append(messages, protocol.ChatMessage{
				Role:       protocol.RoleTool,
				Content:    result,
				ToolCallID: tc.ID,
				Name:       tc.Name,
			})
		}
	}

	return "", history, fmt.Errorf("agent: exceeded max iterations (%d)", maxIter)
}
