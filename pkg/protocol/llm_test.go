package protocol

import "testing"

func TestHasToolCalls(t *testing.T) {
	resp := &ChatResponse{Content: "hello"}
	if resp.HasToolCalls() {
		t.Error("expected no tool calls")
	}

	resp.ToolCalls = []ToolCall{{ID: "call_1", Name: "log_engineering_ticket"}}
	if !resp.HasToolCalls() {
		t.Error("expected tool calls")
	}
}

func TestUsageTotalTokens(t *testing.T) {
	u := Usage{PromptTokens: 12, CompletionTokens: 8}
	if u.TotalTokens() != 20 {
		t.Errorf("expected 20, got %d", u.TotalTokens())
	}
}

func TestNewToolDefinition(t *testing.T) {
	def := NewToolDefinition("log_engineering_ticket", "Log a ticket", map[string]any{"type": "object"})
	if def.Type != "function" {
		t.Errorf("expected function type, got %q", def.Type)
	}
	if def.Function.Name != "log_engineering_ticket" {
		t.Errorf("unexpected name %q", def.Function.Name)
	}
	if def.Function.Parameters["type"] != "object" {
		t.Errorf("unexpected parameters %v", def.Function.Parameters)
	}
}
