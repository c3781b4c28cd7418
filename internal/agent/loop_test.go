package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/tooldesk-io/tooldesk/internal/tool"
	"github.com/tooldesk-io/tooldesk/pkg/protocol"
)

// mockProvider returns a scripted sequence of responses and records requests.
type mockProvider struct {
	responses []*protocol.ChatResponse
	err       error
	callIdx   int
	calls     []protocol.ChatRequest
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Chat(_ context.Context, req protocol.ChatRequest) (*protocol.ChatResponse, error) {
	m.calls = append(m.calls, req)
	if m.err != nil {
		return nil, m.err
	}
	if m.callIdx >= len(m.responses) {
		return nil, fmt.Errorf("mock: no more responses (call %d)", m.callIdx)
	}
	resp := m.responses[m.callIdx]
	m.callIdx++
	return resp, nil
}

// echoTool returns its "text" parameter.
type echoTool struct{}

func (t *echoTool) Name() string        { return "echo" }
func (t *echoTool) Description() string { return "Echo text" }
func (t *echoTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{
		"text": map[string]any{"type": "string"},
	}}
}
func (t *echoTool) Execute(_ context.Context, params map[string]any) (string, error) {
	v, _ := params["text"].(string)
	return v, nil
}

// failTool always errors.
type failTool struct{}

func (t *failTool) Name() string        { return "fail" }
func (t *failTool) Description() string { return "Always fails" }
func (t *failTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}
func (t *failTool) Execute(_ context.Context, _ map[string]any) (string, error) {
	return "", fmt.Errorf("boom")
}

func seedHistory() []protocol.ChatMessage {
	return []protocol.ChatMessage{
		{Role: protocol.RoleSystem, Content: "You are a test agent."},
		{Role: protocol.RoleUser, Content: "Hi"},
	}
}

func TestRun_DirectResponse(t *testing.T) {
	prov := &mockProvider{
		responses: []*protocol.ChatResponse{{Content: "Hello!"}},
	}
	a := New(prov, tool.NewRegistry())

	reply, updated, err := a.Run(context.Background(), seedHistory())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "Hello!" {
		t.Errorf("expected 'Hello!', got %q", reply)
	}
	if len(prov.calls) != 1 {
		t.Errorf("expected 1 provider call, got %d", len(prov.calls))
	}
	// History gains the assistant reply.
	if len(updated) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(updated))
	}
	last := updated[2]
	if last.Role != protocol.RoleAssistant || last.Content != "Hello!" {
		t.Errorf("unexpected final message: %+v", last)
	}
}

func TestRun_ToolCallThenResponse(t *testing.T) {
	prov := &mockProvider{
		responses: []*protocol.ChatResponse{
			{ToolCalls: []protocol.ToolCall{
				{ID: "call_1", Name: "echo", Arguments: map[string]any{"text": "world"}},
			}},
			{Content: "The echo said: world"},
		},
	}
	reg := tool.NewRegistry()
	reg.Register(&echoTool{})
	a := New(prov, reg)

	reply, updated, err := a.Run(context.Background(), seedHistory())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "The echo said: world" {
		t.Errorf("unexpected reply: %q", reply)
	}
	if len(prov.calls) != 2 {
		t.Fatalf("expected 2 provider calls, got %d", len(prov.calls))
	}

	// system, user, assistant(tool call), tool result, assistant reply
	if len(updated) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(updated))
	}
	if updated[2].Role != protocol.RoleAssistant || len(updated[2].ToolCalls) != 1 {
		t.Errorf("expected assistant tool-call message, got %+v", updated[2])
	}
	toolMsg := updated[3]
	if toolMsg.Role != protocol.RoleTool || toolMsg.Content != "world" || toolMsg.ToolCallID != "call_1" {
		t.Errorf("unexpected tool message: %+v", toolMsg)
	}

	// Second provider call must include the tool result.
	secondCall := prov.calls[1].Messages
	if secondCall[len(secondCall)-1].Role != protocol.RoleTool {
		t.Error("expected tool result fed back to the model")
	}
}

func TestRun_ToolErrorFedBack(t *testing.T) {
	prov := &mockProvider{
		responses: []*protocol.ChatResponse{
			{ToolCalls: []protocol.ToolCall{
				{ID: "call_1", Name: "fail", Arguments: map[string]any{}},
			}},
			{Content: "Something went wrong."},
		},
	}
	reg := tool.NewRegistry()
	reg.Register(&failTool{})
	a := New(prov, reg)

	reply, updated, err := a.Run(context.Background(), seedHistory())
	if err != nil {
		t.Fatalf("tool error must not abort the turn: %v", err)
	}
	if reply != "Something went wrong." {
		t.Errorf("unexpected reply: %q", reply)
	}
	toolMsg := updated[3]
	if toolMsg.Content != "Error: boom" {
		t.Errorf("expected error fed back as tool result, got %q", toolMsg.Content)
	}
}

func TestRun_ProviderErrorReturnsOriginalHistory(t *testing.T) {
	prov := &mockProvider{err: fmt.Errorf("rate limited")}
	a := New(prov, tool.NewRegistry())

	history := seedHistory()
	_, returned, err := a.Run(context.Background(), history)
	if err == nil {
		t.Fatal("expected provider error")
	}
	if len(returned) != len(history) {
		t.Errorf("expected original history on error, got %d messages", len(returned))
	}
}

func TestRun_MaxIterations(t *testing.T) {
	// Model that asks for the tool forever.
	loop := &protocol.ChatResponse{
		ToolCalls: []protocol.ToolCall{
			{ID: "call", Name: "echo", Arguments: map[string]any{"text": "again"}},
		},
	}
	prov := &mockProvider{
		responses: []*protocol.ChatResponse{loop, loop, loop, loop},
	}
	reg := tool.NewRegistry()
	reg.Register(&echoTool{})
	a := New(prov, reg)
	a.MaxIterations = 3

	_, _, err := a.Run(context.Background(), seedHistory())
	if err == nil {
		t.Fatal("expected max iterations error")
	}
	if len(prov.calls) != 3 {
		t.Errorf("expected 3 provider calls, got %d", len(prov.calls))
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	prov := &mockProvider{responses: []*protocol.ChatResponse{{Content: "late"}}}
	a := New(prov, tool.NewRegistry())

	_, _, err := a.Run(ctx, seedHistory())
	if err == nil {
		t.Fatal("expected context error")
	}
	if len(prov.calls) != 0 {
		t.Errorf("expected no provider calls after cancellation, got %d", len(prov.calls))
	}
}
