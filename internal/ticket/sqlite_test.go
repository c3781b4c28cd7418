package ticket

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/tooldesk-io/tooldesk/pkg/protocol"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "tickets.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppend_AssignsIDAndTimestamp(t *testing.T) {
	store := newTestStore(t)

	tk := &protocol.Ticket{
		ToolName:         "Docker",
		IssueDescription: "builds time out",
		BusinessImpact:   "can't ship images",
	}
	if err := store.Append(context.Background(), tk); err != nil {
		t.Fatalf("append: %v", err)
	}

	if tk.ID == "" {
		t.Error("expected generated ticket id")
	}
	if tk.Priority != "Medium" {
		t.Errorf("expected default priority Medium, got %q", tk.Priority)
	}
	if tk.Timestamp == nil {
		t.Fatal("expected store-assigned timestamp")
	}
	if d := time.Since(*tk.Timestamp); d < 0 || d > time.Minute {
		t.Errorf("timestamp not near now: %v", tk.Timestamp)
	}
}

func TestAppend_KeepsCallerID(t *testing.T) {
	store := newTestStore(t)

	tk := &protocol.Ticket{
		ID:               "tk-fixed",
		ToolName:         "CI",
		IssueDescription: "flaky",
		Priority:         "High",
	}
	if err := store.Append(context.Background(), tk); err != nil {
		t.Fatalf("append: %v", err)
	}
	if tk.ID != "tk-fixed" {
		t.Errorf("id was rewritten: %q", tk.ID)
	}
}

func TestList_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Force distinct, ordered timestamps so ordering is deterministic.
	for i, name := range []string{"first", "second", "third"} {
		_, err := store.DB().Exec(`
			INSERT INTO tickets (id, tool_name, issue_description, logged_at)
			VALUES (?, ?, '', ?)
		`, name, name, time.Date(2026, 1, 1, 0, 0, i, 0, time.UTC).Format(logTimeLayout))
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	tickets, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tickets) != 3 {
		t.Fatalf("expected 3 tickets, got %d", len(tickets))
	}
	if tickets[0].ToolName != "third" || tickets[2].ToolName != "first" {
		t.Errorf("expected newest first, got %s..%s", tickets[0].ToolName, tickets[2].ToolName)
	}
	if tickets[0].Timestamp == nil {
		t.Error("expected parsed timestamp")
	}
}

func TestList_Limit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		tk := &protocol.Ticket{ToolName: "GitHub", IssueDescription: "slow"}
		if err := store.Append(ctx, tk); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	tickets, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tickets) != 2 {
		t.Errorf("expected 2 tickets with limit, got %d", len(tickets))
	}
}

func TestCountSince(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old := time.Now().UTC().Add(-48 * time.Hour)
	if _, err := store.DB().Exec(`
		INSERT INTO tickets (id, tool_name, issue_description, logged_at)
		VALUES ('tk-old', 'VPN', '', ?)
	`, old.Format(logTimeLayout)); err != nil {
		t.Fatalf("insert old: %v", err)
	}
	if err := store.Append(ctx, &protocol.Ticket{ToolName: "VPN", IssueDescription: "drops"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	count, err := store.CountSince(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 ticket in window, got %d", count)
	}

	count, err = store.CountSince(ctx, time.Now().Add(-72*time.Hour))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 tickets in wide window, got %d", count)
	}
}

func TestAppend_RoundTripsFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in := &protocol.Ticket{
		ToolName:         "Jenkins",
		IssueDescription: "queue stuck",
		BusinessImpact:   "releases blocked",
		Priority:         "High",
		Channel:          "telegram",
		SessionID:        "telegram:42",
	}
	if err := store.Append(ctx, in); err != nil {
		t.Fatalf("append: %v", err)
	}

	tickets, err := store.List(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := tickets[0]
	if got.ToolName != in.ToolName || got.IssueDescription != in.IssueDescription ||
		got.BusinessImpact != in.BusinessImpact || got.Priority != in.Priority ||
		got.Channel != in.Channel || got.SessionID != in.SessionID {
		t.Errorf("round trip mismatch: %+v", got)
	}
}
