package session

import (
	"testing"
	"time"
)

func TestNewSweeper_RejectsBadSchedule(t *testing.T) {
	reg := NewRegistry(testSeed, 0)
	if _, err := NewSweeper(reg, "not a schedule", nil); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestNewSweeper_EmptyScheduleUsesDefault(t *testing.T) {
	reg := NewRegistry(testSeed, 0)
	if _, err := NewSweeper(reg, "", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSweep_EvictsIdleSessions(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reg := NewRegistry(testSeed, 30*time.Minute)
	reg.SetClock(func() time.Time { return now })

	s, err := NewSweeper(reg, "@every 1h", nil)
	if err != nil {
		t.Fatalf("new sweeper: %v", err)
	}

	reg.GetOrCreate("stale")
	now = now.Add(time.Hour)

	s.sweep()
	if reg.Len() != 0 {
		t.Errorf("expected stale session evicted, %d remain", reg.Len())
	}
}
