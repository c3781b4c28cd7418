package gate

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// stubCounter returns a fixed count, or an error, and records the cutoff.
type stubCounter struct {
	count  int
	err    error
	cutoff time.Time
}

func (c *stubCounter) CountSince(_ context.Context, cutoff time.Time) (int, error) {
	c.cutoff = cutoff
	return c.count, c.err
}

func TestAllow_UnderLimit(t *testing.T) {
	g := New(&stubCounter{count: 2}, 3, nil)
	if !g.Allow(context.Background()) {
		t.Error("expected allow with 2 of 3 tickets used")
	}
}

func TestAllow_AtLimit(t *testing.T) {
	g := New(&stubCounter{count: 3}, 3, nil)
	if g.Allow(context.Background()) {
		t.Error("expected decline with 3 of 3 tickets used")
	}
}

func TestAllow_UsesRollingWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	counter := &stubCounter{}
	g := New(counter, 3, nil, WithClock(func() time.Time { return now }))

	g.Allow(context.Background())

	want := now.Add(-24 * time.Hour)
	if !counter.cutoff.Equal(want) {
		t.Errorf("expected cutoff %v, got %v", want, counter.cutoff)
	}
}

func TestAllow_CustomWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	counter := &stubCounter{}
	g := New(counter, 3, nil,
		WithWindow(time.Hour),
		WithClock(func() time.Time { return now }),
	)

	g.Allow(context.Background())

	want := now.Add(-time.Hour)
	if !counter.cutoff.Equal(want) {
		t.Errorf("expected cutoff %v, got %v", want, counter.cutoff)
	}
}

func TestAllow_CounterErrorFailsOpen(t *testing.T) {
	g := New(&stubCounter{err: fmt.Errorf("db locked")}, 3, nil)
	if !g.Allow(context.Background()) {
		t.Error("expected fail-open on counter error")
	}
}

func TestAllow_CounterErrorFailsClosed(t *testing.T) {
	g := New(&stubCounter{err: fmt.Errorf("db locked")}, 3, nil, WithFailClosed())
	if g.Allow(context.Background()) {
		t.Error("expected fail-closed on counter error")
	}
}

func TestDeclineMessage(t *testing.T) {
	g := New(&stubCounter{}, 3, nil)
	want := "I'm sorry, our system has reached its daily limit of 3 tickets. Please come back tomorrow!"
	if got := g.DeclineMessage(); got != want {
		t.Errorf("decline message mismatch:\n got %q\nwant %q", got, want)
	}
}
