// Package gate implements the ticket admission check consulted before each
// chat turn.
package gate

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultWindow is the rolling window the ticket cap applies to.
const DefaultWindow = 24 * time.Hour

// Counter is the slice of the ticket store the gate needs.
type Counter interface {
	CountSince(ctx context.Context, cutoff time.Time) (int, error)
}

// Gate caps how many tickets may be logged in a rolling window. The cap is
// global: every session's tickets count against every other session's quota.
// The check-then-act sequence is not atomic, so concurrent in-flight turns
// can overshoot the cap by at most their number.
type Gate struct {
	counter    Counter
	limit      int
	window     time.Duration
	failClosed bool
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithWindow overrides the rolling window.
func WithWindow(w time.Duration) Option {
	return func(g *Gate) { g.window = w }
}

// WithFailClosed makes counter failures decline the turn instead of
// letting it through.
func WithFailClosed() Option {
	return func(g *Gate) { g.failClosed = true }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// New creates a Gate allowing up to limit tickets per window.
func New(counter Counter, limit int, logger *slog.Logger, opts ...Option) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gate{
		counter: counter,
		limit:   limit,
		window:  DefaultWindow,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Allow reports whether another ticket may be logged right now. On a counter
// failure the gate fails open unless configured otherwise; either way the
// failure is logged rather than surfaced, so a broken counter never becomes
// a request error.
func (g *Gate) Allow(ctx context.Context) bool {
	cutoff := g.now().Add(-g.window)
	count, err := g.counter.CountSince(ctx, cutoff)
	if err != nil {
		g.logger.Error("admission gate count failed",
			"error", err,
			"fail_closed", g.failClosed,
		)
		return !g.failClosed
	}
	return count < g.limit
}

// DeclineMessage is the fixed reply a declined turn receives. The model is
// never invoked for a declined turn.
func (g *Gate) DeclineMessage() string {
	return fmt.Sprintf("I'm sorry, our system has reached its daily limit of %d tickets. Please come back tomorrow!", g.limit)
}
