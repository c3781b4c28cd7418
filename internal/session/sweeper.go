package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule is how often idle sessions are evicted.
const DefaultSweepSchedule = "@every 5m"

// Sweeper periodically evicts idle sessions so the registry does not grow
// without bound over the process lifetime.
type Sweeper struct {
	cron   *cron.Cron
	reg    *Registry
	logger *slog.Logger
}

// NewSweeper creates a sweeper on the given cron schedule
// (e.g. "@every 5m"). logger may be nil.
func NewSweeper(reg *Registry, schedule string, logger *slog.Logger) (*Sweeper, error) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Sweeper{
		cron:   cron.New(),
		reg:    reg,
		logger: logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("session sweeper: invalid schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the sweep schedule. Blocks until the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	s.cron.Start()
	s.logger.Info("session sweeper started")

	<-ctx.Done()
	s.cron.Stop()
	s.logger.Info("session sweeper stopped")
	return ctx.Err()
}

func (s *Sweeper) sweep() {
	if n := s.reg.Evict(s.reg.now()); n > 0 {
		s.logger.Info("idle sessions evicted", "count", n, "remaining", s.reg.Len())
	}
}
