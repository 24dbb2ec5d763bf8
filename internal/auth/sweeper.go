package auth

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SessionPurger deletes expired sessions and reports how many went.
type SessionPurger interface {
	DeleteExpiredSessions(ctx context.Context) (int, error)
}

// Sweeper removes expired sessions in the background.
type Sweeper struct {
	purger   SessionPurger
	interval time.Duration
}

// NewSweeper creates a sweeper. A non-positive interval defaults to one hour.
func NewSweeper(purger SessionPurger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{purger: purger, interval: interval}
}

// Run sweeps once immediately and then on every tick. It blocks until ctx
// is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "auth.sweeper"))
	log.Info("starting session sweeper", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx, log)
	for {
		select {
		case <-ctx.Done():
			log.Info("session sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx, log)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context, log *zap.Logger) {
	n, err := s.purger.DeleteExpiredSessions(ctx)
	if err != nil {
		log.Error("auth: failed to purge sessions", zap.Error(err))
		return
	}
	if n > 0 {
		log.Info("auth: purged expired sessions", zap.Int("count", n))
	}
}
