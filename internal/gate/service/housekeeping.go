package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/agency/internal/gate/store"
	"github.com/aussiebroadwan/agency/pkg/clockx"
)

// HousekeepingService periodically deletes expired rotations and rate
// windows. Backends that expire keys on their own report zero deletions.
type HousekeepingService struct {
	Tokens     store.TokenStore
	RateLimits store.RateLimitStore
	Logger     *slog.Logger
	Interval   time.Duration
	Clock      clockx.Clock

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping worker. A non-positive
// interval defaults to 1 hour.
func NewHousekeepingService(
	tokens store.TokenStore,
	rateLimits store.RateLimitStore,
	logger *slog.Logger,
	interval time.Duration,
) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Tokens:     tokens,
		RateLimits: rateLimits,
		Logger:     logger,
		Interval:   interval,
		Clock:      clockx.Real(),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start runs cleanup once and then on every tick until Stop is called.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// cleanup runs each deletion independently; one failing does not stop the
// other. Returns the number of rows removed.
func (s *HousekeepingService) cleanup(ctx context.Context) int64 {
	now := s.Clock.Now()
	var total int64

	if n, err := s.Tokens.DeleteExpiredRotations(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired rotations", "error", err)
	} else {
		total += n
		s.Logger.Debug("deleted expired rotations", "count", n)
	}

	if n, err := s.RateLimits.DeleteExpiredWindows(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired rate windows", "error", err)
	} else {
		total += n
		s.Logger.Debug("deleted expired rate windows", "count", n)
	}

	s.Logger.Info("housekeeping cleanup completed", "deleted", total)
	return total
}
