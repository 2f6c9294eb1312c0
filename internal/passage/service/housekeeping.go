package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/passage/internal/passage/store"
)

// DefaultOTPRetention is how long spent or expired codes are kept around
// before housekeeping removes them.
const DefaultOTPRetention = 24 * time.Hour

// HousekeepingService periodically deletes spent and expired one-time codes
// so the otps table does not grow without bound.
type HousekeepingService struct {
	Store     store.Store
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration
	Clock     Clock

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. Non-positive
// interval or retention fall back to one hour and DefaultOTPRetention.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = DefaultOTPRetention
	}

	return &HousekeepingService{
		Store:     st,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start runs the cleanup loop in the background. Call Stop to end it.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started",
		slog.Duration("interval", s.Interval),
		slog.Duration("retention", s.Retention),
	)
}

// Stop ends the loop and waits for an in-progress cleanup to finish.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup deletes codes that were used or expired more than Retention ago.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	cutoff := s.Clock.now().Add(-s.Retention)

	n, err := s.Store.OTPs().DeleteStaleOTPs(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to delete stale otps", slog.Any("error", err))
		return
	}

	s.Logger.Info("housekeeping cleanup completed",
		slog.Int64("otps_deleted", n),
		slog.Time("cutoff", cutoff),
	)
}
