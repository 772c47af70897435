package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type overdueExpirer interface {
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

type sweepRecorder interface {
	RecordExpiredSubscriptions(count int64)
}

// ReconcileService sweeps subscriptions whose stored status lags behind
// the clock. Entitlement decisions never trust the stored status alone,
// so this sweep is about keeping reports and listings honest, not about
// correctness of access checks.
type ReconcileService struct {
	subs     overdueExpirer
	interval time.Duration
	metrics  sweepRecorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewReconcileService constructs ReconcileService. metrics may be nil.
func NewReconcileService(subs overdueExpirer, interval time.Duration, metrics sweepRecorder, logger *zap.Logger) *ReconcileService {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileService{subs: subs, interval: interval, metrics: metrics, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Run sweeps once immediately and then on every tick until the context is
// cancelled.
func (s *ReconcileService) Run(ctx context.Context) {
	s.sweep(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// RunOnce performs a single sweep and reports how many rows moved.
func (s *ReconcileService) RunOnce(ctx context.Context) (int64, error) {
	return s.subs.ExpireOverdue(ctx, s.now())
}

func (s *ReconcileService) sweep(ctx context.Context) {
	expired, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Error("subscription sweep failed", zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.RecordExpiredSubscriptions(expired)
	}
	if expired > 0 {
		s.logger.Info("subscription sweep expired overdue rows", zap.Int64("count", expired))
	}
}
