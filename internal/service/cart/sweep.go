package cart

import (
	"context"
	"time"
)

// SweepReport summarizes one sweeper pass.
type SweepReport struct {
	Abandoned []string
	Expired   []string
	Purged    int64
}

// Sweep marks inactive carts ABANDONED, carts past their absolute TTL
// EXPIRED, and deletes terminal carts older than the retention window. The
// timer belongs to an external scheduler; this is a single synchronous pass.
func (s *Service) Sweep(ctx context.Context, now time.Time) (SweepReport, error) {
	var report SweepReport

	abandoned, err := s.repo.MarkAbandoned(ctx, now.Add(-s.abandonAfter))
	if err != nil {
		return report, err
	}
	report.Abandoned = abandoned

	expired, err := s.repo.MarkExpired(ctx, now)
	if err != nil {
		return report, err
	}
	report.Expired = expired

	purged, err := s.repo.PurgeTerminal(ctx, now.Add(-s.purgeAfter))
	if err != nil {
		return report, err
	}
	report.Purged = purged

	s.logger.Printf("cart service: sweep abandoned=%d expired=%d purged=%d", len(report.Abandoned), len(report.Expired), report.Purged)
	return report, nil
}
