package schedulers

import (
	"context"

	"stakeledger/internal/config"
	"stakeledger/internal/services"
)

const (
	JobRoiPayout        = "roi_payout"
	JobMaturitySweep    = "maturity_sweep"
	JobCommissionPayout = "commission_payout"
	JobCacheSweep       = "cache_sweep"

	commissionBatch = 500
)

// Sweeper is implemented by stores that need expired keys dropped
// explicitly.
type Sweeper interface {
	Sweep() int
}

func RoiPayout(s *services.StakeService) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := s.ProcessAllRoiPayouts(ctx)
		return err
	}
}

func MaturitySweep(s *services.StakeService) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		released, err := s.ProcessMaturedStakes(ctx)
		if err != nil {
			return err
		}
		if released > 0 {
			log.WithField("released", released).Info("Matured stakes released")
		}
		return nil
	}
}

func CommissionPayout(s *services.CommissionService) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		paid, err := s.PayPending(ctx, commissionBatch)
		if err != nil {
			return err
		}
		if paid > 0 {
			log.WithField("paid", paid).Info("Pending commissions paid")
		}
		return nil
	}
}

func CacheSweep(sw Sweeper) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if n := sw.Sweep(); n > 0 {
			log.WithField("dropped", n).Debug("Expired cache entries dropped")
		}
		return nil
	}
}

// LedgerJobs builds the standard job set from the configured specs. The
// cache sweep is only added when sweeper is not nil.
func LedgerJobs(
	cfg config.SchedulerConfig,
	stakes *services.StakeService,
	commissions *services.CommissionService,
	sweeper Sweeper,
) []Job {
	jobs := []Job{
		{Name: JobRoiPayout, Spec: cfg.RoiPayout, Run: RoiPayout(stakes)},
		{Name: JobMaturitySweep, Spec: cfg.MaturitySweep, Run: MaturitySweep(stakes)},
		{Name: JobCommissionPayout, Spec: cfg.CommissionPayout, Run: CommissionPayout(commissions)},
	}
	if sweeper != nil {
		jobs = append(jobs, Job{Name: JobCacheSweep, Spec: cfg.CacheSweep, Run: CacheSweep(sweeper)})
	}
	return jobs
}
