package services

import (
	"context"
	"time"

	"stakeledger/internal/apperr"
	"stakeledger/internal/models"
	"stakeledger/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// PoolService is the pool registry. current_staked is never written here;
// only StakeService moves it through the capacity guards.
type PoolService struct {
	poolRepo repositories.PoolRepository
	now      func() time.Time
}

func NewPoolService(poolRepo repositories.PoolRepository) *PoolService {
	return &PoolService{
		poolRepo: poolRepo,
		now:      time.Now,
	}
}

func (s *PoolService) CreatePool(ctx context.Context, actor models.Actor, pool *models.Pool) (*models.Pool, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if pool.Status == "" {
		pool.Status = models.PoolActive
	}
	if err := ValidatePool(pool); err != nil {
		return nil, err
	}

	pool.CurrentStaked = decimal.Zero
	pool.CreatedAt = clock(s.now)
	if err := s.poolRepo.Save(ctx, pool); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{"pool_id": pool.Id, "tier": pool.BotTier}).Info("Pool created")
	return pool, nil
}

// UpdatePool rewrites the administered fields. The new capacity may not drop
// below what is already staked.
func (s *PoolService) UpdatePool(ctx context.Context, actor models.Actor, pool *models.Pool) (*models.Pool, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := ValidatePool(pool); err != nil {
		return nil, err
	}

	current, err := s.poolRepo.FindById(ctx, pool.Id)
	if err != nil {
		return nil, err
	}
	if pool.TotalCapacity.Valid && pool.TotalCapacity.Decimal.LessThan(current.CurrentStaked) {
		return nil, apperr.New(
			apperr.InvalidPoolConfig,
			"capacity %s is below the %s already staked",
			pool.TotalCapacity.Decimal, current.CurrentStaked,
		)
	}

	if err := s.poolRepo.Update(ctx, pool); err != nil {
		return nil, err
	}
	pool.CurrentStaked = current.CurrentStaked
	pool.CreatedAt = current.CreatedAt
	return pool, nil
}

func (s *PoolService) SetStatus(ctx context.Context, actor models.Actor, poolId int64, status models.PoolStatus) (*models.Pool, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperr.New(apperr.InvalidPoolConfig, "unknown pool status %q", status)
	}

	pool, err := s.poolRepo.FindById(ctx, poolId)
	if err != nil {
		return nil, err
	}
	pool.Status = status
	if err := s.poolRepo.Update(ctx, pool); err != nil {
		return nil, err
	}
	return pool, nil
}

func (s *PoolService) GetById(ctx context.Context, poolId int64) (*models.Pool, error) {
	return s.poolRepo.FindById(ctx, poolId)
}

func (s *PoolService) All(ctx context.Context) ([]models.Pool, error) {
	return s.poolRepo.FindAll(ctx)
}

func (s *PoolService) AllByStatus(ctx context.Context, status models.PoolStatus) ([]models.Pool, error) {
	return s.poolRepo.FindAllByStatus(ctx, status)
}

// MaxLockPeriodDays bounds the lock so the unlock date stays representable.
const MaxLockPeriodDays = 3650

func ValidatePool(p *models.Pool) error {
	if p.BotTier == "" {
		return apperr.New(apperr.InvalidPoolConfig, "bot tier must be set")
	}
	if !p.MinStake.IsPositive() {
		return apperr.New(apperr.InvalidPoolConfig, "min stake must be greater than zero")
	}
	if p.MaxStake.Valid && p.MaxStake.Decimal.LessThan(p.MinStake) {
		return apperr.New(apperr.InvalidPoolConfig, "max stake %s is below min stake %s", p.MaxStake.Decimal, p.MinStake)
	}
	if p.TotalCapacity.Valid && !p.TotalCapacity.Decimal.IsPositive() {
		return apperr.New(apperr.InvalidPoolConfig, "total capacity must be greater than zero")
	}
	if err := validateRoi(p); err != nil {
		return err
	}
	if p.LockPeriodDays < 0 {
		return apperr.New(apperr.InvalidPoolConfig, "lock period must not be negative")
	}
	if p.LockPeriodDays > MaxLockPeriodDays {
		return apperr.New(apperr.InvalidPoolConfig, "lock period must be at most %d days", MaxLockPeriodDays)
	}
	if !p.Status.Valid() {
		return apperr.New(apperr.InvalidPoolConfig, "unknown pool status %q", p.Status)
	}
	return nil
}

func validateRoi(p *models.Pool) error {
	if p.RoiMin.IsNegative() || p.RoiMin.GreaterThan(p.RoiMax) {
		return apperr.New(apperr.InvalidPoolConfig, "roi band [%s, %s] of pool %d is invalid", p.RoiMin, p.RoiMax, p.Id)
	}
	return nil
}
