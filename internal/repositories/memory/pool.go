package memory

import (
	"context"
	"sort"
	"time"

	"stakeledger/internal/apperr"
	"stakeledger/internal/models"

	"github.com/shopspring/decimal"
)

type PoolRepository struct {
	s *Store
}

func (r *PoolRepository) Save(_ context.Context, pool *models.Pool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextPoolId++
	pool.Id = r.s.nextPoolId
	if pool.CreatedAt.IsZero() {
		pool.CreatedAt = time.Now()
	}
	p := *pool
	r.s.pools[p.Id] = &p
	return nil
}

func (r *PoolRepository) Update(_ context.Context, pool *models.Pool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.pools[pool.Id]
	if !ok {
		return apperr.ErrPoolNotFound
	}
	if pool.TotalCapacity.Valid && p.CurrentStaked.GreaterThan(pool.TotalCapacity.Decimal) {
		return apperr.New(
			apperr.InvalidPoolConfig,
			"capacity %s is below the %s already staked in pool %d",
			pool.TotalCapacity.Decimal, p.CurrentStaked, pool.Id,
		)
	}
	p.BotTier = pool.BotTier
	p.MinStake = pool.MinStake
	p.MaxStake = pool.MaxStake
	p.TotalCapacity = pool.TotalCapacity
	p.RoiMin = pool.RoiMin
	p.RoiMax = pool.RoiMax
	p.LockPeriodDays = pool.LockPeriodDays
	p.Status = pool.Status
	return nil
}

func (r *PoolRepository) FindById(_ context.Context, id int64) (*models.Pool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.pools[id]
	if !ok {
		return nil, apperr.ErrPoolNotFound
	}
	res := *p
	return &res, nil
}

func (r *PoolRepository) FindAll(_ context.Context) ([]models.Pool, error) {
	return r.filter(func(*models.Pool) bool { return true }), nil
}

func (r *PoolRepository) FindAllByStatus(_ context.Context, status models.PoolStatus) ([]models.Pool, error) {
	return r.filter(func(p *models.Pool) bool { return p.Status == status }), nil
}

func (r *PoolRepository) ReserveCapacity(_ context.Context, id int64, amount decimal.Decimal) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.pools[id]
	if !ok || p.Status != models.PoolActive {
		return false, nil
	}
	next := p.CurrentStaked.Add(amount)
	if p.TotalCapacity.Valid && next.GreaterThan(p.TotalCapacity.Decimal) {
		return false, nil
	}
	p.CurrentStaked = next
	return true, nil
}

func (r *PoolRepository) ReleaseCapacity(_ context.Context, id int64, amount decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.pools[id]
	if !ok || p.CurrentStaked.LessThan(amount) {
		return apperr.New(apperr.InvalidPoolConfig, "pool %d has less than %s staked", id, amount)
	}
	p.CurrentStaked = p.CurrentStaked.Sub(amount)
	return nil
}

func (r *PoolRepository) filter(keep func(*models.Pool) bool) []models.Pool {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	res := make([]models.Pool, 0, len(r.s.pools))
	for _, p := range r.s.pools {
		if keep(p) {
			res = append(res, *p)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Id < res[j].Id })
	return res
}
