package memory

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"stakeledger/internal/apperr"
	"stakeledger/internal/models"

	"github.com/shopspring/decimal"
)

type StakeRepository struct {
	s *Store
}

func (r *StakeRepository) Save(_ context.Context, stake *models.PoolStake) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.pools[stake.PoolId]; !ok {
		return apperr.ErrPoolNotFound
	}
	r.s.nextStakeId++
	stake.Id = r.s.nextStakeId
	s := *stake
	r.s.stakes[s.Id] = &s
	return nil
}

func (r *StakeRepository) FindById(_ context.Context, id int64) (*models.PoolStake, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	s, ok := r.s.stakes[id]
	if !ok {
		return nil, apperr.ErrStakeNotFound
	}
	res := *s
	return &res, nil
}

func (r *StakeRepository) FindByUserId(_ context.Context, userId int64) ([]models.PoolStake, error) {
	res := r.filter(func(s *models.PoolStake) bool { return s.UserId == userId })
	sort.Slice(res, func(i, j int) bool {
		if res[i].StakedAt.Equal(res[j].StakedAt) {
			return res[i].Id > res[j].Id
		}
		return res[i].StakedAt.After(res[j].StakedAt)
	})
	return res, nil
}

func (r *StakeRepository) FindAllByStatus(_ context.Context, status models.StakeStatus) ([]models.PoolStake, error) {
	res := r.filter(func(s *models.PoolStake) bool { return s.Status == status })
	sort.Slice(res, func(i, j int) bool { return res[i].Id < res[j].Id })
	return res, nil
}

func (r *StakeRepository) FindMatured(_ context.Context, now time.Time, limit int) ([]models.PoolStake, error) {
	res := r.filter(func(s *models.PoolStake) bool {
		return s.Status == models.StakeActive && !s.UnstakeAvailableAt.After(now)
	})
	sort.Slice(res, func(i, j int) bool { return res[i].UnstakeAvailableAt.Before(res[j].UnstakeAvailableAt) })
	return page(res, 0, limit), nil
}

func (r *StakeRepository) AddEarnings(_ context.Context, id int64, amount decimal.Decimal) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	s, ok := r.s.stakes[id]
	if !ok || s.Status != models.StakeActive {
		return false, nil
	}
	s.TotalEarned = s.TotalEarned.Add(amount)
	return true, nil
}

func (r *StakeRepository) MarkPaid(_ context.Context, id int64, day time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	s, ok := r.s.stakes[id]
	if !ok || s.Status != models.StakeActive || s.PaidOn(day) {
		return false, nil
	}
	s.LastPaidOn = sql.NullTime{Time: models.PayoutDay(day), Valid: true}
	return true, nil
}

func (r *StakeRepository) RestorePaid(_ context.Context, id int64, day time.Time, previous sql.NullTime) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	s, ok := r.s.stakes[id]
	if !ok {
		return apperr.ErrStakeNotFound
	}
	if s.LastPaidOn.Valid && s.LastPaidOn.Time.Equal(models.PayoutDay(day)) {
		s.LastPaidOn = previous
	}
	return nil
}

func (r *StakeRepository) Close(_ context.Context, id int64, status models.StakeStatus, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	s, ok := r.s.stakes[id]
	if !ok || !s.CanUnstake(at) {
		return false, nil
	}
	s.Status = status
	s.UnstakedAt = sql.NullTime{Time: at, Valid: true}
	return true, nil
}

func (r *StakeRepository) Reopen(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	s, ok := r.s.stakes[id]
	if !ok {
		return apperr.ErrStakeNotFound
	}
	s.Status = models.StakeActive
	s.UnstakedAt = sql.NullTime{}
	return nil
}

func (r *StakeRepository) DeleteById(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.stakes, id)
	return nil
}

func (r *StakeRepository) filter(keep func(*models.PoolStake) bool) []models.PoolStake {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	res := make([]models.PoolStake, 0)
	for _, s := range r.s.stakes {
		if keep(s) {
			res = append(res, *s)
		}
	}
	return res
}
