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

type CommissionRepository struct {
	s *Store
}

func (r *CommissionRepository) Save(_ context.Context, c *models.ReferralCommission) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, e := range r.s.commissions {
		if e.ReferrerId == c.ReferrerId && e.SourceTransactionId == c.SourceTransactionId {
			return false, nil
		}
	}
	r.s.nextCommissionId++
	c.Id = r.s.nextCommissionId
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	e := *c
	r.s.commissions[e.Id] = &e
	return true, nil
}

func (r *CommissionRepository) FindById(_ context.Context, id int64) (*models.ReferralCommission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.commissions[id]
	if !ok {
		return nil, apperr.ErrCommissionNotFound
	}
	res := *c
	return &res, nil
}

func (r *CommissionRepository) FindByStatusLimit(_ context.Context, status models.CommissionStatus, limit int) ([]models.ReferralCommission, error) {
	res := r.filter(func(c *models.ReferralCommission) bool { return c.Status == status })
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].Id < res[j].Id
		}
		return res[i].CreatedAt.Before(res[j].CreatedAt)
	})
	return page(res, 0, limit), nil
}

func (r *CommissionRepository) FindByReferrerId(_ context.Context, referrerId int64, offset, limit int) ([]models.ReferralCommission, error) {
	res := r.filter(func(c *models.ReferralCommission) bool { return c.ReferrerId == referrerId })
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].Id > res[j].Id
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return page(res, offset, limit), nil
}

func (r *CommissionRepository) UpdateStatus(_ context.Context, id int64, from, to models.CommissionStatus, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.commissions[id]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	c.PaidAt = sql.NullTime{Time: at, Valid: to == models.CommissionPaid}
	return true, nil
}

func (r *CommissionRepository) SumByReferrer(_ context.Context, referrerId int64, status models.CommissionStatus) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, c := range r.filter(func(c *models.ReferralCommission) bool {
		return c.ReferrerId == referrerId && c.Status == status
	}) {
		sum = sum.Add(c.Amount)
	}
	return sum, nil
}

func (r *CommissionRepository) filter(keep func(*models.ReferralCommission) bool) []models.ReferralCommission {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	res := make([]models.ReferralCommission, 0)
	for _, c := range r.s.commissions {
		if keep(c) {
			res = append(res, *c)
		}
	}
	return res
}
