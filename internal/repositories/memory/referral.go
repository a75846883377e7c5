package memory

import (
	"context"
	"sort"
	"time"

	"stakeledger/internal/models"

	"github.com/shopspring/decimal"
)

type ReferralRepository struct {
	s *Store
}

func (r *ReferralRepository) Save(_ context.Context, ref *models.Referral) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, e := range r.s.referrals {
		if e.ReferrerId == ref.ReferrerId && e.ReferredId == ref.ReferredId {
			return false, nil
		}
		if e.ReferredId == ref.ReferredId && e.Level == ref.Level {
			return false, nil
		}
	}
	if ref.CreatedAt.IsZero() {
		ref.CreatedAt = time.Now()
	}
	e := *ref
	r.s.referrals = append(r.s.referrals, &e)
	return true, nil
}

func (r *ReferralRepository) FindUpline(_ context.Context, referredId int64, maxLevel int) ([]models.Referral, error) {
	res := r.filter(func(e *models.Referral) bool {
		return e.ReferredId == referredId && e.Level < maxLevel
	})
	sort.Slice(res, func(i, j int) bool { return res[i].Level < res[j].Level })
	return res, nil
}

func (r *ReferralRepository) FindDownline(_ context.Context, referrerId int64) ([]models.Referral, error) {
	res := r.filter(func(e *models.Referral) bool { return e.ReferrerId == referrerId })
	sort.Slice(res, func(i, j int) bool {
		if res[i].Level == res[j].Level {
			return res[i].ReferredId < res[j].ReferredId
		}
		return res[i].Level < res[j].Level
	})
	return res, nil
}

func (r *ReferralRepository) CountByLevel(ctx context.Context, referrerId int64) ([]models.LevelCount, error) {
	downline, _ := r.FindDownline(ctx, referrerId)

	res := make([]models.LevelCount, 0, 5)
	for _, e := range downline {
		if n := len(res); n > 0 && res[n-1].Level == e.Level {
			res[n-1].Count++
			continue
		}
		res = append(res, models.LevelCount{Level: e.Level, Count: 1})
	}
	return res, nil
}

func (r *ReferralRepository) PartnerVolume(_ context.Context, referrerId int64) (*models.PartnerVolume, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	downline := make(map[int64]struct{})
	for _, e := range r.s.referrals {
		if e.ReferrerId == referrerId {
			downline[e.ReferredId] = struct{}{}
		}
	}

	volume := models.PartnerVolume{Deposits: decimal.Zero, ActiveStakes: decimal.Zero}
	for _, tx := range r.s.txs {
		if _, ok := downline[tx.UserId]; ok && tx.Type == models.TxDeposit && tx.Status == models.TxCompleted {
			volume.Deposits = volume.Deposits.Add(tx.Amount)
		}
	}
	for _, s := range r.s.stakes {
		if _, ok := downline[s.UserId]; ok && s.Status == models.StakeActive {
			volume.ActiveStakes = volume.ActiveStakes.Add(s.Amount)
		}
	}
	return &volume, nil
}

func (r *ReferralRepository) filter(keep func(*models.Referral) bool) []models.Referral {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	res := make([]models.Referral, 0)
	for _, e := range r.s.referrals {
		if keep(e) {
			res = append(res, *e)
		}
	}
	return res
}
