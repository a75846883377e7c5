package services

import (
	"context"
	"time"

	"stakeledger/internal/apperr"
	"stakeledger/internal/models"
	"stakeledger/internal/repositories"

	"github.com/shopspring/decimal"
)

// MaxReferralLevel is the depth of the upline that earns commission.
const MaxReferralLevel = 5

type ReferralService struct {
	referralRepo   repositories.ReferralRepository
	commissionRepo repositories.CommissionRepository
	now            func() time.Time
}

func NewReferralService(referralRepo repositories.ReferralRepository, commissionRepo repositories.CommissionRepository) *ReferralService {
	return &ReferralService{
		referralRepo:   referralRepo,
		commissionRepo: commissionRepo,
		now:            time.Now,
	}
}

// BuildChain links referredId under referrerId and copies the referrer's
// upline one level deeper. The referrer's upline is already complete, so a
// single pass over at most four edges is enough. It returns the edges this
// call inserted; edges that already exist are left alone.
func (s *ReferralService) BuildChain(ctx context.Context, referrerId, referredId int64) ([]models.Referral, error) {
	if referrerId == referredId {
		return nil, apperr.New(apperr.InvalidReferral, "user %d cannot refer themselves", referredId)
	}

	upline, err := s.referralRepo.FindUpline(ctx, referrerId, MaxReferralLevel)
	if err != nil {
		return nil, err
	}
	for _, edge := range upline {
		if edge.ReferrerId == referredId {
			return nil, apperr.New(apperr.InvalidReferral, "user %d is already in the upline of %d", referredId, referrerId)
		}
	}

	now := clock(s.now)
	edges := make([]models.Referral, 0, len(upline)+1)
	edges = append(edges, models.Referral{ReferrerId: referrerId, ReferredId: referredId, Level: 1, CreatedAt: now})
	for _, edge := range upline {
		if edge.Level+1 > MaxReferralLevel {
			break
		}
		edges = append(edges, models.Referral{ReferrerId: edge.ReferrerId, ReferredId: referredId, Level: edge.Level + 1, CreatedAt: now})
	}

	chain := make([]models.Referral, 0, len(edges))
	for i := range edges {
		saved, err := s.referralRepo.Save(ctx, &edges[i])
		if err != nil {
			return chain, err
		}
		if saved {
			chain = append(chain, edges[i])
		}
	}
	return chain, nil
}

// Upline returns the user's referrers ordered from level 1 to 5.
func (s *ReferralService) Upline(ctx context.Context, userId int64) ([]models.Referral, error) {
	return s.referralRepo.FindUpline(ctx, userId, MaxReferralLevel+1)
}

func (s *ReferralService) Downline(ctx context.Context, userId int64) ([]models.Referral, error) {
	return s.referralRepo.FindDownline(ctx, userId)
}

func (s *ReferralService) PartnerVolume(ctx context.Context, userId int64) (*models.PartnerVolume, error) {
	return s.referralRepo.PartnerVolume(ctx, userId)
}

type ReferralStats struct {
	Levels            []models.LevelCount  `json:"levels"`
	TotalReferrals    int                  `json:"total_referrals"`
	PaidCommission    decimal.Decimal      `json:"paid_commission"`
	PendingCommission decimal.Decimal      `json:"pending_commission"`
	PartnerVolume     models.PartnerVolume `json:"partner_volume"`
}

func (s *ReferralService) Stats(ctx context.Context, userId int64) (*ReferralStats, error) {
	levels, err := s.referralRepo.CountByLevel(ctx, userId)
	if err != nil {
		return nil, err
	}
	paid, err := s.commissionRepo.SumByReferrer(ctx, userId, models.CommissionPaid)
	if err != nil {
		return nil, err
	}
	pending, err := s.commissionRepo.SumByReferrer(ctx, userId, models.CommissionPending)
	if err != nil {
		return nil, err
	}
	volume, err := s.referralRepo.PartnerVolume(ctx, userId)
	if err != nil {
		return nil, err
	}

	stats := &ReferralStats{
		Levels:            levels,
		PaidCommission:    paid,
		PendingCommission: pending,
		PartnerVolume:     *volume,
	}
	for _, l := range levels {
		stats.TotalReferrals += l.Count
	}
	return stats, nil
}
