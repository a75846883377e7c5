package repositories

import (
	"context"
	"database/sql"
	"errors"

	"stakeledger/internal/models"

	"github.com/jmoiron/sqlx"
)

type ReferralPgRepository struct {
	db *sqlx.DB
}

func NewReferralRepository(db *sqlx.DB) *ReferralPgRepository {
	return &ReferralPgRepository{
		db: db,
	}
}

func (r *ReferralPgRepository) Save(ctx context.Context, ref *models.Referral) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := insertReturning(
		ctx,
		r.db,
		`insert into referrals(referrer_id, referred_id, level, created_at)
values (:referrer_id, :referred_id, :level, :created_at)
on conflict do nothing
returning created_at`,
		ref,
		&ref.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		log.Error("Error inserting referral: ", err)
		return false, err
	}

	return true, nil
}

func (r *ReferralPgRepository) FindUpline(ctx context.Context, referredId int64, maxLevel int) ([]models.Referral, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	refs := make([]models.Referral, 0, maxLevel)
	if err := r.db.SelectContext(
		ctx,
		&refs,
		"select * from referrals where referred_id = $1 and level < $2 order by level",
		referredId,
		maxLevel,
	); err != nil {
		log.Error("Error finding upline: ", err)
		return nil, err
	}

	return refs, nil
}

func (r *ReferralPgRepository) FindDownline(ctx context.Context, referrerId int64) ([]models.Referral, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	refs := make([]models.Referral, 0)
	if err := r.db.SelectContext(
		ctx,
		&refs,
		"select * from referrals where referrer_id = $1 order by level, referred_id",
		referrerId,
	); err != nil {
		log.Error("Error finding downline: ", err)
		return nil, err
	}

	return refs, nil
}

func (r *ReferralPgRepository) CountByLevel(ctx context.Context, referrerId int64) ([]models.LevelCount, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	counts := make([]models.LevelCount, 0, 5)
	if err := r.db.SelectContext(
		ctx,
		&counts,
		"select level, count(*) as count from referrals where referrer_id = $1 group by level order by level",
		referrerId,
	); err != nil {
		log.Error("Error counting downline: ", err)
		return nil, err
	}

	return counts, nil
}

// PartnerVolume aggregates completed deposits and active stakes over the whole
// downline in one statement.
func (r *ReferralPgRepository) PartnerVolume(ctx context.Context, referrerId int64) (*models.PartnerVolume, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var volume models.PartnerVolume
	if err := r.db.GetContext(
		ctx,
		&volume,
		`with downline as (select referred_id from referrals where referrer_id = $1)
select coalesce((select sum(t.amount)
                 from transactions t
                 where t.user_id in (select referred_id from downline)
                   and t.type = $2
                   and t.status = $3), 0) as deposits,
       coalesce((select sum(s.amount)
                 from pool_stakes s
                 where s.user_id in (select referred_id from downline)
                   and s.status = $4), 0) as active_stakes`,
		referrerId,
		models.TxDeposit,
		models.TxCompleted,
		models.StakeActive,
	); err != nil {
		log.Error("Error computing partner volume: ", err)
		return nil, err
	}

	return &volume, nil
}
