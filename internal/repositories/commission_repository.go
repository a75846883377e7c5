package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"stakeledger/internal/apperr"
	"stakeledger/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type CommissionPgRepository struct {
	db *sqlx.DB
}

func NewCommissionRepository(db *sqlx.DB) *CommissionPgRepository {
	return &CommissionPgRepository{
		db: db,
	}
}

func (r *CommissionPgRepository) Save(ctx context.Context, c *models.ReferralCommission) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := insertReturning(
		ctx,
		r.db,
		`insert into referral_commissions(referrer_id, referred_id, level, source_transaction_id, amount, commission_rate, status, created_at)
values (:referrer_id, :referred_id, :level, :source_transaction_id, :amount, :commission_rate, :status, :created_at)
on conflict (referrer_id, source_transaction_id) do nothing
returning id`,
		c,
		&c.Id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		log.Error("Failed to save commission: ", err)
		return false, err
	}

	return true, nil
}

func (r *CommissionPgRepository) FindById(ctx context.Context, id int64) (*models.ReferralCommission, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var c models.ReferralCommission
	if err := r.db.GetContext(ctx, &c, "select * from referral_commissions where id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrCommissionNotFound
		}
		log.Error("Failed to find commission: ", err)
		return nil, err
	}

	return &c, nil
}

func (r *CommissionPgRepository) FindByStatusLimit(ctx context.Context, status models.CommissionStatus, limit int) ([]models.ReferralCommission, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res := make([]models.ReferralCommission, 0)
	if err := r.db.SelectContext(
		ctx,
		&res,
		"select * from referral_commissions where status = $1 order by created_at, id limit $2",
		status,
		limit,
	); err != nil {
		log.Error("Failed to find commissions: ", err)
		return nil, err
	}

	return res, nil
}

func (r *CommissionPgRepository) FindByReferrerId(ctx context.Context, referrerId int64, offset, limit int) ([]models.ReferralCommission, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res := make([]models.ReferralCommission, 0)
	if err := r.db.SelectContext(
		ctx,
		&res,
		"select * from referral_commissions where referrer_id = $1 order by created_at desc, id desc offset $2 limit $3",
		referrerId,
		offset,
		limit,
	); err != nil {
		log.Error("Failed to find commissions: ", err)
		return nil, err
	}

	return res, nil
}

func (r *CommissionPgRepository) UpdateStatus(ctx context.Context, id int64, from, to models.CommissionStatus, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	paidAt := sql.NullTime{Time: at, Valid: to == models.CommissionPaid}
	n, err := execAffected(
		ctx,
		r.db,
		"update referral_commissions set status = $3, paid_at = $4 where id = $1 and status = $2",
		id,
		from,
		to,
		paidAt,
	)
	if err != nil {
		log.Error("Failed to update commission status: ", err)
		return false, err
	}

	return n == 1, nil
}

func (r *CommissionPgRepository) SumByReferrer(ctx context.Context, referrerId int64, status models.CommissionStatus) (decimal.Decimal, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var sum decimal.Decimal
	if err := r.db.QueryRowxContext(
		ctx,
		"select coalesce(sum(amount), 0) from referral_commissions where referrer_id = $1 and status = $2",
		referrerId,
		status,
	).Scan(&sum); err != nil {
		log.Error("Failed to sum commissions: ", err)
		return decimal.Zero, err
	}

	return sum, nil
}
