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

type StakePgRepository struct {
	db *sqlx.DB
}

func NewStakeRepository(db *sqlx.DB) *StakePgRepository {
	return &StakePgRepository{
		db: db,
	}
}

func (r *StakePgRepository) Save(ctx context.Context, stake *models.PoolStake) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if err := insertReturning(
		ctx,
		r.db,
		`insert into pool_stakes(user_id, pool_id, amount, status, staked_at, unstake_available_at, total_earned)
values (:user_id, :pool_id, :amount, :status, :staked_at, :unstake_available_at, :total_earned)
returning id`,
		stake,
		&stake.Id,
	); err != nil {
		log.Error("Failed to save stake: ", err)
		return err
	}

	return nil
}

func (r *StakePgRepository) FindById(ctx context.Context, id int64) (*models.PoolStake, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var stake models.PoolStake
	if err := r.db.GetContext(ctx, &stake, "select * from pool_stakes where id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrStakeNotFound
		}
		log.Error("Failed to get stake: ", err)
		return nil, err
	}

	return &stake, nil
}

func (r *StakePgRepository) FindByUserId(ctx context.Context, userId int64) ([]models.PoolStake, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	stakes := make([]models.PoolStake, 0)
	if err := r.db.SelectContext(
		ctx,
		&stakes,
		"select * from pool_stakes where user_id = $1 order by staked_at desc, id desc",
		userId,
	); err != nil {
		log.Error("Failed to get user stakes: ", err)
		return nil, err
	}

	return stakes, nil
}

func (r *StakePgRepository) FindAllByStatus(ctx context.Context, status models.StakeStatus) ([]models.PoolStake, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	stakes := make([]models.PoolStake, 0)
	if err := r.db.SelectContext(ctx, &stakes, "select * from pool_stakes where status = $1 order by id", status); err != nil {
		log.Error("Failed to get stakes: ", err)
		return nil, err
	}

	return stakes, nil
}

func (r *StakePgRepository) FindMatured(ctx context.Context, now time.Time, limit int) ([]models.PoolStake, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	stakes := make([]models.PoolStake, 0)
	if err := r.db.SelectContext(
		ctx,
		&stakes,
		"select * from pool_stakes where status = $1 and unstake_available_at <= $2 order by unstake_available_at limit $3",
		models.StakeActive,
		now,
		limit,
	); err != nil {
		log.Error("Failed to get matured stakes: ", err)
		return nil, err
	}

	return stakes, nil
}

func (r *StakePgRepository) AddEarnings(ctx context.Context, id int64, amount decimal.Decimal) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	n, err := execAffected(
		ctx,
		r.db,
		"update pool_stakes set total_earned = total_earned + $2 where id = $1 and status = $3 and total_earned + $2 >= 0",
		id,
		amount,
		models.StakeActive,
	)
	if err != nil {
		log.Error("Failed to add stake earnings: ", err)
		return false, err
	}

	return n == 1, nil
}

func (r *StakePgRepository) MarkPaid(ctx context.Context, id int64, day time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	n, err := execAffected(
		ctx,
		r.db,
		`update pool_stakes set last_paid_on = $2::date
where id = $1 and status = $3 and (last_paid_on is null or last_paid_on < $2::date)`,
		id,
		models.PayoutDay(day),
		models.StakeActive,
	)
	if err != nil {
		log.Error("Failed to mark stake paid: ", err)
		return false, err
	}

	return n == 1, nil
}

func (r *StakePgRepository) RestorePaid(ctx context.Context, id int64, day time.Time, previous sql.NullTime) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(
		ctx,
		"update pool_stakes set last_paid_on = $3::date where id = $1 and last_paid_on = $2::date",
		id,
		models.PayoutDay(day),
		previous,
	); err != nil {
		log.Error("Failed to restore stake payout day: ", err)
		return err
	}

	return nil
}

func (r *StakePgRepository) Close(ctx context.Context, id int64, status models.StakeStatus, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	n, err := execAffected(
		ctx,
		r.db,
		`update pool_stakes set status = $2, unstaked_at = $3
where id = $1 and status = $4 and unstake_available_at <= $3`,
		id,
		status,
		at,
		models.StakeActive,
	)
	if err != nil {
		log.Error("Failed to close stake: ", err)
		return false, err
	}

	return n == 1, nil
}

func (r *StakePgRepository) Reopen(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(
		ctx,
		"update pool_stakes set status = $2, unstaked_at = null where id = $1",
		id,
		models.StakeActive,
	); err != nil {
		log.Error("Failed to reopen stake: ", err)
		return err
	}

	return nil
}

func (r *StakePgRepository) DeleteById(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, "delete from pool_stakes where id = $1", id); err != nil {
		log.Error("Failed to delete stake: ", err)
		return err
	}

	return nil
}
