package repositories

import (
	"context"
	"database/sql"
	"errors"

	"stakeledger/internal/apperr"
	"stakeledger/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const pgCheckViolation = "23514"

type PoolPgRepository struct {
	db *sqlx.DB
}

func NewPoolRepository(db *sqlx.DB) *PoolPgRepository {
	return &PoolPgRepository{
		db: db,
	}
}

func (r *PoolPgRepository) Save(ctx context.Context, pool *models.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if err := insertReturning(
		ctx,
		r.db,
		`insert into
pools(bot_tier, min_stake, max_stake, total_capacity, current_staked, roi_min, roi_max, lock_period_days, status, created_at)
values (:bot_tier, :min_stake, :max_stake, :total_capacity, :current_staked, :roi_min, :roi_max, :lock_period_days, :status, :created_at)
returning id`,
		pool,
		&pool.Id,
	); err != nil {
		log.Error("Error while saving pool: ", err)
		return err
	}

	return nil
}

func (r *PoolPgRepository) Update(ctx context.Context, pool *models.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.db.NamedExecContext(
		ctx,
		`update pools set bot_tier = :bot_tier, min_stake = :min_stake, max_stake = :max_stake,
total_capacity = :total_capacity, roi_min = :roi_min, roi_max = :roi_max,
lock_period_days = :lock_period_days, status = :status where id = :id`,
		pool,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pgCheckViolation {
		return apperr.New(apperr.InvalidPoolConfig, "pool %d violates %s", pool.Id, pqErr.Constraint)
	}
	if err != nil {
		log.Error("Error while updating pool: ", err)
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrPoolNotFound
	}

	return nil
}

func (r *PoolPgRepository) FindById(ctx context.Context, id int64) (*models.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var pool models.Pool
	if err := r.db.GetContext(ctx, &pool, "select * from pools where id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrPoolNotFound
		}
		log.Error("Error while getting pool: ", err)
		return nil, err
	}

	return &pool, nil
}

func (r *PoolPgRepository) FindAll(ctx context.Context) ([]models.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	pools := make([]models.Pool, 0)
	if err := r.db.SelectContext(ctx, &pools, "select * from pools order by id"); err != nil {
		log.Error("Error while getting pools: ", err)
		return nil, err
	}

	return pools, nil
}

func (r *PoolPgRepository) FindAllByStatus(ctx context.Context, status models.PoolStatus) ([]models.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	pools := make([]models.Pool, 0)
	if err := r.db.SelectContext(ctx, &pools, "select * from pools where status = $1 order by id", status); err != nil {
		log.Error("Error while getting pools: ", err)
		return nil, err
	}

	return pools, nil
}

func (r *PoolPgRepository) ReserveCapacity(ctx context.Context, id int64, amount decimal.Decimal) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	n, err := execAffected(
		ctx,
		r.db,
		`update pools set current_staked = current_staked + $2
where id = $1 and status = $3 and (total_capacity is null or current_staked + $2 <= total_capacity)`,
		id,
		amount,
		models.PoolActive,
	)
	if err != nil {
		log.Error("Error while reserving pool capacity: ", err)
		return false, err
	}

	return n == 1, nil
}

func (r *PoolPgRepository) ReleaseCapacity(ctx context.Context, id int64, amount decimal.Decimal) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	n, err := execAffected(
		ctx,
		r.db,
		"update pools set current_staked = current_staked - $2 where id = $1 and current_staked >= $2",
		id,
		amount,
	)
	if err != nil {
		log.Error("Error while releasing pool capacity: ", err)
		return err
	}
	if n == 0 {
		return apperr.New(apperr.InvalidPoolConfig, "pool %d has less than %s staked", id, amount)
	}

	return nil
}
