package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"stakeledger/internal/apperr"
	"stakeledger/internal/models"

	"github.com/jmoiron/sqlx"
)

type TransactionPgRepository struct {
	db *sqlx.DB
}

func NewTransactionRepository(db *sqlx.DB) *TransactionPgRepository {
	return &TransactionPgRepository{
		db: db,
	}
}

func (r *TransactionPgRepository) Save(ctx context.Context, tx *models.Transaction) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if err := insertReturning(
		ctx,
		r.db,
		`insert into transactions(user_id, type, amount, status, description, metadata, created_at, completed_at)
values (:user_id, :type, :amount, :status, :description, :metadata, :created_at, :completed_at)
returning id`,
		tx,
		&tx.Id,
	); err != nil {
		log.Error("Failed to save transaction: ", err)
		return err
	}

	return nil
}

func (r *TransactionPgRepository) FindById(ctx context.Context, id int64) (*models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var tx models.Transaction
	if err := r.db.GetContext(ctx, &tx, "select * from transactions where id = $1", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrTransactionNotFound
		}
		log.Error("Failed to find transaction: ", err)
		return nil, err
	}

	return &tx, nil
}

func (r *TransactionPgRepository) UpdateStatus(ctx context.Context, id int64, from, to models.TxStatus, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	completedAt := sql.NullTime{Time: at, Valid: to != models.TxPending}
	n, err := execAffected(
		ctx,
		r.db,
		"update transactions set status = $3, completed_at = $4 where id = $1 and status = $2",
		id,
		from,
		to,
		completedAt,
	)
	if err != nil {
		log.Error("Failed to update transaction status: ", err)
		return false, err
	}

	return n == 1, nil
}

func (r *TransactionPgRepository) DeleteById(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, "delete from transactions where id = $1", id); err != nil {
		log.Error("Failed to delete transaction: ", err)
		return err
	}

	return nil
}

func (r *TransactionPgRepository) FindByUserIdLimit(ctx context.Context, userId int64, offset, limit int) ([]models.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	txs := make([]models.Transaction, 0)
	if err := r.db.SelectContext(
		ctx,
		&txs,
		"select * from transactions where user_id = $1 order by created_at desc, id desc offset $2 limit $3",
		userId,
		offset,
		limit,
	); err != nil {
		log.Error("Failed to find transactions: ", err)
		return nil, err
	}

	return txs, nil
}

func (r *TransactionPgRepository) CountByUserId(ctx context.Context, userId int64) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var count int
	if err := r.db.QueryRowxContext(ctx, "select count(*) from transactions where user_id = $1", userId).Scan(&count); err != nil {
		log.Error("Failed to count transactions: ", err)
		return 0, err
	}

	return count, nil
}
