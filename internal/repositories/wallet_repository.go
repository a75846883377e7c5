package repositories

import (
	"context"
	"database/sql"
	"errors"

	"stakeledger/internal/apperr"
	"stakeledger/internal/models"

	"github.com/jmoiron/sqlx"
)

type WalletPgRepository struct {
	db *sqlx.DB
}

func NewWalletRepository(db *sqlx.DB) *WalletPgRepository {
	return &WalletPgRepository{
		db: db,
	}
}

func (r *WalletPgRepository) Create(ctx context.Context, wallet *models.Wallet) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := insertReturning(
		ctx,
		r.db,
		`insert into wallets(user_id, available_balance, locked_balance, pending_balance, currency, updated_at)
values (:user_id, :available_balance, :locked_balance, :pending_balance, :currency, :updated_at)
on conflict (user_id) do nothing
returning updated_at`,
		wallet,
		&wallet.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		log.Error("Failed to create wallet: ", err)
		return false, err
	}

	return true, nil
}

func (r *WalletPgRepository) FindByUserId(ctx context.Context, userId int64) (*models.Wallet, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var wallet models.Wallet
	if err := r.db.GetContext(ctx, &wallet, "select * from wallets where user_id = $1", userId); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrWalletNotFound
		}
		log.Error("Failed to find wallet: ", err)
		return nil, err
	}

	return &wallet, nil
}

func (r *WalletPgRepository) ApplyDelta(ctx context.Context, userId int64, delta models.BalanceDelta) (*models.Wallet, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var wallet models.Wallet
	err := r.db.GetContext(
		ctx,
		&wallet,
		`update wallets
set available_balance = available_balance + $2,
    locked_balance    = locked_balance + $3,
    pending_balance   = pending_balance + $4,
    updated_at        = now()
where user_id = $1
  and available_balance + $2 >= 0
  and locked_balance + $3 >= 0
  and pending_balance + $4 >= 0
returning *`,
		userId,
		delta.Available,
		delta.Locked,
		delta.Pending,
	)
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		log.Error("Failed to update wallet balance: ", err)
		return nil, err
	}

	// zero rows: either the guard failed or the wallet does not exist
	current, findErr := r.FindByUserId(ctx, userId)
	if findErr != nil {
		return nil, findErr
	}
	return nil, apperr.New(
		apperr.InsufficientBalance,
		"insufficient balance: available %s, locked %s, pending %s",
		current.AvailableBalance, current.LockedBalance, current.PendingBalance,
	)
}
