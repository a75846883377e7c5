package memory

import (
	"context"
	"time"

	"stakeledger/internal/apperr"
	"stakeledger/internal/models"
)

type WalletRepository struct {
	s *Store
}

func (r *WalletRepository) Create(_ context.Context, wallet *models.Wallet) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.wallets[wallet.UserId]; ok {
		return false, nil
	}
	if wallet.UpdatedAt.IsZero() {
		wallet.UpdatedAt = time.Now()
	}
	w := *wallet
	r.s.wallets[wallet.UserId] = &w
	return true, nil
}

func (r *WalletRepository) FindByUserId(_ context.Context, userId int64) (*models.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	w, ok := r.s.wallets[userId]
	if !ok {
		return nil, apperr.ErrWalletNotFound
	}
	res := *w
	return &res, nil
}

func (r *WalletRepository) ApplyDelta(_ context.Context, userId int64, delta models.BalanceDelta) (*models.Wallet, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	w, ok := r.s.wallets[userId]
	if !ok {
		return nil, apperr.ErrWalletNotFound
	}
	next, ok := w.Apply(delta)
	if !ok {
		return nil, apperr.New(
			apperr.InsufficientBalance,
			"insufficient balance: available %s, locked %s, pending %s",
			w.AvailableBalance, w.LockedBalance, w.PendingBalance,
		)
	}
	next.UpdatedAt = time.Now()
	*w = next
	res := next
	return &res, nil
}
