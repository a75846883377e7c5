package memory

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"stakeledger/internal/apperr"
	"stakeledger/internal/models"
)

type TransactionRepository struct {
	s *Store
}

func (r *TransactionRepository) Save(_ context.Context, tx *models.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.wallets[tx.UserId]; !ok {
		return apperr.ErrWalletNotFound
	}
	r.s.nextTxId++
	tx.Id = r.s.nextTxId
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	stored := *tx
	stored.Metadata = tx.Metadata.Copy()
	r.s.txs[tx.Id] = &stored
	return nil
}

func (r *TransactionRepository) FindById(_ context.Context, id int64) (*models.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	tx, ok := r.s.txs[id]
	if !ok {
		return nil, apperr.ErrTransactionNotFound
	}
	res := *tx
	res.Metadata = tx.Metadata.Copy()
	return &res, nil
}

func (r *TransactionRepository) UpdateStatus(_ context.Context, id int64, from, to models.TxStatus, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tx, ok := r.s.txs[id]
	if !ok || tx.Status != from {
		return false, nil
	}
	tx.Status = to
	tx.CompletedAt = sql.NullTime{Time: at, Valid: to != models.TxPending}
	return true, nil
}

func (r *TransactionRepository) DeleteById(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.txs, id)
	return nil
}

func (r *TransactionRepository) FindByUserIdLimit(_ context.Context, userId int64, offset, limit int) ([]models.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]models.Transaction, 0)
	for _, tx := range r.s.txs {
		if tx.UserId == userId {
			all = append(all, *tx)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].Id > all[j].Id
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	return page(all, offset, limit), nil
}

func (r *TransactionRepository) CountByUserId(_ context.Context, userId int64) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	count := 0
	for _, tx := range r.s.txs {
		if tx.UserId == userId {
			count++
		}
	}
	return count, nil
}

func page[T any](all []T, offset, limit int) []T {
	if offset >= len(all) {
		return make([]T, 0)
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}
