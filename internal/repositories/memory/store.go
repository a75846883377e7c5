// Package memory implements every repository interface on process memory.
// A single mutex stands in for the store's row-level locking so that the
// conditional writes keep the same all-or-nothing semantics as postgres.
package memory

import (
	"sync"

	"stakeledger/internal/models"
	"stakeledger/internal/repositories"
)

type Store struct {
	mu sync.RWMutex

	wallets     map[int64]*models.Wallet
	txs         map[int64]*models.Transaction
	pools       map[int64]*models.Pool
	stakes      map[int64]*models.PoolStake
	referrals   []*models.Referral
	commissions map[int64]*models.ReferralCommission
	telegram    map[int64]*models.TelegramAccount

	nextTxId         int64
	nextPoolId       int64
	nextStakeId      int64
	nextCommissionId int64
}

func NewStore() *Store {
	return &Store{
		wallets:     make(map[int64]*models.Wallet),
		txs:         make(map[int64]*models.Transaction),
		pools:       make(map[int64]*models.Pool),
		stakes:      make(map[int64]*models.PoolStake),
		commissions: make(map[int64]*models.ReferralCommission),
		telegram:    make(map[int64]*models.TelegramAccount),
	}
}

// Repositories bundles the repository views over one store.
type Repositories struct {
	Wallets      *WalletRepository
	Transactions *TransactionRepository
	Pools        *PoolRepository
	Stakes       *StakeRepository
	Referrals    *ReferralRepository
	Commissions  *CommissionRepository
	Telegram     *TelegramRepository
}

func (r *Repositories) Set() repositories.Set {
	return repositories.Set{
		Wallets:      r.Wallets,
		Transactions: r.Transactions,
		Pools:        r.Pools,
		Stakes:       r.Stakes,
		Referrals:    r.Referrals,
		Commissions:  r.Commissions,
		Telegram:     r.Telegram,
	}
}

func (s *Store) Repositories() *Repositories {
	return &Repositories{
		Wallets:      &WalletRepository{s},
		Transactions: &TransactionRepository{s},
		Pools:        &PoolRepository{s},
		Stakes:       &StakeRepository{s},
		Referrals:    &ReferralRepository{s},
		Commissions:  &CommissionRepository{s},
		Telegram:     &TelegramRepository{s},
	}
}

var (
	_ repositories.WalletRepository      = (*WalletRepository)(nil)
	_ repositories.TransactionRepository = (*TransactionRepository)(nil)
	_ repositories.PoolRepository        = (*PoolRepository)(nil)
	_ repositories.StakeRepository       = (*StakeRepository)(nil)
	_ repositories.ReferralRepository    = (*ReferralRepository)(nil)
	_ repositories.CommissionRepository  = (*CommissionRepository)(nil)
	_ repositories.TelegramRepository    = (*TelegramRepository)(nil)
)
