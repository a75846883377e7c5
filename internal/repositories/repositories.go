package repositories

import (
	"context"
	"database/sql"
	"time"

	"stakeledger/internal/config"
	"stakeledger/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

var log = config.InitLogger()

const queryTimeout = 10 * time.Second

type WalletRepository interface {
	// Create inserts a zero wallet; false when the user already has one.
	Create(ctx context.Context, wallet *models.Wallet) (bool, error)
	FindByUserId(ctx context.Context, userId int64) (*models.Wallet, error)
	// ApplyDelta applies the coupled delta as one conditional write that only
	// succeeds when every bucket stays non-negative.
	ApplyDelta(ctx context.Context, userId int64, delta models.BalanceDelta) (*models.Wallet, error)
}

type TransactionRepository interface {
	Save(ctx context.Context, tx *models.Transaction) error
	FindById(ctx context.Context, id int64) (*models.Transaction, error)
	// UpdateStatus moves the row from one status to another; false when the
	// current status is not `from`.
	UpdateStatus(ctx context.Context, id int64, from, to models.TxStatus, at time.Time) (bool, error)
	DeleteById(ctx context.Context, id int64) error
	FindByUserIdLimit(ctx context.Context, userId int64, offset, limit int) ([]models.Transaction, error)
	CountByUserId(ctx context.Context, userId int64) (int, error)
}

type PoolRepository interface {
	Save(ctx context.Context, pool *models.Pool) error
	// Update writes the administered fields; current_staked is never touched
	// and total_capacity may not drop below it.
	Update(ctx context.Context, pool *models.Pool) error
	FindById(ctx context.Context, id int64) (*models.Pool, error)
	FindAll(ctx context.Context) ([]models.Pool, error)
	FindAllByStatus(ctx context.Context, status models.PoolStatus) ([]models.Pool, error)
	// ReserveCapacity increments current_staked only if the pool is active
	// and stays within total_capacity.
	ReserveCapacity(ctx context.Context, id int64, amount decimal.Decimal) (bool, error)
	ReleaseCapacity(ctx context.Context, id int64, amount decimal.Decimal) error
}

type StakeRepository interface {
	Save(ctx context.Context, stake *models.PoolStake) error
	FindById(ctx context.Context, id int64) (*models.PoolStake, error)
	FindByUserId(ctx context.Context, userId int64) ([]models.PoolStake, error)
	FindAllByStatus(ctx context.Context, status models.StakeStatus) ([]models.PoolStake, error)
	FindMatured(ctx context.Context, now time.Time, limit int) ([]models.PoolStake, error)
	// AddEarnings increments total_earned of an active stake.
	AddEarnings(ctx context.Context, id int64, amount decimal.Decimal) (bool, error)
	// MarkPaid records day as the stake's payout day, only while the stake is
	// active and was not yet paid for that day.
	MarkPaid(ctx context.Context, id int64, day time.Time) (bool, error)
	// RestorePaid puts back the previous payout day while the mark still
	// holds day.
	RestorePaid(ctx context.Context, id int64, day time.Time, previous sql.NullTime) error
	// Close moves an active stake whose lock has expired at `at` to status.
	Close(ctx context.Context, id int64, status models.StakeStatus, at time.Time) (bool, error)
	Reopen(ctx context.Context, id int64) error
	DeleteById(ctx context.Context, id int64) error
}

type ReferralRepository interface {
	// Save inserts the edge, doing nothing on conflict.
	Save(ctx context.Context, ref *models.Referral) (bool, error)
	// FindUpline returns edges pointing at referredId with level < maxLevel,
	// ordered by level.
	FindUpline(ctx context.Context, referredId int64, maxLevel int) ([]models.Referral, error)
	FindDownline(ctx context.Context, referrerId int64) ([]models.Referral, error)
	CountByLevel(ctx context.Context, referrerId int64) ([]models.LevelCount, error)
	PartnerVolume(ctx context.Context, referrerId int64) (*models.PartnerVolume, error)
}

type CommissionRepository interface {
	// Save inserts the commission; false if one already exists for the
	// (referrer, source transaction) pair.
	Save(ctx context.Context, c *models.ReferralCommission) (bool, error)
	FindById(ctx context.Context, id int64) (*models.ReferralCommission, error)
	FindByStatusLimit(ctx context.Context, status models.CommissionStatus, limit int) ([]models.ReferralCommission, error)
	FindByReferrerId(ctx context.Context, referrerId int64, offset, limit int) ([]models.ReferralCommission, error)
	UpdateStatus(ctx context.Context, id int64, from, to models.CommissionStatus, at time.Time) (bool, error)
	SumByReferrer(ctx context.Context, referrerId int64, status models.CommissionStatus) (decimal.Decimal, error)
}

type TelegramRepository interface {
	Save(ctx context.Context, acc *models.TelegramAccount) error
	FindByUserId(ctx context.Context, userId int64) (*models.TelegramAccount, error)
	FindByChatId(ctx context.Context, chatId int64) (*models.TelegramAccount, error)
}

// Set bundles one implementation of every repository.
type Set struct {
	Wallets      WalletRepository
	Transactions TransactionRepository
	Pools        PoolRepository
	Stakes       StakeRepository
	Referrals    ReferralRepository
	Commissions  CommissionRepository
	Telegram     TelegramRepository
}

func NewPgSet(db *sqlx.DB) Set {
	return Set{
		Wallets:      NewWalletRepository(db),
		Transactions: NewTransactionRepository(db),
		Pools:        NewPoolRepository(db),
		Stakes:       NewStakeRepository(db),
		Referrals:    NewReferralRepository(db),
		Commissions:  NewCommissionRepository(db),
		Telegram:     NewTelegramRepository(db),
	}
}
