package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type Wallet struct {
	UserId           int64           `db:"user_id" json:"user_id"`
	AvailableBalance decimal.Decimal `db:"available_balance" json:"available_balance"`
	LockedBalance    decimal.Decimal `db:"locked_balance" json:"locked_balance"`
	PendingBalance   decimal.Decimal `db:"pending_balance" json:"pending_balance"`
	Currency         string          `db:"currency" json:"currency"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// BalanceDelta is a coupled change applied to the three wallet buckets in a
// single conditional write. Zero fields are left untouched.
type BalanceDelta struct {
	Available decimal.Decimal
	Locked    decimal.Decimal
	Pending   decimal.Decimal
}

func (d BalanceDelta) IsZero() bool {
	return d.Available.IsZero() && d.Locked.IsZero() && d.Pending.IsZero()
}

func (d BalanceDelta) Neg() BalanceDelta {
	return BalanceDelta{
		Available: d.Available.Neg(),
		Locked:    d.Locked.Neg(),
		Pending:   d.Pending.Neg(),
	}
}

// Apply returns the wallet as it would look after the delta and whether every
// bucket stays non-negative.
func (w Wallet) Apply(d BalanceDelta) (Wallet, bool) {
	w.AvailableBalance = w.AvailableBalance.Add(d.Available)
	w.LockedBalance = w.LockedBalance.Add(d.Locked)
	w.PendingBalance = w.PendingBalance.Add(d.Pending)
	ok := !w.AvailableBalance.IsNegative() && !w.LockedBalance.IsNegative() && !w.PendingBalance.IsNegative()
	return w, ok
}

type Transaction struct {
	Id          int64           `db:"id" json:"id"`
	UserId      int64           `db:"user_id" json:"user_id"`
	Type        TransactionType `db:"type" json:"type"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Status      TxStatus        `db:"status" json:"status"`
	Description string          `db:"description" json:"description"`
	Metadata    Metadata        `db:"metadata" json:"metadata"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	CompletedAt sql.NullTime    `db:"completed_at" json:"completed_at"`
}

type Pool struct {
	Id             int64               `db:"id" json:"id"`
	BotTier        string              `db:"bot_tier" json:"bot_tier"`
	MinStake       decimal.Decimal     `db:"min_stake" json:"min_stake"`
	MaxStake       decimal.NullDecimal `db:"max_stake" json:"max_stake"`
	TotalCapacity  decimal.NullDecimal `db:"total_capacity" json:"total_capacity"`
	CurrentStaked  decimal.Decimal     `db:"current_staked" json:"current_staked"`
	RoiMin         decimal.Decimal     `db:"roi_min" json:"roi_min"`
	RoiMax         decimal.Decimal     `db:"roi_max" json:"roi_max"`
	LockPeriodDays int                 `db:"lock_period_days" json:"lock_period_days"`
	Status         PoolStatus          `db:"status" json:"status"`
	CreatedAt      time.Time           `db:"created_at" json:"created_at"`
}

// RemainingCapacity reports how much can still be staked. The second value is
// false when the pool has no capacity limit.
func (p *Pool) RemainingCapacity() (decimal.Decimal, bool) {
	if !p.TotalCapacity.Valid {
		return decimal.Zero, false
	}
	return p.TotalCapacity.Decimal.Sub(p.CurrentStaked), true
}

type PoolStake struct {
	Id                 int64           `db:"id" json:"id"`
	UserId             int64           `db:"user_id" json:"user_id"`
	PoolId             int64           `db:"pool_id" json:"pool_id"`
	Amount             decimal.Decimal `db:"amount" json:"amount"`
	Status             StakeStatus     `db:"status" json:"status"`
	StakedAt           time.Time       `db:"staked_at" json:"staked_at"`
	UnstakeAvailableAt time.Time       `db:"unstake_available_at" json:"unstake_available_at"`
	UnstakedAt         sql.NullTime    `db:"unstaked_at" json:"unstaked_at"`
	TotalEarned        decimal.Decimal `db:"total_earned" json:"total_earned"`
	// LastPaidOn is the UTC day of the latest ROI payout.
	LastPaidOn         sql.NullTime    `db:"last_paid_on" json:"last_paid_on"`
}

// PaidOn reports whether the stake already received the payout for the UTC
// day of at.
func (s *PoolStake) PaidOn(at time.Time) bool {
	return s.LastPaidOn.Valid && !s.LastPaidOn.Time.UTC().Before(PayoutDay(at))
}

// PayoutDay truncates at to midnight UTC.
func PayoutDay(at time.Time) time.Time {
	y, m, d := at.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *PoolStake) CanUnstake(now time.Time) bool {
	return s.Status == StakeActive && !now.Before(s.UnstakeAvailableAt)
}

type Referral struct {
	ReferrerId int64     `db:"referrer_id" json:"referrer_id"`
	ReferredId int64     `db:"referred_id" json:"referred_id"`
	Level      int       `db:"level" json:"level"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type ReferralCommission struct {
	Id                  int64            `db:"id" json:"id"`
	ReferrerId          int64            `db:"referrer_id" json:"referrer_id"`
	ReferredId          int64            `db:"referred_id" json:"referred_id"`
	Level               int              `db:"level" json:"level"`
	SourceTransactionId int64            `db:"source_transaction_id" json:"source_transaction_id"`
	Amount              decimal.Decimal  `db:"amount" json:"amount"`
	CommissionRate      decimal.Decimal  `db:"commission_rate" json:"commission_rate"`
	Status              CommissionStatus `db:"status" json:"status"`
	CreatedAt           time.Time        `db:"created_at" json:"created_at"`
	PaidAt              sql.NullTime     `db:"paid_at" json:"paid_at"`
}

type TelegramAccount struct {
	UserId   int64  `db:"user_id" json:"user_id"`
	ChatId   int64  `db:"chat_id" json:"chat_id"`
	Username string `db:"username" json:"username"`
}

type LevelCount struct {
	Level int `db:"level" json:"level"`
	Count int `db:"count" json:"count"`
}

// PartnerVolume is the aggregate capital of a user's whole downline.
type PartnerVolume struct {
	Deposits     decimal.Decimal `db:"deposits" json:"deposits"`
	ActiveStakes decimal.Decimal `db:"active_stakes" json:"active_stakes"`
}

func (v PartnerVolume) Total() decimal.Decimal {
	return v.Deposits.Add(v.ActiveStakes)
}
