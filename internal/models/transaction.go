package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

type TransactionType string

const (
	TxDeposit            TransactionType = "deposit"
	TxWithdraw           TransactionType = "withdraw"
	TxTradeProfit        TransactionType = "trade_profit"
	TxTradeLoss          TransactionType = "trade_loss"
	TxPoolStake          TransactionType = "pool_stake"
	TxPoolUnstake        TransactionType = "pool_unstake"
	TxRoiPayout          TransactionType = "roi_payout"
	TxReferralCommission TransactionType = "referral_commission"
)

type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxCompleted TxStatus = "completed"
	TxFailed    TxStatus = "failed"
	TxCancelled TxStatus = "cancelled"
)

type PoolStatus string

const (
	PoolActive PoolStatus = "active"
	PoolPaused PoolStatus = "paused"
	PoolClosed PoolStatus = "closed"
)

func (s PoolStatus) Valid() bool {
	return s == PoolActive || s == PoolPaused || s == PoolClosed
}

type StakeStatus string

const (
	StakeActive   StakeStatus = "active"
	StakeUnstaked StakeStatus = "unstaked"
	StakeMatured  StakeStatus = "matured"
)

type CommissionStatus string

const (
	CommissionPending   CommissionStatus = "pending"
	CommissionPaid      CommissionStatus = "paid"
	CommissionCancelled CommissionStatus = "cancelled"
)

// Metadata is stored as jsonb.
type Metadata map[string]any

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("metadata: unsupported source type")
	}
	res := Metadata{}
	if err := json.Unmarshal(data, &res); err != nil {
		return err
	}
	*m = res
	return nil
}

// Copy returns a shallow copy so callers cannot mutate stored records.
func (m Metadata) Copy() Metadata {
	if m == nil {
		return nil
	}
	res := make(Metadata, len(m))
	for k, v := range m {
		res[k] = v
	}
	return res
}
