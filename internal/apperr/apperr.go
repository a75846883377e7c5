package apperr

import (
	"errors"
	"fmt"
)

type Code int

const (
	Internal Code = iota + 10000
	InsufficientBalance
	PoolInactive
	BelowMinimumStake
	AboveMaximumStake
	CapacityExceeded
	InvalidPoolConfig
	WalletNotFound
	TransactionNotFound
	AlreadyProcessed
	WrongTransactionType
	InvalidAmount
	PoolNotFound
	StakeNotFound
	StakeLocked
	StakeNotActive
	CommissionNotFound
	InvalidReferral
	InvalidOrder
	Forbidden
)

var codeNames = map[Code]string{
	Internal:             "internal",
	InsufficientBalance:  "insufficient_balance",
	PoolInactive:         "pool_inactive",
	BelowMinimumStake:    "below_minimum_stake",
	AboveMaximumStake:    "above_maximum_stake",
	CapacityExceeded:     "capacity_exceeded",
	InvalidPoolConfig:    "invalid_pool_config",
	WalletNotFound:       "wallet_not_found",
	TransactionNotFound:  "transaction_not_found",
	AlreadyProcessed:     "already_processed",
	WrongTransactionType: "wrong_transaction_type",
	InvalidAmount:        "invalid_amount",
	PoolNotFound:         "pool_not_found",
	StakeNotFound:        "stake_not_found",
	StakeLocked:          "stake_locked",
	StakeNotActive:       "stake_not_active",
	CommissionNotFound:   "commission_not_found",
	InvalidReferral:      "invalid_referral",
	InvalidOrder:         "invalid_order",
	Forbidden:            "forbidden",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "unknown"
}

// Error carries a taxonomy code and a human readable reason. errors.Is matches
// on the code alone, so a sentinel can be refined with a specific message.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the code from err, Internal for anything foreign.
func CodeOf(err error) Code {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Internal
}

var (
	ErrInsufficientBalance  = &Error{Code: InsufficientBalance, Message: "insufficient balance"}
	ErrPoolInactive         = &Error{Code: PoolInactive, Message: "pool is not active"}
	ErrBelowMinimumStake    = &Error{Code: BelowMinimumStake, Message: "amount is below the pool minimum stake"}
	ErrAboveMaximumStake    = &Error{Code: AboveMaximumStake, Message: "amount is above the pool maximum stake"}
	ErrCapacityExceeded     = &Error{Code: CapacityExceeded, Message: "pool capacity exceeded"}
	ErrInvalidPoolConfig    = &Error{Code: InvalidPoolConfig, Message: "invalid pool configuration"}
	ErrWalletNotFound       = &Error{Code: WalletNotFound, Message: "wallet not found"}
	ErrTransactionNotFound  = &Error{Code: TransactionNotFound, Message: "transaction not found"}
	ErrAlreadyProcessed     = &Error{Code: AlreadyProcessed, Message: "transaction already processed"}
	ErrWrongTransactionType = &Error{Code: WrongTransactionType, Message: "wrong transaction type"}
	ErrInvalidAmount        = &Error{Code: InvalidAmount, Message: "invalid amount"}
	ErrPoolNotFound         = &Error{Code: PoolNotFound, Message: "pool not found"}
	ErrStakeNotFound        = &Error{Code: StakeNotFound, Message: "stake not found"}
	ErrStakeLocked          = &Error{Code: StakeLocked, Message: "stake is still locked"}
	ErrStakeNotActive       = &Error{Code: StakeNotActive, Message: "stake is not active"}
	ErrCommissionNotFound   = &Error{Code: CommissionNotFound, Message: "commission not found"}
	ErrInvalidReferral      = &Error{Code: InvalidReferral, Message: "invalid referral"}
	ErrInvalidOrder         = &Error{Code: InvalidOrder, Message: "invalid payment order"}
	ErrForbidden            = &Error{Code: Forbidden, Message: "operation requires admin role"}
)
