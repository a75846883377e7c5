package services

import (
	"context"
	"time"

	"stakeledger/internal/apperr"
	"stakeledger/internal/config"
	"stakeledger/internal/metrics"
	"stakeledger/internal/models"

	"github.com/shopspring/decimal"
)

var log = config.InitLogger()

// Notifier receives fire-and-forget notifications. notifications.Dispatcher
// satisfies it.
type Notifier interface {
	Send(n models.Notification)
}

// CommissionAccruer records commissions for a qualifying transaction.
type CommissionAccruer interface {
	Accrue(ctx context.Context, tx *models.Transaction) ([]models.ReferralCommission, error)
}

type nopNotifier struct{}

func (nopNotifier) Send(models.Notification) {}

func requireAdmin(actor models.Actor) error {
	if !actor.IsAdmin() {
		return apperr.ErrForbidden
	}
	return nil
}

func requirePositive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperr.New(apperr.InvalidAmount, "amount must be greater than zero, got %s", amount)
	}
	return nil
}

func observe(m *metrics.Ledger, op string, amount decimal.Decimal, err error) {
	if m != nil {
		m.Observe(op, amount, err)
	}
}

func clock(now func() time.Time) time.Time {
	if now == nil {
		return time.Now()
	}
	return now()
}
