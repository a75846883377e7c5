package metrics

import (
	"errors"
	"testing"

	"stakeledger/internal/apperr"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLedger_Observe(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Observe("withdraw", decimal.NewFromInt(60), nil)
	m.Observe("withdraw", decimal.NewFromInt(60), apperr.ErrInsufficientBalance)
	m.Observe("withdraw", decimal.NewFromInt(1), errors.New("store down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("withdraw", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("withdraw", "insufficient_balance")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("withdraw", "internal")))
	assert.Equal(t, 60.0, testutil.ToFloat64(m.AmountTotal.WithLabelValues("withdraw")))
}

func TestLedger_Compensations(t *testing.T) {
	m := Nop()

	m.Compensated("create_stake")
	m.Compensated("create_stake")
	m.CompensationFailed("create_stake")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CompensationsTotal.WithLabelValues("create_stake")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CompensationFailuresTotal.WithLabelValues("create_stake")))
}
