// Package metrics exposes prometheus counters for ledger operations.
package metrics

import (
	"time"

	"stakeledger/internal/apperr"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

type Ledger struct {
	OperationsTotal           *prometheus.CounterVec
	AmountTotal               *prometheus.CounterVec
	CompensationsTotal        *prometheus.CounterVec
	CompensationFailuresTotal *prometheus.CounterVec
	JobDuration               *prometheus.HistogramVec
	NotificationsTotal        *prometheus.CounterVec
}

// New registers the ledger metrics on reg. Tests pass a fresh
// prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Ledger {
	f := promauto.With(reg)
	return &Ledger{
		OperationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_operations_total",
			Help: "Ledger operations by result",
		}, []string{"op", "result"}),
		AmountTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_amount_total",
			Help: "Sum of amounts moved by successful operations",
		}, []string{"op"}),
		CompensationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_compensations_total",
			Help: "Compensating steps executed after a failed guard",
		}, []string{"op"}),
		CompensationFailuresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_compensation_failures_total",
			Help: "Compensating steps that failed after all retries",
		}, []string{"op"}),
		JobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ledger_job_duration_seconds",
			Help:    "Duration of scheduled jobs",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		NotificationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_notifications_total",
			Help: "Notification deliveries by channel and result",
		}, []string{"channel", "result"}),
	}
}

// Nop returns metrics bound to a private registry.
func Nop() *Ledger {
	return New(prometheus.NewRegistry())
}

func result(err error) string {
	if err == nil {
		return "ok"
	}
	return apperr.CodeOf(err).String()
}

func (m *Ledger) Observe(op string, amount decimal.Decimal, err error) {
	m.OperationsTotal.WithLabelValues(op, result(err)).Inc()
	if err == nil && amount.IsPositive() {
		m.AmountTotal.WithLabelValues(op).Add(amount.InexactFloat64())
	}
}

func (m *Ledger) Compensated(op string) {
	m.CompensationsTotal.WithLabelValues(op).Inc()
}

func (m *Ledger) CompensationFailed(op string) {
	m.CompensationFailuresTotal.WithLabelValues(op).Inc()
}

func (m *Ledger) ObserveJob(job string, started time.Time) {
	m.JobDuration.WithLabelValues(job).Observe(time.Since(started).Seconds())
}

func (m *Ledger) Notified(channel string, err error) {
	res := "ok"
	if err != nil {
		res = "error"
	}
	m.NotificationsTotal.WithLabelValues(channel, res).Inc()
}
