package services

import (
	"context"
	"time"

	"stakeledger/internal/metrics"

	"github.com/sirupsen/logrus"
)

const compensationAttempts = 3

var compensationBackoff = 100 * time.Millisecond

// saga tracks the compensating steps of one logical operation. Steps are
// undone in reverse order when a later step fails.
type saga struct {
	op      string
	fields  logrus.Fields
	metrics *metrics.Ledger
	undo    []compensation
}

type compensation struct {
	name string
	fn   func(ctx context.Context) error
}

func newSaga(op string, m *metrics.Ledger, fields logrus.Fields) *saga {
	return &saga{op: op, metrics: m, fields: fields}
}

func (s *saga) onFailure(name string, fn func(ctx context.Context) error) {
	s.undo = append(s.undo, compensation{name: name, fn: fn})
}

// rollback runs the registered compensations even when ctx is already
// cancelled. Each step is retried with linear backoff and logged when it
// finally fails.
func (s *saga) rollback(ctx context.Context, cause error) {
	ctx = context.WithoutCancel(ctx)

	for i := len(s.undo) - 1; i >= 0; i-- {
		c := s.undo[i]
		var err error
		for attempt := 1; attempt <= compensationAttempts; attempt++ {
			if err = c.fn(ctx); err == nil {
				break
			}
			if attempt < compensationAttempts {
				time.Sleep(time.Duration(attempt) * compensationBackoff)
			}
		}

		entry := log.WithFields(s.fields).WithField("op", s.op).WithField("step", c.name)
		if err != nil {
			entry.WithField("cause", cause).Error("Compensation failed: ", err)
			if s.metrics != nil {
				s.metrics.CompensationFailed(s.op)
			}
			continue
		}
		entry.Warn("Compensated after failure: ", cause)
		if s.metrics != nil {
			s.metrics.Compensated(s.op)
		}
	}
	s.undo = nil
}
