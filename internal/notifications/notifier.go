// Package notifications delivers best-effort user notifications after ledger
// mutations. Delivery never feeds back into the ledger result.
package notifications

import (
	"context"
	"sync"
	"time"

	"stakeledger/internal/config"
	"stakeledger/internal/metrics"
	"stakeledger/internal/models"

	"github.com/sirupsen/logrus"
)

var log = config.InitLogger()

const sendTimeout = 10 * time.Second

type Notifier interface {
	Name() string
	Notify(ctx context.Context, n models.Notification) error
}

// Dispatcher fans a notification out to every notifier in its own goroutine.
// Errors are logged and counted, never returned.
type Dispatcher struct {
	mu        sync.RWMutex
	notifiers []Notifier
	metrics   *metrics.Ledger
	wg        sync.WaitGroup
}

func NewDispatcher(m *metrics.Ledger, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{
		notifiers: notifiers,
		metrics:   m,
	}
}

// Add registers another channel. Used for notifiers that can only be built
// once the services exist, such as the telegram bot.
func (d *Dispatcher) Add(n Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifiers = append(d.notifiers, n)
}

func (d *Dispatcher) Send(n models.Notification) {
	if d == nil {
		return
	}
	d.mu.RLock()
	notifiers := d.notifiers
	d.mu.RUnlock()

	for _, notifier := range notifiers {
		d.wg.Add(1)
		go func(notifier Notifier) {
			defer d.wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			defer cancel()

			err := notifier.Notify(ctx, n)
			if d.metrics != nil {
				d.metrics.Notified(notifier.Name(), err)
			}
			if err != nil {
				log.WithFields(logrus.Fields{
					"user_id":  n.UserId,
					"type":     n.Type,
					"notifier": notifier.Name(),
				}).Warn("Failed to deliver notification: ", err)
			}
		}(notifier)
	}
}

// Wait blocks until every in-flight send has returned.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

// LogNotifier writes notifications to the log. It is always registered so a
// deployment without telegram or kafka still records what would be sent.
type LogNotifier struct{}

func (LogNotifier) Name() string { return "log" }

func (LogNotifier) Notify(_ context.Context, n models.Notification) error {
	log.WithFields(logrus.Fields{
		"user_id": n.UserId,
		"type":    n.Type,
	}).Info(n.Title, ": ", n.Message)
	return nil
}
