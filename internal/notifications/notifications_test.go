package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"

	"stakeledger/internal/metrics"
	"stakeledger/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Name() string { return "mock" }

func (m *mockNotifier) Notify(ctx context.Context, n models.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func TestDispatcher_SwallowsErrors(t *testing.T) {
	m := metrics.Nop()
	failing := &mockNotifier{}
	failing.On("Notify", mock.Anything, mock.Anything).Return(errors.New("chat blocked"))

	d := NewDispatcher(m, failing, LogNotifier{})
	d.Send(models.Notification{UserId: 1, Type: models.NotifyDeposit, Title: "Deposit", Message: "ok"})
	d.Wait()

	failing.AssertNumberOfCalls(t, "Notify", 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("mock", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsTotal.WithLabelValues("log", "ok")))
}

func TestDispatcher_AddAfterConstruction(t *testing.T) {
	late := &mockNotifier{}
	late.On("Notify", mock.Anything, mock.MatchedBy(func(n models.Notification) bool {
		return n.UserId == 7
	})).Return(nil)

	d := NewDispatcher(metrics.Nop())
	d.Add(late)
	d.Send(models.Notification{UserId: 7, Type: models.NotifyStake})
	d.Wait()

	late.AssertExpectations(t)
}

func TestDispatcher_NilIsNoop(t *testing.T) {
	var d *Dispatcher
	d.Send(models.Notification{UserId: 1})
	d.Wait()
}

type recordingWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestKafkaNotifier_KeysByUser(t *testing.T) {
	w := &recordingWriter{}
	k := &KafkaNotifier{writer: w}

	err := k.Notify(context.Background(), models.Notification{UserId: 42, Type: models.NotifyWithdrawal, Title: "Withdrawal"})
	require.NoError(t, err)

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "42", string(w.msgs[0].Key))
	assert.Contains(t, string(w.msgs[0].Value), `"type":"withdrawal"`)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1,234,567.89 USD", FormatAmount(decimal.RequireFromString("1234567.891"), "USD"))
	assert.Equal(t, "8.80 USD", FormatAmount(decimal.RequireFromString("8.8"), "USD"))
}
