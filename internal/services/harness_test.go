package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"stakeledger/internal/cache"
	"stakeledger/internal/config"
	"stakeledger/internal/metrics"
	"stakeledger/internal/models"
	"stakeledger/internal/repositories/memory"
	"stakeledger/internal/yield"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var admin = models.Actor{UserId: 1000, Role: models.RoleAdmin}

func init() {
	compensationBackoff = time.Millisecond
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (r *recordingNotifier) Send(n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) ofType(t string) []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]models.Notification, 0)
	for _, n := range r.sent {
		if n.Type == t {
			res = append(res, n)
		}
	}
	return res
}

type harness struct {
	repos    *memory.Repositories
	store    *cache.MemoryStore
	metrics  *metrics.Ledger
	notifier *recordingNotifier
	clock    *testClock
	cfg      config.LedgerConfig

	wallets     *WalletService
	pools       *PoolService
	stakes      *StakeService
	referrals   *ReferralService
	commissions *CommissionService
	users       *UserService
	payments    *PaymentService
	telegram    *TelegramService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	sim, err := yield.NewSimulator(yield.DefaultTiers())
	require.NoError(t, err)

	clk := &testClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	h := &harness{
		repos:    memory.NewStore().Repositories(),
		store:    cache.NewMemoryStoreAt(clk.Now),
		metrics:  metrics.Nop(),
		notifier: &recordingNotifier{},
		clock:    clk,
		cfg: config.LedgerConfig{
			Currency:          "USD",
			MaxDeposit:        decimal.NewFromInt(1000000),
			CommissionOnStake: true,
		},
	}
	r := h.repos

	h.wallets = NewWalletService(r.Wallets, r.Transactions, h.notifier, h.metrics, h.cfg)
	h.wallets.now = h.clock.Now
	h.commissions = NewCommissionService(r.Commissions, r.Referrals, r.Wallets, r.Transactions, h.notifier, h.metrics, h.cfg)
	h.commissions.now = h.clock.Now
	h.wallets.SetCommissionAccruer(h.commissions)

	h.pools = NewPoolService(r.Pools)
	h.pools.now = h.clock.Now
	h.stakes = NewStakeService(r.Stakes, r.Pools, r.Wallets, r.Transactions, h.store, sim, h.commissions, h.notifier, h.metrics, h.cfg)
	h.stakes.now = h.clock.Now
	h.referrals = NewReferralService(r.Referrals, r.Commissions)
	h.referrals.now = h.clock.Now
	h.users = NewUserService(h.wallets, h.referrals)
	h.payments = NewPaymentService(h.wallets, h.store, 72*time.Hour)
	h.telegram = NewTelegramService(r.Telegram, r.Wallets, h.store)
	return h
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (h *harness) register(t *testing.T, userId, referrerId int64) {
	t.Helper()
	_, err := h.users.Register(context.Background(), userId, referrerId)
	require.NoError(t, err)
}

func (h *harness) fund(t *testing.T, userId int64, amount string) {
	t.Helper()
	_, err := h.wallets.Deposit(context.Background(), userId, dec(amount), models.TxCompleted, "test funding", nil)
	require.NoError(t, err)
}

func (h *harness) wallet(t *testing.T, userId int64) *models.Wallet {
	t.Helper()
	w, err := h.wallets.GetWallet(context.Background(), userId)
	require.NoError(t, err)
	return w
}

func (h *harness) pool(t *testing.T, p models.Pool) *models.Pool {
	t.Helper()
	created, err := h.pools.CreatePool(context.Background(), admin, &p)
	require.NoError(t, err)
	return created
}

func vectorPool() models.Pool {
	return models.Pool{
		BotTier:        "vector",
		MinStake:       dec("100"),
		RoiMin:         dec("0.008"),
		RoiMax:         dec("0.0096"),
		LockPeriodDays: 30,
	}
}
