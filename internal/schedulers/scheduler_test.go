package schedulers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"stakeledger/internal/cache"
	"stakeledger/internal/config"
	"stakeledger/internal/metrics"
	"stakeledger/internal/models"
	"stakeledger/internal/repositories/memory"
	"stakeledger/internal/services"
	"stakeledger/internal/yield"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counting(n *atomic.Int32, err error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		n.Add(1)
		return err
	}
}

func TestScheduler_RunOnce(t *testing.T) {
	ctx := context.Background()
	m := metrics.Nop()
	s := New(cache.NewMemoryStore(), m, time.Minute)

	var runs atomic.Int32
	require.NoError(t, s.Add(Job{Name: "count", Spec: "@every 1h", Run: counting(&runs, nil)}))

	require.NoError(t, s.RunOnce(ctx, "count"))
	require.NoError(t, s.RunOnce(ctx, "count"))
	assert.Equal(t, int32(2), runs.Load())
	assert.Equal(t, 1, testutil.CollectAndCount(m.JobDuration))

	err := s.RunOnce(ctx, "missing")
	assert.ErrorIs(t, err, ErrUnknownJob)
}

func TestScheduler_SkipsWhileLocked(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore()
	s := New(store, metrics.Nop(), time.Minute)

	var runs atomic.Int32
	require.NoError(t, s.Add(Job{Name: "payout", Run: counting(&runs, nil)}))

	held, err := cache.AcquireLock(ctx, store, "job:payout", time.Minute)
	require.NoError(t, err)

	require.NoError(t, s.RunOnce(ctx, "payout"))
	assert.Zero(t, runs.Load())

	require.NoError(t, held.Release(ctx))
	require.NoError(t, s.RunOnce(ctx, "payout"))
	assert.Equal(t, int32(1), runs.Load())
}

func TestScheduler_FailedJobReleasesLock(t *testing.T) {
	ctx := context.Background()
	s := New(cache.NewMemoryStore(), metrics.Nop(), time.Minute)

	boom := errors.New("boom")
	var runs atomic.Int32
	require.NoError(t, s.Add(Job{Name: "flaky", Run: counting(&runs, boom)}))

	assert.ErrorIs(t, s.RunOnce(ctx, "flaky"), boom)
	assert.ErrorIs(t, s.RunOnce(ctx, "flaky"), boom)
	assert.Equal(t, int32(2), runs.Load())
}

func TestScheduler_AddValidates(t *testing.T) {
	s := New(cache.NewMemoryStore(), metrics.Nop(), 0)
	noop := func(context.Context) error { return nil }

	assert.Error(t, s.Add(Job{Name: "bad", Spec: "not a spec", Run: noop}))
	require.NoError(t, s.Add(Job{Name: "ok", Spec: "*/15 * * * *", Run: noop}))
	assert.Error(t, s.Add(Job{Name: "ok", Spec: "@daily", Run: noop}))
}

func TestLedgerJobs_PayoutAndSweep(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Repositories()
	store := cache.NewMemoryStore()
	m := metrics.Nop()
	cfg := config.LedgerConfig{Currency: "USD"}

	sim, err := yield.NewSimulator(yield.DefaultTiers())
	require.NoError(t, err)

	wallets := services.NewWalletService(repos.Wallets, repos.Transactions, nil, m, cfg)
	commissions := services.NewCommissionService(repos.Commissions, repos.Referrals, repos.Wallets, repos.Transactions, nil, m, cfg)
	pools := services.NewPoolService(repos.Pools)
	stakes := services.NewStakeService(repos.Stakes, repos.Pools, repos.Wallets, repos.Transactions, store, sim, commissions, nil, m, cfg)

	_, _, err = wallets.CreateWallet(ctx, 1)
	require.NoError(t, err)
	_, err = wallets.Deposit(ctx, 1, decimal.NewFromInt(1000), models.TxCompleted, "seed", nil)
	require.NoError(t, err)
	pool, err := pools.CreatePool(ctx, models.Actor{UserId: 99, Role: models.RoleAdmin}, &models.Pool{
		BotTier:        "vector",
		MinStake:       decimal.NewFromInt(100),
		RoiMin:         decimal.RequireFromString("0.008"),
		RoiMax:         decimal.RequireFromString("0.0096"),
		LockPeriodDays: 30,
	})
	require.NoError(t, err)
	_, err = stakes.CreateStake(ctx, 1, pool.Id, decimal.NewFromInt(1000))
	require.NoError(t, err)

	sched := New(store, m, time.Minute)
	jobs := LedgerJobs(config.SchedulerConfig{
		RoiPayout:        "0 0 * * *",
		MaturitySweep:    "*/15 * * * *",
		CommissionPayout: "30 0 * * *",
		CacheSweep:       "@every 5m",
	}, stakes, commissions, store)
	require.Len(t, jobs, 4)
	for _, job := range jobs {
		require.NoError(t, sched.Add(job))
	}

	require.NoError(t, sched.RunOnce(ctx, JobRoiPayout))
	require.NoError(t, sched.RunOnce(ctx, JobRoiPayout))

	w, err := wallets.GetWallet(ctx, 1)
	require.NoError(t, err)
	assert.True(t, w.AvailableBalance.Equal(decimal.RequireFromString("8.8")), w.AvailableBalance.String())

	require.NoError(t, sched.RunOnce(ctx, JobMaturitySweep))
	require.NoError(t, sched.RunOnce(ctx, JobCommissionPayout))
	require.NoError(t, sched.RunOnce(ctx, JobCacheSweep))
	assert.Equal(t, 1, store.Len())
}

func TestLedgerJobs_WithoutSweeper(t *testing.T) {
	jobs := LedgerJobs(config.SchedulerConfig{}, nil, nil, nil)
	assert.Len(t, jobs, 3)
}
