package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"stakeledger/internal/apperr"
	"stakeledger/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedWallet(t *testing.T, repos *Repositories, userId int64, available string) {
	t.Helper()
	ctx := context.Background()
	created, err := repos.Wallets.Create(ctx, &models.Wallet{
		UserId:           userId,
		AvailableBalance: dec(available),
		Currency:         "USD",
	})
	require.NoError(t, err)
	require.True(t, created)
}

func TestWalletRepository_CreateTwice(t *testing.T) {
	repos := NewStore().Repositories()
	seedWallet(t, repos, 1, "0")

	created, err := repos.Wallets.Create(context.Background(), &models.Wallet{UserId: 1})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestWalletRepository_ApplyDeltaRejectsNegative(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	seedWallet(t, repos, 1, "100")

	_, err := repos.Wallets.ApplyDelta(ctx, 1, models.BalanceDelta{Available: dec("-100.01")})
	assert.ErrorIs(t, err, apperr.ErrInsufficientBalance)

	w, err := repos.Wallets.ApplyDelta(ctx, 1, models.BalanceDelta{Available: dec("-60"), Pending: dec("60")})
	require.NoError(t, err)
	assert.True(t, w.AvailableBalance.Equal(dec("40")))
	assert.True(t, w.PendingBalance.Equal(dec("60")))

	_, err = repos.Wallets.ApplyDelta(ctx, 2, models.BalanceDelta{Available: dec("1")})
	assert.ErrorIs(t, err, apperr.ErrWalletNotFound)
}

func TestWalletRepository_ConcurrentDebits(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	seedWallet(t, repos, 1, "100")

	var wg sync.WaitGroup
	var ok atomic.Int32
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repos.Wallets.ApplyDelta(ctx, 1, models.BalanceDelta{Available: dec("-30")}); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	w, err := repos.Wallets.FindByUserId(ctx, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 3, ok.Load())
	assert.True(t, w.AvailableBalance.Equal(dec("10")))
}

func TestTransactionRepository_UpdateStatusIsConditional(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	seedWallet(t, repos, 1, "0")

	tx := &models.Transaction{UserId: 1, Type: models.TxDeposit, Amount: dec("5"), Status: models.TxPending}
	require.NoError(t, repos.Transactions.Save(ctx, tx))
	require.NotZero(t, tx.Id)

	moved, err := repos.Transactions.UpdateStatus(ctx, tx.Id, models.TxPending, models.TxCompleted, time.Now())
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = repos.Transactions.UpdateStatus(ctx, tx.Id, models.TxPending, models.TxCompleted, time.Now())
	require.NoError(t, err)
	assert.False(t, moved)

	stored, err := repos.Transactions.FindById(ctx, tx.Id)
	require.NoError(t, err)
	assert.Equal(t, models.TxCompleted, stored.Status)
	assert.True(t, stored.CompletedAt.Valid)
}

func TestTransactionRepository_FindByUserIdLimitNewestFirst(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	seedWallet(t, repos, 1, "0")

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 5 {
		require.NoError(t, repos.Transactions.Save(ctx, &models.Transaction{
			UserId:    1,
			Type:      models.TxDeposit,
			Amount:    decimal.NewFromInt(int64(i + 1)),
			Status:    models.TxCompleted,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	txs, err := repos.Transactions.FindByUserIdLimit(ctx, 1, 1, 2)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.True(t, txs[0].Amount.Equal(dec("4")))
	assert.True(t, txs[1].Amount.Equal(dec("3")))

	count, err := repos.Transactions.CountByUserId(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestPoolRepository_Capacity(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	pool := &models.Pool{
		BotTier:       "vector",
		MinStake:      dec("100"),
		TotalCapacity: decimal.NewNullDecimal(dec("1000")),
		Status:        models.PoolActive,
	}
	require.NoError(t, repos.Pools.Save(ctx, pool))

	ok, err := repos.Pools.ReserveCapacity(ctx, pool.Id, dec("900"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repos.Pools.ReserveCapacity(ctx, pool.Id, dec("100.01"))
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repos.Pools.ReleaseCapacity(ctx, pool.Id, dec("400")))
	assert.Error(t, repos.Pools.ReleaseCapacity(ctx, pool.Id, dec("500.01")))

	stored, err := repos.Pools.FindById(ctx, pool.Id)
	require.NoError(t, err)
	assert.True(t, stored.CurrentStaked.Equal(dec("500")))
}

func TestPoolRepository_ReserveRequiresActivePool(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	pool := &models.Pool{BotTier: "vector", MinStake: dec("100"), Status: models.PoolPaused}
	require.NoError(t, repos.Pools.Save(ctx, pool))

	ok, err := repos.Pools.ReserveCapacity(ctx, pool.Id, dec("100"))
	require.NoError(t, err)
	assert.False(t, ok)

	pool.Status = models.PoolActive
	require.NoError(t, repos.Pools.Update(ctx, pool))
	ok, err = repos.Pools.ReserveCapacity(ctx, pool.Id, dec("100"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPoolRepository_UpdateKeepsCapacityAboveStaked(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	pool := &models.Pool{
		BotTier:       "vector",
		MinStake:      dec("100"),
		TotalCapacity: decimal.NewNullDecimal(dec("1000")),
		Status:        models.PoolActive,
	}
	require.NoError(t, repos.Pools.Save(ctx, pool))
	ok, err := repos.Pools.ReserveCapacity(ctx, pool.Id, dec("600"))
	require.NoError(t, err)
	require.True(t, ok)

	pool.TotalCapacity = decimal.NewNullDecimal(dec("599.99"))
	assert.ErrorIs(t, repos.Pools.Update(ctx, pool), apperr.ErrInvalidPoolConfig)

	pool.TotalCapacity = decimal.NewNullDecimal(dec("600"))
	require.NoError(t, repos.Pools.Update(ctx, pool))

	stored, err := repos.Pools.FindById(ctx, pool.Id)
	require.NoError(t, err)
	assert.True(t, stored.TotalCapacity.Decimal.Equal(dec("600")))
	assert.True(t, stored.CurrentStaked.Equal(dec("600")))
}

func TestStakeRepository_CloseRespectsLock(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()
	pool := &models.Pool{BotTier: "vector", Status: models.PoolActive}
	require.NoError(t, repos.Pools.Save(ctx, pool))

	now := time.Now()
	stake := &models.PoolStake{
		UserId:             1,
		PoolId:             pool.Id,
		Amount:             dec("100"),
		Status:             models.StakeActive,
		StakedAt:           now,
		UnstakeAvailableAt: now.Add(time.Hour),
	}
	require.NoError(t, repos.Stakes.Save(ctx, stake))

	closed, err := repos.Stakes.Close(ctx, stake.Id, models.StakeUnstaked, now)
	require.NoError(t, err)
	assert.False(t, closed)

	closed, err = repos.Stakes.Close(ctx, stake.Id, models.StakeUnstaked, now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, closed)

	added, err := repos.Stakes.AddEarnings(ctx, stake.Id, dec("1"))
	require.NoError(t, err)
	assert.False(t, added)

	require.NoError(t, repos.Stakes.Reopen(ctx, stake.Id))
	matured, err := repos.Stakes.FindMatured(ctx, now.Add(2*time.Hour), 10)
	require.NoError(t, err)
	assert.Len(t, matured, 1)
}

func TestReferralRepository_ChainAndVolume(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	saved, err := repos.Referrals.Save(ctx, &models.Referral{ReferrerId: 1, ReferredId: 2, Level: 1})
	require.NoError(t, err)
	assert.True(t, saved)
	saved, err = repos.Referrals.Save(ctx, &models.Referral{ReferrerId: 1, ReferredId: 3, Level: 2})
	require.NoError(t, err)
	assert.True(t, saved)

	saved, err = repos.Referrals.Save(ctx, &models.Referral{ReferrerId: 9, ReferredId: 2, Level: 1})
	require.NoError(t, err)
	assert.False(t, saved)

	seedWallet(t, repos, 2, "0")
	seedWallet(t, repos, 3, "0")
	require.NoError(t, repos.Transactions.Save(ctx, &models.Transaction{
		UserId: 2, Type: models.TxDeposit, Amount: dec("500"), Status: models.TxCompleted,
	}))
	require.NoError(t, repos.Transactions.Save(ctx, &models.Transaction{
		UserId: 3, Type: models.TxDeposit, Amount: dec("50"), Status: models.TxPending,
	}))

	volume, err := repos.Referrals.PartnerVolume(ctx, 1)
	require.NoError(t, err)
	assert.True(t, volume.Deposits.Equal(dec("500")))
	assert.True(t, volume.Total().Equal(dec("500")))

	counts, err := repos.Referrals.CountByLevel(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []models.LevelCount{{Level: 1, Count: 1}, {Level: 2, Count: 1}}, counts)
}

func TestCommissionRepository_UniquePerSource(t *testing.T) {
	ctx := context.Background()
	repos := NewStore().Repositories()

	c := &models.ReferralCommission{ReferrerId: 1, ReferredId: 2, Level: 1, SourceTransactionId: 7, Amount: dec("10"), Status: models.CommissionPending}
	saved, err := repos.Commissions.Save(ctx, c)
	require.NoError(t, err)
	assert.True(t, saved)

	dup := *c
	saved, err = repos.Commissions.Save(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, saved)

	moved, err := repos.Commissions.UpdateStatus(ctx, c.Id, models.CommissionPending, models.CommissionPaid, time.Now())
	require.NoError(t, err)
	assert.True(t, moved)

	sum, err := repos.Commissions.SumByReferrer(ctx, 1, models.CommissionPaid)
	require.NoError(t, err)
	assert.True(t, sum.Equal(dec("10")))
}
