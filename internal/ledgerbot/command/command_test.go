package command

import (
	"database/sql"
	"testing"
	"time"

	"stakeledger/internal/models"
	"stakeledger/internal/services"
	"stakeledger/internal/yield"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartCode(t *testing.T) {
	assert.Equal(t, "abc123", startCode("/start abc123"))
	assert.Equal(t, "abc123", startCode("  /start   abc123 "))
	assert.Empty(t, startCode("/start"))
	assert.Empty(t, startCode("/balance abc"))
}

func TestBalanceText(t *testing.T) {
	text := balanceText(&models.Wallet{
		AvailableBalance: decimal.RequireFromString("1250.5"),
		LockedBalance:    decimal.NewFromInt(1000),
		PendingBalance:   decimal.Zero,
	}, "USD")

	assert.Contains(t, text, "Available: 1,250.50 USD")
	assert.Contains(t, text, "Locked in stakes: 1,000.00 USD")
	assert.Contains(t, text, "<b>2,250.50 USD</b>")
}

func TestHistoryText(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	text := historyText([]models.Transaction{
		{Type: models.TxDeposit, Amount: decimal.NewFromInt(500), Status: models.TxCompleted, CreatedAt: at},
		{Type: models.TxPoolStake, Amount: decimal.NewFromInt(100), Status: models.TxCompleted, CreatedAt: at},
	}, "USD", 0, 2)

	assert.Contains(t, text, "01.05.2024 10:30 deposit +500.00 USD · completed")
	assert.Contains(t, text, "pool stake -100.00 USD")
	assert.Contains(t, text, "Page 1 of 2")

	assert.Equal(t, "📃 No transactions yet.", historyText(nil, "USD", 0, 0))
}

func TestStakesText(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	sim, err := yield.NewSimulator(yield.DefaultTiers())
	require.NoError(t, err)
	earnings, err := sim.CalculateCurrentEarnings(7, decimal.NewFromInt(1000), at)
	require.NoError(t, err)

	text := stakesText([]stakeView{
		{
			Stake: models.PoolStake{
				Id: 1, PoolId: 3, Amount: decimal.NewFromInt(1000), Status: models.StakeActive,
				UnstakeAvailableAt: at.Add(30 * 24 * time.Hour), TotalEarned: decimal.RequireFromString("8.8"),
			},
			Tier:     "vector",
			Earnings: earnings,
		},
		{
			Stake: models.PoolStake{
				Id: 2, PoolId: 4, Amount: decimal.NewFromInt(50), Status: models.StakeUnstaked,
				UnstakedAt: sql.NullTime{Time: at, Valid: true}, TotalEarned: decimal.Zero,
			},
		},
	}, "USD", 0, 1)

	assert.Contains(t, text, "#1 vector")
	assert.Contains(t, text, "Earned: 8.80 USD")
	assert.Contains(t, text, "Unlocks: 31.05.2024 10:00")
	assert.Contains(t, text, "Trading now:")
	assert.Contains(t, text, "#2 pool 4")
	assert.Contains(t, text, "Released: 01.05.2024 10:00")
	assert.NotContains(t, text, "Page")
}

func TestReferralText(t *testing.T) {
	text := referralText(&services.ReferralStats{
		Levels:            []models.LevelCount{{Level: 1, Count: 2}, {Level: 2, Count: 5}},
		TotalReferrals:    7,
		PaidCommission:    decimal.NewFromInt(10),
		PendingCommission: decimal.NewFromInt(20),
		PartnerVolume:     models.PartnerVolume{Deposits: decimal.NewFromInt(1200), ActiveStakes: decimal.NewFromInt(300)},
	}, "USD")

	assert.Contains(t, text, "Level 1: 2 (10%)")
	assert.Contains(t, text, "Level 2: 5 (5%)")
	assert.Contains(t, text, "Partners: 7")
	assert.Contains(t, text, "Partner volume: 1,500.00 USD")
	assert.Contains(t, text, "Commission pending: 20.00 USD")
}

func TestYieldText(t *testing.T) {
	sim, err := yield.NewSimulator(yield.DefaultTiers())
	require.NoError(t, err)
	now := time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)
	seq, err := sim.GenerateROIHistory(7, "vector", 24, now)
	require.NoError(t, err)

	var history []yield.Snapshot
	for s := range seq {
		history = append(history, s)
	}
	text := yieldText("vector", decimal.NewFromInt(1000), "USD", history)

	assert.Contains(t, text, "vector tier")
	assert.Contains(t, text, "1,000.00 USD staked")
	assert.Contains(t, text, "Range over 24h")
	assert.Contains(t, text, string(history[23].MarketSentiment))

	assert.Equal(t, "📊 No yield data yet.", yieldText("vector", decimal.Zero, "USD", nil))
}
