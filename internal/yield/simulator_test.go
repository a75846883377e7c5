package yield

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSimulator(t *testing.T) *Simulator {
	t.Helper()
	s, err := NewSimulator(DefaultTiers())
	require.NoError(t, err)
	return s
}

func TestRng_Mulberry32Sequence(t *testing.T) {
	r := newRng(42)
	assert.Equal(t, uint32(2581720956), r.next())
	assert.Equal(t, uint32(1925393290), r.next())
	assert.Equal(t, uint32(3661312704), r.next())

	assert.Equal(t, 0.6011037519201636, newRng(42).float64())
}

func TestSimulator_Deterministic(t *testing.T) {
	s := newTestSimulator(t)
	at := time.Date(2024, 6, 15, 13, 37, 21, 0, time.UTC)

	first, err := s.Snapshot(7, "vector", at)
	require.NoError(t, err)
	second, err := s.Snapshot(7, "vector", at)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	other := newTestSimulator(t)
	third, err := other.Snapshot(7, "vector", at)
	require.NoError(t, err)
	assert.Equal(t, first, third)
}

func TestSimulator_DailyRateFixedForDay(t *testing.T) {
	s := newTestSimulator(t)
	day := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)

	morning, err := s.Snapshot(7, "vector", day.Add(time.Minute))
	require.NoError(t, err)
	evening, err := s.Snapshot(7, "vector", day.Add(23*time.Hour+59*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, morning.ActualDailyRate, evening.ActualDailyRate)
	assert.NotEqual(t, morning.RateMultiplier, evening.RateMultiplier)
}

func TestSimulator_RatesStayInBand(t *testing.T) {
	s := newTestSimulator(t)
	tier := DefaultTiers()[1]
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for user := int64(1); user <= 20; user++ {
		for step := 0; step < 24*14; step++ {
			at := start.Add(time.Duration(step)*time.Hour + time.Duration(step%60)*time.Second)
			snap, err := s.Snapshot(user, tier.Name, at)
			require.NoError(t, err)

			assert.GreaterOrEqual(t, snap.ActualDailyRate, tier.DailyRoiMin)
			assert.LessOrEqual(t, snap.ActualDailyRate, tier.DailyRoiMax)
			assert.GreaterOrEqual(t, snap.RateMultiplier, 1-maxDeviation)
			assert.LessOrEqual(t, snap.RateMultiplier, 1+maxDeviation)
			assert.InDelta(t, snap.CurrentHourlyRate*tier.TradingHoursPerDay, snap.CurrentDailyProjection, 1e-12)
		}
	}
}

func TestSimulator_AmplitudeShrinksTowardEndOfDay(t *testing.T) {
	s := newTestSimulator(t)
	day := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)

	for user := int64(1); user <= 50; user++ {
		late, err := s.Snapshot(user, "vector", day.Add(23*time.Hour+59*time.Minute+59*time.Second))
		require.NoError(t, err)
		deviation := late.RateMultiplier - 1
		if deviation < 0 {
			deviation = -deviation
		}
		assert.LessOrEqual(t, deviation, maxDeviation*(1-reversion)+1e-3)
	}
}

func TestSimulator_Categories(t *testing.T) {
	assert.Equal(t, Bullish, sentiment(0.16))
	assert.Equal(t, Bearish, sentiment(-0.16))
	assert.Equal(t, Neutral, sentiment(0.15))

	assert.Equal(t, VolatilityHigh, volatility(-0.4))
	assert.Equal(t, VolatilityMedium, volatility(0.2))
	assert.Equal(t, VolatilityLow, volatility(0.15))
}

func TestSimulator_CalculateCurrentEarningsPicksHighestTier(t *testing.T) {
	s := newTestSimulator(t)
	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		staked string
		tier   string
	}{
		{"50", "nova"},
		{"499.99", "nova"},
		{"500", "vector"},
		{"4999", "vector"},
		{"5000", "quantum"},
		{"1000000", "apex"},
	}
	for _, c := range cases {
		e, err := s.CalculateCurrentEarnings(7, decimal.RequireFromString(c.staked), at)
		require.NoError(t, err)
		assert.Equal(t, c.tier, e.Tier, c.staked)
	}

	_, err := s.CalculateCurrentEarnings(7, decimal.RequireFromString("49.99"), at)
	assert.ErrorIs(t, err, ErrUnknownTier)
}

func TestSimulator_EarningsScaleWithStake(t *testing.T) {
	s := newTestSimulator(t)
	at := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

	e, err := s.CalculateCurrentEarnings(7, decimal.NewFromInt(1000), at)
	require.NoError(t, err)

	expected := decimal.NewFromInt(1000).Mul(decimal.NewFromFloat(e.ActualDailyRate)).Round(8)
	assert.True(t, expected.Equal(e.ExpectedDaily))
	assert.True(t, e.ExpectedDaily.GreaterThanOrEqual(decimal.RequireFromString("8")))
	assert.True(t, e.ExpectedDaily.LessThanOrEqual(decimal.RequireFromString("9.6")))
}

func TestSimulator_GenerateROIHistory(t *testing.T) {
	s := newTestSimulator(t)
	now := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

	seq, err := s.GenerateROIHistory(7, "vector", 24, now)
	require.NoError(t, err)

	var first []Snapshot
	for snap := range seq {
		first = append(first, snap)
	}
	require.Len(t, first, 24)
	assert.Equal(t, now.Add(-23*time.Hour), first[0].At)
	assert.Equal(t, now, first[23].At)

	var second []Snapshot
	for snap := range seq {
		second = append(second, snap)
	}
	assert.Equal(t, first, second)

	count := 0
	for range seq {
		count++
		if count == 3 {
			break
		}
	}
	assert.Equal(t, 3, count)

	_, err = s.GenerateROIHistory(7, "unknown", 24, now)
	assert.ErrorIs(t, err, ErrUnknownTier)
}

func TestNewSimulator_RejectsBadTiers(t *testing.T) {
	_, err := NewSimulator(nil)
	assert.Error(t, err)

	_, err = NewSimulator([]Tier{{Name: "x", DailyRoiMin: 0.02, DailyRoiMax: 0.01, TradingHoursPerDay: 8}})
	assert.Error(t, err)

	_, err = NewSimulator([]Tier{
		{Name: "x", DailyRoiMin: 0.01, DailyRoiMax: 0.02, TradingHoursPerDay: 8},
		{Name: "x", DailyRoiMin: 0.01, DailyRoiMax: 0.02, TradingHoursPerDay: 8},
	})
	assert.Error(t, err)
}
