package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"stakeledger/internal/config"
	"stakeledger/internal/schedulers"
	"stakeledger/internal/yield"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSimulator_DefaultTiers(t *testing.T) {
	sim, err := newSimulator(nil)
	require.NoError(t, err)
	assert.Len(t, sim.Tiers(), len(yield.DefaultTiers()))
}

func TestNewSimulator_ConfiguredTiers(t *testing.T) {
	sim, err := newSimulator([]config.TierConfig{
		{Name: "basic", MinimumStake: 10, DailyRoiMin: 0.001, DailyRoiMax: 0.002, TradingHoursPerDay: 8},
	})
	require.NoError(t, err)

	tier, ok := sim.TierFor(decimal.NewFromInt(10))
	require.True(t, ok)
	assert.Equal(t, "basic", tier.Name)

	_, err = newSimulator([]config.TierConfig{{Name: "broken", MinimumStake: 10, DailyRoiMin: 0.2, DailyRoiMax: 0.1, TradingHoursPerDay: 8}})
	assert.Error(t, err)
}

func TestNewApp_InMemory(t *testing.T) {
	a, err := newApp(&config.Config{Ledger: config.LedgerConfig{Currency: "USD"}}, appOptions{inMemory: true})
	require.NoError(t, err)
	defer a.Close()

	_, err = a.users.Register(context.Background(), 1, 0)
	require.NoError(t, err)
	w, err := a.wallets.GetWallet(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "USD", w.Currency)
}

func TestSimulateCmd(t *testing.T) {
	t.Setenv("LEDGER_CONFIG_FILE", "")

	cmd := simulateCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--user", "7", "--tier", "vector", "--hours", "3", "--at", "2024-05-01T12:00:00Z"})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)

	var last yield.Snapshot
	require.NoError(t, json.Unmarshal([]byte(lines[2]), &last))
	assert.Equal(t, int64(7), last.UserId)
	assert.Equal(t, "2024-05-01T12:00:00Z", last.At.UTC().Format(time.RFC3339))
}

func TestApp_SchedulerRunsJobsByHand(t *testing.T) {
	a, err := newApp(&config.Config{}, appOptions{inMemory: true})
	require.NoError(t, err)
	defer a.Close()

	sched, err := a.scheduler(config.SchedulerConfig{})
	require.NoError(t, err)

	require.NoError(t, sched.RunOnce(context.Background(), schedulers.JobRoiPayout))
	require.NoError(t, sched.RunOnce(context.Background(), schedulers.JobCacheSweep))
	assert.ErrorIs(t, sched.RunOnce(context.Background(), "nope"), schedulers.ErrUnknownJob)
}
