package services

import (
	"context"
	"testing"

	"stakeledger/internal/apperr"
	"stakeledger/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chain registers users 1..n where each user is referred by the previous one.
func (h *harness) chain(t *testing.T, n int64) {
	t.Helper()
	h.register(t, 1, 0)
	for id := int64(2); id <= n; id++ {
		h.register(t, id, id-1)
	}
}

func referrers(edges []models.Referral) map[int64]int {
	res := make(map[int64]int, len(edges))
	for _, e := range edges {
		res[e.ReferrerId] = e.Level
	}
	return res
}

func TestReferralService_ChainStopsAtFiveLevels(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.chain(t, 7)

	upline, err := h.referrals.Upline(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{5: 1, 4: 2, 3: 3, 2: 4, 1: 5}, referrers(upline))

	upline, err = h.referrals.Upline(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int{6: 1, 5: 2, 4: 3, 3: 4, 2: 5}, referrers(upline))
	for i, e := range upline {
		assert.Equal(t, i+1, e.Level)
	}

	downline, err := h.referrals.Downline(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, downline, 5)
	assert.Equal(t, int64(2), downline[0].ReferredId)
}

func TestReferralService_RejectsInvalidReferrals(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.chain(t, 3)

	_, err := h.users.Register(ctx, 8, 8)
	assert.ErrorIs(t, err, apperr.ErrInvalidReferral)

	_, err = h.users.Register(ctx, 9, 404)
	assert.ErrorIs(t, err, apperr.ErrInvalidReferral)

	_, err = h.referrals.BuildChain(ctx, 3, 1)
	assert.ErrorIs(t, err, apperr.ErrInvalidReferral)

	edges, err := h.referrals.BuildChain(ctx, 1, 2)
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestCommissionService_AccrueOnDeposit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.chain(t, 6)

	tx, err := h.wallets.Deposit(ctx, 6, dec("1000"), models.TxCompleted, "card deposit", nil)
	require.NoError(t, err)

	pending, err := h.repos.Commissions.FindByStatusLimit(ctx, models.CommissionPending, 10)
	require.NoError(t, err)
	require.Len(t, pending, 5)

	want := map[int64]string{5: "100", 4: "50", 3: "30", 2: "20", 1: "10"}
	for _, c := range pending {
		assert.Equal(t, tx.Id, c.SourceTransactionId)
		assert.Equal(t, int64(6), c.ReferredId)
		assert.True(t, c.Amount.Equal(dec(want[c.ReferrerId])), "referrer %d got %s", c.ReferrerId, c.Amount)
		assert.True(t, c.CommissionRate.Equal(CommissionRate(c.Level)))
	}

	again, err := h.commissions.Accrue(ctx, tx)
	require.NoError(t, err)
	assert.Empty(t, again)

	pending, err = h.repos.Commissions.FindByStatusLimit(ctx, models.CommissionPending, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 5)
}

func TestCommissionService_AccrueIgnoresNonQualifying(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.chain(t, 2)

	tx, err := h.wallets.Deposit(ctx, 2, dec("100"), models.TxPending, "bank transfer", nil)
	require.NoError(t, err)

	res, err := h.commissions.Accrue(ctx, tx)
	require.NoError(t, err)
	assert.Empty(t, res)

	_, err = h.wallets.ApproveDeposit(ctx, admin, tx.Id)
	require.NoError(t, err)

	pending, err := h.repos.Commissions.FindByStatusLimit(ctx, models.CommissionPending, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].Amount.Equal(dec("10")))
}

func TestCommissionService_PayPending(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.chain(t, 6)
	h.fund(t, 6, "1000")

	paid, err := h.commissions.PayPending(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 5, paid)

	assert.True(t, h.wallet(t, 5).AvailableBalance.Equal(dec("100")))
	assert.True(t, h.wallet(t, 1).AvailableBalance.Equal(dec("10")))
	assert.Len(t, h.notifier.ofType(models.NotifyReferralCommission), 5)

	history, total, err := h.wallets.History(ctx, 5, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, models.TxReferralCommission, history[0].Type)

	paid, err = h.commissions.PayPending(ctx, 100)
	require.NoError(t, err)
	assert.Zero(t, paid)

	list, err := h.commissions.ListByReferrer(ctx, 5, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	_, err = h.commissions.PayCommission(ctx, list[0].Id)
	assert.ErrorIs(t, err, apperr.ErrAlreadyProcessed)
}

func TestCommissionService_CancelCommission(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.chain(t, 2)
	h.fund(t, 2, "500")

	list, err := h.commissions.ListByReferrer(ctx, 1, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	id := list[0].Id

	_, err = h.commissions.CancelCommission(ctx, models.Actor{UserId: 1, Role: models.RoleUser}, id)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	c, err := h.commissions.CancelCommission(ctx, admin, id)
	require.NoError(t, err)
	assert.Equal(t, models.CommissionCancelled, c.Status)

	_, err = h.commissions.CancelCommission(ctx, admin, id)
	assert.ErrorIs(t, err, apperr.ErrAlreadyProcessed)

	paid, err := h.commissions.PayPending(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, paid)
	assert.True(t, h.wallet(t, 1).AvailableBalance.IsZero())
}

func TestReferralService_Stats(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.chain(t, 6)
	h.fund(t, 6, "1000")
	h.fund(t, 2, "200")

	paid, err := h.commissions.PayPending(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, 5, paid)

	stats, err := h.referrals.Stats(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalReferrals)
	assert.Len(t, stats.Levels, 5)
	assert.True(t, stats.PartnerVolume.Deposits.Equal(dec("1200")))
	assert.True(t, stats.PartnerVolume.ActiveStakes.IsZero())
	assert.True(t, stats.PaidCommission.Equal(dec("10")), stats.PaidCommission.String())
	assert.True(t, stats.PendingCommission.Equal(dec("20")), stats.PendingCommission.String())
}
