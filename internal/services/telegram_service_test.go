package services

import (
	"context"
	"testing"
	"time"

	"stakeledger/internal/apperr"
	"stakeledger/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramService_LinkWithCode(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.register(t, 1, 0)

	_, err := h.telegram.GetByChatId(ctx, 555)
	assert.ErrorIs(t, err, repositories.ErrTelegramNotLinked)

	code, err := h.telegram.IssueLinkCode(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, code, 32)

	acc, err := h.telegram.Link(ctx, code, 555, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), acc.UserId)

	byChat, err := h.telegram.GetByChatId(ctx, 555)
	require.NoError(t, err)
	assert.Equal(t, int64(1), byChat.UserId)
	byUser, err := h.telegram.GetByUserId(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(555), byUser.ChatId)

	_, err = h.telegram.Link(ctx, code, 777, "mallory")
	assert.ErrorIs(t, err, ErrInvalidLinkCode)
}

func TestTelegramService_CodeRequiresWallet(t *testing.T) {
	h := newHarness(t)

	_, err := h.telegram.IssueLinkCode(context.Background(), 42)
	assert.ErrorIs(t, err, apperr.ErrWalletNotFound)
}

func TestTelegramService_CodeExpires(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.register(t, 1, 0)

	code, err := h.telegram.IssueLinkCode(ctx, 1)
	require.NoError(t, err)

	h.clock.Advance(linkCodeTTL + time.Second)
	_, err = h.telegram.Link(ctx, code, 555, "alice")
	assert.ErrorIs(t, err, ErrInvalidLinkCode)
}
