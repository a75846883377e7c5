package command

import (
	"context"

	"stakeledger/internal/util"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type BalanceCommand struct {
	b *bot.Bot
	d Deps
}

func NewBalanceCommand(b *bot.Bot, d Deps) *BalanceCommand {
	return &BalanceCommand{b: b, d: d}
}

func (c *BalanceCommand) Execute(ctx context.Context, msg *models.Message) {
	chatId := msg.Chat.ID
	userId, ok := linkedUser(ctx, c.b, c.d, chatId)
	if !ok {
		return
	}

	w, err := c.d.Wallets.GetWallet(ctx, userId)
	if err != nil {
		log.WithField("user_id", userId).Error("Failed to load wallet: ", err)
		return
	}
	if _, err := util.SendTextMessage(ctx, c.b, chatId, balanceText(w, c.d.Currency)); err != nil {
		log.Error(err)
	}
}
