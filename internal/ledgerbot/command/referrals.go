package command

import (
	"context"

	"stakeledger/internal/util"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type ReferralsCommand struct {
	b *bot.Bot
	d Deps
}

func NewReferralsCommand(b *bot.Bot, d Deps) *ReferralsCommand {
	return &ReferralsCommand{b: b, d: d}
}

func (c *ReferralsCommand) Execute(ctx context.Context, msg *models.Message) {
	chatId := msg.Chat.ID
	userId, ok := linkedUser(ctx, c.b, c.d, chatId)
	if !ok {
		return
	}

	stats, err := c.d.Referrals.Stats(ctx, userId)
	if err != nil {
		log.WithField("user_id", userId).Error("Failed to load referral stats: ", err)
		return
	}
	if _, err := util.SendTextMessage(ctx, c.b, chatId, referralText(stats, c.d.Currency)); err != nil {
		log.Error(err)
	}
}
