package command

import (
	"context"
	"slices"

	"stakeledger/internal/models"
	"stakeledger/internal/util"

	"github.com/go-telegram/bot"
	botModels "github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
)

const yieldHistoryHours = 24

type YieldCommand struct {
	b *bot.Bot
	d Deps
}

func NewYieldCommand(b *bot.Bot, d Deps) *YieldCommand {
	return &YieldCommand{b: b, d: d}
}

// Execute shows the simulated trading yield for the tier the user's active
// stakes qualify for.
func (c *YieldCommand) Execute(ctx context.Context, msg *botModels.Message) {
	chatId := msg.Chat.ID
	userId, ok := linkedUser(ctx, c.b, c.d, chatId)
	if !ok {
		return
	}

	stakes, err := c.d.Stakes.GetUserStakes(ctx, userId)
	if err != nil {
		log.WithField("user_id", userId).Error("Failed to load stakes: ", err)
		return
	}
	staked := decimal.Zero
	for _, s := range stakes {
		if s.Status == models.StakeActive {
			staked = staked.Add(s.Amount)
		}
	}

	tier, ok := c.d.Simulator.TierFor(staked)
	if !ok {
		if _, err := util.SendTextMessage(ctx, c.b, chatId, "📊 Stake into a pool to unlock a trading tier."); err != nil {
			log.Error(err)
		}
		return
	}

	history, err := c.d.Simulator.GenerateROIHistory(userId, tier.Name, yieldHistoryHours, c.d.now())
	if err != nil {
		log.WithField("user_id", userId).Error("Failed to simulate yield: ", err)
		return
	}
	if _, err := util.SendTextMessage(ctx, c.b, chatId, yieldText(tier.Name, staked, c.d.Currency, slices.Collect(history))); err != nil {
		log.Error(err)
	}
}
