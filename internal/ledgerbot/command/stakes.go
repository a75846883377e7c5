package command

import (
	"context"

	"stakeledger/internal/ledgerbot/buttons"
	"stakeledger/internal/models"
	"stakeledger/internal/util"

	"github.com/go-telegram/bot"
	botModels "github.com/go-telegram/bot/models"
)

type StakesCommand struct {
	b     *bot.Bot
	d     Deps
	pages *util.Pages
}

func NewStakesCommand(b *bot.Bot, d Deps, pages *util.Pages) *StakesCommand {
	return &StakesCommand{b: b, d: d, pages: pages}
}

func (c *StakesCommand) Execute(ctx context.Context, msg *botModels.Message) {
	c.pages.Reset(msg.Chat.ID)
	c.render(ctx, msg.Chat.ID, 0, func(int) int { return 0 })
}

func (c *StakesCommand) NextPage(ctx context.Context, callback *botModels.CallbackQuery) {
	if err := util.CheckTypeMessage(ctx, c.b, callback); err != nil {
		return
	}
	msg := callback.Message.Message
	c.render(ctx, msg.Chat.ID, msg.ID, func(totalPages int) int {
		return c.pages.Next(msg.Chat.ID, totalPages)
	})
}

func (c *StakesCommand) BackPage(ctx context.Context, callback *botModels.CallbackQuery) {
	if err := util.CheckTypeMessage(ctx, c.b, callback); err != nil {
		return
	}
	msg := callback.Message.Message
	c.render(ctx, msg.Chat.ID, msg.ID, func(int) int {
		return c.pages.Back(msg.Chat.ID)
	})
}

func (c *StakesCommand) CloseList(ctx context.Context, callback *botModels.CallbackQuery) {
	if err := util.CheckTypeMessage(ctx, c.b, callback); err != nil {
		return
	}
	msg := callback.Message.Message
	c.pages.Reset(msg.Chat.ID)
	if err := util.DeleteMessage(ctx, c.b, msg.Chat.ID, msg.ID); err != nil {
		log.Error(err)
	}
}

func (c *StakesCommand) render(ctx context.Context, chatId int64, messageId int, pageOf func(totalPages int) int) {
	userId, ok := linkedUser(ctx, c.b, c.d, chatId)
	if !ok {
		return
	}

	stakes, err := c.d.Stakes.GetUserStakes(ctx, userId)
	if err != nil {
		log.WithField("user_id", userId).Error("Failed to load stakes: ", err)
		return
	}
	totalPages := util.TotalPages(len(stakes), numberElementPage)
	page := pageOf(totalPages)

	start := min(page*numberElementPage, len(stakes))
	end := min(start+numberElementPage, len(stakes))
	views := make([]stakeView, 0, end-start)
	for _, s := range stakes[start:end] {
		views = append(views, c.view(ctx, s))
	}

	text := stakesText(views, c.d.Currency, page, totalPages)
	markup := util.GenerateNextBackMenu(page, totalPages, buttons.NextPageStakes, buttons.BackPageStakes, buttons.CloseListStakes)
	if messageId != 0 {
		if err := util.EditTextMessage(ctx, c.b, chatId, messageId, text, markup); err == nil {
			return
		}
	}
	if _, err := util.SendTextMessageMarkup(ctx, c.b, chatId, text, markup); err != nil {
		log.Error(err)
	}
}

func (c *StakesCommand) view(ctx context.Context, s models.PoolStake) stakeView {
	v := stakeView{Stake: s}
	if pool, err := c.d.Pools.GetById(ctx, s.PoolId); err == nil {
		v.Tier = pool.BotTier
	}
	if s.Status == models.StakeActive {
		earnings, err := c.d.Stakes.Earnings(ctx, s.Id, c.d.now())
		if err != nil {
			log.WithField("stake_id", s.Id).Debug("No simulated earnings: ", err)
		} else {
			v.Earnings = earnings
		}
	}
	return v
}
