package command

import (
	"context"

	"stakeledger/internal/ledgerbot/buttons"
	"stakeledger/internal/util"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type HistoryCommand struct {
	b     *bot.Bot
	d     Deps
	pages *util.Pages
}

func NewHistoryCommand(b *bot.Bot, d Deps, pages *util.Pages) *HistoryCommand {
	return &HistoryCommand{b: b, d: d, pages: pages}
}

func (c *HistoryCommand) Execute(ctx context.Context, msg *models.Message) {
	c.pages.Reset(msg.Chat.ID)
	c.render(ctx, msg.Chat.ID, 0, 0)
}

func (c *HistoryCommand) NextPage(ctx context.Context, callback *models.CallbackQuery) {
	if err := util.CheckTypeMessage(ctx, c.b, callback); err != nil {
		return
	}
	msg := callback.Message.Message
	userId, ok := linkedUser(ctx, c.b, c.d, msg.Chat.ID)
	if !ok {
		return
	}
	_, total, err := c.d.Wallets.History(ctx, userId, 0, 1)
	if err != nil {
		log.WithField("user_id", userId).Error("Failed to count history: ", err)
		return
	}
	page := c.pages.Next(msg.Chat.ID, util.TotalPages(total, numberElementPage))
	c.render(ctx, msg.Chat.ID, msg.ID, page)
}

func (c *HistoryCommand) BackPage(ctx context.Context, callback *models.CallbackQuery) {
	if err := util.CheckTypeMessage(ctx, c.b, callback); err != nil {
		return
	}
	msg := callback.Message.Message
	c.render(ctx, msg.Chat.ID, msg.ID, c.pages.Back(msg.Chat.ID))
}

func (c *HistoryCommand) CloseList(ctx context.Context, callback *models.CallbackQuery) {
	if err := util.CheckTypeMessage(ctx, c.b, callback); err != nil {
		return
	}
	msg := callback.Message.Message
	c.pages.Reset(msg.Chat.ID)
	if err := util.DeleteMessage(ctx, c.b, msg.Chat.ID, msg.ID); err != nil {
		log.Error(err)
	}
}

// render sends page as a new message, or edits messageId when it is set.
func (c *HistoryCommand) render(ctx context.Context, chatId int64, messageId, page int) {
	userId, ok := linkedUser(ctx, c.b, c.d, chatId)
	if !ok {
		return
	}

	txs, total, err := c.d.Wallets.History(ctx, userId, page*numberElementPage, numberElementPage)
	if err != nil {
		log.WithField("user_id", userId).Error("Failed to load history: ", err)
		return
	}
	totalPages := util.TotalPages(total, numberElementPage)
	text := historyText(txs, c.d.Currency, page, totalPages)
	markup := util.GenerateNextBackMenu(page, totalPages, buttons.NextPageHistory, buttons.BackPageHistory, buttons.CloseListHistory)

	if messageId != 0 {
		if err := util.EditTextMessage(ctx, c.b, chatId, messageId, text, markup); err == nil {
			return
		}
	}
	if _, err := util.SendTextMessageMarkup(ctx, c.b, chatId, text, markup); err != nil {
		log.Error(err)
	}
}
