package command

import (
	"context"
	"errors"
	"strings"

	"stakeledger/internal/ledgerbot/buttons"
	"stakeledger/internal/repositories"
	"stakeledger/internal/services"
	"stakeledger/internal/util"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type StartCommand struct {
	bt *bot.Bot
	d  Deps
}

func NewStartCommand(b *bot.Bot, d Deps) *StartCommand {
	return &StartCommand{bt: b, d: d}
}

func (c *StartCommand) Execute(ctx context.Context, msg *models.Message) {
	chatId := msg.Chat.ID
	code := startCode(msg.Text)

	if code == "" {
		_, err := c.d.Telegram.GetByChatId(ctx, chatId)
		if errors.Is(err, repositories.ErrTelegramNotLinked) {
			if _, err := util.SendTextMessage(ctx, c.bt, chatId, notLinkedText); err != nil {
				log.Error(err)
			}
			return
		}
		if err != nil {
			log.WithField("chat_id", chatId).Error("Failed to find telegram account: ", err)
			return
		}
		c.sendMenu(ctx, chatId, "Welcome back 👋")
		return
	}

	acc, err := c.d.Telegram.Link(ctx, code, chatId, msg.Chat.Username)
	if err != nil {
		text := "❌ Could not link this chat, please try again later."
		if errors.Is(err, services.ErrInvalidLinkCode) {
			text = "❌ The link code is unknown or expired. Request a new one in the app."
		} else {
			log.WithField("chat_id", chatId).Error("Failed to link telegram: ", err)
		}
		if _, err := util.SendTextMessage(ctx, c.bt, chatId, text); err != nil {
			log.Error(err)
		}
		return
	}

	log.WithField("user_id", acc.UserId).Info("Telegram chat linked")
	c.sendMenu(ctx, chatId, "✅ Chat linked. Ledger notifications will arrive here.")
}

func (c *StartCommand) sendMenu(ctx context.Context, chatId int64, text string) {
	keys := util.CreateDefaultButtonsReplay(
		2,
		buttons.Balance,
		buttons.MyStakes,
		buttons.History,
		buttons.Referrals,
		buttons.Yield,
	)
	if _, err := util.SendTextMessageMarkup(ctx, c.bt, chatId, text, keys); err != nil {
		log.Error("Failed to send menu: ", err)
	}
}

// startCode returns the argument of "/start <code>", empty when there is none.
func startCode(text string) string {
	fields := strings.Fields(text)
	if len(fields) < 2 || fields[0] != "/start" {
		return ""
	}
	return fields[1]
}
