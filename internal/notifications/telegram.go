package notifications

import (
	"context"
	"errors"
	"fmt"

	"stakeledger/internal/models"
	"stakeledger/internal/repositories"
	"stakeledger/internal/util"

	"github.com/go-telegram/bot"
)

// TelegramNotifier sends notifications to the chat linked to the user.
// Users without a linked chat are skipped silently.
type TelegramNotifier struct {
	bot          *bot.Bot
	telegramRepo repositories.TelegramRepository
}

func NewTelegramNotifier(b *bot.Bot, telegramRepo repositories.TelegramRepository) *TelegramNotifier {
	return &TelegramNotifier{
		bot:          b,
		telegramRepo: telegramRepo,
	}
}

func (t *TelegramNotifier) Name() string { return "telegram" }

func (t *TelegramNotifier) Notify(ctx context.Context, n models.Notification) error {
	acc, err := t.telegramRepo.FindByUserId(ctx, n.UserId)
	if errors.Is(err, repositories.ErrTelegramNotLinked) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = util.SendTextMessage(ctx, t.bot, acc.ChatId, fmt.Sprintf("<b>%s</b>\n\n%s", n.Title, n.Message))
	return err
}
