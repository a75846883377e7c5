package command

import (
	"context"
	"errors"
	"time"

	"stakeledger/internal/config"
	"stakeledger/internal/repositories"
	"stakeledger/internal/services"
	"stakeledger/internal/util"
	"stakeledger/internal/yield"

	"github.com/go-telegram/bot"
)

var log = config.InitLogger()

const numberElementPage = 5

// Deps are the ledger services the bot reads from. The bot never moves
// funds; linking a chat is the only write it performs.
type Deps struct {
	Telegram  *services.TelegramService
	Wallets   *services.WalletService
	Stakes    *services.StakeService
	Pools     *services.PoolService
	Referrals *services.ReferralService
	Simulator *yield.Simulator
	Currency  string
	Now       func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

const notLinkedText = "❌ This chat is not linked to a ledger account. Open the app and send the /start link it gives you."

// linkedUser resolves the ledger user behind chatId and tells the chat when
// there is none.
func linkedUser(ctx context.Context, b *bot.Bot, d Deps, chatId int64) (int64, bool) {
	acc, err := d.Telegram.GetByChatId(ctx, chatId)
	if err != nil {
		if !errors.Is(err, repositories.ErrTelegramNotLinked) {
			log.WithField("chat_id", chatId).Error("Failed to find telegram account: ", err)
		}
		if _, err := util.SendTextMessage(ctx, b, chatId, notLinkedText); err != nil {
			log.Error(err)
		}
		return 0, false
	}
	return acc.UserId, true
}
