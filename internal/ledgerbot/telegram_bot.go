// Package ledgerbot is the read-only telegram front of the ledger: it links
// chats to ledger users and shows balances, stakes, history and yield.
package ledgerbot

import (
	"context"
	"strings"

	"stakeledger/internal/config"
	"stakeledger/internal/core/interfaces"
	"stakeledger/internal/ledgerbot/buttons"
	"stakeledger/internal/ledgerbot/command"
	"stakeledger/internal/util"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

var log = config.InitLogger()

type LedgerBot struct {
	bot          *bot.Bot
	deps         command.Deps
	historyPages *util.Pages
	stakePages   *util.Pages
}

func New(token string, deps command.Deps) (*LedgerBot, error) {
	lb := &LedgerBot{
		deps:         deps,
		historyPages: util.NewPages(),
		stakePages:   util.NewPages(),
	}

	b, err := bot.New(token, bot.WithDefaultHandler(lb.handler))
	if err != nil {
		log.Error("Failed to create bot: ", err)
		return nil, err
	}
	lb.bot = b
	return lb, nil
}

// Bot exposes the client so notifications can reuse it.
func (t *LedgerBot) Bot() *bot.Bot {
	return t.bot
}

// Start polls for updates until ctx is done.
func (t *LedgerBot) Start(ctx context.Context) {
	log.Infoln("Telegram bot started")
	t.bot.Start(ctx)
	log.Infoln("Telegram bot stopped")
}

func (t *LedgerBot) handler(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil {
		return
	}

	if update.Message != nil {
		t.handleMessage(ctx, b, update.Message)
	}

	if update.CallbackQuery != nil {
		callback := update.CallbackQuery

		t.handleCallback(ctx, b, callback)

		if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: callback.ID,
		}); err != nil {
			log.Error("AnswerCallbackQuery: ", err)
		}
	}
}

func (t *LedgerBot) messageCommand(b *bot.Bot, text string) interfaces.Command[*models.Message] {
	switch {
	case strings.HasPrefix(text, "/start"):
		return command.NewStartCommand(b, t.deps)
	case text == buttons.Balance || text == "/balance":
		return command.NewBalanceCommand(b, t.deps)
	case text == buttons.MyStakes || text == "/stakes":
		return command.NewStakesCommand(b, t.deps, t.stakePages)
	case text == buttons.History || text == "/history":
		return command.NewHistoryCommand(b, t.deps, t.historyPages)
	case text == buttons.Referrals || text == "/referrals":
		return command.NewReferralsCommand(b, t.deps)
	case text == buttons.Yield || text == "/yield":
		return command.NewYieldCommand(b, t.deps)
	}
	return nil
}

func (t *LedgerBot) handleMessage(ctx context.Context, b *bot.Bot, msg *models.Message) {
	if msg.Chat.Type != models.ChatTypePrivate {
		return
	}
	if cmd := t.messageCommand(b, strings.TrimSpace(msg.Text)); cmd != nil {
		cmd.Execute(ctx, msg)
	}
}

func (t *LedgerBot) handleCallback(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) {
	var list interfaces.PagedCommand
	switch callback.Data {
	case buttons.NextPageHistory, buttons.BackPageHistory, buttons.CloseListHistory:
		list = command.NewHistoryCommand(b, t.deps, t.historyPages)
	case buttons.NextPageStakes, buttons.BackPageStakes, buttons.CloseListStakes:
		list = command.NewStakesCommand(b, t.deps, t.stakePages)
	case buttons.DefCloseId:
		if err := util.CheckTypeMessage(ctx, b, callback); err != nil {
			return
		}
		msg := callback.Message.Message
		if err := util.DeleteMessage(ctx, b, msg.Chat.ID, msg.ID); err != nil {
			log.Error("DeleteMessage: ", err)
		}
		return
	default:
		return
	}

	switch callback.Data {
	case buttons.NextPageHistory, buttons.NextPageStakes:
		list.NextPage(ctx, callback)
	case buttons.BackPageHistory, buttons.BackPageStakes:
		list.BackPage(ctx, callback)
	default:
		list.CloseList(ctx, callback)
	}
}
