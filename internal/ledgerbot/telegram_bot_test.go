package ledgerbot

import (
	"testing"

	"stakeledger/internal/ledgerbot/buttons"
	"stakeledger/internal/ledgerbot/command"

	"github.com/stretchr/testify/assert"
)

func TestMessageCommandRouting(t *testing.T) {
	lb := &LedgerBot{}

	assert.IsType(t, &command.StartCommand{}, lb.messageCommand(nil, "/start abc"))
	assert.IsType(t, &command.BalanceCommand{}, lb.messageCommand(nil, buttons.Balance))
	assert.IsType(t, &command.BalanceCommand{}, lb.messageCommand(nil, "/balance"))
	assert.IsType(t, &command.StakesCommand{}, lb.messageCommand(nil, buttons.MyStakes))
	assert.IsType(t, &command.HistoryCommand{}, lb.messageCommand(nil, "/history"))
	assert.IsType(t, &command.ReferralsCommand{}, lb.messageCommand(nil, buttons.Referrals))
	assert.IsType(t, &command.YieldCommand{}, lb.messageCommand(nil, "/yield"))
	assert.Nil(t, lb.messageCommand(nil, "hello"))
}
