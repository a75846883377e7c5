package command

import (
	"fmt"
	"strings"
	"time"

	"stakeledger/internal/models"
	"stakeledger/internal/notifications"
	"stakeledger/internal/services"
	"stakeledger/internal/yield"

	"github.com/shopspring/decimal"
)

const dateLayout = "02.01.2006 15:04"

type stakeView struct {
	Stake    models.PoolStake
	Tier     string
	Earnings *yield.Earnings
}

func balanceText(w *models.Wallet, currency string) string {
	total := w.AvailableBalance.Add(w.LockedBalance).Add(w.PendingBalance)
	return fmt.Sprintf(
		"<b>💰 Wallet</b>\n\nAvailable: %s\nLocked in stakes: %s\nPending withdrawal: %s\n\nTotal: <b>%s</b>",
		notifications.FormatAmount(w.AvailableBalance, currency),
		notifications.FormatAmount(w.LockedBalance, currency),
		notifications.FormatAmount(w.PendingBalance, currency),
		notifications.FormatAmount(total, currency),
	)
}

func pageFooter(page, totalPages int) string {
	if totalPages <= 1 {
		return ""
	}
	return fmt.Sprintf("\nPage %d of %d", page+1, totalPages)
}

func stakesText(views []stakeView, currency string, page, totalPages int) string {
	if len(views) == 0 {
		return "📈 You have no stakes yet."
	}

	var sb strings.Builder
	sb.WriteString("<b>📈 Your stakes</b>\n")
	for _, v := range views {
		s := v.Stake
		tier := v.Tier
		if tier == "" {
			tier = fmt.Sprintf("pool %d", s.PoolId)
		}
		fmt.Fprintf(&sb, "\n<b>#%d %s</b> · %s\n", s.Id, tier, s.Status)
		fmt.Fprintf(&sb, "Amount: %s\n", notifications.FormatAmount(s.Amount, currency))
		fmt.Fprintf(&sb, "Earned: %s\n", notifications.FormatAmount(s.TotalEarned, currency))
		if s.Status == models.StakeActive {
			fmt.Fprintf(&sb, "Unlocks: %s\n", s.UnstakeAvailableAt.UTC().Format(dateLayout))
		} else if s.UnstakedAt.Valid {
			fmt.Fprintf(&sb, "Released: %s\n", s.UnstakedAt.Time.UTC().Format(dateLayout))
		}
		if v.Earnings != nil {
			fmt.Fprintf(&sb, "Trading now: %s/h, %s\n",
				notifications.FormatAmount(v.Earnings.HourlyEarnings, currency),
				v.Earnings.MarketSentiment,
			)
		}
	}
	sb.WriteString(pageFooter(page, totalPages))
	return sb.String()
}

func txSign(t models.TransactionType) string {
	switch t {
	case models.TxWithdraw, models.TxPoolStake, models.TxTradeLoss:
		return "-"
	default:
		return "+"
	}
}

func historyText(txs []models.Transaction, currency string, page, totalPages int) string {
	if len(txs) == 0 {
		return "📃 No transactions yet."
	}

	var sb strings.Builder
	sb.WriteString("<b>📃 History</b>\n\n")
	for _, tx := range txs {
		fmt.Fprintf(&sb, "%s %s %s%s · %s\n",
			tx.CreatedAt.UTC().Format(dateLayout),
			strings.ReplaceAll(string(tx.Type), "_", " "),
			txSign(tx.Type),
			notifications.FormatAmount(tx.Amount, currency),
			tx.Status,
		)
	}
	sb.WriteString(pageFooter(page, totalPages))
	return sb.String()
}

func referralText(stats *services.ReferralStats, currency string) string {
	var sb strings.Builder
	sb.WriteString("<b>🧑‍💼 Referrals</b>\n\n")
	if len(stats.Levels) == 0 {
		sb.WriteString("No partners yet.\n")
	}
	for _, l := range stats.Levels {
		fmt.Fprintf(&sb, "Level %d: %d (%s%%)\n", l.Level, l.Count, services.CommissionRate(l.Level).Mul(decimal.NewFromInt(100)).String())
	}
	fmt.Fprintf(&sb, "\nPartners: %d\n", stats.TotalReferrals)
	fmt.Fprintf(&sb, "Partner volume: %s\n", notifications.FormatAmount(stats.PartnerVolume.Total(), currency))
	fmt.Fprintf(&sb, "Commission paid: %s\n", notifications.FormatAmount(stats.PaidCommission, currency))
	fmt.Fprintf(&sb, "Commission pending: %s", notifications.FormatAmount(stats.PendingCommission, currency))
	return sb.String()
}

func percent(rate float64) string {
	return fmt.Sprintf("%.3f%%", rate*100)
}

// yieldText summarises an hourly history, oldest first.
func yieldText(tier string, staked decimal.Decimal, currency string, history []yield.Snapshot) string {
	if len(history) == 0 {
		return "📊 No yield data yet."
	}

	last := history[len(history)-1]
	low, high := last.CurrentHourlyRate, last.CurrentHourlyRate
	for _, s := range history {
		low = min(low, s.CurrentHourlyRate)
		high = max(high, s.CurrentHourlyRate)
	}
	hours := last.At.Sub(history[0].At) + time.Hour

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>📊 %s tier</b> · %s staked\n\n", tier, notifications.FormatAmount(staked, currency))
	fmt.Fprintf(&sb, "Today's rate: %s\n", percent(last.ActualDailyRate))
	fmt.Fprintf(&sb, "Hourly rate now: %s\n", percent(last.CurrentHourlyRate))
	fmt.Fprintf(&sb, "Projected today: %s\n", percent(last.CurrentDailyProjection))
	fmt.Fprintf(&sb, "Range over %dh: %s to %s\n", int(hours.Hours()), percent(low), percent(high))
	fmt.Fprintf(&sb, "Market: %s, volatility %s", last.MarketSentiment, last.Volatility)
	return sb.String()
}
