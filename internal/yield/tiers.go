package yield

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

type Tier struct {
	Name               string
	MinimumStake       decimal.Decimal
	DailyRoiMin        float64
	DailyRoiMax        float64
	TradingHoursPerDay float64
}

func (t Tier) validate() error {
	if t.Name == "" {
		return fmt.Errorf("tier name is empty")
	}
	if t.DailyRoiMin < 0 || t.DailyRoiMin > t.DailyRoiMax {
		return fmt.Errorf("tier %s: daily roi band [%v, %v] is invalid", t.Name, t.DailyRoiMin, t.DailyRoiMax)
	}
	if t.TradingHoursPerDay <= 0 || t.TradingHoursPerDay > 24 {
		return fmt.Errorf("tier %s: trading hours %v out of range", t.Name, t.TradingHoursPerDay)
	}
	if t.MinimumStake.IsNegative() {
		return fmt.Errorf("tier %s: negative minimum stake", t.Name)
	}
	return nil
}

func DefaultTiers() []Tier {
	return []Tier{
		{Name: "nova", MinimumStake: decimal.NewFromInt(50), DailyRoiMin: 0.004, DailyRoiMax: 0.006, TradingHoursPerDay: 8},
		{Name: "vector", MinimumStake: decimal.NewFromInt(500), DailyRoiMin: 0.008, DailyRoiMax: 0.0096, TradingHoursPerDay: 12},
		{Name: "quantum", MinimumStake: decimal.NewFromInt(5000), DailyRoiMin: 0.0096, DailyRoiMax: 0.012, TradingHoursPerDay: 16},
		{Name: "apex", MinimumStake: decimal.NewFromInt(25000), DailyRoiMin: 0.012, DailyRoiMax: 0.015, TradingHoursPerDay: 24},
	}
}

func sortByMinimum(tiers []Tier) {
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].MinimumStake.LessThan(tiers[j].MinimumStake)
	})
}
