// Package yield computes the synthetic, display-only trading yield shown to
// stakers. Every figure is a pure function of (user, tier, time) so the same
// inputs always give bit-identical output. Nothing here moves funds: payouts
// use the pool's configured band.
package yield

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

var ErrUnknownTier = errors.New("unknown tier")

const (
	weightMacro  = 0.30
	weightHourly = 0.25
	weightNoise  = 0.35
	weightMicro  = 0.10

	maxDeviation = 0.5
	reversion    = 0.85

	sentimentThreshold = 0.15
	highVolatility     = 0.35
	mediumVolatility   = 0.15
)

type Sentiment string

const (
	Bullish Sentiment = "bullish"
	Bearish Sentiment = "bearish"
	Neutral Sentiment = "neutral"
)

type Volatility string

const (
	VolatilityHigh   Volatility = "high"
	VolatilityMedium Volatility = "medium"
	VolatilityLow    Volatility = "low"
)

type Snapshot struct {
	UserId                 int64      `json:"user_id"`
	Tier                   string     `json:"tier"`
	At                     time.Time  `json:"at"`
	ActualDailyRate        float64    `json:"actual_daily_rate"`
	BaseHourlyRate         float64    `json:"base_hourly_rate"`
	CurrentHourlyRate      float64    `json:"current_hourly_rate"`
	CurrentDailyProjection float64    `json:"current_daily_projection"`
	RateMultiplier         float64    `json:"rate_multiplier"`
	MarketSentiment        Sentiment  `json:"market_sentiment"`
	Volatility             Volatility `json:"volatility"`
}

type Earnings struct {
	Snapshot
	StakedAmount    decimal.Decimal `json:"staked_amount"`
	HourlyEarnings  decimal.Decimal `json:"hourly_earnings"`
	DailyProjection decimal.Decimal `json:"daily_projection"`
	ExpectedDaily   decimal.Decimal `json:"expected_daily"`
}

type Simulator struct {
	tiers  []Tier
	byName map[string]Tier
}

func NewSimulator(tiers []Tier) (*Simulator, error) {
	if len(tiers) == 0 {
		return nil, errors.New("yield: empty tier catalog")
	}

	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sortByMinimum(sorted)

	byName := make(map[string]Tier, len(sorted))
	for _, t := range sorted {
		if err := t.validate(); err != nil {
			return nil, err
		}
		if _, dup := byName[t.Name]; dup {
			return nil, fmt.Errorf("tier %s declared twice", t.Name)
		}
		byName[t.Name] = t
	}

	return &Simulator{tiers: sorted, byName: byName}, nil
}

func (s *Simulator) Tiers() []Tier {
	res := make([]Tier, len(s.tiers))
	copy(res, s.tiers)
	return res
}

// Snapshot returns the simulated rates for userId on tier at the given
// instant. Time is evaluated in UTC.
func (s *Simulator) Snapshot(userId int64, tier string, at time.Time) (Snapshot, error) {
	t, ok := s.byName[tier]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownTier, tier)
	}
	return compute(userId, t, at), nil
}

// TierFor selects the highest tier whose minimum stake is met.
func (s *Simulator) TierFor(staked decimal.Decimal) (Tier, bool) {
	for i := len(s.tiers) - 1; i >= 0; i-- {
		if staked.GreaterThanOrEqual(s.tiers[i].MinimumStake) {
			return s.tiers[i], true
		}
	}
	return Tier{}, false
}

func (s *Simulator) CalculateCurrentEarnings(userId int64, staked decimal.Decimal, at time.Time) (*Earnings, error) {
	t, ok := s.TierFor(staked)
	if !ok {
		return nil, fmt.Errorf("%w: no tier accepts a stake of %s", ErrUnknownTier, staked)
	}

	snap := compute(userId, t, at)
	return &Earnings{
		Snapshot:        snap,
		StakedAmount:    staked,
		HourlyEarnings:  staked.Mul(decimal.NewFromFloat(snap.CurrentHourlyRate)).Round(8),
		DailyProjection: staked.Mul(decimal.NewFromFloat(snap.CurrentDailyProjection)).Round(8),
		ExpectedDaily:   staked.Mul(decimal.NewFromFloat(snap.ActualDailyRate)).Round(8),
	}, nil
}

// GenerateROIHistory yields hours hourly samples ending at now, oldest
// first. The sequence holds no state and can be ranged over repeatedly.
func (s *Simulator) GenerateROIHistory(userId int64, tier string, hours int, now time.Time) (iter.Seq[Snapshot], error) {
	t, ok := s.byName[tier]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTier, tier)
	}

	return func(yield func(Snapshot) bool) {
		for offset := hours - 1; offset >= 0; offset-- {
			if !yield(compute(userId, t, now.Add(-time.Duration(offset)*time.Hour))) {
				return
			}
		}
	}, nil
}

// ActualDailyRate is fixed for a user for the whole UTC day.
func ActualDailyRate(userId int64, t Tier, at time.Time) float64 {
	p := draw(userId, at.UTC().YearDay(), 0, 0, saltDaily)
	return t.DailyRoiMin + p*(t.DailyRoiMax-t.DailyRoiMin)
}

func compute(userId int64, t Tier, at time.Time) Snapshot {
	at = at.UTC()
	doy := at.YearDay()
	hour, minute, second := at.Clock()
	secOfDay := hour*3600 + minute*60 + second
	dayFrac := float64(secOfDay) / 86400

	daily := ActualDailyRate(userId, t, at)
	baseHourly := daily / t.TradingHoursPerDay

	osc := oscillation(userId, doy, hour, minute, second, dayFrac)
	amplitude := maxDeviation * (1 - reversion*dayFrac*dayFrac)
	multiplier := 1 + osc*amplitude
	current := baseHourly * multiplier

	return Snapshot{
		UserId:                 userId,
		Tier:                   t.Name,
		At:                     at,
		ActualDailyRate:        daily,
		BaseHourlyRate:         baseHourly,
		CurrentHourlyRate:      current,
		CurrentDailyProjection: current * t.TradingHoursPerDay,
		RateMultiplier:         multiplier,
		MarketSentiment:        sentiment(osc),
		Volatility:             volatility(osc),
	}
}

// oscillation combines the four oscillators into a value in [-1, 1].
func oscillation(userId int64, doy, hour, minute, second int, dayFrac float64) float64 {
	macroPhase := 2 * math.Pi * draw(userId, doy, 0, 0, saltMacro)
	macro := math.Sin(2*math.Pi*dayFrac*2 + macroPhase)

	hourlyPhase := 2 * math.Pi * draw(userId, doy, hour, 0, saltHourly)
	hourly := math.Sin(2*math.Pi*float64(minute*60+second)/3600 + hourlyPhase)

	noise := 2*draw(userId, doy, hour, minute, saltNoise) - 1

	r := newRng(mixSeed(userId, doy, hour, minute, saltMicro))
	for range second {
		r.next()
	}
	micro := 2*r.float64() - 1

	return weightMacro*macro + weightHourly*hourly + weightNoise*noise + weightMicro*micro
}

func sentiment(osc float64) Sentiment {
	switch {
	case osc > sentimentThreshold:
		return Bullish
	case osc < -sentimentThreshold:
		return Bearish
	default:
		return Neutral
	}
}

func volatility(osc float64) Volatility {
	m := math.Abs(osc)
	switch {
	case m > highVolatility:
		return VolatilityHigh
	case m > mediumVolatility:
		return VolatilityMedium
	default:
		return VolatilityLow
	}
}
