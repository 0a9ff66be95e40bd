package refund

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Tier int

const (
	TierEarlyBird  Tier = iota // >2 weeks before season start
	TierPreSeason              // ≤2 weeks before, not started
	TierWeek1
	TierWeek2
	TierWeek3
	TierWeek4
	TierClosed // on/after week 5
)

func (t Tier) String() string {
	switch t {
	case TierEarlyBird:
		return "more than 2 weeks before season start"
	case TierPreSeason:
		return "within 2 weeks of season start"
	case TierWeek1:
		return "during week 1"
	case TierWeek2:
		return "during week 2"
	case TierWeek3:
		return "during week 3"
	case TierWeek4:
		return "during week 4"
	default:
		return "week 5 or later"
	}
}

type TierRates struct {
	RefundPct decimal.Decimal `yaml:"refund_pct"`
	CreditPct decimal.Decimal `yaml:"credit_pct"`
}

// Schedule maps each tier to its refund and credit percentages.
type Schedule struct {
	Rates map[Tier]TierRates
}

func DefaultSchedule() Schedule {
	pct := func(n int64) decimal.Decimal { return decimal.NewFromInt(n) }
	return Schedule{Rates: map[Tier]TierRates{
		TierEarlyBird: {RefundPct: pct(95), CreditPct: pct(100)},
		TierPreSeason: {RefundPct: pct(90), CreditPct: pct(95)},
		TierWeek1:     {RefundPct: pct(80), CreditPct: pct(85)},
		TierWeek2:     {RefundPct: pct(70), CreditPct: pct(75)},
		TierWeek3:     {RefundPct: pct(60), CreditPct: pct(65)},
		TierWeek4:     {RefundPct: pct(50), CreditPct: pct(55)},
		TierClosed:    {RefundPct: pct(0), CreditPct: pct(0)},
	}}
}

// scheduleFile is the YAML shape of a percentage override. Tiers are keyed
// 0..6 in schedule order; a missing tier keeps its default.
type scheduleFile struct {
	Tiers map[int]struct {
		RefundPct float64 `yaml:"refund_pct"`
		CreditPct float64 `yaml:"credit_pct"`
	} `yaml:"tiers"`
}

// LoadScheduleFile overlays percentages from a YAML file onto the default
// schedule and validates the result.
func LoadScheduleFile(path string) (Schedule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Schedule{}, err
	}

	var f scheduleFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Schedule{}, fmt.Errorf("parse schedule file: %w", err)
	}

	s := DefaultSchedule()
	for k, v := range f.Tiers {
		if k < int(TierEarlyBird) || k > int(TierClosed) {
			return Schedule{}, fmt.Errorf("schedule file: unknown tier %d", k)
		}
		s.Rates[Tier(k)] = TierRates{
			RefundPct: decimal.NewFromFloat(v.RefundPct),
			CreditPct: decimal.NewFromFloat(v.CreditPct),
		}
	}

	if err := s.Validate(); err != nil {
		return Schedule{}, err
	}
	return s, nil
}

// Validate enforces the shape every deployed schedule must keep: rates in
// [0,100], credit at least as generous as refund, and both non-increasing
// from tier to tier.
func (s Schedule) Validate() error {
	hundred := decimal.NewFromInt(100)
	for t := TierEarlyBird; t <= TierClosed; t++ {
		r, ok := s.Rates[t]
		if !ok {
			return fmt.Errorf("schedule: missing tier %d", t)
		}
		if r.RefundPct.IsNegative() || r.CreditPct.IsNegative() ||
			r.RefundPct.GreaterThan(hundred) || r.CreditPct.GreaterThan(hundred) {
			return fmt.Errorf("schedule: tier %d rates out of range", t)
		}
		if r.CreditPct.LessThan(r.RefundPct) {
			return fmt.Errorf("schedule: tier %d credit below refund", t)
		}
		if t > TierEarlyBird {
			prev := s.Rates[t-1]
			if r.RefundPct.GreaterThan(prev.RefundPct) || r.CreditPct.GreaterThan(prev.CreditPct) {
				return fmt.Errorf("schedule: tier %d rates increase over tier %d", t, t-1)
			}
		}
	}
	return nil
}
