package refund

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/intake"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/orderstore"
)

// Calculation is the output of the refund schedule for one submission.
type Calculation struct {
	Tier       Tier
	TierLabel  string
	Percentage decimal.Decimal
	AmountDue  decimal.Decimal
}

// Calculator applies the time-decaying schedule. Pure: same snapshot,
// instant and type always produce the same calculation.
type Calculator struct {
	schedule Schedule
}

func NewCalculator(s Schedule) *Calculator {
	return &Calculator{schedule: s}
}

// Calculate classifies submittedAt against the order's season and returns
// the amount owed. ErrIncompleteProductData when the season start date or
// the paid amount is missing; the workflow then offers the custom-amount
// path instead of blocking.
func (c *Calculator) Calculate(snap orderstore.OrderSnapshot, submittedAt time.Time, rt intake.RefundType) (Calculation, error) {
	if snap.Season.StartDate == nil || !snap.TotalPaid.IsPositive() {
		return Calculation{}, ErrIncompleteProductData
	}

	tier := classify(*snap.Season.StartDate, snap.Season.OffDates, submittedAt)
	rates := c.schedule.Rates[tier]

	pct := rates.RefundPct
	if rt == intake.TypeCredit {
		pct = rates.CreditPct
	}

	amount := snap.TotalPaid.Mul(pct).Div(decimal.NewFromInt(100)).Round(2)
	if amount.IsNegative() {
		amount = decimal.Zero
	}

	return Calculation{
		Tier:       tier,
		TierLabel:  tier.String(),
		Percentage: pct,
		AmountDue:  amount,
	}, nil
}

const week = 7 * 24 * time.Hour

// classify places the submission instant into a tier. Week boundaries fall
// every 7 days after the season start; each off date pushes every boundary
// after it out by one day, because a skipped date delays the remaining
// playing weeks without moving time already elapsed.
func classify(start time.Time, offDates []time.Time, submittedAt time.Time) Tier {
	if submittedAt.Before(start.Add(-2 * week)) {
		return TierEarlyBird
	}
	if submittedAt.Before(start) {
		return TierPreSeason
	}

	bounds := weekBoundaries(start, offDates)
	for i, b := range bounds {
		if submittedAt.Before(b) {
			return TierWeek1 + Tier(i)
		}
	}
	return TierClosed
}

// weekBoundaries returns the ends of weeks 1 through 4, off dates applied.
func weekBoundaries(start time.Time, offDates []time.Time) [4]time.Time {
	var bounds [4]time.Time
	for i := range bounds {
		bounds[i] = start.Add(time.Duration(i+1) * week)
	}

	sorted := append([]time.Time(nil), offDates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	for _, off := range sorted {
		if off.Before(start) {
			continue
		}
		for i := range bounds {
			if bounds[i].After(off) {
				bounds[i] = bounds[i].Add(24 * time.Hour)
			}
		}
	}
	return bounds
}
