package refund

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/orderstore"
)

type GuardState string

const (
	GuardFresh     GuardState = "fresh"
	GuardPending   GuardState = "pending"
	GuardCompleted GuardState = "completed"
)

// GuardVerdict is the duplicate-refund classification for one order.
type GuardVerdict struct {
	State  GuardState
	Amount decimal.Decimal // amount of the existing refund, if any
}

func (v GuardVerdict) Fresh() bool { return v.State == GuardFresh }

// DuplicateGuard refuses a second approval flow for an order that already
// has a refund pending or completed. Run it on intake and again before
// every money-moving transition; a concurrent flow can win the race
// between two clicks.
type DuplicateGuard struct {
	store orderstore.Adapter
}

func NewDuplicateGuard(store orderstore.Adapter) *DuplicateGuard {
	return &DuplicateGuard{store: store}
}

// Check re-reads existing refunds from the store.
func (g *DuplicateGuard) Check(ctx context.Context, orderID string) (GuardVerdict, error) {
	refunds, err := g.store.FindExistingRefunds(ctx, orderID)
	if err != nil {
		return GuardVerdict{}, err
	}
	return Classify(refunds), nil
}

// Classify inspects a refund list without I/O. Completed wins over
// pending when both exist.
func Classify(refunds []orderstore.ExistingRefund) GuardVerdict {
	verdict := GuardVerdict{State: GuardFresh}
	for _, r := range refunds {
		switch r.Status {
		case orderstore.RefundCompleted:
			return GuardVerdict{State: GuardCompleted, Amount: r.Amount}
		case orderstore.RefundPending:
			verdict = GuardVerdict{State: GuardPending, Amount: r.Amount}
		}
	}
	return verdict
}
