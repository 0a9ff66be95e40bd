package workflow

import (
	"context"
	"log/slog"

	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/messaging"
)

type routeKey struct {
	Phase  Phase
	Action string
}

type transitionFunc func(ctx context.Context, ev messaging.InteractionEvent, cont Continuation) error

// ActionRouter maps (current phase, action id) to a transition. An action
// that doesn't belong to the message's phase — a stale click after the
// flow advanced — is dropped rather than executed out of order.
type ActionRouter struct {
	engine *Engine
	routes map[routeKey]transitionFunc
}

func NewActionRouter(e *Engine) *ActionRouter {
	r := &ActionRouter{engine: e, routes: map[routeKey]transitionFunc{}}

	r.add(PhaseAwaitingDecision, ActionCancelAndProceed, e.cancelAndProceed)
	r.add(PhaseAwaitingDecision, ActionProceedWithoutCancel, e.proceedWithoutCancel)
	r.add(PhaseAwaitingDecision, ActionEditDetails, e.openEditDetails)
	r.add(PhaseAwaitingDecision, ActionDeny, e.openDeny)
	r.add(PhaseAwaitingDecision, ModalEditDetails, e.submitEditDetails)
	r.add(PhaseAwaitingDecision, ModalDeny, e.submitDeny)

	r.add(PhaseAwaitingRefund, ActionProcessRefund, e.processCalculatedRefund)
	r.add(PhaseAwaitingRefund, ActionCustomAmount, e.openCustomAmount)
	r.add(PhaseAwaitingRefund, ModalCustomAmount, e.submitCustomAmount)
	r.add(PhaseAwaitingRefund, ActionNoRefund, e.skipRefund)

	r.add(PhaseAwaitingRestock, ActionRestockVariant, e.restockVariant)
	r.add(PhaseAwaitingRestock, ActionNoRestock, e.skipRestock)

	return r
}

func (r *ActionRouter) add(p Phase, action string, fn transitionFunc) {
	key := routeKey{Phase: p, Action: action}
	if _, dup := r.routes[key]; dup {
		panic("duplicate transition registered: " + string(p) + "/" + action)
	}
	r.routes[key] = fn
}

// Dispatch looks up and runs the transition. Unknown (phase, action) pairs
// are logged and ignored; delivery order is not assumed to match the
// wall-clock order of the clicks behind it.
func (r *ActionRouter) Dispatch(ctx context.Context, ev messaging.InteractionEvent, cont Continuation) error {
	fn, ok := r.routes[routeKey{Phase: cont.Phase, Action: ev.ActionID}]
	if !ok {
		r.engine.logger.LogAttrs(ctx, slog.LevelWarn, "interaction dropped, no transition",
			slog.String("phase", string(cont.Phase)),
			slog.String("action", ev.ActionID),
			slog.String("message_ts", cont.MessageTS),
		)
		return nil
	}
	return fn(ctx, ev, cont)
}
