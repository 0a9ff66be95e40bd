package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/intake"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/messaging"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/notifier"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/orderstore"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/refund"
)

// Engine drives the approval state machine. It holds no per-request state:
// every invocation reconstructs the workflow from the continuation payload
// plus a fresh order read.
type Engine struct {
	store   orderstore.Adapter
	guard   *refund.DuplicateGuard
	calc    *refund.Calculator
	gateway messaging.Gateway
	notify  *notifier.Notifier

	channelID string
	logger    *slog.Logger
	router    *ActionRouter
	now       func() time.Time
}

func NewEngine(
	store orderstore.Adapter,
	calc *refund.Calculator,
	gateway messaging.Gateway,
	notify *notifier.Notifier,
	channelID string,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		store:     store,
		guard:     refund.NewDuplicateGuard(store),
		calc:      calc,
		gateway:   gateway,
		notify:    notify,
		channelID: channelID,
		logger:    logger,
		now:       time.Now,
	}
	e.router = NewActionRouter(e)
	return e
}

type StartStatus string

const (
	StartAccepted      StartStatus = "accepted"
	StartOrderNotFound StartStatus = "order_not_found"
	StartEmailMismatch StartStatus = "email_mismatch"
	StartDuplicate     StartStatus = "duplicate"
)

type StartResult struct {
	Status    StartStatus
	MessageTS string
}

// StartRequest validates one form submission and posts the first rendered
// state to the approvals channel.
func (e *Engine) StartRequest(ctx context.Context, req intake.RefundRequest) (StartResult, error) {
	req = req.Normalize(e.now())

	_, msg, status, err := e.evaluateIntake(ctx, req)
	if err != nil {
		return StartResult{}, err
	}

	ts, perr := e.gateway.PostMessage(ctx, e.channelID, msg)
	if perr != nil {
		return StartResult{}, perr
	}

	if status == StartOrderNotFound {
		e.notify.OrderNotFound(ctx, req)
	}

	return StartResult{Status: status, MessageTS: ts}, nil
}

// evaluateIntake runs the intake checks and produces the first render.
// Shared by StartRequest (posts a new message) and the edit-details path
// (updates the existing one).
func (e *Engine) evaluateIntake(ctx context.Context, req intake.RefundRequest) (Continuation, messaging.Message, StartStatus, error) {
	cont := continuationFrom(req)

	snap, err := e.store.FetchOrder(ctx, req.OrderNumber)
	if err != nil {
		if errors.Is(err, orderstore.ErrOrderNotFound) {
			cont.Phase = PhaseErrored
			return cont, renderOrderNotFound(cont), StartOrderNotFound, nil
		}
		return Continuation{}, messaging.Message{}, "", err
	}
	cont.OrderID = snap.ID

	if verdict := refund.Classify(snap.Refunds); !verdict.Fresh() {
		cont.Phase = PhaseErrored
		return cont, renderDuplicate(cont, verdict), StartDuplicate, nil
	}

	if !strings.EqualFold(strings.TrimSpace(snap.CustomerEmail), req.Email) {
		cont.EmailMismatch = true
		cont.Phase = PhaseAwaitingDecision
		return cont, renderAwaitingDecision(cont), StartEmailMismatch, nil
	}

	calc, err := e.calc.Calculate(snap, req.SubmittedAt, req.RefundType)
	switch {
	case errors.Is(err, refund.ErrIncompleteProductData):
		// amount left empty; the approver uses the custom-amount path
	case err != nil:
		return Continuation{}, messaging.Message{}, "", err
	default:
		cont.AmountDue = calc.AmountDue.StringFixed(2)
		cont.TierLabel = calc.TierLabel
	}

	cont.Phase = PhaseAwaitingDecision
	return cont, renderAwaitingDecision(cont), StartAccepted, nil
}

// ApplyAction handles one inbound click or modal submit. Domain failures
// are rendered into the message; only infrastructure errors propagate.
func (e *Engine) ApplyAction(ctx context.Context, ev messaging.InteractionEvent) error {
	cont, err := Decode(ev.Value)
	if err != nil {
		return e.handleMalformed(ctx, ev, err)
	}

	if ev.Kind == "block_actions" {
		cont.ChannelID = ev.ChannelID
		cont.MessageTS = ev.MessageTS
	}
	if cont.ChannelID == "" || cont.MessageTS == "" {
		return e.handleMalformed(ctx, ev, ErrMalformedContinuation)
	}

	// replayed click against a finished flow: nothing runs, nothing moves
	if cont.Phase.Terminal() {
		e.logger.InfoContext(ctx, "interaction ignored, workflow terminal",
			"phase", cont.Phase, "action", ev.ActionID, "message_ts", cont.MessageTS)
		return nil
	}

	return e.router.Dispatch(ctx, ev, cont)
}

// handleMalformed fails closed: the message (when locatable) tells the
// operator to restart from a fresh request.
func (e *Engine) handleMalformed(ctx context.Context, ev messaging.InteractionEvent, err error) error {
	e.logger.ErrorContext(ctx, "malformed continuation", "action", ev.ActionID, "err", err)
	if ev.ChannelID != "" && ev.MessageTS != "" {
		msg := messaging.Message{Text: ":x: This message is from an older version of the refund flow and can't be resumed. Ask the requestor to submit the form again."}
		if uerr := e.gateway.UpdateMessage(ctx, ev.ChannelID, ev.MessageTS, msg); uerr != nil {
			e.logger.ErrorContext(ctx, "render malformed notice failed", "err", uerr)
		}
	}
	e.notify.OperatorAlert(ctx, "refund interaction carried a malformed continuation", err)
	return nil
}

// --- transitions out of AwaitingDecision ---

func (e *Engine) cancelAndProceed(ctx context.Context, ev messaging.InteractionEvent, cont Continuation) error {
	// Cancellation is fire-and-forget: a failed cancel is reported but
	// never blocks offering the refund.
	if err := e.store.CancelOrder(ctx, cont.OrderID); err != nil {
		e.logger.WarnContext(ctx, "order cancel failed", "order_id", cont.OrderID, "err", err)
		cont.CancelOutcome = "failed"
	} else {
		cont.CancelOutcome = "done"
	}
	cont.Phase = PhaseAwaitingRefund
	return e.update(ctx, cont, renderAwaitingRefund(cont, ""))
}

func (e *Engine) proceedWithoutCancel(ctx context.Context, ev messaging.InteractionEvent, cont Continuation) error {
	cont.CancelOutcome = "skipped"
	cont.Phase = PhaseAwaitingRefund
	return e.update(ctx, cont, renderAwaitingRefund(cont, ""))
}

func (e *Engine) openEditDetails(ctx context.Context, ev messaging.InteractionEvent, cont Continuation) error {
	return e.gateway.OpenModal(ctx, ev.TriggerID, editDetailsModal(cont))
}

func (e *Engine) openDeny(ctx context.Context, ev messaging.InteractionEvent, cont Continuation) error {
	return e.gateway.OpenModal(ctx, ev.TriggerID, denyModal(cont))
}

func (e *Engine) submitEditDetails(ctx context.Context, ev messaging.InteractionEvent, cont Continuation) error {
	req := cont.Request()
	if v := ev.FormValues[FieldOrderNumber]; v != "" {
		req.OrderNumber = v
	}
	if v := ev.FormValues[FieldEmail]; v != "" {
		req.Email = v
	}
	req = req.Normalize(e.now())

	// re-enters intake with corrected fields; notes and refund type ride
	// along unchanged
	newCont, msg, status, err := e.evaluateIntake(ctx, req)
	if err != nil {
		return e.renderFailure(ctx, cont, renderAwaitingDecision(cont))
	}
	newCont.ChannelID = cont.ChannelID
	newCont.MessageTS = cont.MessageTS

	if status == StartOrderNotFound {
		e.notify.OrderNotFound(ctx, req)
	}
	return e.update(ctx, newCont, msg)
}

func (e *Engine) submitDeny(ctx context.Context, ev messaging.InteractionEvent, cont Continuation) error {
	reason := strings.TrimSpace(ev.FormValues[FieldDenialReason])
	cont.Phase = PhaseDenied
	if err := e.update(ctx, cont, renderDenied(cont, reason)); err != nil {
		return err
	}
	e.notify.Denied(ctx, cont.Request(), reason)
	return nil
}

// --- transitions out of AwaitingRefundDecision ---

func (e *Engine) processCalculatedRefund(ctx context.Context, ev messaging.InteractionEvent, cont Continuation) error {
	if cont.AmountDue == "" {
		return e.update(ctx, cont, renderAwaitingRefund(cont, "no calculated amount on this request; use Custom Amount"))
	}
	amount, err := decimal.NewFromString(cont.AmountDue)
	if err != nil {
		return e.handleMalformed(ctx, ev, err)
	}
	return e.issueRefund(ctx, cont, amount)
}

func (e *Engine) openCustomAmount(ctx context.Context, ev messaging.InteractionEvent, cont Continuation) error {
	return e.gateway.OpenModal(ctx, ev.TriggerID, customAmountModal(cont))
}

func (e *Engine) submitCustomAmount(ctx context.Context, ev messaging.InteractionEvent, cont Continuation) error {
	raw := strings.TrimSpace(strings.TrimPrefix(ev.FormValues[FieldCustomAmount], "$"))
	amount, err := decimal.NewFromString(raw)
	if err != nil || !amount.IsPositive() {
		return e.update(ctx, cont, renderAwaitingRefund(cont, "custom amount must be a positive dollar value"))
	}
	return e.issueRefund(ctx, cont, amount.Round(2))
}

// issueRefund is the single money-moving path. It re-reads order truth and
// re-runs the duplicate guard immediately before the call; the store's own
// one-refund-per-order rule is the final race-breaker between two
// concurrent clicks.
func (e *Engine) issueRefund(ctx context.Context, cont Continuation, amount decimal.Decimal) error {
	snap, err := e.store.FetchOrder(ctx, cont.OrderNumber)
	if err != nil {
		return e.update(ctx, cont, renderAwaitingRefund(cont, "couldn't re-check the order before refunding"))
	}

	if verdict := refund.Classify(snap.Refunds); !verdict.Fresh() {
		cont.RefundOutcome = "already"
		cont.Phase = PhaseAwaitingRestock
		return e.update(ctx, cont, renderAwaitingRestock(cont, snap.Season.Variants, ""))
	}

	kind := orderstore.RefundKindRefund
	if cont.RefundType == intake.TypeCredit {
		kind = orderstore.RefundKindCredit
	}

	err = e.store.CreateRefund(ctx, orderstore.CreateRefundInput{
		OrderID:        cont.OrderID,
		Amount:         amount,
		Kind:           kind,
		Note:           "approved via refunds workflow",
		IdempotencyKey: uuid.NewString(),
	})
	switch {
	case errors.Is(err, orderstore.ErrAlreadyRefunded):
		// a concurrent click won; degrade to informational
		cont.RefundOutcome = "already"
	case err != nil:
		// same phase, failure visible, button stays live for retry
		e.logger.ErrorContext(ctx, "create refund failed", "order_id", cont.OrderID, "err", err)
		return e.update(ctx, cont, renderAwaitingRefund(cont, "order store rejected the call"))
	default:
		cont.RefundOutcome = "done"
		cont.RefundedWith = amount.StringFixed(2)
	}

	cont.Phase = PhaseAwaitingRestock
	return e.update(ctx, cont, renderAwaitingRestock(cont, snap.Season.Variants, ""))
}

func (e *Engine) skipRefund(ctx context.Context, ev messaging.InteractionEvent, cont Continuation) error {
	snap, err := e.store.FetchOrder(ctx, cont.OrderNumber)
	if err != nil {
		return e.update(ctx, cont, renderAwaitingRefund(cont, "couldn't re-check the order"))
	}
	cont.RefundOutcome = "skipped"
	cont.Phase = PhaseAwaitingRestock
	return e.update(ctx, cont, renderAwaitingRestock(cont, snap.Season.Variants, ""))
}

// --- transitions out of AwaitingRestockDecision ---

func (e *Engine) restockVariant(ctx context.Context, ev messaging.InteractionEvent, cont Continuation) error {
	if cont.VariantID == "" {
		return e.handleMalformed(ctx, ev, ErrMalformedContinuation)
	}

	if err := e.store.RestockVariant(ctx, cont.OrderID, cont.VariantID); err != nil {
		e.logger.ErrorContext(ctx, "restock failed", "order_id", cont.OrderID, "variant_id", cont.VariantID, "err", err)
		variants := []orderstore.Variant{{ID: cont.VariantID, Title: cont.VariantTitle}}
		if snap, ferr := e.store.FetchOrder(ctx, cont.OrderNumber); ferr == nil {
			variants = snap.Season.Variants
		}
		retry := cont
		retry.VariantID, retry.VariantTitle = "", ""
		return e.update(ctx, retry, renderAwaitingRestock(retry, variants, "inventory call failed"))
	}

	cont.Phase = PhaseCompleted
	return e.update(ctx, cont, renderCompleted(cont))
}

func (e *Engine) skipRestock(ctx context.Context, ev messaging.InteractionEvent, cont Continuation) error {
	cont.Phase = PhaseCompleted
	cont.VariantID, cont.VariantTitle = "", ""
	return e.update(ctx, cont, renderCompleted(cont))
}

// --- shared ---

func (e *Engine) update(ctx context.Context, cont Continuation, msg messaging.Message) error {
	if err := e.gateway.UpdateMessage(ctx, cont.ChannelID, cont.MessageTS, msg); err != nil {
		e.logger.ErrorContext(ctx, "message update failed", "channel", cont.ChannelID, "ts", cont.MessageTS, "err", err)
		return err
	}
	return nil
}

func (e *Engine) renderFailure(ctx context.Context, cont Continuation, msg messaging.Message) error {
	e.notify.OperatorAlert(ctx, "refund workflow hit an unexpected order store failure", nil)
	return e.update(ctx, cont, msg)
}
