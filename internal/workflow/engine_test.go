package workflow

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/intake"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/mailer"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/messaging"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/notifier"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/orderstore"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/refund"
)

const testChannel = "C-approvals"

type harness struct {
	engine  *Engine
	store   *orderstore.Mock
	gateway *messaging.MockGateway
	mail    *mailer.Mock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := orderstore.NewMock()
	gateway := &messaging.MockGateway{}
	mail := &mailer.Mock{}
	notify := notifier.New(mail, "BARS Refunds", "no-reply@example.com", "ops@example.com", logger)

	engine := NewEngine(store, refund.NewCalculator(refund.DefaultSchedule()), gateway, notify, testChannel, logger)
	engine.now = func() time.Time { return time.Date(2024, 10, 18, 12, 0, 0, 0, time.UTC) }
	return &harness{engine: engine, store: store, gateway: gateway, mail: mail}
}

// seedOrder installs a season starting two weeks from the frozen clock, so a
// fresh submission lands in the pre-season tier (90% refund / 95% credit).
func (h *harness) seedOrder() orderstore.OrderSnapshot {
	start := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)
	snap := orderstore.OrderSnapshot{
		ID:            "gid/1001",
		Number:        "1001",
		CustomerEmail: "pat@example.com",
		TotalPaid:     decimal.NewFromInt(100),
		Season: orderstore.SeasonInfo{
			StartDate: &start,
			Variants: []orderstore.Variant{
				{ID: "var-open", Title: "Open Division"},
				{ID: "var-wtnb", Title: "WTNB Division"},
			},
		},
	}
	h.store.Orders["1001"] = snap
	return snap
}

func sampleRequest() intake.RefundRequest {
	return intake.RefundRequest{
		OrderNumber: "#1001",
		FirstName:   "Pat",
		LastName:    "Tester",
		Email:       "pat@example.com",
		RefundType:  intake.TypeRefund,
		Notes:       "schedule conflict",
	}
}

func buttonValue(t *testing.T, msg messaging.Message, actionID string) string {
	t.Helper()
	for _, b := range msg.Buttons {
		if b.ActionID == actionID {
			return b.Value
		}
	}
	t.Fatalf("message has no %q button; got %v", actionID, buttonIDs(msg))
	return ""
}

func buttonIDs(msg messaging.Message) []string {
	ids := make([]string, 0, len(msg.Buttons))
	for _, b := range msg.Buttons {
		ids = append(ids, b.ActionID)
	}
	return ids
}

func click(actionID, value, channelID, messageTS string) messaging.InteractionEvent {
	return messaging.InteractionEvent{
		Kind:      "block_actions",
		ActionID:  actionID,
		Value:     value,
		ChannelID: channelID,
		MessageTS: messageTS,
		TriggerID: "trig-1",
		UserID:    "U-approver",
		ActionTS:  "1700000001.000001",
	}
}

// start submits the sample request and returns the posted message.
func (h *harness) start(t *testing.T) messaging.PostedMessage {
	t.Helper()
	res, err := h.engine.StartRequest(context.Background(), sampleRequest())
	require.NoError(t, err)
	require.Equal(t, StartAccepted, res.Status)
	require.Len(t, h.gateway.Posted, 1)
	return h.gateway.Posted[0]
}

func TestStartRequestAccepted(t *testing.T) {
	h := newHarness(t)
	h.seedOrder()

	posted := h.start(t)
	assert.Equal(t, testChannel, posted.ChannelID)
	assert.Contains(t, posted.Msg.Text, "$90.00")
	assert.Contains(t, posted.Msg.Text, "within 2 weeks of season start")
	assert.ElementsMatch(t, []string{
		ActionCancelAndProceed, ActionProceedWithoutCancel, ActionEditDetails, ActionDeny,
	}, buttonIDs(posted.Msg))
	assert.Empty(t, h.mail.Sent)
}

func TestStartRequestOrderNotFound(t *testing.T) {
	h := newHarness(t)

	res, err := h.engine.StartRequest(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, StartOrderNotFound, res.Status)

	require.Len(t, h.gateway.Posted, 1)
	assert.Contains(t, h.gateway.Posted[0].Msg.Text, "No order found")
	assert.Empty(t, h.gateway.Posted[0].Msg.Buttons)

	// requestor gets the double-check email
	require.Len(t, h.mail.Sent, 1)
	assert.Equal(t, []string{"pat@example.com"}, h.mail.Sent[0].To)
}

func TestStartRequestEmailMismatch(t *testing.T) {
	h := newHarness(t)
	h.seedOrder()

	req := sampleRequest()
	req.Email = "someone-else@example.com"
	res, err := h.engine.StartRequest(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, StartEmailMismatch, res.Status)

	msg := h.gateway.Posted[0].Msg
	assert.Contains(t, msg.Text, "does not match the order")
	// identity unconfirmed: no path that moves money or cancels
	assert.ElementsMatch(t, []string{ActionEditDetails, ActionDeny}, buttonIDs(msg))
}

func TestStartRequestDuplicate(t *testing.T) {
	h := newHarness(t)
	h.seedOrder()
	h.store.RefundsByID["gid/1001"] = []orderstore.ExistingRefund{
		{Status: orderstore.RefundPending, Amount: decimal.NewFromInt(90)},
	}

	res, err := h.engine.StartRequest(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, StartDuplicate, res.Status)

	msg := h.gateway.Posted[0].Msg
	assert.Contains(t, msg.Text, "pending")
	assert.Empty(t, msg.Buttons)
}

func TestStartRequestIncompleteProductData(t *testing.T) {
	h := newHarness(t)
	snap := h.seedOrder()
	snap.Season.StartDate = nil
	h.store.Orders["1001"] = snap

	posted := h.start(t)
	assert.Contains(t, posted.Msg.Text, "Product data is incomplete")
	// decision buttons still offered; amount comes later by hand
	assert.Contains(t, buttonIDs(posted.Msg), ActionCancelAndProceed)
}

func TestCancelAndProceed(t *testing.T) {
	h := newHarness(t)
	h.seedOrder()
	posted := h.start(t)

	ev := click(ActionCancelAndProceed, buttonValue(t, posted.Msg, ActionCancelAndProceed), posted.ChannelID, posted.TS)
	require.NoError(t, h.engine.ApplyAction(context.Background(), ev))

	assert.Equal(t, []string{"gid/1001"}, h.store.CancelCalls)
	upd, ok := h.gateway.LastUpdate()
	require.True(t, ok)
	assert.Equal(t, posted.TS, upd.TS)
	assert.Contains(t, upd.Msg.Text, "Order cancelled")
	assert.Contains(t, buttonIDs(upd.Msg), ActionProcessRefund)
}

func TestCancelFailureStillAdvances(t *testing.T) {
	h := newHarness(t)
	h.seedOrder()
	h.store.CancelErr = errors.New("store down")
	posted := h.start(t)

	ev := click(ActionCancelAndProceed, buttonValue(t, posted.Msg, ActionCancelAndProceed), posted.ChannelID, posted.TS)
	require.NoError(t, h.engine.ApplyAction(context.Background(), ev))

	upd, ok := h.gateway.LastUpdate()
	require.True(t, ok)
	assert.Contains(t, upd.Msg.Text, "cancellation failed")
	// refund buttons are offered despite the failed cancel
	assert.Contains(t, buttonIDs(upd.Msg), ActionProcessRefund)
	assert.Contains(t, buttonIDs(upd.Msg), ActionNoRefund)
}

// advanceToRefund walks a started flow through cancel-and-proceed and
// returns the awaiting-refund render.
func (h *harness) advanceToRefund(t *testing.T) messaging.PostedMessage {
	t.Helper()
	posted := h.start(t)
	ev := click(ActionCancelAndProceed, buttonValue(t, posted.Msg, ActionCancelAndProceed), posted.ChannelID, posted.TS)
	require.NoError(t, h.engine.ApplyAction(context.Background(), ev))
	upd, ok := h.gateway.LastUpdate()
	require.True(t, ok)
	return upd
}

func TestProcessRefundHappyPath(t *testing.T) {
	h := newHarness(t)
	h.seedOrder()
	upd := h.advanceToRefund(t)

	ev := click(ActionProcessRefund, buttonValue(t, upd.Msg, ActionProcessRefund), upd.ChannelID, upd.TS)
	require.NoError(t, h.engine.ApplyAction(context.Background(), ev))

	require.Len(t, h.store.RefundCalls, 1)
	call := h.store.RefundCalls[0]
	assert.Equal(t, "gid/1001", call.OrderID)
	assert.Equal(t, "90.00", call.Amount.StringFixed(2))
	assert.Equal(t, orderstore.RefundKindRefund, call.Kind)
	assert.NotEmpty(t, call.IdempotencyKey)

	restock, ok := h.gateway.LastUpdate()
	require.True(t, ok)
	assert.Contains(t, restock.Msg.Text, "Refund issued: *$90.00*")
	assert.Contains(t, buttonIDs(restock.Msg), ActionRestockVariant)
	assert.Contains(t, buttonIDs(restock.Msg), ActionNoRestock)
}

func TestProcessRefundStoreFailureStaysRetryable(t *testing.T) {
	h := newHarness(t)
	h.seedOrder()
	upd := h.advanceToRefund(t)
	h.store.CreateErr = errors.New("502 from store")

	ev := click(ActionProcessRefund, buttonValue(t, upd.Msg, ActionProcessRefund), upd.ChannelID, upd.TS)
	require.NoError(t, h.engine.ApplyAction(context.Background(), ev))

	assert.Empty(t, h.store.RefundCalls)
	failed, ok := h.gateway.LastUpdate()
	require.True(t, ok)
	assert.Contains(t, failed.Msg.Text, "Refund attempt failed")
	// same phase, button still live
	assert.Contains(t, buttonIDs(failed.Msg), ActionProcessRefund)

	// retry succeeds once the store recovers
	h.store.CreateErr = nil
	retry := click(ActionProcessRefund, buttonValue(t, failed.Msg, ActionProcessRefund), failed.ChannelID, failed.TS)
	require.NoError(t, h.engine.ApplyAction(context.Background(), retry))
	assert.Len(t, h.store.RefundCalls, 1)
}

func TestSecondRefundClickDegradesToInformational(t *testing.T) {
	h := newHarness(t)
	h.seedOrder()
	upd := h.advanceToRefund(t)

	ev := click(ActionProcessRefund, buttonValue(t, upd.Msg, ActionProcessRefund), upd.ChannelID, upd.TS)
	require.NoError(t, h.engine.ApplyAction(context.Background(), ev))
	require.Len(t, h.store.RefundCalls, 1)

	// a delayed duplicate delivery of the same click
	require.NoError(t, h.engine.ApplyAction(context.Background(), ev))
	assert.Len(t, h.store.RefundCalls, 1, "no second refund issued")

	last, ok := h.gateway.LastUpdate()
	require.True(t, ok)
	assert.Contains(t, last.Msg.Text, "already has a refund on file")
}

func TestRefundBlockedByPendingRefund(t *testing.T) {
	h := newHarness(t)
	h.seedOrder()
	upd := h.advanceToRefund(t)

	// another flow got there first between render and click
	h.store.RefundsByID["gid/1001"] = []orderstore.ExistingRefund{
		{Status: orderstore.RefundPending, Amount: decimal.NewFromInt(90)},
	}

	ev := click(ActionProcessRefund, buttonValue(t, upd.Msg, ActionProcessRefund), upd.ChannelID, upd.TS)
	require.NoError(t, h.engine.ApplyAction(context.Background(), ev))

	assert.Empty(t, h.store.RefundCalls)
	last, ok := h.gateway.LastUpdate()
	require.True(t, ok)
	assert.Contains(t, last.Msg.Text, "already has a refund on file")
}

func TestRestockVariantCompletes(t *testing.T) {
	h := newHarness(t)
	h.seedOrder()
	upd := h.advanceToRefund(t)

	ev := click(ActionProcessRefund, buttonValue(t, upd.Msg, ActionProcessRefund), upd.ChannelID, upd.TS)
	require.NoError(t, h.engine.ApplyAction(context.Background(), ev))
	restock, _ := h.gateway.LastUpdate()

	// pick the WTNB button specifically
	var wtnbValue string
	for _, b := range restock.Msg.Buttons {
		if b.ActionID == ActionRestockVariant && strings.Contains(b.Label, "WTNB") {
			wtnbValue = b.Value
		}
	}
	require.NotEmpty(t, wtnbValue)

	ev = click(ActionRestockVariant, wtnbValue, restock.ChannelID, restock.TS)
	require.NoError(t, h.engine.ApplyAction(context.Background(), ev))

	require.Len(t, h.store.RestockCalls, 1)
	assert.Equal(t, [2]string{"gid/1001", "var-wtnb"}, h.store.RestockCalls[0])

	done, ok := h.gateway.LastUpdate()
	require.True(t, ok)
	assert.Contains(t, done.Msg.Text, "Restocked: WTNB Division")
	assert.Contains(t, done.Msg.Text, "Done")
	assert.Empty(t, done.Msg.Buttons)
}

func TestRestockFailureRetries(t *testing.T) {
	h := newHarness(t)
	h.seedOrder()
	upd := h.advanceToRefund(t)

	ev := click(ActionProcessRefund, buttonValue(t, upd.Msg, ActionProcessRefund), upd.ChannelID, upd.TS)
	require.NoError(t, h.engine.ApplyAction(context.Background(), ev))
	restock, _ := h.gateway.LastUpdate()

	h.store.RestockErr = errors.New("inventory api down")
	ev = click(ActionRestockVariant, buttonValue(t, restock.Msg, ActionRestockVariant), restock.ChannelID, restock.TS)
	require.NoError(t, h.engine.ApplyAction(context.Background(), ev))

	failed, ok := h.gateway.LastUpdate()
	require.True(t, ok)
	assert.Contains(t, failed.Msg.Text, "Restock attempt failed")
	assert.Contains(t, buttonIDs(failed.Msg), ActionRestockVariant)
}

func TestSkipRefundAndSkipRestock(t *testing.T) {
	h := newHarness(t)
	h.seedOrder()
	upd := h.advanceToRefund(t)

	ev := click(ActionNoRefund, buttonValue(t, upd.Msg, ActionNoRefund), upd.ChannelID, upd.TS)
	require.NoError(t, h.engine.ApplyAction(context.Background(), ev))
	assert.Empty(t, h.store.RefundCalls)

	restock, _ := h.gateway.LastUpdate()
	assert.Contains(t, restock.Msg.Text, "No refund issued")

	ev = click(ActionNoRestock, buttonValue(t, restock.Msg, ActionNoRestock), restock.ChannelID, restock.TS)
	require.NoError(t, h.engine.ApplyAction(context.Background(), ev))
	assert.Empty(t, h.store.RestockCalls)

	done, _ := h.gateway.LastUpdate()
	assert.Contains(t, done.Msg.Text, "Inventory left as-is")
	assert.Empty(t, done.Msg.Buttons)
}

func TestTerminalClickIsNoOp(t *testing.T) {
	h := newHarness(t)
	h.seedOrder()

	cont := continuationFrom(sampleRequest().Normalize(h.engine.now()))
	cont.OrderID = "gid/1001"
	cont.Phase = PhaseCompleted
	cont.ChannelID = testChannel
	cont.MessageTS = "1700000000.000001"

	ev := click(ActionProcessRefund, cont.Encode(), cont.ChannelID, cont.MessageTS)
	require.NoError(t, h.engine.ApplyAction(context.Background(), ev))

	assert.Empty(t, h.store.RefundCalls)
	assert.Empty(t, h.store.CancelCalls)
	assert.Empty(t, h.store.RestockCalls)
	assert.Empty(t, h.gateway.Updated)
}

func TestStaleActionForWrongPhaseDropped(t *testing.T) {
	h := newHarness(t)
	h.seedOrder()
	posted := h.start(t)

	// a restock click can't arrive while the flow awaits the first decision
	ev := click(ActionRestockVariant, buttonValue(t, posted.Msg, ActionDeny), posted.ChannelID, posted.TS)
	require.NoError(t, h.engine.ApplyAction(context.Background(), ev))
	assert.Empty(t, h.store.RestockCalls)
	assert.Empty(t, h.gateway.Updated)
}

func TestMalformedContinuationFailsClosed(t *testing.T) {
	h := newHarness(t)
	h.seedOrder()

	ev := click(ActionProcessRefund, `{"v":99}`, testChannel, "1700000000.000001")
	require.NoError(t, h.engine.ApplyAction(context.Background(), ev))

	assert.Empty(t, h.store.RefundCalls)
	upd, ok := h.gateway.LastUpdate()
	require.True(t, ok)
	assert.Contains(t, upd.Msg.Text, "can't be resumed")

	// operator alert went out
	require.NotEmpty(t, h.mail.Sent)
	assert.Equal(t, []string{"ops@example.com"}, h.mail.Sent[0].To)
}

func TestDenyFlow(t *testing.T) {
	h := newHarness(t)
	h.seedOrder()
	posted := h.start(t)

	ev := click(ActionDeny, buttonValue(t, posted.Msg, ActionDeny), posted.ChannelID, posted.TS)
	require.NoError(t, h.engine.ApplyAction(context.Background(), ev))

	require.Len(t, h.gateway.Modals, 1)
	modal := h.gateway.Modals[0]
	assert.Equal(t, ModalDeny, modal.View.CallbackID)

	submit := messaging.InteractionEvent{
		Kind:       "view_submission",
		ActionID:   ModalDeny,
		Value:      modal.View.PrivateMetadata,
		TriggerID:  "trig-2",
		ActionTS:   "trig-2",
		FormValues: map[string]string{FieldDenialReason: "season already underway"},
	}
	require.NoError(t, h.engine.ApplyAction(context.Background(), submit))

	upd, ok := h.gateway.LastUpdate()
	require.True(t, ok)
	assert.Equal(t, posted.TS, upd.TS)
	assert.Contains(t, upd.Msg.Text, "Denied")
	assert.Contains(t, upd.Msg.Text, "season already underway")
	assert.Empty(t, upd.Msg.Buttons)

	require.Len(t, h.mail.Sent, 1)
	assert.Equal(t, []string{"pat@example.com"}, h.mail.Sent[0].To)
	assert.Contains(t, h.mail.Sent[0].TextBody, "season already underway")

	// nothing moved
	assert.Empty(t, h.store.RefundCalls)
	assert.Empty(t, h.store.CancelCalls)
}

func TestEditDetailsResubmits(t *testing.T) {
	h := newHarness(t)
	h.seedOrder()

	// requestor typo'd the email; approver fixes it in the modal
	req := sampleRequest()
	req.Email = "pta@example.com"
	_, err := h.engine.StartRequest(context.Background(), req)
	require.NoError(t, err)
	posted := h.gateway.Posted[0]
	assert.Contains(t, posted.Msg.Text, "does not match")

	ev := click(ActionEditDetails, buttonValue(t, posted.Msg, ActionEditDetails), posted.ChannelID, posted.TS)
	require.NoError(t, h.engine.ApplyAction(context.Background(), ev))
	require.Len(t, h.gateway.Modals, 1)
	modal := h.gateway.Modals[0]
	assert.Equal(t, ModalEditDetails, modal.View.CallbackID)

	submit := messaging.InteractionEvent{
		Kind:     "view_submission",
		ActionID: ModalEditDetails,
		Value:    modal.View.PrivateMetadata,
		ActionTS: "trig-3",
		FormValues: map[string]string{
			FieldOrderNumber: "#1001",
			FieldEmail:       "pat@example.com",
		},
	}
	require.NoError(t, h.engine.ApplyAction(context.Background(), submit))

	upd, ok := h.gateway.LastUpdate()
	require.True(t, ok)
	assert.Equal(t, posted.TS, upd.TS, "same message updated in place")
	assert.NotContains(t, upd.Msg.Text, "does not match")
	assert.Contains(t, buttonIDs(upd.Msg), ActionCancelAndProceed)
	// notes carried through the re-check
	assert.Contains(t, upd.Msg.Text, "schedule conflict")
}

func TestCustomAmountSubmit(t *testing.T) {
	h := newHarness(t)
	h.seedOrder()
	upd := h.advanceToRefund(t)

	ev := click(ActionCustomAmount, buttonValue(t, upd.Msg, ActionCustomAmount), upd.ChannelID, upd.TS)
	require.NoError(t, h.engine.ApplyAction(context.Background(), ev))
	require.Len(t, h.gateway.Modals, 1)
	modal := h.gateway.Modals[0]

	submit := messaging.InteractionEvent{
		Kind:       "view_submission",
		ActionID:   ModalCustomAmount,
		Value:      modal.View.PrivateMetadata,
		ActionTS:   "trig-4",
		FormValues: map[string]string{FieldCustomAmount: "$42.50"},
	}
	require.NoError(t, h.engine.ApplyAction(context.Background(), submit))

	require.Len(t, h.store.RefundCalls, 1)
	assert.Equal(t, "42.50", h.store.RefundCalls[0].Amount.StringFixed(2))
}

func TestCustomAmountRejectsGarbage(t *testing.T) {
	h := newHarness(t)
	h.seedOrder()
	upd := h.advanceToRefund(t)

	ev := click(ActionCustomAmount, buttonValue(t, upd.Msg, ActionCustomAmount), upd.ChannelID, upd.TS)
	require.NoError(t, h.engine.ApplyAction(context.Background(), ev))
	modal := h.gateway.Modals[0]

	for _, bad := range []string{"abc", "-5", "0"} {
		submit := messaging.InteractionEvent{
			Kind:       "view_submission",
			ActionID:   ModalCustomAmount,
			Value:      modal.View.PrivateMetadata,
			ActionTS:   "trig-5",
			FormValues: map[string]string{FieldCustomAmount: bad},
		}
		require.NoError(t, h.engine.ApplyAction(context.Background(), submit))
	}
	assert.Empty(t, h.store.RefundCalls)

	last, ok := h.gateway.LastUpdate()
	require.True(t, ok)
	assert.Contains(t, last.Msg.Text, "positive dollar value")
}

func TestCreditRequestUsesCreditKindAndRate(t *testing.T) {
	h := newHarness(t)
	h.seedOrder()

	req := sampleRequest()
	req.RefundType = intake.TypeCredit
	_, err := h.engine.StartRequest(context.Background(), req)
	require.NoError(t, err)
	posted := h.gateway.Posted[0]
	assert.Contains(t, posted.Msg.Text, "$95.00")

	ev := click(ActionProceedWithoutCancel, buttonValue(t, posted.Msg, ActionProceedWithoutCancel), posted.ChannelID, posted.TS)
	require.NoError(t, h.engine.ApplyAction(context.Background(), ev))
	assert.Empty(t, h.store.CancelCalls)

	upd, _ := h.gateway.LastUpdate()
	ev = click(ActionProcessRefund, buttonValue(t, upd.Msg, ActionProcessRefund), upd.ChannelID, upd.TS)
	require.NoError(t, h.engine.ApplyAction(context.Background(), ev))

	require.Len(t, h.store.RefundCalls, 1)
	assert.Equal(t, orderstore.RefundKindCredit, h.store.RefundCalls[0].Kind)
	assert.Equal(t, "95.00", h.store.RefundCalls[0].Amount.StringFixed(2))
}
