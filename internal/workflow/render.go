package workflow

import (
	"fmt"
	"strings"

	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/messaging"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/orderstore"
	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/refund"
)

// Rendering is plain text plus buttons. Each render reflects exactly one
// phase; the buttons carry the continuation for the next one.

func renderHeader(c Continuation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s request* for order #%s\n", c.RefundType, c.OrderNumber)
	fmt.Fprintf(&b, "Requested by %s %s (%s)\n", c.FirstName, c.LastName, c.Email)
	if c.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", c.Notes)
	}
	return b.String()
}

func renderAwaitingDecision(c Continuation) messaging.Message {
	c.Phase = PhaseAwaitingDecision

	var b strings.Builder
	b.WriteString(renderHeader(c))

	if c.EmailMismatch {
		b.WriteString("\n:warning: The email on this request does not match the order. Confirm the requestor's identity before anything moves.\n")
		return messaging.Message{
			Text: b.String(),
			Buttons: []messaging.Button{
				{ActionID: ActionEditDetails, Label: "Edit Details", Value: c.Encode()},
				{ActionID: ActionDeny, Label: "Deny", Value: c.Encode(), Danger: true},
			},
		}
	}

	if c.AmountDue != "" {
		fmt.Fprintf(&b, "\nSchedule: %s → *$%s* owed as %s.\n", c.TierLabel, c.AmountDue, c.RefundType)
	} else {
		b.WriteString("\n:warning: Product data is incomplete (no season start date or paid amount); the amount must be entered by hand at the refund step.\n")
	}

	return messaging.Message{
		Text: b.String(),
		Buttons: []messaging.Button{
			{ActionID: ActionCancelAndProceed, Label: "Cancel Order & Proceed", Value: c.Encode()},
			{ActionID: ActionProceedWithoutCancel, Label: "Proceed Without Cancelling", Value: c.Encode()},
			{ActionID: ActionEditDetails, Label: "Edit Details", Value: c.Encode()},
			{ActionID: ActionDeny, Label: "Deny", Value: c.Encode(), Danger: true},
		},
	}
}

func renderAwaitingRefund(c Continuation, failure string) messaging.Message {
	c.Phase = PhaseAwaitingRefund

	var b strings.Builder
	b.WriteString(renderHeader(c))

	switch c.CancelOutcome {
	case "done":
		b.WriteString("\nOrder cancelled.\n")
	case "failed":
		b.WriteString("\n:warning: Order cancellation failed — refund can still proceed; cancel again in the store admin if needed.\n")
	case "skipped":
		b.WriteString("\nOrder left active (not cancelled).\n")
	}

	if failure != "" {
		fmt.Fprintf(&b, "\n:x: Refund attempt failed: %s. The buttons below stay live — retry when ready.\n", failure)
	}

	buttons := []messaging.Button{}
	if c.AmountDue != "" {
		buttons = append(buttons, messaging.Button{
			ActionID: ActionProcessRefund,
			Label:    fmt.Sprintf("Refund $%s", c.AmountDue),
			Value:    c.Encode(),
		})
		fmt.Fprintf(&b, "\nCalculated amount: *$%s* (%s).\n", c.AmountDue, c.TierLabel)
	} else {
		b.WriteString("\nNo calculated amount available — enter one manually.\n")
	}
	buttons = append(buttons,
		messaging.Button{ActionID: ActionCustomAmount, Label: "Custom Amount…", Value: c.Encode()},
		messaging.Button{ActionID: ActionNoRefund, Label: "No Refund", Value: c.Encode(), Danger: true},
	)

	return messaging.Message{Text: b.String(), Buttons: buttons}
}

func renderAwaitingRestock(c Continuation, variants []orderstore.Variant, failure string) messaging.Message {
	c.Phase = PhaseAwaitingRestock

	var b strings.Builder
	b.WriteString(renderHeader(c))
	b.WriteString("\n" + refundSummaryLine(c) + "\n")

	if failure != "" {
		fmt.Fprintf(&b, "\n:x: Restock attempt failed: %s. Retry below.\n", failure)
	}

	b.WriteString("\nRestock the spot back into inventory?\n")

	buttons := make([]messaging.Button, 0, len(variants)+1)
	for _, v := range variants {
		bc := c
		bc.VariantID = v.ID
		bc.VariantTitle = v.Title
		buttons = append(buttons, messaging.Button{
			ActionID: ActionRestockVariant,
			Label:    "Restock " + v.Title,
			Value:    bc.Encode(),
		})
	}
	buttons = append(buttons, messaging.Button{ActionID: ActionNoRestock, Label: "Don't Restock", Value: c.Encode()})

	return messaging.Message{Text: b.String(), Buttons: buttons}
}

func refundSummaryLine(c Continuation) string {
	switch c.RefundOutcome {
	case "done":
		return fmt.Sprintf("Refund issued: *$%s* as %s.", c.RefundedWith, c.RefundType)
	case "already":
		return "Order already has a refund on file — no second refund was issued."
	case "skipped":
		return "No refund issued."
	}
	return ""
}

func renderCompleted(c Continuation) messaging.Message {
	c.Phase = PhaseCompleted

	var b strings.Builder
	b.WriteString(renderHeader(c))
	b.WriteString("\n" + refundSummaryLine(c) + "\n")
	if c.VariantID != "" {
		fmt.Fprintf(&b, "Restocked: %s.\n", c.VariantTitle)
	} else {
		b.WriteString("Inventory left as-is.\n")
	}
	b.WriteString("\n:white_check_mark: *Done.*")

	return messaging.Message{Text: b.String()}
}

func renderDenied(c Continuation, reason string) messaging.Message {
	c.Phase = PhaseDenied

	var b strings.Builder
	b.WriteString(renderHeader(c))
	b.WriteString("\n:no_entry: *Denied.* The requestor has been emailed.")
	if reason != "" {
		fmt.Fprintf(&b, "\nNote sent: %s", reason)
	}
	return messaging.Message{Text: b.String()}
}

func renderOrderNotFound(c Continuation) messaging.Message {
	var b strings.Builder
	b.WriteString(renderHeader(c))
	fmt.Fprintf(&b, "\n:x: No order found with number #%s. The requestor has been emailed to double-check it.", c.OrderNumber)
	return messaging.Message{Text: b.String()}
}

func renderDuplicate(c Continuation, verdict refund.GuardVerdict) messaging.Message {
	var b strings.Builder
	b.WriteString(renderHeader(c))
	switch verdict.State {
	case refund.GuardPending:
		fmt.Fprintf(&b, "\n:information_source: Order #%s already has a *pending* refund of $%s. No second flow was started.", c.OrderNumber, verdict.Amount.StringFixed(2))
	case refund.GuardCompleted:
		fmt.Fprintf(&b, "\n:information_source: Order #%s was already refunded ($%s). No second flow was started.", c.OrderNumber, verdict.Amount.StringFixed(2))
	}
	return messaging.Message{Text: b.String()}
}

// --- modals ---

func editDetailsModal(c Continuation) messaging.ModalView {
	return messaging.ModalView{
		CallbackID:      ModalEditDetails,
		Title:           "Edit Request Details",
		SubmitLabel:     "Re-check",
		PrivateMetadata: c.Encode(),
		Fields: []messaging.ModalField{
			{BlockID: FieldOrderNumber, Label: "Order number", Initial: c.OrderNumber},
			{BlockID: FieldEmail, Label: "Requestor email", Initial: c.Email},
		},
	}
}

func denyModal(c Continuation) messaging.ModalView {
	return messaging.ModalView{
		CallbackID:      ModalDeny,
		Title:           "Deny Request",
		SubmitLabel:     "Deny",
		PrivateMetadata: c.Encode(),
		Fields: []messaging.ModalField{
			{BlockID: FieldDenialReason, Label: "Message to requestor (optional)", Optional: true, Multiline: true},
		},
	}
}

func customAmountModal(c Continuation) messaging.ModalView {
	return messaging.ModalView{
		CallbackID:      ModalCustomAmount,
		Title:           "Custom Refund Amount",
		SubmitLabel:     "Refund",
		PrivateMetadata: c.Encode(),
		Fields: []messaging.ModalField{
			{BlockID: FieldCustomAmount, Label: "Amount (USD)", Placeholder: "25.00"},
		},
	}
}
