package workflow

// Button action ids. The id names the transition; the button value carries
// the continuation.
const (
	ActionCancelAndProceed     = "cancel_and_proceed"
	ActionProceedWithoutCancel = "proceed_without_cancel"
	ActionEditDetails          = "edit_details"
	ActionDeny                 = "deny"

	ActionProcessRefund = "process_refund"
	ActionCustomAmount  = "custom_amount"
	ActionNoRefund      = "no_refund"

	ActionRestockVariant = "restock_variant"
	ActionNoRestock      = "no_restock"
)

// Modal callback ids, delivered as view submissions.
const (
	ModalEditDetails  = "modal_edit_details"
	ModalDeny         = "modal_deny"
	ModalCustomAmount = "modal_custom_amount"
)

// Modal input block ids.
const (
	FieldOrderNumber  = "order_number"
	FieldEmail        = "email"
	FieldDenialReason = "denial_reason"
	FieldCustomAmount = "custom_amount"
)
