package workflow

// Phase is where one request sits in the approval flow. Transitions only
// move forward along the DAG; the one exception is the edit-details path,
// which re-enters intake with corrected fields.
type Phase string

const (
	PhaseAwaitingDecision Phase = "awaiting_decision"
	PhaseAwaitingRefund   Phase = "awaiting_refund_decision"
	PhaseAwaitingRestock  Phase = "awaiting_restock_decision"
	PhaseDenied           Phase = "denied"
	PhaseCompleted        Phase = "completed"
	PhaseErrored          Phase = "errored"
)

// Terminal phases accept no further transitions; replayed clicks against
// them are no-ops with zero order store calls.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseDenied, PhaseCompleted, PhaseErrored:
		return true
	}
	return false
}
