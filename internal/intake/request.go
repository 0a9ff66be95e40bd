package intake

import (
	"strings"
	"time"
)

type RefundType string

const (
	TypeRefund RefundType = "refund"
	TypeCredit RefundType = "credit"
)

func (t RefundType) Valid() bool {
	return t == TypeRefund || t == TypeCredit
}

// RefundRequest is the normalized shape of one form submission.
type RefundRequest struct {
	OrderNumber string     `json:"order_number"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Email       string     `json:"email"`
	RefundType  RefundType `json:"refund_type"`
	Notes       string     `json:"notes,omitempty"`
	SheetLink   string     `json:"sheet_link,omitempty"`
	SubmittedAt time.Time  `json:"submitted_at"`
}

// Normalize returns a copy with canonical field values. Safe to call more
// than once.
func (r RefundRequest) Normalize(now time.Time) RefundRequest {
	out := r
	out.OrderNumber = NormalizeOrderNumber(r.OrderNumber)
	out.Email = strings.ToLower(strings.TrimSpace(r.Email))
	out.FirstName = strings.TrimSpace(r.FirstName)
	out.LastName = strings.TrimSpace(r.LastName)
	out.Notes = strings.TrimSpace(r.Notes)
	if out.SubmittedAt.IsZero() {
		out.SubmittedAt = now
	}
	return out
}

// NormalizeOrderNumber canonicalizes a raw order number as typed into the
// form: whitespace trimmed, leading '#' signs stripped. Idempotent, so a
// value that went through normalization once comes back unchanged.
func NormalizeOrderNumber(raw string) string {
	s := strings.TrimSpace(raw)
	for strings.HasPrefix(s, "#") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "#"))
	}
	return s
}
