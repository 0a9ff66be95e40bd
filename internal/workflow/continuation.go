package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/intake"
)

var ErrMalformedContinuation = errors.New("malformed continuation")

// continuationVersion is bumped whenever the payload shape changes in a
// way an older message can't satisfy. A payload from an older shape fails
// closed instead of reading stale fields.
const continuationVersion = 1

// Continuation is the state fragment serialized into every rendered
// control. The engine is stateless between events: the next click carries
// everything forward, and order truth is refetched from the store.
type Continuation struct {
	V     int   `json:"v"`
	Phase Phase `json:"p"`

	// message locator; filled from the event envelope for button clicks,
	// stamped into modal metadata at open time for view submissions
	ChannelID string `json:"ch,omitempty"`
	MessageTS string `json:"ts,omitempty"`

	OrderID     string `json:"oid"`
	OrderNumber string `json:"onum"`

	FirstName   string            `json:"fn"`
	LastName    string            `json:"ln"`
	Email       string            `json:"em"`
	RefundType  intake.RefundType `json:"rt"`
	Notes       string            `json:"nt,omitempty"`
	SubmittedAt time.Time         `json:"sub"`

	// calculation result; empty amount means incomplete product data and
	// only the custom-amount path is offered
	AmountDue string `json:"amt,omitempty"`
	TierLabel string `json:"tier,omitempty"`

	// identity not yet confirmed: only edit/deny are rendered
	EmailMismatch bool `json:"mm,omitempty"`

	// outcomes recorded as the flow advances, echoed into later renders
	CancelOutcome string `json:"co,omitempty"` // done|failed|skipped
	RefundOutcome string `json:"ro,omitempty"` // done|already|skipped
	RefundedWith  string `json:"ra,omitempty"` // amount actually refunded

	// set per restock button so the submit knows which variant
	VariantID    string `json:"vid,omitempty"`
	VariantTitle string `json:"vtl,omitempty"`
}

func (c Continuation) Encode() string {
	c.V = continuationVersion
	raw, err := json.Marshal(c)
	if err != nil {
		// Continuation is a plain value type; Marshal cannot fail on it.
		panic(err)
	}
	return string(raw)
}

// Decode parses and version-checks a continuation payload. Round-trip is
// lossless for every field a later phase consults.
func Decode(payload string) (Continuation, error) {
	if payload == "" {
		return Continuation{}, fmt.Errorf("%w: empty payload", ErrMalformedContinuation)
	}
	var c Continuation
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return Continuation{}, fmt.Errorf("%w: %v", ErrMalformedContinuation, err)
	}
	if c.V != continuationVersion {
		return Continuation{}, fmt.Errorf("%w: version %d, want %d", ErrMalformedContinuation, c.V, continuationVersion)
	}
	return c, nil
}

// Request reconstructs the intake request the flow started from.
func (c Continuation) Request() intake.RefundRequest {
	return intake.RefundRequest{
		OrderNumber: c.OrderNumber,
		FirstName:   c.FirstName,
		LastName:    c.LastName,
		Email:       c.Email,
		RefundType:  c.RefundType,
		Notes:       c.Notes,
		SubmittedAt: c.SubmittedAt,
	}
}

func continuationFrom(req intake.RefundRequest) Continuation {
	return Continuation{
		OrderNumber: req.OrderNumber,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		RefundType:  req.RefundType,
		Notes:       req.Notes,
		SubmittedAt: req.SubmittedAt,
	}
}
