package orderstore

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	// the store refuses a second refund on the same order
	ErrAlreadyRefunded = errors.New("order already refunded")
)

type RefundStatus string

const (
	RefundPending   RefundStatus = "pending"
	RefundCompleted RefundStatus = "completed"
)

type ExistingRefund struct {
	ID     string          `json:"id"`
	Status RefundStatus    `json:"status"`
	Amount decimal.Decimal `json:"amount"`
}

type Variant struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Available int    `json:"available"`
}

type LineItem struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	VariantID    string          `json:"variant_id"`
	VariantTitle string          `json:"variant_title"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
}

// SeasonInfo is the product metadata the refund schedule runs on. Start
// date or price can be missing when the product page was set up by hand;
// the calculator reports that as incomplete data rather than guessing.
type SeasonInfo struct {
	StartDate *time.Time  `json:"start_date,omitempty"`
	OffDates  []time.Time `json:"off_dates,omitempty"`
	Variants  []Variant   `json:"variants,omitempty"`
}

// OrderSnapshot is a point-in-time read of one order. It is never carried
// across workflow steps; every transition that needs current truth fetches
// a fresh one.
type OrderSnapshot struct {
	ID            string           `json:"id"`
	Number        string           `json:"number"`
	CustomerEmail string           `json:"customer_email"`
	TotalPaid     decimal.Decimal  `json:"total_paid"`
	CreatedAt     time.Time        `json:"created_at"`
	CancelledAt   *time.Time       `json:"cancelled_at,omitempty"`
	LineItems     []LineItem       `json:"line_items"`
	Season        SeasonInfo       `json:"season"`
	Refunds       []ExistingRefund `json:"refunds"`
}

type RefundKind string

const (
	RefundKindRefund RefundKind = "refund"
	RefundKindCredit RefundKind = "store_credit"
)

type CreateRefundInput struct {
	OrderID        string
	Amount         decimal.Decimal
	Kind           RefundKind
	Note           string
	IdempotencyKey string
}

// Adapter is the contract over the order store. Read calls may be retried
// on transient failure; the three mutations are issued exactly once per
// operator click.
type Adapter interface {
	FetchOrder(ctx context.Context, orderNumber string) (OrderSnapshot, error)
	FindExistingRefunds(ctx context.Context, orderID string) ([]ExistingRefund, error)
	CancelOrder(ctx context.Context, orderID string) error
	CreateRefund(ctx context.Context, in CreateRefundInput) error
	RestockVariant(ctx context.Context, orderID, variantID string) error
}
