package orderstore

import (
	"context"
	"sync"
)

// Mock implements Adapter for tests. Call lists are recorded in order.
type Mock struct {
	mu sync.Mutex

	Orders       map[string]OrderSnapshot // keyed by normalized order number
	FetchErr     error
	RefundsErr   error
	CancelErr    error
	CreateErr    error
	RestockErr   error
	RefundsByID  map[string][]ExistingRefund // keyed by order id
	CancelCalls  []string
	RefundCalls  []CreateRefundInput
	RestockCalls [][2]string // order id, variant id
}

func NewMock() *Mock {
	return &Mock{
		Orders:      map[string]OrderSnapshot{},
		RefundsByID: map[string][]ExistingRefund{},
	}
}

func (m *Mock) FetchOrder(ctx context.Context, orderNumber string) (OrderSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FetchErr != nil {
		return OrderSnapshot{}, m.FetchErr
	}
	snap, ok := m.Orders[orderNumber]
	if !ok {
		return OrderSnapshot{}, ErrOrderNotFound
	}
	snap.Refunds = append([]ExistingRefund(nil), m.RefundsByID[snap.ID]...)
	return snap, nil
}

func (m *Mock) FindExistingRefunds(ctx context.Context, orderID string) ([]ExistingRefund, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RefundsErr != nil {
		return nil, m.RefundsErr
	}
	return append([]ExistingRefund(nil), m.RefundsByID[orderID]...), nil
}

func (m *Mock) CancelOrder(ctx context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CancelCalls = append(m.CancelCalls, orderID)
	return m.CancelErr
}

func (m *Mock) CreateRefund(ctx context.Context, in CreateRefundInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	// mirror the store's own idempotency: one refund per order
	if len(m.RefundsByID[in.OrderID]) > 0 {
		return ErrAlreadyRefunded
	}
	m.RefundCalls = append(m.RefundCalls, in)
	m.RefundsByID[in.OrderID] = append(m.RefundsByID[in.OrderID], ExistingRefund{
		ID:     "rf_" + in.OrderID,
		Status: RefundCompleted,
		Amount: in.Amount,
	})
	return nil
}

func (m *Mock) RestockVariant(ctx context.Context, orderID, variantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RestockErr != nil {
		return m.RestockErr
	}
	m.RestockCalls = append(m.RestockCalls, [2]string{orderID, variantID})
	return nil
}
