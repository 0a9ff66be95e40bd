package orderstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/config"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.OrderStoreConfig{
		BaseURL:     srv.URL,
		AccessToken: "test-token",
		Timeout:     2 * time.Second,
	}, nil)
}

func TestFetchOrder(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/by-number/1001", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":             "gid/1001",
			"number":         "1001",
			"customer_email": "pat@example.com",
			"total_paid":     "115.00",
		})
	}))

	snap, err := c.FetchOrder(context.Background(), "1001")
	require.NoError(t, err)
	assert.Equal(t, "gid/1001", snap.ID)
	assert.Equal(t, "115.00", snap.TotalPaid.StringFixed(2))
}

func TestFetchOrderNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))

	_, err := c.FetchOrder(context.Background(), "9999")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestFetchOrderRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "flaky", http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "gid/1001", "number": "1001"})
	}))

	snap, err := c.FetchOrder(context.Background(), "1001")
	require.NoError(t, err)
	assert.Equal(t, "gid/1001", snap.ID)
	assert.EqualValues(t, 3, calls.Load())
}

func TestFetchOrderGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))

	_, err := c.FetchOrder(context.Background(), "1001")
	assert.Error(t, err)
	assert.EqualValues(t, 3, calls.Load())
}

func TestCreateRefundIsNeverRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))

	err := c.CreateRefund(context.Background(), CreateRefundInput{
		OrderID: "gid/1001",
		Amount:  decimal.NewFromInt(90),
		Kind:    RefundKindRefund,
	})
	assert.Error(t, err)
	assert.EqualValues(t, 1, calls.Load(), "mutations must not be replayed")
}

func TestCreateRefundConflict(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "already refunded", http.StatusConflict)
	}))

	err := c.CreateRefund(context.Background(), CreateRefundInput{
		OrderID: "gid/1001",
		Amount:  decimal.NewFromInt(90),
		Kind:    RefundKindRefund,
	})
	assert.ErrorIs(t, err, ErrAlreadyRefunded)
}

func TestCreateRefundPayload(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/gid/1001/refunds", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))

	err := c.CreateRefund(context.Background(), CreateRefundInput{
		OrderID:        "gid/1001",
		Amount:         decimal.RequireFromString("42.5"),
		Kind:           RefundKindCredit,
		Note:           "approved via refunds workflow",
		IdempotencyKey: "key-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "42.50", got["amount"], "amount goes over the wire as a fixed-point string")
	assert.Equal(t, "store_credit", got["kind"])
	assert.Equal(t, "key-1", got["idempotency_key"])
}

func TestCancelOrderNeverRestocks(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, c.CancelOrder(context.Background(), "gid/1001"))
	assert.Equal(t, false, got["restock"])
}

func TestFindExistingRefunds(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/gid/1001/refunds", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"refunds": []map[string]any{
				{"id": "rf-1", "status": "pending", "amount": "90.00"},
			},
		})
	}))

	refunds, err := c.FindExistingRefunds(context.Background(), "gid/1001")
	require.NoError(t, err)
	require.Len(t, refunds, 1)
	assert.Equal(t, RefundPending, refunds[0].Status)
	assert.Equal(t, "90.00", refunds[0].Amount.StringFixed(2))
}
