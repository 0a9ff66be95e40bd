package orderstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/config"
)

// Client talks to the order store REST API. Base URL and token come from
// config at construction; nothing is read from package state per request.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(cfg config.OrderStoreConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.AccessToken,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

func (c *Client) FetchOrder(ctx context.Context, orderNumber string) (OrderSnapshot, error) {
	var snap OrderSnapshot
	err := c.getJSONRetry(ctx, "/orders/by-number/"+orderNumber, &snap)
	if err != nil {
		return OrderSnapshot{}, err
	}
	return snap, nil
}

func (c *Client) FindExistingRefunds(ctx context.Context, orderID string) ([]ExistingRefund, error) {
	var out struct {
		Refunds []ExistingRefund `json:"refunds"`
	}
	if err := c.getJSONRetry(ctx, "/orders/"+orderID+"/refunds", &out); err != nil {
		return nil, err
	}
	return out.Refunds, nil
}

func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	return c.postJSON(ctx, "/orders/"+orderID+"/cancel", map[string]any{
		"restock": false, // restocking is its own workflow step
	}, nil)
}

func (c *Client) CreateRefund(ctx context.Context, in CreateRefundInput) error {
	return c.postJSON(ctx, "/orders/"+in.OrderID+"/refunds", map[string]any{
		"amount":          in.Amount.StringFixed(2),
		"kind":            string(in.Kind),
		"note":            in.Note,
		"idempotency_key": in.IdempotencyKey,
	}, nil)
}

func (c *Client) RestockVariant(ctx context.Context, orderID, variantID string) error {
	return c.postJSON(ctx, "/orders/"+orderID+"/restock", map[string]any{
		"variant_id": variantID,
	}, nil)
}

// --- transport helpers ---

const (
	readAttempts = 3
	retryBackoff = 150 * time.Millisecond
)

// getJSONRetry retries transient failures. Only reads go through here;
// mutations must not be replayed blindly.
func (c *Client) getJSONRetry(ctx context.Context, path string, dst any) error {
	var lastErr error
	for i := 0; i < readAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i) * retryBackoff):
			}
		}
		lastErr = c.doJSON(ctx, http.MethodGet, path, nil, dst)
		if lastErr == nil {
			return nil
		}
		if !isTransient(lastErr) {
			return lastErr
		}
		c.logger.WarnContext(ctx, "order store read retry", "path", path, "attempt", i+1, "err", lastErr)
	}
	return lastErr
}

func (c *Client) postJSON(ctx context.Context, path string, body any, dst any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, dst)
}

type transientError struct{ err error }

func (t *transientError) Error() string { return t.err.Error() }
func (t *transientError) Unwrap() error { return t.err }

func isTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, dst any) error {
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &transientError{err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrOrderNotFound
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity:
		return ErrAlreadyRefunded
	case resp.StatusCode >= 500:
		return &transientError{err: fmt.Errorf("order store %s %s: status %d", method, path, resp.StatusCode)}
	case resp.StatusCode >= 400:
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("order store %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if dst == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
