// Package track reads authoritative order state by public tracking
// reference and reconciles it against locally-held beliefs.
package track

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/savourly/orderflow/internal/domain/order"
)

// NotFoundError is the terminal "not found" outcome of a tracking lookup.
// It carries the backend's raw reason and is never retried automatically:
// the reference itself is what the customer corrects.
type NotFoundError struct {
	Reference string
	Reason    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("order %s not found: %s", e.Reference, e.Reason)
}

// OrderView is the tracked order as reported by the backend. Totals are
// pointers because older backends omit them; see Result.Totals.
type OrderView struct {
	Reference        string              `json:"orderReference"`
	Status           order.Status        `json:"status"`
	PaymentStatus    order.PaymentStatus `json:"paymentStatus"`
	Items            []order.Item        `json:"items"`
	Subtotal         *decimal.Decimal    `json:"subtotal"`
	DeliveryFee      *decimal.Decimal    `json:"deliveryFee"`
	Total            *decimal.Decimal    `json:"total"`
	DeliveryLocation string              `json:"deliveryLocation"`
	FullAddress      string              `json:"fullAddress,omitempty"`
	ContactPhone     string              `json:"contactPhone"`
	CreatedAt        time.Time           `json:"createdAt"`
}

// Totals is the displayed money summary of a tracked order.
type Totals struct {
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
}

// Result is a successful tracking lookup.
type Result struct {
	Order *OrderView
}

// Totals returns the order's money summary. The server value always wins;
// the locally-supplied fallback fills in only what the server omitted.
func (r *Result) Totals(fallback Totals) Totals {
	t := fallback
	if r.Order.Subtotal != nil {
		t.Subtotal = *r.Order.Subtotal
	}
	if r.Order.DeliveryFee != nil {
		t.DeliveryFee = *r.Order.DeliveryFee
	}
	if r.Order.Total != nil {
		t.Total = *r.Order.Total
	}
	return t
}

// StatusResult is the payment-status check used by the confirmation poller.
type StatusResult struct {
	Status        order.Status        `json:"status"`
	PaymentStatus order.PaymentStatus `json:"paymentStatus"`
}

// envelope is the backend's response shape for status/track reads.
type envelope struct {
	Success bool            `json:"success"`
	Order   json.RawMessage `json:"order"`
	Error   string          `json:"error"`
}

// Client queries the public status and tracking endpoints. No authentication
// is required for either.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a tracking client for the given API base URL, e.g.
// https://orders.example.com/api.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// Track fetches the authoritative order state for a tracking reference.
// Failures are terminal: the caller re-enters the reference, nothing is
// retried automatically.
func (c *Client) Track(ctx context.Context, reference string) (*Result, error) {
	endpoint := c.baseURL + "/order/track?reference=" + url.QueryEscape(reference)
	env, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "track %s", reference)
	}
	if !env.Success {
		return nil, &NotFoundError{Reference: reference, Reason: env.Error}
	}

	var view OrderView
	if err := json.Unmarshal(env.Order, &view); err != nil {
		return nil, errors.Wrap(err, "decode order")
	}
	return &Result{Order: &view}, nil
}

// CheckStatus fetches the current fulfillment and payment status by order
// id. This is the poller's status source.
func (c *Client) CheckStatus(ctx context.Context, orderID string) (*StatusResult, error) {
	endpoint := c.baseURL + "/orders/" + url.PathEscape(orderID) + "/status"
	env, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "check status %s", orderID)
	}
	if !env.Success {
		return nil, &NotFoundError{Reference: orderID, Reason: env.Error}
	}

	var status StatusResult
	if err := json.Unmarshal(env.Order, &status); err != nil {
		return nil, errors.Wrap(err, "decode status")
	}
	return &status, nil
}

func (c *Client) get(ctx context.Context, endpoint string) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, errors.Wrap(err, "decode response")
	}
	return &env, nil
}
