package payment

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

var _ Gateway = (*Client)(nil)

// ClientConfig configures the gateway REST client.
type ClientConfig struct {
	// BaseURL is the gateway API root, e.g. https://api.flutterwave.com/v3.
	BaseURL string
	// SecretKey authenticates merchant API calls (Bearer token).
	SecretKey string
	// HTTPClient is optional; http.DefaultClient is used when nil.
	HTTPClient *http.Client
}

// Client talks to the gateway's REST API.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client
}

// NewClient creates a gateway client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: cfg.BaseURL,
		secret:  cfg.SecretKey,
		http:    httpClient,
	}
}

// InitiateCharge creates a hosted payment session and returns the checkout
// link the customer is sent to.
func (c *Client) InitiateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	e := &jx.Encoder{}
	e.Obj(func(e *jx.Encoder) {
		e.Field("tx_ref", func(e *jx.Encoder) { e.Str(req.TxRef) })
		e.Field("amount", func(e *jx.Encoder) { e.Str(req.Amount.StringFixed(2)) })
		e.Field("currency", func(e *jx.Encoder) { e.Str(req.Currency) })
		e.Field("redirect_url", func(e *jx.Encoder) { e.Str(req.RedirectURL) })
		e.Field("customer", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("email", func(e *jx.Encoder) { e.Str(req.CustomerEmail) })
				e.Field("phonenumber", func(e *jx.Encoder) { e.Str(req.CustomerPhone) })
				e.Field("name", func(e *jx.Encoder) { e.Str(req.CustomerName) })
			})
		})
	})

	body, err := c.post(ctx, "/payments", e.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, "initiate charge")
	}

	charge := &Charge{TxRef: req.TxRef}
	status := ""
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "status":
			v, err := d.Str()
			status = v
			return err
		case "data":
			return d.Obj(func(d *jx.Decoder, key string) error {
				if key == "link" {
					v, err := d.Str()
					charge.PaymentLink = v
					return err
				}
				return d.Skip()
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrap(err, "decode charge response")
	}

	if status != "success" || charge.PaymentLink == "" {
		return nil, errors.Errorf("gateway rejected charge %s: status %q", req.TxRef, status)
	}
	return charge, nil
}

// VerifyTransaction looks up a transaction by merchant reference. This is the
// authoritative payment check: callers act on the returned status, never on
// a client-side belief.
func (c *Client) VerifyTransaction(ctx context.Context, txRef string) (*Transaction, error) {
	endpoint := "/transactions/verify_by_reference?tx_ref=" + url.QueryEscape(txRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build verify request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "verify transaction")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrTransactionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("verify transaction %s: unexpected status %d", txRef, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read verify response")
	}
	return decodeTransaction(body)
}

func decodeTransaction(body []byte) (*Transaction, error) {
	tx := &Transaction{}
	status := ""
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "status":
			v, err := d.Str()
			status = v
			return err
		case "data":
			return d.Obj(func(d *jx.Decoder, key string) error {
				switch key {
				case "id":
					v, err := d.Int64()
					tx.ID = v
					return err
				case "tx_ref":
					v, err := d.Str()
					tx.TxRef = v
					return err
				case "amount":
					num, err := d.Num()
					if err != nil {
						return err
					}
					amount, err := decimal.NewFromString(num.String())
					if err != nil {
						return errors.Wrap(err, "parse amount")
					}
					tx.Amount = amount
					return nil
				case "currency":
					v, err := d.Str()
					tx.Currency = v
					return err
				case "status":
					v, err := d.Str()
					tx.Status = v
					return err
				default:
					return d.Skip()
				}
			})
		default:
			return d.Skip()
		}
	}); err != nil {
		return nil, errors.Wrap(err, "decode transaction")
	}

	if status != "success" {
		return nil, ErrTransactionNotFound
	}
	return tx, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
