package payment

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGateway(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{
		BaseURL:    srv.URL,
		SecretKey:  "sk_test_secret",
		HTTPClient: srv.Client(),
	})
}

func TestInitiateCharge(t *testing.T) {
	client := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payments", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var req struct {
			TxRef    string `json:"tx_ref"`
			Amount   string `json:"amount"`
			Currency string `json:"currency"`
			Redirect string `json:"redirect_url"`
			Customer struct {
				Email string `json:"email"`
				Phone string `json:"phonenumber"`
				Name  string `json:"name"`
			} `json:"customer"`
		}
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "ORD-AB12CD34EF", req.TxRef)
		assert.Equal(t, "3800.00", req.Amount)
		assert.Equal(t, "NGN", req.Currency)
		assert.Equal(t, "ada@example.com", req.Customer.Email)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "success", "message": "Hosted Link", "data": {"link": "https://checkout.example/pay/abc"}}`))
	})

	charge, err := client.InitiateCharge(context.Background(), ChargeRequest{
		TxRef:         "ORD-AB12CD34EF",
		Amount:        decimal.NewFromInt(3800),
		Currency:      "NGN",
		RedirectURL:   "https://shop.example/orders",
		CustomerEmail: "ada@example.com",
		CustomerPhone: "+2348031234567",
		CustomerName:  "Ada",
	})
	require.NoError(t, err)
	assert.Equal(t, "ORD-AB12CD34EF", charge.TxRef)
	assert.Equal(t, "https://checkout.example/pay/abc", charge.PaymentLink)
}

func TestInitiateCharge_GatewayRejects(t *testing.T) {
	client := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "error", "message": "invalid currency"}`))
	})

	_, err := client.InitiateCharge(context.Background(), ChargeRequest{TxRef: "ORD-X", Amount: decimal.NewFromInt(100)})
	require.Error(t, err)
	assert.ErrorContains(t, err, "gateway rejected charge")
}

func TestInitiateCharge_HTTPError(t *testing.T) {
	client := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`upstream unavailable`))
	})

	_, err := client.InitiateCharge(context.Background(), ChargeRequest{TxRef: "ORD-X", Amount: decimal.NewFromInt(100)})
	require.Error(t, err)
	assert.ErrorContains(t, err, "unexpected status 502")
}

func TestVerifyTransaction(t *testing.T) {
	client := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transactions/verify_by_reference", r.URL.Path)
		assert.Equal(t, "ORD-AB12CD34EF", r.URL.Query().Get("tx_ref"))
		assert.Equal(t, "Bearer sk_test_secret", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "success",
			"data": {
				"id": 9182736,
				"tx_ref": "ORD-AB12CD34EF",
				"amount": 3800,
				"currency": "NGN",
				"status": "successful"
			}
		}`))
	})

	tx, err := client.VerifyTransaction(context.Background(), "ORD-AB12CD34EF")
	require.NoError(t, err)
	assert.Equal(t, int64(9182736), tx.ID)
	assert.Equal(t, "ORD-AB12CD34EF", tx.TxRef)
	assert.True(t, tx.Amount.Equal(decimal.NewFromInt(3800)))
	assert.Equal(t, "NGN", tx.Currency)
	assert.True(t, tx.Successful())
}

func TestVerifyTransaction_NotFound(t *testing.T) {
	client := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status": "error", "message": "No transaction was found for this id"}`))
	})

	_, err := client.VerifyTransaction(context.Background(), "ORD-MISSING")
	require.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestVerifyTransaction_FailedCharge(t *testing.T) {
	client := newGateway(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "success",
			"data": {"id": 1, "tx_ref": "ORD-X", "amount": 3800, "currency": "NGN", "status": "failed"}
		}`))
	})

	tx, err := client.VerifyTransaction(context.Background(), "ORD-X")
	require.NoError(t, err)
	assert.False(t, tx.Successful(), "a failed charge verifies but is not successful")
}

func TestTransactionSuccessful(t *testing.T) {
	assert.True(t, (&Transaction{Status: "successful"}).Successful())
	assert.True(t, (&Transaction{Status: "completed"}).Successful())
	assert.False(t, (&Transaction{Status: "failed"}).Successful())
	assert.False(t, (&Transaction{Status: "pending"}).Successful())
}
