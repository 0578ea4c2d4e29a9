package order

import (
	"context"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/savourly/orderflow/internal/domain/food"
	"github.com/savourly/orderflow/internal/payment"
)

// --- Mock implementations ---

type mockFoodRepo struct {
	byID   map[string]food.Food
	getErr error
}

func (m *mockFoodRepo) List(_ context.Context) ([]food.Food, error) {
	return nil, nil
}

func (m *mockFoodRepo) GetByID(_ context.Context, id string) (*food.Food, error) {
	f, ok := m.byID[id]
	if !ok {
		return nil, food.ErrNotFound
	}
	return &f, nil
}

func (m *mockFoodRepo) GetByIDs(_ context.Context, ids []string) ([]food.Food, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var out []food.Food
	for _, id := range ids {
		if f, ok := m.byID[id]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

type mockOrderRepo struct {
	lastOrder  *Order
	createErr  error
	lastStatus PaymentStatus
	lastTxID   string
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	m.lastOrder = o
	return m.createErr
}

func (m *mockOrderRepo) GetByID(_ context.Context, _ string) (*Order, error) {
	return m.lastOrder, nil
}

func (m *mockOrderRepo) GetByReference(_ context.Context, _ string) (*Order, error) {
	return m.lastOrder, nil
}

func (m *mockOrderRepo) UpdatePaymentStatus(_ context.Context, _ string, status PaymentStatus, txID string) error {
	m.lastStatus = status
	m.lastTxID = txID
	return nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, _ string, _ Status) error {
	return nil
}

type mockGateway struct {
	charge    *payment.Charge
	chargeErr error
	lastReq   payment.ChargeRequest
}

func (m *mockGateway) InitiateCharge(_ context.Context, req payment.ChargeRequest) (*payment.Charge, error) {
	m.lastReq = req
	if m.chargeErr != nil {
		return nil, m.chargeErr
	}
	if m.charge != nil {
		return m.charge, nil
	}
	return &payment.Charge{TxRef: req.TxRef, PaymentLink: "https://pay.example/" + req.TxRef}, nil
}

func (m *mockGateway) VerifyTransaction(_ context.Context, _ string) (*payment.Transaction, error) {
	return nil, payment.ErrTransactionNotFound
}

// --- Helpers ---

func newTestFood(id, name string, price int64) food.Food {
	return food.Food{
		ID:        id,
		Name:      name,
		Price:     decimal.NewFromInt(price),
		Category:  "test",
		Image:     "/images/" + id + ".jpg",
		Available: true,
	}
}

func newFoodRepo(foods ...food.Food) *mockFoodRepo {
	byID := make(map[string]food.Food, len(foods))
	for _, f := range foods {
		byID[f.ID] = f
	}
	return &mockFoodRepo{byID: byID}
}

func newTestService(foods *mockFoodRepo, orders *mockOrderRepo, gw payment.Gateway) *Service {
	return NewService(ServiceConfig{Currency: "NGN", WhatsAppNumber: "2349041234567"}, foods, orders, gw)
}

func validRequest() PlaceOrderRequest {
	return PlaceOrderRequest{
		Items:            []ItemRequest{{FoodID: "jollof", Quantity: 2}},
		PaymentMethod:    PaymentWhatsApp,
		DeliveryLocation: LocationTown,
		FullAddress:      "12 College Road",
		ContactPhone:     "+2348031234567",
		CustomerName:     "Ada",
		CustomerEmail:    "ada@example.com",
	}
}

// --- Tests ---

func TestPlaceOrder_EmptyCart(t *testing.T) {
	orders := &mockOrderRepo{}
	svc := newTestService(newFoodRepo(), orders, &mockGateway{})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{})
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Nil(t, orders.lastOrder, "nothing should be persisted for an empty cart")
}

func TestPlaceOrder_InvalidQuantity(t *testing.T) {
	svc := newTestService(newFoodRepo(newTestFood("jollof", "Jollof Rice", 1000)), &mockOrderRepo{}, &mockGateway{})

	req := validRequest()
	req.Items = []ItemRequest{{FoodID: "jollof", Quantity: 0}}
	_, err := svc.PlaceOrder(context.Background(), req)

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, "jollof", iqErr.FoodID)
}

func TestPlaceOrder_FoodNotFound(t *testing.T) {
	svc := newTestService(newFoodRepo(), &mockOrderRepo{}, &mockGateway{})

	req := validRequest()
	req.Items = []ItemRequest{{FoodID: "missing", Quantity: 1}}
	_, err := svc.PlaceOrder(context.Background(), req)

	var nfErr *FoodNotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "missing", nfErr.FoodID)
}

func TestPlaceOrder_Totals(t *testing.T) {
	foods := newFoodRepo(
		newTestFood("jollof", "Jollof Rice", 1000),
		newTestFood("moimoi", "Moi Moi", 800),
	)
	orders := &mockOrderRepo{}
	svc := newTestService(foods, orders, &mockGateway{})

	req := validRequest()
	req.Items = []ItemRequest{
		{FoodID: "jollof", Quantity: 2},
		{FoodID: "moimoi", Quantity: 1},
	}
	result, err := svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)

	o := result.Order
	assert.True(t, o.Subtotal.Equal(decimal.NewFromInt(2800)), "subtotal = %s", o.Subtotal)
	assert.True(t, o.DeliveryFee.Equal(decimal.NewFromInt(1000)), "fee = %s", o.DeliveryFee)
	assert.True(t, o.Total.Equal(decimal.NewFromInt(3800)), "total = %s", o.Total)
	assert.True(t, o.Items[0].TotalPrice.Equal(decimal.NewFromInt(2000)))
	assert.Equal(t, StatusPending, o.Status)
	assert.Same(t, o, orders.lastOrder)
}

func TestPlaceOrder_PricesFromCatalogNotRequest(t *testing.T) {
	foods := newFoodRepo(newTestFood("jollof", "Jollof Rice", 2500))
	svc := newTestService(foods, &mockOrderRepo{}, &mockGateway{})

	result, err := svc.PlaceOrder(context.Background(), validRequest())
	require.NoError(t, err)

	assert.True(t, result.Order.Items[0].Price.Equal(decimal.NewFromInt(2500)))
	assert.True(t, result.Order.Subtotal.Equal(decimal.NewFromInt(5000)))
}

func TestPlaceOrder_DineInNoFeeNoAddress(t *testing.T) {
	foods := newFoodRepo(newTestFood("jollof", "Jollof Rice", 1000))
	svc := newTestService(foods, &mockOrderRepo{}, &mockGateway{})

	req := validRequest()
	req.DeliveryLocation = LocationRestaurant
	req.FullAddress = ""
	result, err := svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, result.Order.DeliveryFee.IsZero())
	assert.True(t, result.Order.Total.Equal(result.Order.Subtotal))
}

func TestPlaceOrder_DeliveryRequiresAddress(t *testing.T) {
	foods := newFoodRepo(newTestFood("jollof", "Jollof Rice", 1000))
	svc := newTestService(foods, &mockOrderRepo{}, &mockGateway{})

	req := validRequest()
	req.FullAddress = "   "
	_, err := svc.PlaceOrder(context.Background(), req)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "fullAddress", vErr.Field)
}

func TestPlaceOrder_UnknownLocation(t *testing.T) {
	svc := newTestService(newFoodRepo(newTestFood("jollof", "Jollof Rice", 1000)), &mockOrderRepo{}, &mockGateway{})

	req := validRequest()
	req.DeliveryLocation = "uromi"
	_, err := svc.PlaceOrder(context.Background(), req)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "deliveryLocation", vErr.Field)
}

func TestPlaceOrder_InvalidPhone(t *testing.T) {
	svc := newTestService(newFoodRepo(newTestFood("jollof", "Jollof Rice", 1000)), &mockOrderRepo{}, &mockGateway{})

	req := validRequest()
	req.ContactPhone = "not-a-phone"
	_, err := svc.PlaceOrder(context.Background(), req)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "contactPhone", vErr.Field)
}

func TestPlaceOrder_GuestRequiresNameAndEmail(t *testing.T) {
	svc := newTestService(newFoodRepo(newTestFood("jollof", "Jollof Rice", 1000)), &mockOrderRepo{}, &mockGateway{})

	req := validRequest()
	req.CustomerName = ""
	_, err := svc.PlaceOrder(context.Background(), req)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "customerName", vErr.Field)

	req = validRequest()
	req.CustomerEmail = ""
	_, err = svc.PlaceOrder(context.Background(), req)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "customerEmail", vErr.Field)
}

func TestPlaceOrder_StaffSkipsGuestFields(t *testing.T) {
	svc := newTestService(newFoodRepo(newTestFood("jollof", "Jollof Rice", 1000)), &mockOrderRepo{}, &mockGateway{})

	req := validRequest()
	req.Authenticated = true
	req.CustomerName = ""
	req.CustomerEmail = ""
	_, err := svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
}

func TestPlaceOrder_Online(t *testing.T) {
	foods := newFoodRepo(newTestFood("jollof", "Jollof Rice", 1000))
	orders := &mockOrderRepo{}
	gw := &mockGateway{}
	svc := newTestService(foods, orders, gw)

	req := validRequest()
	req.PaymentMethod = PaymentOnline
	req.RedirectURL = "https://shop.example/orders"
	result, err := svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)

	o := result.Order
	assert.Equal(t, PaymentProcessing, o.PaymentStatus)
	assert.Equal(t, o.Reference, o.PaymentTxRef, "charge reference must match the tracking reference")
	assert.NotEmpty(t, result.PaymentLink)
	assert.Empty(t, result.WhatsAppLink)

	assert.Equal(t, o.Reference, gw.lastReq.TxRef)
	assert.Equal(t, "NGN", gw.lastReq.Currency)
	assert.True(t, gw.lastReq.Amount.Equal(o.Total))
	assert.Equal(t, "https://shop.example/orders", gw.lastReq.RedirectURL)
}

func TestPlaceOrder_OnlineChargeInitFails(t *testing.T) {
	foods := newFoodRepo(newTestFood("jollof", "Jollof Rice", 1000))
	orders := &mockOrderRepo{}
	gw := &mockGateway{chargeErr: errors.New("gateway down")}
	svc := newTestService(foods, orders, gw)

	req := validRequest()
	req.PaymentMethod = PaymentOnline
	_, err := svc.PlaceOrder(context.Background(), req)

	var ciErr *ChargeInitError
	require.ErrorAs(t, err, &ciErr)
	require.NotNil(t, orders.lastOrder, "order must be persisted before the charge is attempted")
	assert.Equal(t, orders.lastOrder.ID, ciErr.OrderID)
	assert.Equal(t, orders.lastOrder.Reference, ciErr.Reference)
	assert.ErrorContains(t, err, "gateway down")
}

func TestPlaceOrder_WhatsApp(t *testing.T) {
	foods := newFoodRepo(newTestFood("jollof", "Jollof Rice", 1000))
	svc := newTestService(foods, &mockOrderRepo{}, &mockGateway{})

	result, err := svc.PlaceOrder(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, PaymentUnpaid, result.Order.PaymentStatus)
	assert.True(t, strings.HasPrefix(result.WhatsAppLink, "https://wa.me/2349041234567?text="))
	assert.Empty(t, result.PaymentLink)
}

func TestPlaceOrder_CashInitialStatus(t *testing.T) {
	foods := newFoodRepo(newTestFood("jollof", "Jollof Rice", 1000))
	svc := newTestService(foods, &mockOrderRepo{}, &mockGateway{})

	req := validRequest()
	req.PaymentMethod = PaymentCash
	req.Authenticated = true
	req.InitialPaymentStatus = PaymentPaid
	result, err := svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, PaymentPaid, result.Order.PaymentStatus)

	req.InitialPaymentStatus = ""
	result, err = svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, PaymentUnpaid, result.Order.PaymentStatus)
}

func TestPlaceOrder_ReferenceFormat(t *testing.T) {
	foods := newFoodRepo(newTestFood("jollof", "Jollof Rice", 1000))
	svc := newTestService(foods, &mockOrderRepo{}, &mockGateway{})

	result, err := svc.PlaceOrder(context.Background(), validRequest())
	require.NoError(t, err)

	ref := result.Order.Reference
	assert.Regexp(t, `^ORD-[0-9A-F]{10}$`, ref)
}

func TestMarkPaid(t *testing.T) {
	orders := &mockOrderRepo{}
	svc := newTestService(newFoodRepo(), orders, &mockGateway{})

	require.NoError(t, svc.MarkPaid(context.Background(), "o1", "tx-42"))
	assert.Equal(t, PaymentPaid, orders.lastStatus)
	assert.Equal(t, "tx-42", orders.lastTxID)
}
