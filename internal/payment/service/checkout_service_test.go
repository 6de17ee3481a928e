package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/railzwaylabs/orderpay/internal/observability"
	orderdomain "github.com/railzwaylabs/orderpay/internal/order/domain"
	"github.com/railzwaylabs/orderpay/internal/payment/adapters"
	"github.com/railzwaylabs/orderpay/internal/payment/adapters/payplus"
	"github.com/railzwaylabs/orderpay/internal/payment/adapters/stripe"
	"github.com/railzwaylabs/orderpay/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, userID string, req orderdomain.CreateOrderRequest) (*orderdomain.CreateOrderResult, error) {
	args := m.Called(ctx, userID, req)
	res, _ := args.Get(0).(*orderdomain.CreateOrderResult)
	return res, args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, id string) (*orderdomain.Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*orderdomain.Order)
	return o, args.Error(1)
}

func (m *MockOrderService) UpdatePaymentStatus(ctx context.Context, orderID string, status domain.CanonicalStatus, transactionID string) error {
	args := m.Called(ctx, orderID, status, transactionID)
	return args.Error(0)
}

func (m *MockOrderService) AdvanceFulfillment(ctx context.Context, orderID string, to orderdomain.Status) (*orderdomain.Order, error) {
	args := m.Called(ctx, orderID, to)
	o, _ := args.Get(0).(*orderdomain.Order)
	return o, args.Error(1)
}

// rejectingAdapter reports a gateway decline for every payment.
type rejectingAdapter struct {
	domain.GatewayAdapter
}

func (rejectingAdapter) CreatePayment(context.Context, domain.PaymentIntentRequest) domain.PaymentIntentResult {
	return domain.FailedIntent(domain.ErrorCodeGatewayRejected, "card declined")
}

func (rejectingAdapter) Configured() bool { return true }

func newCheckout(t *testing.T, orders orderdomain.Service, registry *adapters.Registry) (*CheckoutService, *observability.Metrics) {
	t.Helper()
	if registry == nil {
		var err error
		registry, err = adapters.Build(
			[]domain.AdapterFactory{stripe.NewFactory(), payplus.NewFactory()},
			map[string]domain.AdapterConfig{
				stripe.ProviderName:  {PublicBaseURL: "http://localhost:8080"},
				payplus.ProviderName: {PublicBaseURL: "http://localhost:8080"},
			},
		)
		require.NoError(t, err)
	}
	metrics := observability.NewNopMetrics()
	return NewCheckoutService(CheckoutServiceParams{
		Registry: registry,
		Orders:   orders,
		Logger:   zap.NewNop(),
		Metrics:  metrics,
	}), metrics
}

func pendingOrder(method string) *orderdomain.Order {
	node, _ := snowflake.NewNode(1)
	return &orderdomain.Order{
		ID:            node.Generate(),
		OrderNumber:   "ORD-20261015-000001",
		Status:        orderdomain.StatusPendingPayment,
		PaymentMethod: method,
		Total:         26060,
		Currency:      "ILS",
	}
}

func paymentRequest(orderID string) domain.CreatePaymentRequest {
	return domain.CreatePaymentRequest{
		Amount:        260.6,
		Currency:      "ils",
		OrderID:       orderID,
		CustomerName:  "Dana Levi",
		CustomerEmail: "dana@example.com",
		ReturnURL:     "https://shop.example.com/success",
		CancelURL:     "https://shop.example.com/cancel",
		WebhookURL:    "https://shop.example.com/payment/payplus/webhook",
	}
}

func TestCreatePaymentMockMode(t *testing.T) {
	orders := &MockOrderService{}
	svc, metrics := newCheckout(t, orders, nil)
	order := pendingOrder("stripe")
	id := order.ID.String()
	orders.On("GetOrder", mock.Anything, id).Return(order, nil)

	res, err := svc.CreatePayment(context.Background(), "Stripe", paymentRequest(id))
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Mock)
	assert.Equal(t, "mock_pi_"+id, res.GatewayPaymentID)
	assert.Equal(t, "http://localhost:8080/payment/mock/stripe/checkout?order_id="+id, res.RedirectURL)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PaymentIntents.WithLabelValues("stripe", "mock")))
}

func TestCreatePaymentValidation(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		mutate   func(*domain.CreatePaymentRequest)
		field    string
	}{
		{"zero amount", "stripe", func(r *domain.CreatePaymentRequest) { r.Amount = 0 }, "amount"},
		{"missing currency", "stripe", func(r *domain.CreatePaymentRequest) { r.Currency = " " }, "currency"},
		{"currency name", "stripe", func(r *domain.CreatePaymentRequest) { r.Currency = "shekel" }, "currency"},
		{"numeric currency", "payplus", func(r *domain.CreatePaymentRequest) { r.Currency = "376" }, "currency"},
		{"missing order", "stripe", func(r *domain.CreatePaymentRequest) { r.OrderID = "" }, "orderId"},
		{"missing name", "stripe", func(r *domain.CreatePaymentRequest) { r.CustomerName = "" }, "customerName"},
		{"bad email", "stripe", func(r *domain.CreatePaymentRequest) { r.CustomerEmail = "dana" }, "customerEmail"},
		{"relative return url", "stripe", func(r *domain.CreatePaymentRequest) { r.ReturnURL = "/success" }, "returnUrl"},
		{"missing cancel url", "stripe", func(r *domain.CreatePaymentRequest) { r.CancelURL = "" }, "cancelUrl"},
		{"payplus without webhook url", "payplus", func(r *domain.CreatePaymentRequest) { r.WebhookURL = "" }, "webhookUrl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := &MockOrderService{}
			svc, _ := newCheckout(t, orders, nil)
			req := paymentRequest("1001")
			tt.mutate(&req)

			_, err := svc.CreatePayment(context.Background(), tt.provider, req)
			var verr *orderdomain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			orders.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything)
		})
	}
}

func TestCreatePaymentStripeWithoutWebhookURL(t *testing.T) {
	orders := &MockOrderService{}
	svc, _ := newCheckout(t, orders, nil)
	order := pendingOrder("stripe")
	orders.On("GetOrder", mock.Anything, order.ID.String()).Return(order, nil)

	req := paymentRequest(order.ID.String())
	req.WebhookURL = ""
	res, err := svc.CreatePayment(context.Background(), "stripe", req)
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestCreatePaymentChecksOrder(t *testing.T) {
	t.Run("unknown provider", func(t *testing.T) {
		svc, _ := newCheckout(t, &MockOrderService{}, nil)
		_, err := svc.CreatePayment(context.Background(), "paypal", paymentRequest("1001"))
		assert.ErrorIs(t, err, domain.ErrProviderNotFound)
	})

	t.Run("order not found", func(t *testing.T) {
		orders := &MockOrderService{}
		svc, _ := newCheckout(t, orders, nil)
		orders.On("GetOrder", mock.Anything, "1001").Return(nil, orderdomain.ErrOrderNotFound)
		_, err := svc.CreatePayment(context.Background(), "stripe", paymentRequest("1001"))
		assert.ErrorIs(t, err, orderdomain.ErrOrderNotFound)
	})

	t.Run("already paid", func(t *testing.T) {
		orders := &MockOrderService{}
		svc, _ := newCheckout(t, orders, nil)
		order := pendingOrder("stripe")
		order.Status = orderdomain.StatusPaid
		orders.On("GetOrder", mock.Anything, order.ID.String()).Return(order, nil)
		_, err := svc.CreatePayment(context.Background(), "stripe", paymentRequest(order.ID.String()))
		assert.ErrorIs(t, err, orderdomain.ErrInvalidTransition)
	})

	t.Run("different payment method", func(t *testing.T) {
		orders := &MockOrderService{}
		svc, _ := newCheckout(t, orders, nil)
		order := pendingOrder("payplus")
		orders.On("GetOrder", mock.Anything, order.ID.String()).Return(order, nil)
		_, err := svc.CreatePayment(context.Background(), "stripe", paymentRequest(order.ID.String()))
		var verr *orderdomain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "orderId", verr.Field)
	})

	t.Run("amount mismatch", func(t *testing.T) {
		orders := &MockOrderService{}
		svc, _ := newCheckout(t, orders, nil)
		order := pendingOrder("stripe")
		orders.On("GetOrder", mock.Anything, order.ID.String()).Return(order, nil)
		req := paymentRequest(order.ID.String())
		req.Amount = 260.5
		_, err := svc.CreatePayment(context.Background(), "stripe", req)
		var verr *orderdomain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "amount", verr.Field)
	})
}

func TestCreatePaymentGatewayFailureIsResult(t *testing.T) {
	orders := &MockOrderService{}
	registry := adapters.NewRegistry(rejectingAdapter{GatewayAdapter: mustStripe(t)})
	svc, metrics := newCheckout(t, orders, registry)
	order := pendingOrder("stripe")
	orders.On("GetOrder", mock.Anything, order.ID.String()).Return(order, nil)

	res, err := svc.CreatePayment(context.Background(), "stripe", paymentRequest(order.ID.String()))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, domain.ErrorCodeGatewayRejected, res.ErrorCode)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.PaymentIntents.WithLabelValues("stripe", "gateway_rejected")))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.GatewayDuration))
}

func TestQuoteFees(t *testing.T) {
	svc, _ := newCheckout(t, &MockOrderService{}, nil)

	q, err := svc.QuoteFees("payplus", 260.6, "ils")
	require.NoError(t, err)
	assert.Equal(t, int64(26060), q.Amount)
	assert.Equal(t, int64(906), q.Fee)
	assert.Equal(t, int64(26966), q.Total)

	_, err = svc.QuoteFees("payplus", 0, "ILS")
	assert.Error(t, err)
	_, err = svc.QuoteFees("payplus", 10, "")
	assert.Error(t, err)
	_, err = svc.QuoteFees("payplus", 10, "shekel")
	var verr *orderdomain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "currency", verr.Field)
	_, err = svc.QuoteFees("paypal", 10, "ILS")
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)
}

func TestMockCheckout(t *testing.T) {
	t.Run("summary only", func(t *testing.T) {
		orders := &MockOrderService{}
		svc, _ := newCheckout(t, orders, nil)
		order := pendingOrder("payplus")
		orders.On("GetOrder", mock.Anything, order.ID.String()).Return(order, nil).Once()

		got, err := svc.MockCheckout(context.Background(), "payplus", order.ID.String(), "")
		require.NoError(t, err)
		assert.Equal(t, order, got)
		orders.AssertNotCalled(t, "UpdatePaymentStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("completes payment", func(t *testing.T) {
		orders := &MockOrderService{}
		svc, _ := newCheckout(t, orders, nil)
		order := pendingOrder("payplus")
		id := order.ID.String()
		orders.On("GetOrder", mock.Anything, id).Return(order, nil)
		orders.On("UpdatePaymentStatus", mock.Anything, id, domain.CanonicalSuccess, "mock_txn_"+id).Return(nil).Once()

		_, err := svc.MockCheckout(context.Background(), "payplus", id, domain.CanonicalSuccess)
		require.NoError(t, err)
		orders.AssertExpectations(t)
	})

	t.Run("invalid outcome", func(t *testing.T) {
		orders := &MockOrderService{}
		svc, _ := newCheckout(t, orders, nil)
		order := pendingOrder("payplus")
		orders.On("GetOrder", mock.Anything, order.ID.String()).Return(order, nil)

		_, err := svc.MockCheckout(context.Background(), "payplus", order.ID.String(), domain.CanonicalPending)
		var verr *orderdomain.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("order of a configured gateway", func(t *testing.T) {
		stripeLive, err := stripe.NewFactory().NewAdapter(domain.AdapterConfig{
			Provider: stripe.ProviderName,
			Config:   map[string]any{"secret_key": "sk_test_123"},
		})
		require.NoError(t, err)
		payplusMock, err := payplus.NewFactory().NewAdapter(domain.AdapterConfig{Provider: payplus.ProviderName})
		require.NoError(t, err)

		orders := &MockOrderService{}
		svc, _ := newCheckout(t, orders, adapters.NewRegistry(stripeLive, payplusMock))
		order := pendingOrder("stripe")
		id := order.ID.String()
		orders.On("GetOrder", mock.Anything, id).Return(order, nil)

		for _, outcome := range []domain.CanonicalStatus{"", domain.CanonicalSuccess} {
			_, err := svc.MockCheckout(context.Background(), "payplus", id, outcome)
			assert.ErrorIs(t, err, domain.ErrProviderNotFound)
		}
		orders.AssertNotCalled(t, "UpdatePaymentStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("configured gateway", func(t *testing.T) {
		registry := adapters.NewRegistry(rejectingAdapter{GatewayAdapter: mustStripe(t)})
		svc, _ := newCheckout(t, &MockOrderService{}, registry)

		_, err := svc.MockCheckout(context.Background(), "stripe", "1001", domain.CanonicalSuccess)
		assert.ErrorIs(t, err, domain.ErrProviderNotFound)
	})
}

func mustStripe(t *testing.T) domain.GatewayAdapter {
	t.Helper()
	a, err := stripe.NewFactory().NewAdapter(domain.AdapterConfig{Provider: stripe.ProviderName})
	require.NoError(t, err)
	return a
}
