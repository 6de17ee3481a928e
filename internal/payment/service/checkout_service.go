package service

import (
	"context"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/railzwaylabs/orderpay/internal/money"
	"github.com/railzwaylabs/orderpay/internal/observability"
	orderdomain "github.com/railzwaylabs/orderpay/internal/order/domain"
	"github.com/railzwaylabs/orderpay/internal/payment/adapters"
	"github.com/railzwaylabs/orderpay/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type CheckoutServiceParams struct {
	fx.In

	Registry *adapters.Registry
	Orders   orderdomain.Service
	Logger   *zap.Logger
	Metrics  *observability.Metrics
}

// CheckoutService starts gateway payments for pending orders.
type CheckoutService struct {
	registry *adapters.Registry
	orders   orderdomain.Service
	log      *zap.Logger
	metrics  *observability.Metrics
}

func NewCheckoutService(p CheckoutServiceParams) *CheckoutService {
	metrics := p.Metrics
	if metrics == nil {
		metrics = observability.NewNopMetrics()
	}
	return &CheckoutService{
		registry: p.Registry,
		orders:   p.Orders,
		log:      p.Logger.Named("payment.checkout"),
		metrics:  metrics,
	}
}

// CreatePayment validates the request against the order and asks the gateway for a payment
// intent. Gateway failures are reported in the result, not as an error.
func (s *CheckoutService) CreatePayment(ctx context.Context, provider string, req domain.CreatePaymentRequest) (domain.PaymentIntentResult, error) {
	adapter, err := s.registry.Get(provider)
	if err != nil {
		return domain.PaymentIntentResult{}, err
	}
	provider = adapter.Provider()

	req = normalize(req)
	if err := validate(provider, req); err != nil {
		return domain.PaymentIntentResult{}, err
	}

	order, err := s.orders.GetOrder(ctx, req.OrderID)
	if err != nil {
		return domain.PaymentIntentResult{}, err
	}
	if order.Status != orderdomain.StatusPendingPayment {
		return domain.PaymentIntentResult{}, orderdomain.ErrInvalidTransition
	}
	if order.PaymentMethod != provider {
		return domain.PaymentIntentResult{}, invalid("orderId", "order was placed for "+order.PaymentMethod)
	}
	amount := money.ToMinor(req.Amount)
	if amount != order.Total || req.Currency != order.Currency {
		return domain.PaymentIntentResult{}, invalid("amount", "does not match the order total")
	}

	description := req.Description
	if description == "" {
		description = "Order " + order.OrderNumber
	}

	start := time.Now()
	result := adapter.CreatePayment(ctx, domain.PaymentIntentRequest{
		Amount:        amount,
		Currency:      req.Currency,
		OrderID:       req.OrderID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Description:   description,
		ReturnURL:     req.ReturnURL,
		CancelURL:     req.CancelURL,
		WebhookURL:    req.WebhookURL,
	})
	if !result.Mock {
		s.metrics.GatewayDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	}
	s.metrics.PaymentIntents.WithLabelValues(provider, resultLabel(result)).Inc()

	if !result.Success {
		s.log.Warn("payment intent failed",
			zap.String("provider", provider),
			zap.String("order_id", req.OrderID),
			zap.String("code", result.ErrorCode),
			zap.String("error", result.Error))
		return result, nil
	}

	s.log.Info("payment intent created",
		zap.String("provider", provider),
		zap.String("order_id", req.OrderID),
		zap.String("payment_id", result.GatewayPaymentID),
		zap.Bool("mock", result.Mock))
	return result, nil
}

// QuoteFees prices a payment of amount (major units) on the given gateway.
func (s *CheckoutService) QuoteFees(provider string, amount float64, currency string) (domain.FeeQuote, error) {
	adapter, err := s.registry.Get(provider)
	if err != nil {
		return domain.FeeQuote{}, err
	}
	if amount <= 0 {
		return domain.FeeQuote{}, invalid("amount", "must be positive")
	}
	currency = domain.NormalizeCurrency(currency)
	if !domain.ValidCurrency(currency) {
		return domain.FeeQuote{}, invalid("currency", "must be a 3-letter ISO 4217 code")
	}
	return adapter.CalculateFees(money.ToMinor(amount), currency), nil
}

// MockCheckout stands in for the hosted payment page while a gateway has no credentials.
// It only serves orders placed with that gateway. An outcome of success or failed settles the
// order the way the gateway's webhook would.
func (s *CheckoutService) MockCheckout(ctx context.Context, provider, orderID string, outcome domain.CanonicalStatus) (*orderdomain.Order, error) {
	adapter, err := s.registry.Get(provider)
	if err != nil {
		return nil, err
	}
	if c, ok := adapter.(domain.Configurable); ok && c.Configured() {
		return nil, domain.ErrProviderNotFound
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	// Only the unconfigured gateway's own orders can be settled here.
	if order.PaymentMethod != adapter.Provider() {
		s.log.Warn("mock checkout for order of another gateway",
			zap.String("provider", adapter.Provider()),
			zap.String("order_id", orderID),
			zap.String("payment_method", order.PaymentMethod))
		return nil, domain.ErrProviderNotFound
	}
	if outcome == "" {
		return order, nil
	}
	if outcome != domain.CanonicalSuccess && outcome != domain.CanonicalFailed {
		return nil, invalid("outcome", "must be success or failed")
	}

	mock := domain.MockIntent(adapter.Provider(), "", domain.PaymentIntentRequest{OrderID: order.ID.String()})
	if err := s.orders.UpdatePaymentStatus(ctx, order.ID.String(), outcome, mock.TransactionID); err != nil {
		return nil, err
	}
	s.log.Info("mock checkout completed",
		zap.String("provider", adapter.Provider()),
		zap.String("order_id", orderID),
		zap.String("outcome", string(outcome)))
	return s.orders.GetOrder(ctx, orderID)
}

func resultLabel(r domain.PaymentIntentResult) string {
	switch {
	case r.Mock:
		return "mock"
	case r.Success:
		return "success"
	case r.ErrorCode != "":
		return strings.ToLower(r.ErrorCode)
	default:
		return "error"
	}
}

func normalize(req domain.CreatePaymentRequest) domain.CreatePaymentRequest {
	req.Currency = domain.NormalizeCurrency(req.Currency)
	req.OrderID = strings.TrimSpace(req.OrderID)
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
	req.Description = strings.TrimSpace(req.Description)
	req.ReturnURL = strings.TrimSpace(req.ReturnURL)
	req.CancelURL = strings.TrimSpace(req.CancelURL)
	req.WebhookURL = strings.TrimSpace(req.WebhookURL)
	return req
}

func validate(provider string, req domain.CreatePaymentRequest) error {
	if req.Amount <= 0 {
		return invalid("amount", "must be positive")
	}
	if !domain.ValidCurrency(req.Currency) {
		return invalid("currency", "must be a 3-letter ISO 4217 code")
	}
	if req.OrderID == "" {
		return invalid("orderId", "is required")
	}
	if req.CustomerName == "" {
		return invalid("customerName", "is required")
	}
	if _, err := mail.ParseAddress(req.CustomerEmail); err != nil {
		return invalid("customerEmail", "must be a valid email address")
	}
	if !absoluteURL(req.ReturnURL) {
		return invalid("returnUrl", "must be an absolute URL")
	}
	if !absoluteURL(req.CancelURL) {
		return invalid("cancelUrl", "must be an absolute URL")
	}
	if provider == "payplus" && !absoluteURL(req.WebhookURL) {
		return invalid("webhookUrl", "is required for payplus")
	}
	return nil
}

func absoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func invalid(field, reason string) error {
	return &orderdomain.ValidationError{Field: field, Reason: reason}
}
