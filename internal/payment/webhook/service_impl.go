package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/railzwaylabs/orderpay/internal/observability"
	orderdomain "github.com/railzwaylabs/orderpay/internal/order/domain"
	"github.com/railzwaylabs/orderpay/internal/payment/adapters"
	paymentdomain "github.com/railzwaylabs/orderpay/internal/payment/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const tracerName = "github.com/railzwaylabs/orderpay/internal/payment/webhook"

// StatusUpdater is the part of the order service a webhook can drive.
type StatusUpdater interface {
	UpdatePaymentStatus(ctx context.Context, orderID string, status paymentdomain.CanonicalStatus, transactionID string) error
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Adapters *adapters.Registry
	Orders   orderdomain.Service
	Metrics  *observability.Metrics
}

type Service struct {
	log      *zap.Logger
	adapters *adapters.Registry
	orders   StatusUpdater
	metrics  *observability.Metrics
	tracer   trace.Tracer
}

func NewService(p Params) paymentdomain.Reconciler {
	return newService(p.Log, p.Adapters, p.Orders, p.Metrics)
}

func newService(log *zap.Logger, registry *adapters.Registry, orders StatusUpdater, metrics *observability.Metrics) *Service {
	if metrics == nil {
		metrics = observability.NewNopMetrics()
	}
	return &Service{
		log:      log.Named("payment.webhook"),
		adapters: registry,
		orders:   orders,
		metrics:  metrics,
		tracer:   otel.Tracer(tracerName),
	}
}

func (s *Service) Reconcile(ctx context.Context, event paymentdomain.RawWebhookEvent) (paymentdomain.Outcome, error) {
	provider := strings.ToLower(strings.TrimSpace(event.Provider))

	ctx, span := s.tracer.Start(ctx, "webhook.reconcile", trace.WithAttributes(
		attribute.String("payment.provider", provider),
		attribute.Int("webhook.payload_size", len(event.RawBody)),
	))
	defer span.End()

	outcome, err := s.reconcile(ctx, provider, event)

	label := string(outcome)
	if err != nil {
		label = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("webhook.outcome", label))

	metricProvider := provider
	if !s.adapters.ProviderExists(provider) {
		metricProvider = "unknown"
	}
	s.metrics.WebhookOutcomes.WithLabelValues(metricProvider, label).Inc()
	return outcome, err
}

func (s *Service) reconcile(ctx context.Context, provider string, event paymentdomain.RawWebhookEvent) (paymentdomain.Outcome, error) {
	adapter, err := s.adapters.Get(provider)
	if err != nil {
		s.log.Warn("webhook for unknown provider", zap.String("provider", provider))
		return "", err
	}

	s.log.Info("processing webhook",
		zap.String("provider", provider),
		zap.Int("payload_size", len(event.RawBody)))

	if !adapter.VerifyWebhookSignature(event.RawBody, event.SignatureHeader) {
		s.log.Warn("webhook signature rejected",
			zap.String("provider", provider),
			zap.Bool("signature_present", event.SignatureHeader != ""))
		return paymentdomain.OutcomeRejected, nil
	}

	result, err := adapter.ProcessWebhook(event.RawBody)
	if err != nil {
		switch {
		case errors.Is(err, paymentdomain.ErrEventIgnored):
			s.log.Debug("webhook event ignored", zap.String("provider", provider))
			return paymentdomain.OutcomeIgnored, nil
		case errors.Is(err, paymentdomain.ErrInvalidPayload):
			s.log.Warn("webhook payload could not be processed",
				zap.String("provider", provider),
				zap.ByteString("payload", maskPayload(event.RawBody)))
			return paymentdomain.OutcomeUnprocessable, nil
		default:
			s.log.Error("webhook processing failed", zap.String("provider", provider), zap.Error(err))
			return "", err
		}
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("order.id", result.OrderID),
		attribute.String("payment.status", string(result.CanonicalStatus)),
	)

	err = s.orders.UpdatePaymentStatus(ctx, result.OrderID, result.CanonicalStatus, result.GatewayTransactionID)
	switch {
	case err == nil:
		s.log.Info("webhook applied",
			zap.String("provider", provider),
			zap.String("order_id", result.OrderID),
			zap.String("status", string(result.CanonicalStatus)),
			zap.String("transaction_id", result.GatewayTransactionID),
			zap.Int64("amount", result.Amount))
		return paymentdomain.OutcomeApplied, nil
	case errors.Is(err, orderdomain.ErrInvalidTransition), errors.Is(err, orderdomain.ErrOrderNotFound):
		s.log.Warn("webhook anomaly acknowledged",
			zap.String("provider", provider),
			zap.String("order_id", result.OrderID),
			zap.String("status", string(result.CanonicalStatus)),
			zap.String("transaction_id", result.GatewayTransactionID),
			zap.Error(err))
		return paymentdomain.OutcomeAnomaly, nil
	default:
		s.log.Error("order update failed, provider will retry",
			zap.String("provider", provider),
			zap.String("order_id", result.OrderID),
			zap.Error(err))
		return "", fmt.Errorf("update order %s: %w", result.OrderID, err)
	}
}

func maskPayload(raw []byte) []byte {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return raw
	}
	maskMap(obj)
	masked, err := json.Marshal(obj)
	if err != nil {
		return raw
	}
	return masked
}

func maskMap(m map[string]any) {
	for k, v := range m {
		switch strings.ToLower(k) {
		case "card", "billing_details", "shipping_details", "payment_method_details",
			"customer", "email", "phone", "receipt_email", "client_secret":
			m[k] = "***"
		default:
			if nested, ok := v.(map[string]any); ok {
				maskMap(nested)
			} else if arr, ok := v.([]any); ok {
				for _, item := range arr {
					if itemMap, ok := item.(map[string]any); ok {
						maskMap(itemMap)
					}
				}
			}
		}
	}
}
