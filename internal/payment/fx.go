package payment

import (
	"github.com/railzwaylabs/orderpay/internal/config"
	"github.com/railzwaylabs/orderpay/internal/payment/adapters"
	"github.com/railzwaylabs/orderpay/internal/payment/adapters/payplus"
	"github.com/railzwaylabs/orderpay/internal/payment/adapters/stripe"
	"github.com/railzwaylabs/orderpay/internal/payment/domain"
	paymentservice "github.com/railzwaylabs/orderpay/internal/payment/service"
	"github.com/railzwaylabs/orderpay/internal/payment/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("payment.service",
	fx.Provide(NewRegistry),
	fx.Provide(webhook.NewService),
	fx.Provide(paymentservice.NewCheckoutService),
)

// NewRegistry builds one adapter per supported gateway from configuration.
func NewRegistry(cfg config.Config, log *zap.Logger) (*adapters.Registry, error) {
	base := domain.AdapterConfig{
		PublicBaseURL:        cfg.HTTP.PublicBaseURL,
		Timeout:              cfg.Payment.GatewayTimeout,
		RequireWebhookSecret: cfg.Payment.RequireWebhookSecret,
		Logger:               log,
	}

	stripeCfg := base
	stripeCfg.Config = map[string]any{
		"secret_key":      cfg.Stripe.SecretKey,
		"publishable_key": cfg.Stripe.PublishableKey,
		"webhook_secret":  cfg.Stripe.WebhookSecret,
		"api_base_url":    cfg.Stripe.APIBaseURL,
	}

	payplusCfg := base
	payplusCfg.Config = map[string]any{
		"api_key":          cfg.PayPlus.APIKey,
		"secret_key":       cfg.PayPlus.SecretKey,
		"payment_page_uid": cfg.PayPlus.PaymentPageUID,
		"webhook_secret":   cfg.PayPlus.WebhookSecret,
		"api_base_url":     cfg.PayPlus.APIBaseURL,
	}

	registry, err := adapters.Build(
		[]domain.AdapterFactory{stripe.NewFactory(), payplus.NewFactory()},
		map[string]domain.AdapterConfig{
			stripe.ProviderName:  stripeCfg,
			payplus.ProviderName: payplusCfg,
		},
	)
	if err != nil {
		return nil, err
	}

	for _, name := range registry.Providers() {
		a, _ := registry.Get(name)
		configured := true
		if c, ok := a.(domain.Configurable); ok {
			configured = c.Configured()
		}
		log.Named("payment").Info("payment gateway registered",
			zap.String("provider", name),
			zap.Bool("mock_mode", !configured))
	}
	return registry, nil
}
