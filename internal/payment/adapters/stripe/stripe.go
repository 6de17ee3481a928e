package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/railzwaylabs/orderpay/internal/payment/domain"
	"github.com/railzwaylabs/orderpay/internal/payment/fee"
	"github.com/railzwaylabs/orderpay/internal/payment/signature"
	stripeapi "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"go.uber.org/zap"
)

const (
	ProviderName    = "stripe"
	SignatureHeader = "Stripe-Signature"
	signaturePrefix = "sha256="
	eventPrefix     = "payment_intent."
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return ProviderName
}

func (f *Factory) NewAdapter(cfg domain.AdapterConfig) (domain.GatewayAdapter, error) {
	secretKey, _ := readString(cfg.Config, "secret_key")
	webhookSecret, _ := readString(cfg.Config, "webhook_secret")
	baseURL, _ := readString(cfg.Config, "api_base_url")

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	a := &Adapter{
		webhookSecret: strings.TrimSpace(webhookSecret),
		requireSecret: cfg.RequireWebhookSecret,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		timeout:       timeout,
		log:           log.Named("payment.stripe"),
	}

	// Without a secret key the adapter stays in mock mode and never builds a client.
	secretKey = strings.TrimSpace(secretKey)
	if secretKey == "" {
		return a, nil
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	backendCfg := &stripeapi.BackendConfig{
		HTTPClient:        httpClient,
		LeveledLogger:     a.log.Sugar(),
		MaxNetworkRetries: stripeapi.Int64(0),
	}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		backendCfg.URL = stripeapi.String(baseURL)
	}
	backend := stripeapi.GetBackendWithConfig(stripeapi.APIBackend, backendCfg)
	a.client = client.New(secretKey, &stripeapi.Backends{
		API:     backend,
		Connect: backend,
		Uploads: backend,
	})
	return a, nil
}

type Adapter struct {
	client        *client.API
	webhookSecret string
	requireSecret bool
	publicBaseURL string
	timeout       time.Duration
	log           *zap.Logger
}

func (a *Adapter) Provider() string {
	return ProviderName
}

func (a *Adapter) SignatureHeader() string {
	return SignatureHeader
}

// Configured reports whether real credentials are present.
func (a *Adapter) Configured() bool {
	return a.client != nil
}

func (a *Adapter) CreatePayment(ctx context.Context, req domain.PaymentIntentRequest) domain.PaymentIntentResult {
	if a.client == nil {
		a.log.Info("stripe not configured, returning mock payment intent", zap.String("order_id", req.OrderID))
		result := domain.MockIntent(ProviderName, a.publicBaseURL, req)
		result.ClientSecret = result.GatewayPaymentID + "_secret_mock"
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	params := &stripeapi.PaymentIntentParams{
		Amount:   stripeapi.Int64(req.Amount),
		Currency: stripeapi.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripeapi.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripeapi.Bool(true),
		},
	}
	if req.Description != "" {
		params.Description = stripeapi.String(req.Description)
	}
	if req.CustomerEmail != "" {
		params.ReceiptEmail = stripeapi.String(req.CustomerEmail)
	}
	params.Context = ctx
	params.SetIdempotencyKey("order-" + req.OrderID + "-" + strconv.FormatInt(req.Amount, 10))
	params.AddMetadata("order_id", req.OrderID)
	if req.CustomerName != "" {
		params.AddMetadata("customer_name", req.CustomerName)
	}

	intent, err := a.client.PaymentIntents.New(params)
	if err != nil {
		a.log.Warn("stripe payment intent failed",
			zap.String("order_id", req.OrderID),
			zap.Error(err))
		return domain.FailedIntent(domain.ErrorCodeNetwork, describe(err))
	}

	return domain.PaymentIntentResult{
		Success:          true,
		GatewayPaymentID: intent.ID,
		ClientSecret:     intent.ClientSecret,
		TransactionID:    intent.ID,
	}
}

func (a *Adapter) VerifyWebhookSignature(payload []byte, sigHeader string) bool {
	if a.webhookSecret == "" {
		if a.requireSecret {
			a.log.Warn("stripe webhook secret not configured, rejecting webhook")
			return false
		}
		a.log.Warn("stripe webhook secret not configured, accepting unsigned webhook")
		return true
	}

	sigHeader = strings.TrimSpace(sigHeader)
	if !strings.HasPrefix(sigHeader, signaturePrefix) {
		return false
	}
	return signature.Valid(a.webhookSecret, payload, strings.TrimPrefix(sigHeader, signaturePrefix))
}

func (a *Adapter) ProcessWebhook(payload []byte) (*domain.WebhookResult, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidPayload
	}

	eventType := strings.TrimSpace(event.Type)
	if !strings.HasPrefix(eventType, eventPrefix) {
		a.log.Debug("unhandled stripe event type",
			zap.String("type", eventType),
			zap.String("event_id", event.ID))
		return nil, domain.ErrEventIgnored
	}

	var intent stripePaymentIntent
	if err := json.Unmarshal(event.Data.Object, &intent); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if strings.TrimSpace(intent.ID) == "" {
		return nil, domain.ErrInvalidPayload
	}

	orderID := readMetadataValue(intent.Metadata, "order_id", "orderId", "orderID")
	if orderID == "" {
		a.log.Warn("stripe payment intent missing order_id metadata", zap.String("payment_intent", intent.ID))
		return nil, domain.ErrInvalidPayload
	}

	amount := intent.AmountReceived
	if amount <= 0 {
		amount = intent.Amount
	}

	return &domain.WebhookResult{
		OrderID:              orderID,
		CanonicalStatus:      canonicalStatus(strings.TrimPrefix(eventType, eventPrefix)),
		GatewayTransactionID: intent.ID,
		Amount:               amount,
		EventType:            eventType,
	}, nil
}

func (a *Adapter) CalculateFees(amount int64, currency string) domain.FeeQuote {
	return fee.Stripe(amount, currency)
}

func canonicalStatus(action string) domain.CanonicalStatus {
	switch action {
	case "succeeded":
		return domain.CanonicalSuccess
	case "canceled":
		return domain.CanonicalFailed
	default:
		return domain.CanonicalPending
	}
}

func describe(err error) string {
	var stripeErr *stripeapi.Error
	if errors.As(err, &stripeErr) {
		msg := stripeErr.Msg
		if msg == "" {
			msg = string(stripeErr.Type)
		}
		return "stripe responded " + strconv.Itoa(stripeErr.HTTPStatusCode) + ": " + msg
	}
	return err.Error()
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripePaymentIntent struct {
	ID             string         `json:"id"`
	Status         string         `json:"status"`
	Amount         int64          `json:"amount"`
	AmountReceived int64          `json:"amount_received"`
	Currency       string         `json:"currency"`
	Metadata       map[string]any `json:"metadata"`
}

func readMetadataValue(metadata map[string]any, keys ...string) string {
	for _, key := range keys {
		value, ok := metadata[key]
		if !ok {
			continue
		}
		switch cast := value.(type) {
		case string:
			if v := strings.TrimSpace(cast); v != "" {
				return v
			}
		case float64:
			if cast != 0 {
				return strconv.FormatInt(int64(cast), 10)
			}
		case json.Number:
			return cast.String()
		}
	}
	return ""
}

func readString(config map[string]any, key string) (string, bool) {
	value, ok := config[key]
	if !ok {
		return "", false
	}
	str, ok := value.(string)
	return str, ok
}
