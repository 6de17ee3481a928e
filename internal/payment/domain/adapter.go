package domain

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// GatewayAdapter normalizes one payment processor into the canonical payment interface.
type GatewayAdapter interface {
	Provider() string
	// SignatureHeader names the request header carrying the webhook signature.
	SignatureHeader() string

	// CreatePayment never returns an error value; expected failures are reported in the result.
	CreatePayment(ctx context.Context, req PaymentIntentRequest) PaymentIntentResult
	VerifyWebhookSignature(payload []byte, signature string) bool
	// ProcessWebhook returns ErrEventIgnored for event types that carry no payment outcome.
	ProcessWebhook(payload []byte) (*WebhookResult, error)
	CalculateFees(amount int64, currency string) FeeQuote
}

type AdapterConfig struct {
	Provider string
	Config   map[string]any

	// PublicBaseURL is used to build mock redirect targets.
	PublicBaseURL        string
	Timeout              time.Duration
	RequireWebhookSecret bool
	HTTPClient           *http.Client
	Logger               *zap.Logger
}

type AdapterFactory interface {
	Provider() string
	NewAdapter(config AdapterConfig) (GatewayAdapter, error)
}
