package domain

import (
	"strings"
	"time"
)

type CanonicalStatus string

const (
	CanonicalSuccess CanonicalStatus = "success"
	CanonicalFailed  CanonicalStatus = "failed"
	CanonicalPending CanonicalStatus = "pending"
)

const (
	ErrorCodeNetwork         = "NETWORK_ERROR"
	ErrorCodeGatewayRejected = "GATEWAY_REJECTED"
)

// MockPrefix marks identifiers produced without contacting a gateway.
const MockPrefix = "mock_"

// PaymentIntentRequest carries amounts in minor currency units.
type PaymentIntentRequest struct {
	Amount        int64
	Currency      string
	OrderID       string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Description   string
	ReturnURL     string
	CancelURL     string
	WebhookURL    string
}

type PaymentIntentResult struct {
	Success          bool   `json:"success"`
	GatewayPaymentID string `json:"paymentIntentId,omitempty"`
	ClientSecret     string `json:"clientSecret,omitempty"`
	RedirectURL      string `json:"redirectUrl,omitempty"`
	TransactionID    string `json:"transactionId,omitempty"`
	Mock             bool   `json:"mock,omitempty"`
	ErrorCode        string `json:"code,omitempty"`
	Error            string `json:"error,omitempty"`
}

func FailedIntent(code, message string) PaymentIntentResult {
	return PaymentIntentResult{
		Success:   false,
		ErrorCode: code,
		Error:     code + ": " + message,
	}
}

// RawWebhookEvent is the unparsed delivery as received; it is never persisted.
type RawWebhookEvent struct {
	Provider        string
	RawBody         []byte
	SignatureHeader string
	ReceivedAt      time.Time
}

// WebhookResult is a provider notification normalized to the canonical vocabulary.
type WebhookResult struct {
	OrderID              string
	CanonicalStatus      CanonicalStatus
	GatewayTransactionID string
	Amount               int64
	EventType            string
}

type FeeQuote struct {
	Amount   int64   `json:"amount"`
	Currency string  `json:"currency"`
	Fee      int64   `json:"fee"`
	Total    int64   `json:"total"`
	Rate     float64 `json:"rate"`
	Fixed    int64   `json:"fixed"`
}

func NormalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

// ValidCurrency reports whether code looks like an ISO 4217 alphabetic code.
func ValidCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}
