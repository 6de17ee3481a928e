package payplus

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/railzwaylabs/orderpay/internal/payment/domain"
	"github.com/railzwaylabs/orderpay/internal/payment/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdapter(t *testing.T, config map[string]any, timeout time.Duration) *Adapter {
	t.Helper()
	a, err := NewFactory().NewAdapter(domain.AdapterConfig{
		Config:        config,
		PublicBaseURL: "http://localhost:8080",
		Timeout:       timeout,
	})
	require.NoError(t, err)
	return a.(*Adapter)
}

func credentials(baseURL string) map[string]any {
	return map[string]any{
		"api_key":          "key_1",
		"secret_key":       "secret_1",
		"payment_page_uid": "page_1",
		"api_base_url":     baseURL,
	}
}

func validRequest() domain.PaymentIntentRequest {
	return domain.PaymentIntentRequest{
		Amount:        26060,
		Currency:      "ils",
		OrderID:       "1234",
		CustomerName:  "Dana Levi",
		CustomerEmail: "dana@example.com",
		CustomerPhone: "0501234567",
		Description:   "Order ORD-20261015-000001",
		ReturnURL:     "http://localhost:3000/success",
		CancelURL:     "http://localhost:3000/cancel",
		WebhookURL:    "http://localhost:8080/payment/payplus/webhook",
	}
}

func TestNewAdapterRejectsBadBaseURL(t *testing.T) {
	_, err := NewFactory().NewAdapter(domain.AdapterConfig{Config: map[string]any{"api_base_url": "ftp://x"}})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestCreatePaymentMockFallback(t *testing.T) {
	// only one of the two keys present
	a := newAdapter(t, map[string]any{"api_key": "key_1"}, 0)
	require.False(t, a.Configured())

	result := a.CreatePayment(context.Background(), validRequest())

	assert.True(t, result.Success)
	assert.True(t, result.Mock)
	assert.Equal(t, "mock_pi_1234", result.GatewayPaymentID)
	assert.Equal(t, "mock_txn_1234", result.TransactionID)
	assert.Equal(t, "http://localhost:8080/payment/mock/payplus/checkout?order_id=1234", result.RedirectURL)
	assert.Empty(t, result.ClientSecret)
}

func TestCreatePaymentGeneratesLink(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/PaymentPages/generateLink", r.URL.Path)
		assert.Equal(t, "key_1", r.Header.Get("api-key"))
		assert.Equal(t, "secret_1", r.Header.Get("secret-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"results":{"status":"success","code":0},"data":{"page_request_uid":"pr_77","payment_page_link":"https://pay.example/p/pr_77"}}`)
	}))
	defer srv.Close()

	a := newAdapter(t, credentials(srv.URL), time.Second)
	result := a.CreatePayment(context.Background(), validRequest())

	require.True(t, result.Success, result.Error)
	assert.False(t, result.Mock)
	assert.Equal(t, "pr_77", result.GatewayPaymentID)
	assert.Equal(t, "https://pay.example/p/pr_77", result.RedirectURL)

	assert.Equal(t, "page_1", got["payment_page_uid"])
	assert.InDelta(t, 260.6, got["amount"], 0.0001)
	assert.Equal(t, "ILS", got["currency_code"])
	assert.Equal(t, "1234", got["more_info"])
	assert.Equal(t, "http://localhost:8080/payment/payplus/webhook", got["refURL_callback"])
	cust, ok := got["customer"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Dana Levi", cust["customer_name"])
}

func TestCreatePaymentFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   string
	}{
		{"server error", http.StatusInternalServerError, `{}`, domain.ErrorCodeNetwork},
		{"unauthorized", http.StatusUnauthorized, `{"results":{"status":"error"}}`, domain.ErrorCodeNetwork},
		{"malformed body", http.StatusOK, `<html>`, domain.ErrorCodeNetwork},
		{"gateway rejected", http.StatusOK, `{"results":{"status":"error","code":1,"description":"invalid page uid"}}`, domain.ErrorCodeGatewayRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			result := newAdapter(t, credentials(srv.URL), time.Second).CreatePayment(context.Background(), validRequest())

			assert.False(t, result.Success)
			assert.Equal(t, tt.code, result.ErrorCode)
			assert.True(t, strings.HasPrefix(result.Error, tt.code+": "))
		})
	}
}

func TestCreatePaymentTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	result := newAdapter(t, credentials(srv.URL), 50*time.Millisecond).CreatePayment(context.Background(), validRequest())

	assert.False(t, result.Success)
	assert.Equal(t, domain.ErrorCodeNetwork, result.ErrorCode)
}

func TestVerifyWebhookSignature(t *testing.T) {
	a := newAdapter(t, map[string]any{"webhook_secret": "pp_secret"}, 0)
	body := []byte(`{"status":"completed","order_id":"42","transaction_id":"t1"}`)
	sig := signature.Compute("pp_secret", body)

	assert.True(t, a.VerifyWebhookSignature(body, sig))
	assert.True(t, a.VerifyWebhookSignature(body, strings.ToUpper(sig)))
	assert.False(t, a.VerifyWebhookSignature(body, "sha256="+sig))
	assert.False(t, a.VerifyWebhookSignature(append(body, ' '), sig))
	assert.False(t, a.VerifyWebhookSignature(body, signature.Compute("other", body)))
}

func TestVerifyWebhookSignatureWithoutSecret(t *testing.T) {
	a := newAdapter(t, nil, 0)
	assert.True(t, a.VerifyWebhookSignature([]byte(`{}`), "anything"))
}

func TestProcessWebhook(t *testing.T) {
	a := newAdapter(t, nil, 0)

	tests := []struct {
		name   string
		body   string
		status domain.CanonicalStatus
		amount int64
	}{
		{"completed", `{"status":"completed","order_id":"42","transaction_id":"t1","amount":26060}`, domain.CanonicalSuccess, 26060},
		{"failed", `{"status":"FAILED","order_id":"42","transaction_id":"t1","amount":"26060"}`, domain.CanonicalFailed, 26060},
		{"pending", `{"status":"pending","order_id":42,"transaction_id":"t1"}`, domain.CanonicalPending, 0},
		{"unknown status", `{"status":"whatever","order_id":"42","transaction_id":"t1"}`, domain.CanonicalPending, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := a.ProcessWebhook([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, "42", result.OrderID)
			assert.Equal(t, "t1", result.GatewayTransactionID)
			assert.Equal(t, tt.status, result.CanonicalStatus)
			assert.Equal(t, tt.amount, result.Amount)
		})
	}
}

func TestProcessWebhookInvalidPayload(t *testing.T) {
	a := newAdapter(t, nil, 0)

	for _, body := range []string{
		`{`,
		`{"status":"completed","transaction_id":"t1"}`,
		`{"status":"completed","order_id":"42"}`,
		`{"status":"completed","order_id":"","transaction_id":"t1"}`,
	} {
		_, err := a.ProcessWebhook([]byte(body))
		assert.ErrorIs(t, err, domain.ErrInvalidPayload, body)
	}
}

func TestCalculateFees(t *testing.T) {
	q := newAdapter(t, nil, 0).CalculateFees(26060, "ILS")
	assert.Equal(t, int64(906), q.Fee)
	assert.Equal(t, int64(26966), q.Total)
}
