package payplus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/railzwaylabs/orderpay/internal/money"
	"github.com/railzwaylabs/orderpay/internal/payment/domain"
	"github.com/railzwaylabs/orderpay/internal/payment/fee"
	"github.com/railzwaylabs/orderpay/internal/payment/signature"
	"go.uber.org/zap"
)

const (
	ProviderName    = "payplus"
	SignatureHeader = "X-PayPlus-Signature"

	defaultBaseURL  = "https://restapi.payplus.co.il/api/v1.0"
	generateLinkURI = "/PaymentPages/generateLink"
	maxResponseSize = 1 << 20
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return ProviderName
}

func (f *Factory) NewAdapter(cfg domain.AdapterConfig) (domain.GatewayAdapter, error) {
	apiKey, _ := readString(cfg.Config, "api_key")
	secretKey, _ := readString(cfg.Config, "secret_key")
	pageUID, _ := readString(cfg.Config, "payment_page_uid")
	webhookSecret, _ := readString(cfg.Config, "webhook_secret")
	baseURL, _ := readString(cfg.Config, "api_base_url")

	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, domain.ErrInvalidConfig
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Adapter{
		apiKey:        strings.TrimSpace(apiKey),
		secretKey:     strings.TrimSpace(secretKey),
		pageUID:       strings.TrimSpace(pageUID),
		webhookSecret: strings.TrimSpace(webhookSecret),
		requireSecret: cfg.RequireWebhookSecret,
		baseURL:       baseURL,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		timeout:       timeout,
		httpClient:    httpClient,
		log:           log.Named("payment.payplus"),
	}, nil
}

// Adapter talks to the PayPlus hosted payment page API.
type Adapter struct {
	apiKey        string
	secretKey     string
	pageUID       string
	webhookSecret string
	requireSecret bool
	baseURL       string
	publicBaseURL string
	timeout       time.Duration
	httpClient    *http.Client
	log           *zap.Logger
}

func (a *Adapter) Provider() string {
	return ProviderName
}

func (a *Adapter) SignatureHeader() string {
	return SignatureHeader
}

func (a *Adapter) Configured() bool {
	return a.apiKey != "" && a.secretKey != ""
}

func (a *Adapter) CreatePayment(ctx context.Context, req domain.PaymentIntentRequest) domain.PaymentIntentResult {
	if !a.Configured() {
		a.log.Info("payplus not configured, returning mock payment link", zap.String("order_id", req.OrderID))
		return domain.MockIntent(ProviderName, a.publicBaseURL, req)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	body, err := json.Marshal(generateLinkRequest{
		PaymentPageUID: a.pageUID,
		Amount:         money.ToMajor(req.Amount),
		CurrencyCode:   domain.NormalizeCurrency(req.Currency),
		ChargeMethod:   1,
		MoreInfo:       req.OrderID,
		SuccessURL:     req.ReturnURL,
		FailureURL:     req.CancelURL,
		CallbackURL:    req.WebhookURL,
		SendEmail:      req.CustomerEmail != "",
		Customer: customer{
			Name:  req.CustomerName,
			Email: req.CustomerEmail,
			Phone: req.CustomerPhone,
		},
	})
	if err != nil {
		return domain.FailedIntent(domain.ErrorCodeNetwork, err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+generateLinkURI, bytes.NewReader(body))
	if err != nil {
		return domain.FailedIntent(domain.ErrorCodeNetwork, err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", a.apiKey)
	httpReq.Header.Set("secret-key", a.secretKey)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		a.log.Warn("payplus request failed", zap.String("order_id", req.OrderID), zap.Error(err))
		return domain.FailedIntent(domain.ErrorCodeNetwork, err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return domain.FailedIntent(domain.ErrorCodeNetwork, err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		a.log.Warn("payplus responded with error status",
			zap.String("order_id", req.OrderID),
			zap.Int("status", resp.StatusCode))
		return domain.FailedIntent(domain.ErrorCodeNetwork, fmt.Sprintf("payplus responded %d", resp.StatusCode))
	}

	var out generateLinkResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.FailedIntent(domain.ErrorCodeNetwork, "decode payplus response: "+err.Error())
	}
	if !strings.EqualFold(strings.TrimSpace(out.Results.Status), "success") || out.Data.PaymentPageLink == "" {
		msg := strings.TrimSpace(out.Results.Description)
		if msg == "" {
			msg = "payment page was not created"
		}
		a.log.Warn("payplus rejected payment page request",
			zap.String("order_id", req.OrderID),
			zap.String("status", out.Results.Status),
			zap.String("description", msg))
		return domain.FailedIntent(domain.ErrorCodeGatewayRejected, msg)
	}

	return domain.PaymentIntentResult{
		Success:          true,
		GatewayPaymentID: out.Data.PageRequestUID,
		RedirectURL:      out.Data.PaymentPageLink,
		TransactionID:    out.Data.PageRequestUID,
	}
}

func (a *Adapter) VerifyWebhookSignature(payload []byte, sigHeader string) bool {
	if a.webhookSecret == "" {
		if a.requireSecret {
			a.log.Warn("payplus webhook secret not configured, rejecting webhook")
			return false
		}
		a.log.Warn("payplus webhook secret not configured, accepting unsigned webhook")
		return true
	}
	return signature.Valid(a.webhookSecret, payload, strings.TrimSpace(sigHeader))
}

func (a *Adapter) ProcessWebhook(payload []byte) (*domain.WebhookResult, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var event webhookEvent
	if err := dec.Decode(&event); err != nil {
		return nil, domain.ErrInvalidPayload
	}

	orderID := flexString(event.OrderID)
	txID := flexString(event.TransactionID)
	if orderID == "" || txID == "" {
		a.log.Warn("payplus webhook missing identifiers",
			zap.String("order_id", orderID),
			zap.String("transaction_id", txID))
		return nil, domain.ErrInvalidPayload
	}

	status := strings.ToLower(strings.TrimSpace(event.Status))
	return &domain.WebhookResult{
		OrderID:              orderID,
		CanonicalStatus:      canonicalStatus(status),
		GatewayTransactionID: txID,
		Amount:               minorUnits(event.Amount),
		EventType:            status,
	}, nil
}

func (a *Adapter) CalculateFees(amount int64, currency string) domain.FeeQuote {
	return fee.PayPlus(amount, currency)
}

func canonicalStatus(status string) domain.CanonicalStatus {
	switch status {
	case "completed":
		return domain.CanonicalSuccess
	case "failed":
		return domain.CanonicalFailed
	default:
		return domain.CanonicalPending
	}
}

type generateLinkRequest struct {
	PaymentPageUID string   `json:"payment_page_uid"`
	Amount         float64  `json:"amount"`
	CurrencyCode   string   `json:"currency_code"`
	ChargeMethod   int      `json:"charge_method"`
	MoreInfo       string   `json:"more_info"`
	SuccessURL     string   `json:"refURL_success,omitempty"`
	FailureURL     string   `json:"refURL_failure,omitempty"`
	CallbackURL    string   `json:"refURL_callback,omitempty"`
	SendEmail      bool     `json:"sendEmailApproval"`
	Customer       customer `json:"customer"`
}

type customer struct {
	Name  string `json:"customer_name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type generateLinkResponse struct {
	Results struct {
		Status      string `json:"status"`
		Code        int    `json:"code"`
		Description string `json:"description"`
	} `json:"results"`
	Data struct {
		PageRequestUID  string `json:"page_request_uid"`
		PaymentPageLink string `json:"payment_page_link"`
	} `json:"data"`
}

type webhookEvent struct {
	Status        string `json:"status"`
	OrderID       any    `json:"order_id"`
	TransactionID any    `json:"transaction_id"`
	Amount        any    `json:"amount"`
}

// flexString accepts identifiers sent either as JSON strings or numbers.
func flexString(v any) string {
	switch cast := v.(type) {
	case string:
		return strings.TrimSpace(cast)
	case json.Number:
		return cast.String()
	default:
		return ""
	}
}

// minorUnits reads a webhook amount, which PayPlus reports in minor units.
func minorUnits(v any) int64 {
	var raw string
	switch cast := v.(type) {
	case json.Number:
		raw = cast.String()
	case string:
		raw = strings.TrimSpace(cast)
	default:
		return 0
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return int64(math.Round(f))
}

func readString(config map[string]any, key string) (string, bool) {
	value, ok := config[key]
	if !ok {
		return "", false
	}
	str, ok := value.(string)
	return str, ok
}
