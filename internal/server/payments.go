package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/railzwaylabs/orderpay/internal/money"
	orderdomain "github.com/railzwaylabs/orderpay/internal/order/domain"
	"github.com/railzwaylabs/orderpay/internal/payment/domain"
)

const maxWebhookBodySize = 64 << 10

type feeQuoteResponse struct {
	Success  bool    `json:"success"`
	Provider string  `json:"provider"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Fee      float64 `json:"fee"`
	Total    float64 `json:"total"`
	Rate     float64 `json:"rate"`
	Fixed    float64 `json:"fixed"`
}

// mockCheckoutResponse carries no customer details since the mock page is unauthenticated.
type mockCheckoutResponse struct {
	Success     bool               `json:"success"`
	Mock        bool               `json:"mock"`
	Provider    string             `json:"provider"`
	OrderID     string             `json:"orderId"`
	OrderNumber string             `json:"orderNumber"`
	Status      orderdomain.Status `json:"status"`
	Total       float64            `json:"total"`
	Currency    string             `json:"currency"`
}

// CreatePayment
// POST /payment/:provider/create
func (s *Server) CreatePayment(c *gin.Context) {
	var req domain.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.checkout.CreatePayment(c.Request.Context(), c.Param("provider"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !result.Success {
		c.JSON(http.StatusBadGateway, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// QuoteFees
// GET /payment/:provider/fees?amount=260.6&currency=ILS
func (s *Server) QuoteFees(c *gin.Context) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(c.Query("amount")), 64)
	if err != nil {
		AbortWithError(c, &orderdomain.ValidationError{Field: "amount", Reason: "must be a number"})
		return
	}

	provider := c.Param("provider")
	quote, err := s.checkout.QuoteFees(provider, amount, c.Query("currency"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, feeQuoteResponse{
		Success:  true,
		Provider: strings.ToLower(provider),
		Amount:   money.ToMajor(quote.Amount),
		Currency: quote.Currency,
		Fee:      money.ToMajor(quote.Fee),
		Total:    money.ToMajor(quote.Total),
		Rate:     quote.Rate,
		Fixed:    money.ToMajor(quote.Fixed),
	})
}

// PaymentWebhook hands the raw delivery to the reconciler. The body is passed through
// byte for byte since the signature covers the exact bytes sent.
// POST /payment/:provider/webhook
func (s *Server) PaymentWebhook(c *gin.Context) {
	provider := c.Param("provider")

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			AbortWithError(c, ErrPayloadTooLarge)
			return
		}
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var sigHeader string
	if adapter, err := s.registry.Get(provider); err == nil {
		sigHeader = c.GetHeader(adapter.SignatureHeader())
	}

	outcome, err := s.reconciler.Reconcile(c.Request.Context(), domain.RawWebhookEvent{
		Provider:        provider,
		RawBody:         body,
		SignatureHeader: sigHeader,
		ReceivedAt:      time.Now().UTC(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if outcome == domain.OutcomeRejected {
		AbortWithError(c, domain.ErrInvalidSignature)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true, "outcome": outcome})
}

// MockCheckout is the redirect target handed out while a gateway runs without credentials.
// GET /payment/mock/:provider/checkout?order_id=...&outcome=success|failed
func (s *Server) MockCheckout(c *gin.Context) {
	orderID := strings.TrimSpace(c.Query("order_id"))
	if orderID == "" {
		AbortWithError(c, &orderdomain.ValidationError{Field: "order_id", Reason: "is required"})
		return
	}
	outcome := domain.CanonicalStatus(strings.ToLower(strings.TrimSpace(c.Query("outcome"))))

	order, err := s.checkout.MockCheckout(c.Request.Context(), c.Param("provider"), orderID, outcome)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, mockCheckoutResponse{
		Success:     true,
		Mock:        true,
		Provider:    strings.ToLower(c.Param("provider")),
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		Total:       money.ToMajor(order.Total),
		Currency:    order.Currency,
	})
}
