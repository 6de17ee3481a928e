package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/railzwaylabs/orderpay/internal/money"
	paymentdomain "github.com/railzwaylabs/orderpay/internal/payment/domain"
)

type Service interface {
	CreateOrder(ctx context.Context, userID string, req CreateOrderRequest) (*CreateOrderResult, error)
	GetOrder(ctx context.Context, id string) (*Order, error)
	UpdatePaymentStatus(ctx context.Context, orderID string, status paymentdomain.CanonicalStatus, transactionID string) error
	AdvanceFulfillment(ctx context.Context, orderID string, to Status) (*Order, error)
}

// CreateOrderRequest mirrors the checkout payload; amounts are decimal major units.
type CreateOrderRequest struct {
	Items           []ItemRequest `json:"items"`
	ShippingAddress *Address      `json:"shippingAddress"`
	BillingAddress  *Address      `json:"billingAddress"`
	ShippingMethod  string        `json:"shippingMethod"`
	PaymentMethod   string        `json:"paymentMethod"`
	CustomerNotes   string        `json:"customerNotes,omitempty"`
	Subtotal        float64       `json:"subtotal"`
	Shipping        float64       `json:"shipping"`
	Tax             float64       `json:"tax"`
	Total           float64       `json:"total"`
	Currency        string        `json:"currency"`
}

type ItemRequest struct {
	ProductID string  `json:"productId,omitempty"`
	Name      string  `json:"name"`
	Quantity  int64   `json:"quantity"`
	Price     float64 `json:"price"`
}

type CreateOrderResult struct {
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
}

type ItemResponse struct {
	ProductID string  `json:"productId,omitempty"`
	Name      string  `json:"name"`
	Quantity  int64   `json:"quantity"`
	Price     float64 `json:"price"`
}

type Response struct {
	ID              string         `json:"id"`
	OrderNumber     string         `json:"orderNumber"`
	Status          Status         `json:"status"`
	Items           []ItemResponse `json:"items"`
	ShippingAddress *Address       `json:"shippingAddress,omitempty"`
	BillingAddress  *Address       `json:"billingAddress,omitempty"`
	ShippingMethod  string         `json:"shippingMethod"`
	PaymentMethod   string         `json:"paymentMethod"`
	CustomerNotes   *string        `json:"customerNotes,omitempty"`
	Subtotal        float64        `json:"subtotal"`
	Shipping        float64        `json:"shipping"`
	Tax             float64        `json:"tax"`
	Total           float64        `json:"total"`
	Currency        string         `json:"currency"`
	TransactionID   *string        `json:"transactionId,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	PaidAt          *time.Time     `json:"paidAt,omitempty"`
	FailedAt        *time.Time     `json:"failedAt,omitempty"`
}

// ToResponse renders an order for clients. Stored JSON columns that no longer decode are
// reported rather than rendered empty.
func ToResponse(o *Order) (Response, error) {
	var items []Item
	if len(o.Items) > 0 {
		if err := json.Unmarshal(o.Items, &items); err != nil {
			return Response{}, fmt.Errorf("decode items of order %s: %w", o.ID, err)
		}
	}
	out := make([]ItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, ItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     money.ToMajor(it.UnitPrice),
		})
	}

	shipping, err := decodeAddress(o.ShippingAddress)
	if err != nil {
		return Response{}, fmt.Errorf("decode shipping address of order %s: %w", o.ID, err)
	}
	billing, err := decodeAddress(o.BillingAddress)
	if err != nil {
		return Response{}, fmt.Errorf("decode billing address of order %s: %w", o.ID, err)
	}

	return Response{
		ID:              o.ID.String(),
		OrderNumber:     o.OrderNumber,
		Status:          o.Status,
		Items:           out,
		ShippingAddress: shipping,
		BillingAddress:  billing,
		ShippingMethod:  o.ShippingMethod,
		PaymentMethod:   o.PaymentMethod,
		CustomerNotes:   o.CustomerNotes,
		Subtotal:        money.ToMajor(o.Subtotal),
		Shipping:        money.ToMajor(o.Shipping),
		Tax:             money.ToMajor(o.Tax),
		Total:           money.ToMajor(o.Total),
		Currency:        o.Currency,
		TransactionID:   o.TransactionID,
		CreatedAt:       o.CreatedAt,
		PaidAt:          o.PaidAt,
		FailedAt:        o.FailedAt,
	}, nil
}

func decodeAddress(raw []byte) (*Address, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var a Address
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

var (
	ErrOrderNotFound     = errors.New("order_not_found")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrConcurrentUpdate  = errors.New("concurrent_update")
)

// ValidationError names the offending field of a create request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// Validate checks the structural rules of a create request. Payment method support is
// checked by the service against the gateway registry.
func (r CreateOrderRequest) Validate() error {
	if len(r.Items) == 0 {
		return invalid("items", "at least one item is required")
	}
	for i, it := range r.Items {
		if it.Name == "" {
			return invalid(fmt.Sprintf("items[%d].name", i), "is required")
		}
		if it.Quantity <= 0 {
			return invalid(fmt.Sprintf("items[%d].quantity", i), "must be positive")
		}
		if it.Price < 0 {
			return invalid(fmt.Sprintf("items[%d].price", i), "must not be negative")
		}
	}
	if r.ShippingAddress == nil {
		return invalid("shippingAddress", "is required")
	}
	if r.BillingAddress == nil {
		return invalid("billingAddress", "is required")
	}
	if r.ShippingMethod == "" {
		return invalid("shippingMethod", "is required")
	}
	if r.PaymentMethod == "" {
		return invalid("paymentMethod", "is required")
	}
	if r.Currency == "" {
		return invalid("currency", "is required")
	}
	if !paymentdomain.ValidCurrency(r.Currency) {
		return invalid("currency", "must be a 3-letter ISO 4217 code")
	}
	if r.Subtotal < 0 || r.Shipping < 0 || r.Tax < 0 {
		return invalid("subtotal", "amounts must not be negative")
	}
	total := money.ToMinor(r.Total)
	if total <= 0 {
		return invalid("total", "must be positive")
	}
	if money.ToMinor(r.Subtotal)+money.ToMinor(r.Shipping)+money.ToMinor(r.Tax) != total {
		return invalid("total", "must equal subtotal + shipping + tax")
	}
	return nil
}

// ItemsSubtotal is the sum of price * quantity in minor units.
func (r CreateOrderRequest) ItemsSubtotal() int64 {
	var sum int64
	for _, it := range r.Items {
		sum += money.ToMinor(it.Price) * it.Quantity
	}
	return sum
}
