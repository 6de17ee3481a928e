package domain

// CreatePaymentRequest is the client payload for starting a payment; amounts are decimal
// major units.
type CreatePaymentRequest struct {
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	OrderID       string  `json:"orderId"`
	CustomerName  string  `json:"customerName"`
	CustomerEmail string  `json:"customerEmail"`
	CustomerPhone string  `json:"customerPhone,omitempty"`
	Description   string  `json:"description,omitempty"`
	ReturnURL     string  `json:"returnUrl"`
	CancelURL     string  `json:"cancelUrl"`
	WebhookURL    string  `json:"webhookUrl,omitempty"`
}

// Configurable is implemented by adapters that can fall back to mock mode.
type Configurable interface {
	Configured() bool
}
