package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusPaid           Status = "paid"
	StatusFailed         Status = "failed"
	StatusProcessing     Status = "processing"
	StatusShipped        Status = "shipped"
	StatusDelivered      Status = "delivered"
)

// IsTerminal reports whether the payment outcome of the order is settled.
func (s Status) IsTerminal() bool {
	return s != StatusPendingPayment
}

// Paid reports whether the order was paid, including every fulfillment state after it.
func (s Status) Paid() bool {
	switch s {
	case StatusPaid, StatusProcessing, StatusShipped, StatusDelivered:
		return true
	default:
		return false
	}
}

// NextFulfillment returns the only state reachable from s by fulfillment, if any.
func (s Status) NextFulfillment() (Status, bool) {
	switch s {
	case StatusPaid:
		return StatusProcessing, true
	case StatusProcessing:
		return StatusShipped, true
	case StatusShipped:
		return StatusDelivered, true
	default:
		return "", false
	}
}

// Order amounts are stored in minor currency units.
type Order struct {
	ID              snowflake.ID   `gorm:"primaryKey;autoIncrement:false"`
	OrderNumber     string         `gorm:"size:40;uniqueIndex"`
	UserID          string         `gorm:"size:128;index"`
	Items           datatypes.JSON `gorm:"not null"`
	ShippingAddress datatypes.JSON `gorm:"not null"`
	BillingAddress  datatypes.JSON `gorm:"not null"`
	ShippingMethod  string         `gorm:"size:64"`
	PaymentMethod   string         `gorm:"size:32"`
	CustomerNotes   *string
	Status          Status `gorm:"size:32;index"`
	Subtotal        int64
	Shipping        int64
	Tax             int64
	Total           int64
	Currency        string  `gorm:"size:3"`
	TransactionID   *string `gorm:"size:255"`
	Version         int64   `gorm:"not null;default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	PaidAt          *time.Time
	FailedAt        *time.Time
}

func (Order) TableName() string {
	return "orders"
}

func (o *Order) Transaction() string {
	if o.TransactionID == nil {
		return ""
	}
	return *o.TransactionID
}

type Item struct {
	ProductID string `json:"productId,omitempty"`
	Name      string `json:"name"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

type Address struct {
	FullName   string `json:"fullName"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
}

// StatusChange is a conditional write: it only applies while the row still has FromStatus
// and FromVersion.
type StatusChange struct {
	OrderID       snowflake.ID
	FromStatus    Status
	FromVersion   int64
	ToStatus      Status
	TransactionID *string
	PaidAt        *time.Time
	FailedAt      *time.Time
	UpdatedAt     time.Time
}
