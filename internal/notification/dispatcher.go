// Package notification tells downstream systems that an order's payment settled.
package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/railzwaylabs/orderpay/internal/money"
	orderdomain "github.com/railzwaylabs/orderpay/internal/order/domain"
	"go.uber.org/zap"
)

const (
	EventOrderPaid          = "order.paid"
	EventOrderPaymentFailed = "order.payment_failed"
)

type Event struct {
	Type          string    `json:"type"`
	OrderID       string    `json:"orderId"`
	OrderNumber   string    `json:"orderNumber"`
	Status        string    `json:"status"`
	Total         float64   `json:"total"`
	Currency      string    `json:"currency"`
	PaymentMethod string    `json:"paymentMethod"`
	TransactionID string    `json:"transactionId,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

func EventFromOrder(o *orderdomain.Order) Event {
	typ := EventOrderPaid
	occurred := o.UpdatedAt
	if o.Status == orderdomain.StatusFailed {
		typ = EventOrderPaymentFailed
		if o.FailedAt != nil {
			occurred = *o.FailedAt
		}
	} else if o.PaidAt != nil {
		occurred = *o.PaidAt
	}
	return Event{
		Type:          typ,
		OrderID:       o.ID.String(),
		OrderNumber:   o.OrderNumber,
		Status:        string(o.Status),
		Total:         money.ToMajor(o.Total),
		Currency:      o.Currency,
		PaymentMethod: o.PaymentMethod,
		TransactionID: o.Transaction(),
		OccurredAt:    occurred,
	}
}

// Channel delivers one event to one destination.
type Channel interface {
	Name() string
	Send(ctx context.Context, event Event) error
}

// Dispatcher fans an event out to every configured channel. One failing channel does not
// stop the others.
type Dispatcher struct {
	log      *zap.Logger
	channels []Channel
}

func NewDispatcher(log *zap.Logger, channels ...Channel) *Dispatcher {
	return &Dispatcher{
		log:      log.Named("notification.dispatcher"),
		channels: channels,
	}
}

func (d *Dispatcher) OrderSettled(ctx context.Context, order *orderdomain.Order) error {
	if order == nil {
		return nil
	}
	event := EventFromOrder(order)
	if len(d.channels) == 0 {
		d.log.Debug("no notification channels configured", zap.String("order_id", event.OrderID))
		return nil
	}

	var errs []error
	for _, ch := range d.channels {
		if err := ch.Send(ctx, event); err != nil {
			d.log.Warn("notification channel failed",
				zap.String("channel", ch.Name()),
				zap.String("order_id", event.OrderID),
				zap.String("event", event.Type),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name(), err))
			continue
		}
		d.log.Debug("notification sent",
			zap.String("channel", ch.Name()),
			zap.String("order_id", event.OrderID),
			zap.String("event", event.Type))
	}
	return errors.Join(errs...)
}
