package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// publisher is the part of *amqp.Channel the AMQP channel needs.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQP publishes settled-order events to a topic exchange, routed by event type. The
// connection is opened on first use and re-opened after a failure.
type AMQP struct {
	url      string
	exchange string
	log      *zap.Logger

	mu    sync.Mutex
	dial  func() (publisher, func() error, error)
	pub   publisher
	close func() error
}

func NewAMQP(url, exchange string, log *zap.Logger) *AMQP {
	a := &AMQP{
		url:      url,
		exchange: exchange,
		log:      log.Named("notification.amqp"),
	}
	a.dial = a.connect
	return a
}

func (a *AMQP) Name() string {
	return "amqp"
}

func (a *AMQP) Send(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.pub == nil {
		pub, closeFn, err := a.dial()
		if err != nil {
			return err
		}
		a.pub, a.close = pub, closeFn
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.OrderID + ":" + event.Type,
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
		Headers:      traceHeaders(ctx),
		Body:         body,
	}
	if err := a.pub.PublishWithContext(ctx, a.exchange, event.Type, false, false, msg); err != nil {
		a.resetLocked()
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

func (a *AMQP) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.resetLocked()
}

func (a *AMQP) resetLocked() error {
	var err error
	if a.close != nil {
		err = a.close()
	}
	a.pub, a.close = nil, nil
	return err
}

func (a *AMQP) connect() (publisher, func() error, error) {
	conn, err := amqp.Dial(a.url)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to amqp broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(a.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("declare exchange %s: %w", a.exchange, err)
	}
	a.log.Info("connected to amqp broker", zap.String("exchange", a.exchange))

	closeFn := func() error {
		_ = ch.Close()
		return conn.Close()
	}
	return ch, closeFn, nil
}

// traceHeaders carries the current trace context to consumers.
func traceHeaders(ctx context.Context) amqp.Table {
	headers := amqp.Table{}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier(headers))
	return headers
}

type headerCarrier amqp.Table

func (c headerCarrier) Get(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	c[key] = value
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
