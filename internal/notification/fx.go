package notification

import (
	"context"
	"strings"

	"github.com/railzwaylabs/orderpay/internal/config"
	orderdomain "github.com/railzwaylabs/orderpay/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("notification",
	fx.Provide(
		fx.Annotate(New, fx.As(new(orderdomain.Notifier))),
	),
)

// New builds a dispatcher over the channels enabled in configuration.
func New(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *Dispatcher {
	var channels []Channel

	if url := strings.TrimSpace(cfg.Notification.SlackWebhookURL); url != "" {
		channels = append(channels, NewSlack(url))
	}
	if url := strings.TrimSpace(cfg.Notification.AMQPURL); url != "" {
		exchange := strings.TrimSpace(cfg.Notification.AMQPExchange)
		if exchange == "" {
			exchange = "orders"
		}
		publisher := NewAMQP(url, exchange, log)
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return publisher.Close()
			},
		})
		channels = append(channels, publisher)
	}

	names := make([]string, 0, len(channels))
	for _, ch := range channels {
		names = append(names, ch.Name())
	}
	log.Named("notification").Info("notification channels configured", zap.Strings("channels", names))

	return NewDispatcher(log, channels...)
}
