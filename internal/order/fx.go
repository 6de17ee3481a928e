package order

import (
	"github.com/railzwaylabs/orderpay/internal/order/repository"
	"github.com/railzwaylabs/orderpay/internal/order/sequence"
	"github.com/railzwaylabs/orderpay/internal/order/service"
	"github.com/railzwaylabs/orderpay/internal/payment/adapters"
	"go.uber.org/fx"
)

var Module = fx.Module("order.service",
	fx.Provide(repository.Provide),
	fx.Provide(sequence.New),
	fx.Provide(func(r *adapters.Registry) service.PaymentMethods { return r }),
	fx.Provide(service.New),
)
