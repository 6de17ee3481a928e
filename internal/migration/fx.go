package migration

import (
	"context"
	"time"

	"github.com/railzwaylabs/orderpay/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(gdb *gorm.DB, cfg config.Config, log *zap.Logger) error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		return Run(ctx, gdb, cfg.Database.Driver, log)
	}),
)
