package observability

import (
	"github.com/railzwaylabs/orderpay/internal/config"
	"go.uber.org/zap"
)

// NewLogger builds the root logger. Components derive theirs with Named.
func NewLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		log *zap.Logger
		err error
	)
	if cfg.App.IsDevelopment() {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return log.With(zap.String("service", cfg.App.Name)), nil
}
