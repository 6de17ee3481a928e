package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/railzwaylabs/orderpay/internal/config"
	orderdomain "github.com/railzwaylabs/orderpay/internal/order/domain"
	"github.com/railzwaylabs/orderpay/internal/payment/adapters"
	paymentdomain "github.com/railzwaylabs/orderpay/internal/payment/domain"
	paymentservice "github.com/railzwaylabs/orderpay/internal/payment/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("server",
	fx.Provide(NewServer),
	fx.Invoke(RegisterLifecycle),
)

type ServerParams struct {
	fx.In

	Cfg        config.Config
	Log        *zap.Logger
	DB         *gorm.DB `optional:"true"`
	Orders     orderdomain.Service
	Checkout   *paymentservice.CheckoutService
	Reconciler paymentdomain.Reconciler
	Registry   *adapters.Registry
}

type Server struct {
	cfg        config.Config
	log        *zap.Logger
	db         *gorm.DB
	orderSvc   orderdomain.Service
	checkout   *paymentservice.CheckoutService
	reconciler paymentdomain.Reconciler
	registry   *adapters.Registry
	engine     *gin.Engine
}

func NewServer(p ServerParams) *Server {
	if !p.Cfg.App.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:        p.Cfg,
		log:        p.Log.Named("http"),
		db:         p.DB,
		orderSvc:   p.Orders,
		checkout:   p.Checkout,
		reconciler: p.Reconciler,
		registry:   p.Registry,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), RequestID(), Tracing(p.Cfg.App.Name), RequestLogger(s.log))
	s.engine = engine
	s.RegisterRoutes(engine)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", s.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	orders := r.Group("/orders", IdentityRequired())
	orders.POST("", s.CreateOrder)
	orders.GET("/:id", s.GetOrder)

	r.POST("/orders/:id/fulfillment", FulfillmentRequired(s.cfg.Orders.FulfillmentToken), s.AdvanceFulfillment)

	r.GET("/payment/mock/:provider/checkout", s.MockCheckout)

	payment := r.Group("/payment/:provider")
	payment.POST("/create", s.CreatePayment)
	payment.GET("/fees", s.QuoteFees)
	payment.POST("/webhook", s.PaymentWebhook)
}

// Health reports liveness plus database reachability when a database is wired.
// GET /healthz
func (s *Server) Health(c *gin.Context) {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			s.log.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func RegisterLifecycle(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:              s.cfg.HTTP.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			s.log.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					s.log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
