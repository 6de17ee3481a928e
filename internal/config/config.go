package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	App           AppConfig           `mapstructure:"app"`
	HTTP          HTTPConfig          `mapstructure:"http"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Stripe        StripeConfig        `mapstructure:"stripe"`
	PayPlus       PayPlusConfig       `mapstructure:"payplus"`
	Payment       PaymentConfig       `mapstructure:"payment"`
	Notification  NotificationConfig  `mapstructure:"notification"`
	Orders        OrdersConfig        `mapstructure:"orders"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type AppConfig struct {
	Name   string `mapstructure:"name"`
	Env    string `mapstructure:"env"`
	NodeID int64  `mapstructure:"node_id"`
}

func (c AppConfig) IsDevelopment() bool {
	return strings.EqualFold(c.Env, EnvDevelopment)
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
	// PublicBaseURL is the externally reachable origin used for mock redirect targets.
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres, mysql or sqlite
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

type StripeConfig struct {
	SecretKey      string `mapstructure:"secret_key"`
	PublishableKey string `mapstructure:"publishable_key"`
	WebhookSecret  string `mapstructure:"webhook_secret"`
	APIBaseURL     string `mapstructure:"api_base_url"`
}

type PayPlusConfig struct {
	APIKey         string `mapstructure:"api_key"`
	SecretKey      string `mapstructure:"secret_key"`
	PaymentPageUID string `mapstructure:"payment_page_uid"`
	WebhookSecret  string `mapstructure:"webhook_secret"`
	APIBaseURL     string `mapstructure:"api_base_url"`
}

type PaymentConfig struct {
	GatewayTimeout time.Duration `mapstructure:"gateway_timeout"`
	// RequireWebhookSecret rejects unsigned webhooks instead of accepting them in demo mode.
	RequireWebhookSecret bool `mapstructure:"require_webhook_secret"`
}

type NotificationConfig struct {
	SlackWebhookURL string `mapstructure:"slack_webhook_url"`
	AMQPURL         string `mapstructure:"amqp_url"`
	AMQPExchange    string `mapstructure:"amqp_exchange"`
}

type OrdersConfig struct {
	VerifyItemSubtotal bool   `mapstructure:"verify_item_subtotal"`
	NumberPrefix       string `mapstructure:"number_prefix"`
	// FulfillmentToken is the bearer token operators present to advance fulfillment.
	FulfillmentToken string `mapstructure:"fulfillment_token"`
}

type ObservabilityConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
}

// Load reads .env (if present), config.yaml (if present) and ORDERPAY_* environment variables.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("ORDERPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "orderpay")
	v.SetDefault("app.env", EnvDevelopment)
	v.SetDefault("app.node_id", 1)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.public_base_url", "http://localhost:8080")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:orderpay.db?cache=shared")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.publishable_key", "")
	v.SetDefault("stripe.webhook_secret", "")
	v.SetDefault("stripe.api_base_url", "")
	v.SetDefault("payplus.api_key", "")
	v.SetDefault("payplus.secret_key", "")
	v.SetDefault("payplus.payment_page_uid", "")
	v.SetDefault("payplus.webhook_secret", "")
	v.SetDefault("payplus.api_base_url", "https://restapi.payplus.co.il/api/v1.0")
	v.SetDefault("payment.gateway_timeout", 10*time.Second)
	v.SetDefault("payment.require_webhook_secret", false)
	v.SetDefault("notification.slack_webhook_url", "")
	v.SetDefault("notification.amqp_url", "")
	v.SetDefault("notification.amqp_exchange", "orders")
	v.SetDefault("orders.verify_item_subtotal", false)
	v.SetDefault("orders.number_prefix", "ORD")
	v.SetDefault("orders.fulfillment_token", "")
	v.SetDefault("observability.otlp_endpoint", "")
	v.SetDefault("observability.otlp_insecure", true)
}

func (c *Config) normalize() {
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	c.HTTP.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.HTTP.PublicBaseURL), "/")
	c.Stripe.SecretKey = strings.TrimSpace(c.Stripe.SecretKey)
	c.Stripe.WebhookSecret = strings.TrimSpace(c.Stripe.WebhookSecret)
	c.PayPlus.APIKey = strings.TrimSpace(c.PayPlus.APIKey)
	c.PayPlus.SecretKey = strings.TrimSpace(c.PayPlus.SecretKey)
	c.PayPlus.WebhookSecret = strings.TrimSpace(c.PayPlus.WebhookSecret)
	c.Orders.FulfillmentToken = strings.TrimSpace(c.Orders.FulfillmentToken)
	if c.Payment.GatewayTimeout <= 0 {
		c.Payment.GatewayTimeout = 10 * time.Second
	}
	if strings.TrimSpace(c.Orders.NumberPrefix) == "" {
		c.Orders.NumberPrefix = "ORD"
	}
}

func (c Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database dsn is required")
	}
	if c.App.NodeID < 0 || c.App.NodeID > 1023 {
		return fmt.Errorf("app.node_id must be within 0..1023, got %d", c.App.NodeID)
	}
	return nil
}
