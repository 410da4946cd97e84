package config

import (
	"github.com/spf13/viper"
)

// Gateway holds the payment gateway credentials and endpoint.
type Gateway struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
}

// Checkout holds the pricing knobs applied when a cart becomes an order.
type Checkout struct {
	Currency       string
	TaxRate        float64 // fraction of the subtotal, e.g. 0.18
	ShippingFee    float64 // flat fee in rupees
	MinAmountPaise int64   // gateway floor for the order total
}

// Config is the full application configuration. It is built once in main
// and passed down explicitly; nothing else reads the environment.
type Config struct {
	AppPort     string
	DatabaseDSN string
	JWTSecret   string
	RabbitMQURL string
	Gateway     Gateway
	Checkout    Checkout
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	v := viper.New()
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DATABASE_DSN", "")
	v.SetDefault("JWT_SECRET", "change_me")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("GATEWAY_KEY_ID", "")
	v.SetDefault("GATEWAY_KEY_SECRET", "")
	v.SetDefault("GATEWAY_WEBHOOK_SECRET", "")
	v.SetDefault("GATEWAY_BASE_URL", "https://api.razorpay.com")
	v.SetDefault("CURRENCY", "INR")
	v.SetDefault("TAX_RATE", 0.18)
	v.SetDefault("SHIPPING_FEE", 20.0)
	v.SetDefault("MIN_AMOUNT_PAISE", 100)
	v.AutomaticEnv()

	return &Config{
		AppPort:     v.GetString("APP_PORT"),
		DatabaseDSN: v.GetString("DATABASE_DSN"),
		JWTSecret:   v.GetString("JWT_SECRET"),
		RabbitMQURL: v.GetString("RABBITMQ_URL"),
		Gateway: Gateway{
			KeyID:         v.GetString("GATEWAY_KEY_ID"),
			KeySecret:     v.GetString("GATEWAY_KEY_SECRET"),
			WebhookSecret: v.GetString("GATEWAY_WEBHOOK_SECRET"),
			BaseURL:       v.GetString("GATEWAY_BASE_URL"),
		},
		Checkout: Checkout{
			Currency:       v.GetString("CURRENCY"),
			TaxRate:        v.GetFloat64("TAX_RATE"),
			ShippingFee:    v.GetFloat64("SHIPPING_FEE"),
			MinAmountPaise: v.GetInt64("MIN_AMOUNT_PAISE"),
		},
	}
}
