package config

import (
	"fmt"
	"os"
)

// StripeConfig carries the Stripe credentials handed to the Stripe gateway
// adapter at construction time.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

// PayfastConfig carries the PayFast merchant credentials and endpoints. The
// passphrase is optional; when empty it is omitted from signature strings.
type PayfastConfig struct {
	MerchantID  string
	MerchantKey string
	Passphrase  string
	ProcessURL  string
	ValidateURL string
}

// Config is built once at process start and injected into the gateway
// adapters. Handlers never read gateway credentials from the environment.
type Config struct {
	BaseURL    string
	AdminEmail string
	Stripe     StripeConfig
	Payfast    PayfastConfig
}

const (
	defaultPayfastProcessURL  = "https://www.payfast.co.za/eng/process"
	defaultPayfastValidateURL = "https://www.payfast.co.za/eng/query/validate"
)

// Load reads the process environment into a Config. Gateway credentials are
// required; missing values are an error so the process fails at startup
// rather than on the first webhook.
func Load() (Config, error) {
	cfg := Config{
		BaseURL:    os.Getenv("APP_BASE_URL"),
		AdminEmail: os.Getenv("ADMIN_EMAIL"),
		Stripe: StripeConfig{
			SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		},
		Payfast: PayfastConfig{
			MerchantID:  os.Getenv("PAYFAST_MERCHANT_ID"),
			MerchantKey: os.Getenv("PAYFAST_MERCHANT_KEY"),
			Passphrase:  os.Getenv("PAYFAST_PASSPHRASE"),
			ProcessURL:  os.Getenv("PAYFAST_PROCESS_URL"),
			ValidateURL: os.Getenv("PAYFAST_VALIDATE_URL"),
		},
	}

	if cfg.BaseURL == "" {
		return Config{}, fmt.Errorf("APP_BASE_URL is not set")
	}
	if cfg.Stripe.SecretKey == "" || cfg.Stripe.WebhookSecret == "" {
		return Config{}, fmt.Errorf("stripe credentials are not set")
	}
	if cfg.Payfast.MerchantID == "" || cfg.Payfast.MerchantKey == "" {
		return Config{}, fmt.Errorf("payfast merchant credentials are not set")
	}

	if cfg.Payfast.ProcessURL == "" {
		cfg.Payfast.ProcessURL = defaultPayfastProcessURL
	}
	if cfg.Payfast.ValidateURL == "" {
		cfg.Payfast.ValidateURL = defaultPayfastValidateURL
	}

	return cfg, nil
}
