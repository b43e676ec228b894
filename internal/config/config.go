package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"production"`

	DBConnectionString string `envconfig:"DATABASE_URL" required:"true"`

	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	S3URL       string `envconfig:"S3_URL" required:"true"`
	S3Bucket    string `envconfig:"S3_BUCKET" required:"true"`
	S3Region    string `envconfig:"S3_REGION" required:"true"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" required:"true"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY" required:"true"`

	// Stripe settings
	StripeSecretKey            string `envconfig:"STRIPE_SECRET_KEY" required:"true"`
	StripeWebhookSecret        string `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`
	StripePortalReturnURL      string `envconfig:"STRIPE_PORTAL_RETURN_URL" required:"true"`
	StripePriceStandardMonthly string `envconfig:"STRIPE_PRICE_STANDARD_MONTHLY" required:"true"`
	StripePriceStandardAnnual  string `envconfig:"STRIPE_PRICE_STANDARD_ANNUAL" required:"true"`
	StripePriceProMonthly      string `envconfig:"STRIPE_PRICE_PRO_MONTHLY" required:"true"`
	StripePriceProAnnual       string `envconfig:"STRIPE_PRICE_PRO_ANNUAL" required:"true"`

	// Billing audit events
	GCPProjectID       string `envconfig:"GCP_PROJECT_ID"`
	PubSubBillingTopic string `envconfig:"PUBSUB_BILLING_TOPIC" default:"billing_events"`

	// Shared secret for scheduled reconciliation/cleanup triggers
	CronSecret string `envconfig:"CRON_SECRET" required:"true"`

	// Upload flow settings. The cleanup cutoff must exceed the presign expiry
	// plus the validation window, or live uploads get swept.
	UploadPresignExpiry   time.Duration `envconfig:"UPLOAD_PRESIGN_EXPIRY" default:"1h"`
	ReservationCleanupAge time.Duration `envconfig:"RESERVATION_CLEANUP_AGE" default:"2h"`
	ReconcileStalenessAge time.Duration `envconfig:"RECONCILE_STALENESS_AGE" default:"24h"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
