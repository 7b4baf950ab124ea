package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort string `envconfig:"SERVER_PORT" default:"8080"`
	AppEnv     string `envconfig:"APP_ENV" default:"development"`

	DBDriver   string `envconfig:"DB_DRIVER" default:"mysql"`
	MySQLDSN   string `envconfig:"MYSQL_DSN" default:"user:password@tcp(localhost:3306)/bahafit?charset=utf8mb4&parseTime=True&loc=Local"`
	SQLitePath string `envconfig:"SQLITE_PATH" default:"bahafit.db"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB   int    `envconfig:"REDIS_DB" default:"0"`
	RedisPass string `envconfig:"REDIS_PASSWORD"`

	JWTSecret       string        `envconfig:"JWT_SECRET" default:"change-me"`
	AccessTokenTTL  time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"15m"`
	RefreshTokenTTL time.Duration `envconfig:"REFRESH_TOKEN_TTL" default:"168h"`

	// SiteURL is the public origin of the web pages, used for OAuth and payment redirects.
	SiteURL string `envconfig:"SITE_URL" default:"http://localhost:3000"`

	GoogleClientID       string `envconfig:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string `envconfig:"GOOGLE_CLIENT_SECRET"`
	FacebookClientID     string `envconfig:"FACEBOOK_CLIENT_ID"`
	FacebookClientSecret string `envconfig:"FACEBOOK_CLIENT_SECRET"`

	StripeSecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`

	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"bahafit.events"`

	CMSExport     string `envconfig:"CMS_EXPORT"`
	AdminEmail    string `envconfig:"ADMIN_EMAIL"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`

	SwaggerHost string `envconfig:"SWAGGER_HOST"`
}

// Load reads an optional .env file and builds Config from the environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// PaymentsEnabled reports whether a hosted payment provider is configured.
func (c *Config) PaymentsEnabled() bool {
	return c.StripeSecretKey != ""
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
