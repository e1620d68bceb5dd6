package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Stripe       StripeConfig
	Checkout     CheckoutConfig
	Newsletter   NewsletterConfig
	Cron         CronConfig
	Admin        AdminConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ALEXANDRIA_APP_ENV" required:"true"`
	Port         string `envconfig:"ALEXANDRIA_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ALEXANDRIA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ALEXANDRIA_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"ALEXANDRIA_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ALEXANDRIA_DB_DSN"`
	Driver string `envconfig:"ALEXANDRIA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ALEXANDRIA_DB_HOST"`
	LegacyPort     int    `envconfig:"ALEXANDRIA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ALEXANDRIA_DB_USER"`
	LegacyPassword string `envconfig:"ALEXANDRIA_DB_PASSWORD"`
	LegacyName     string `envconfig:"ALEXANDRIA_DB_NAME"`
	LegacySSLMode  string `envconfig:"ALEXANDRIA_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"ALEXANDRIA_SQLITE_PATH" default:"alexandria.db"`

	MaxOpenConns    int           `envconfig:"ALEXANDRIA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ALEXANDRIA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ALEXANDRIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ALEXANDRIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ALEXANDRIA_REDIS_URL"`
	Address      string        `envconfig:"ALEXANDRIA_REDIS_ADDR"`
	Password     string        `envconfig:"ALEXANDRIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"ALEXANDRIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ALEXANDRIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ALEXANDRIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ALEXANDRIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ALEXANDRIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ALEXANDRIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type StripeConfig struct {
	APIKey string `envconfig:"ALEXANDRIA_STRIPE_API_KEY"`
	Secret string `envconfig:"ALEXANDRIA_STRIPE_SECRET"`
	Env    string `envconfig:"ALEXANDRIA_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// CheckoutConfig carries the pricing policy applied when orders are built.
type CheckoutConfig struct {
	TaxRate          string        `envconfig:"ALEXANDRIA_CHECKOUT_TAX_RATE" default:"0"`
	Currency         string        `envconfig:"ALEXANDRIA_CHECKOUT_CURRENCY" default:"usd"`
	ShippingFlat     string        `envconfig:"ALEXANDRIA_CHECKOUT_SHIPPING_FLAT" default:"0"`
	PendingOrderTTL  time.Duration `envconfig:"ALEXANDRIA_CHECKOUT_PENDING_ORDER_TTL" default:"24h"`
	SessionCookie    string        `envconfig:"ALEXANDRIA_SESSION_COOKIE" default:"al_session"`
	SessionTTL       time.Duration `envconfig:"ALEXANDRIA_SESSION_TTL" default:"720h"`
	WebhookDedupeTTL time.Duration `envconfig:"ALEXANDRIA_WEBHOOK_DEDUPE_TTL" default:"72h"`
}

// TaxRateDecimal parses the configured tax rate.
func (c CheckoutConfig) TaxRateDecimal() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.TaxRate))
	if err != nil {
		return decimal.Zero
	}
	return rate
}

// ShippingFlatDecimal parses the configured flat shipping charge.
func (c CheckoutConfig) ShippingFlatDecimal() decimal.Decimal {
	amount, err := decimal.NewFromString(strings.TrimSpace(c.ShippingFlat))
	if err != nil {
		return decimal.Zero
	}
	return amount
}

func (c CheckoutConfig) validate() error {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.TaxRate))
	if err != nil {
		return fmt.Errorf("%s must be a decimal: %w", EnvCheckoutTaxRate, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s must be in [0, 1)", EnvCheckoutTaxRate)
	}
	shipping, err := decimal.NewFromString(strings.TrimSpace(c.ShippingFlat))
	if err != nil {
		return fmt.Errorf("%s must be a decimal: %w", EnvCheckoutShippingFlat, err)
	}
	if shipping.IsNegative() {
		return fmt.Errorf("%s must be non-negative", EnvCheckoutShippingFlat)
	}
	if strings.TrimSpace(c.Currency) == "" {
		return fmt.Errorf("%s is required", EnvCheckoutCurrency)
	}
	return nil
}

type NewsletterConfig struct {
	SignupWindow  time.Duration `envconfig:"ALEXANDRIA_NEWSLETTER_SIGNUP_WINDOW" default:"10m"`
	SignupIPLimit int           `envconfig:"ALEXANDRIA_NEWSLETTER_SIGNUP_IP_LIMIT" default:"5"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"ALEXANDRIA_CRON_INTERVAL" default:"15m"`
	LockKey  string        `envconfig:"ALEXANDRIA_CRON_LOCK_KEY" default:"al:cron:lock"`
	LockTTL  time.Duration `envconfig:"ALEXANDRIA_CRON_LOCK_TTL" default:"14m"`
}

type AdminConfig struct {
	Token string `envconfig:"ALEXANDRIA_ADMIN_TOKEN"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ALEXANDRIA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ALEXANDRIA_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" || useSQLite {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
