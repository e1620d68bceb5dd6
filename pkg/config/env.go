package config

// EnvPrefix is handed to envconfig; every field carries an explicit name so it only
// matters for error messages.
const EnvPrefix = "ALEXANDRIA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "ALEXANDRIA_APP_ENV"
	EnvPort     = "ALEXANDRIA_APP_PORT"
	EnvLogLevel = "ALEXANDRIA_LOG_LEVEL"

	EnvDBDSN  = "ALEXANDRIA_DB_DSN"
	EnvDBHost = "ALEXANDRIA_DB_HOST"
	EnvDBPort = "ALEXANDRIA_DB_PORT"
	EnvDBUser = "ALEXANDRIA_DB_USER"
	EnvDBPass = "ALEXANDRIA_DB_PASSWORD"
	EnvDBName = "ALEXANDRIA_DB_NAME"

	EnvRedisURL = "ALEXANDRIA_REDIS_URL"

	EnvStripeAPIKey = "ALEXANDRIA_STRIPE_API_KEY"
	EnvStripeSecret = "ALEXANDRIA_STRIPE_SECRET"
	EnvStripeEnv    = "ALEXANDRIA_STRIPE_ENV"

	EnvCheckoutTaxRate      = "ALEXANDRIA_CHECKOUT_TAX_RATE"
	EnvCheckoutCurrency     = "ALEXANDRIA_CHECKOUT_CURRENCY"
	EnvCheckoutShippingFlat = "ALEXANDRIA_CHECKOUT_SHIPPING_FLAT"
	EnvCheckoutPendingTTL   = "ALEXANDRIA_CHECKOUT_PENDING_ORDER_TTL"

	EnvUseSQLite = "ALEXANDRIA_USE_SQLITE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
