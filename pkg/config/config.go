package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable read by the service.
const EnvPrefix = "SCOOPS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "SCOOPS_DB_DSN"
	EnvDBHost = "SCOOPS_DB_HOST"
	EnvDBUser = "SCOOPS_DB_USER"
	EnvDBName = "SCOOPS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Pricing       PricingConfig
	Square        SquareConfig
	Commerce      CommerceConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SCOOPS_APP_ENV" required:"true"`
	Port         string `envconfig:"SCOOPS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SCOOPS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SCOOPS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SCOOPS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SCOOPS_DB_DSN"`
	Driver string `envconfig:"SCOOPS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SCOOPS_DB_HOST"`
	LegacyPort     int    `envconfig:"SCOOPS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SCOOPS_DB_USER"`
	LegacyPassword string `envconfig:"SCOOPS_DB_PASSWORD"`
	LegacyName     string `envconfig:"SCOOPS_DB_NAME"`
	LegacySSLMode  string `envconfig:"SCOOPS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SCOOPS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SCOOPS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SCOOPS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SCOOPS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SCOOPS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SCOOPS_REDIS_ADDR"`
	Password     string        `envconfig:"SCOOPS_REDIS_PASSWORD"`
	DB           int           `envconfig:"SCOOPS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SCOOPS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SCOOPS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SCOOPS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SCOOPS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SCOOPS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SCOOPS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SCOOPS_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"SCOOPS_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"SCOOPS_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SCOOPS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SCOOPS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SCOOPS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SCOOPS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SCOOPS_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"SCOOPS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"SCOOPS_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"SCOOPS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"SCOOPS_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"SCOOPS_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"SCOOPS_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SCOOPS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SCOOPS_AUTO_MIGRATE" default:"false"`
}

// PricingConfig carries the cart/checkout money knobs. Amounts are in fils
// (1000 fils = 1 KWD).
type PricingConfig struct {
	MaxToppings               int   `envconfig:"SCOOPS_PRICING_MAX_TOPPINGS" default:"3"`
	FreeShippingThresholdFils int64 `envconfig:"SCOOPS_PRICING_FREE_SHIPPING_THRESHOLD_FILS" default:"15000"`
	FlatShippingFeeFils       int64 `envconfig:"SCOOPS_PRICING_FLAT_SHIPPING_FEE_FILS" default:"2000"`
}

type SquareConfig struct {
	AccessToken   string `envconfig:"SCOOPS_SQUARE_ACCESS_TOKEN"`
	Env           string `envconfig:"SCOOPS_SQUARE_ENV" default:"sandbox"`
	LocationID    string `envconfig:"SCOOPS_SQUARE_LOCATION_ID"`
	WebhookSecret string `envconfig:"SCOOPS_SQUARE_WEBHOOK_SECRET"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type CommerceConfig struct {
	BaseURL  string        `envconfig:"SCOOPS_COMMERCE_BASE_URL"`
	APIToken string        `envconfig:"SCOOPS_COMMERCE_API_TOKEN"`
	Timeout  time.Duration `envconfig:"SCOOPS_COMMERCE_TIMEOUT" default:"10s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SCOOPS_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"SCOOPS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SCOOPS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"SCOOPS_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription string `envconfig:"SCOOPS_PUBSUB_ORDERS_SUBSCRIPTION"`
	CartTopic          string `envconfig:"SCOOPS_PUBSUB_CART_TOPIC" default:"scoops-cart-events"`
	CartSubscription   string `envconfig:"SCOOPS_PUBSUB_CART_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SCOOPS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SCOOPS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SCOOPS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
