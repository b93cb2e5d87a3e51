package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	ServiceName string
	Env         string
	LogLevel    string

	ServerPort int

	DatabaseURL string

	AdminPasscode      string
	AdminPasscodeHash  string
	AdminSessionSecret []byte
	AdminCookieName    string
	AdminSessionTTL    time.Duration

	WANumber string

	SigninRateLimit    int
	SigninRateWindow   time.Duration
	CheckoutRateLimit  int
	CheckoutRateWindow time.Duration
	RateLimitStrict    bool
	RateLimitBackend   string

	AuditStrict bool

	RedisAddr     string
	RedisPassword string
	OrderCacheTTL time.Duration

	KafkaBrokers    []string
	KafkaOrderTopic string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	UploadsDir      string
	PublicImageBase string
	UploadMaxBody   string

	CORSOrigins []string
}

func Load() Config {
	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "temurun"),
		Env:         strings.ToLower(EnvDefault("APP_ENV", EnvProduction)),
		LogLevel:    os.Getenv("LOG_LEVEL"),

		ServerPort: EnvIntDefault("SERVER_PORT", 8080),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		AdminPasscode:      strings.TrimSpace(os.Getenv("ADMIN_PASSCODE")),
		AdminPasscodeHash:  strings.TrimSpace(os.Getenv("ADMIN_PASSCODE_HASH")),
		AdminSessionSecret: []byte(os.Getenv("ADMIN_SESSION_SECRET")),
		AdminCookieName:    EnvDefault("ADMIN_COOKIE_NAME", "temurun_admin"),
		AdminSessionTTL:    EnvDurationDefault("ADMIN_SESSION_TTL", 8*time.Hour),

		WANumber: os.Getenv("WA_NUMBER"),

		SigninRateLimit:    EnvIntDefault("SIGNIN_RATE_LIMIT", 5),
		SigninRateWindow:   EnvDurationDefault("SIGNIN_RATE_WINDOW", 10*time.Minute),
		CheckoutRateLimit:  EnvIntDefault("CHECKOUT_RATE_LIMIT", 10),
		CheckoutRateWindow: EnvDurationDefault("CHECKOUT_RATE_WINDOW", 10*time.Minute),
		RateLimitStrict:    EnvBoolDefault("RATE_LIMIT_STRICT", false),
		RateLimitBackend:   strings.ToLower(EnvDefault("RATE_LIMIT_BACKEND", "db")),

		AuditStrict: EnvBoolDefault("AUDIT_STRICT", false),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		OrderCacheTTL: EnvDurationDefault("ORDER_CACHE_TTL", 30*time.Second),

		KafkaBrokers:    CSV(os.Getenv("KAFKA_BROKERS")),
		KafkaOrderTopic: EnvDefault("KAFKA_ORDER_TOPIC", "order_events"),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "products"),

		UploadsDir:      EnvDefault("UPLOADS_DIR", "./uploads"),
		PublicImageBase: EnvDefault("PUBLIC_IMAGE_BASE", "/images"),
		UploadMaxBody:   EnvDefault("UPLOAD_MAX_BODY", "10M"),

		CORSOrigins: CSV(os.Getenv("CORS_ORIGINS")),
	}
}

// IsDevelopment is true only for an explicit APP_ENV=development.
func (c Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// SecureCookies reports whether session and CSRF cookies carry the Secure flag.
func (c Config) SecureCookies() bool {
	return !c.IsDevelopment()
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if os.Getenv(key) != "" {
		return os.Getenv(key)
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// EnvDurationDefault accepts Go durations ("10m") or a bare number of seconds.
func EnvDurationDefault(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		if n <= 0 {
			return def
		}
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
