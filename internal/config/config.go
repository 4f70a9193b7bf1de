package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppEnv        = "dev"
	defaultDBPath        = "./dev.db"
	defaultPort          = "8080"
	defaultLogLevel      = "info"
	defaultNotifyTopic   = "storefront-notifications"
	defaultAIModel       = "gpt-4o-mini"
	defaultMerchantVPA   = "prakamrit@upi"
	defaultMerchantName  = "Prakamrit Ayurveda"
	defaultPublicBaseURL = "http://localhost:8080"
	defaultBlendCacheTTL = 5 * time.Minute
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	AppEnv   string
	Port     string
	DBPath   string
	LogLevel string

	AdminEmail    string
	AdminPassword string
	SessionSecret string

	// CatalogPath points at a YAML catalog. Empty means the embedded one.
	CatalogPath   string
	BlendCacheTTL time.Duration

	RedisAddr    string
	KafkaBrokers []string
	NotifyTopic  string

	AIBaseURL string
	AIAPIKey  string
	AIModel   string

	PaymentSecret string
	MerchantVPA   string
	MerchantName  string
	PublicBaseURL string

	// Warnings collects problems found while loading. They are reported
	// once a logger exists.
	Warnings []string
}

// Load reads a local .env file if present and then the process environment.
// Variables already set in the environment win over the file.
func Load() Config {
	_ = godotenv.Load(".env")
	return FromEnv()
}

// FromEnv builds a Config from the current process environment.
func FromEnv() Config {
	cfg := Config{
		AppEnv:        envOr("APP_ENV", defaultAppEnv),
		Port:          envOr("PORT", defaultPort),
		DBPath:        envOr("DB_PATH", defaultDBPath),
		LogLevel:      envOr("LOG_LEVEL", defaultLogLevel),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		CatalogPath:   os.Getenv("CATALOG_PATH"),
		BlendCacheTTL: defaultBlendCacheTTL,
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		KafkaBrokers:  splitList(os.Getenv("KAFKA_BROKERS")),
		NotifyTopic:   envOr("NOTIFY_TOPIC", defaultNotifyTopic),
		AIBaseURL:     os.Getenv("AI_BASE_URL"),
		AIAPIKey:      os.Getenv("AI_API_KEY"),
		AIModel:       envOr("AI_MODEL", defaultAIModel),
		PaymentSecret: os.Getenv("PAYMENT_SECRET"),
		MerchantVPA:   envOr("MERCHANT_VPA", defaultMerchantVPA),
		MerchantName:  envOr("MERCHANT_NAME", defaultMerchantName),
		PublicBaseURL: strings.TrimRight(envOr("PUBLIC_BASE_URL", defaultPublicBaseURL), "/"),
	}

	if raw := strings.TrimSpace(os.Getenv("BLEND_CACHE_TTL")); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl < 0 {
			cfg.Warnings = append(cfg.Warnings, "BLEND_CACHE_TTL is invalid, using "+defaultBlendCacheTTL.String())
		} else {
			cfg.BlendCacheTTL = ttl
		}
	}

	if cfg.AdminEmail == "" {
		cfg.Warnings = append(cfg.Warnings, "ADMIN_EMAIL is not set")
	}
	if cfg.AdminPassword == "" {
		cfg.Warnings = append(cfg.Warnings, "ADMIN_PASSWORD is not set")
	}
	if cfg.SessionSecret == "" {
		cfg.Warnings = append(cfg.Warnings, "SESSION_SECRET is not set")
	}
	if cfg.PaymentSecret == "" {
		cfg.Warnings = append(cfg.Warnings, "PAYMENT_SECRET is not set")
	}

	return cfg
}

// IsDev reports whether the server runs in local development mode.
func (c Config) IsDev() bool {
	return strings.EqualFold(c.AppEnv, "dev") || strings.EqualFold(c.AppEnv, "development")
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
