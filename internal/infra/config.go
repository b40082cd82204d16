package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	MigrationsDir string

	JWTSecret string
	JWTTTL    time.Duration

	StorageDir     string
	StorageBaseURL string

	GeoIPDBPath string

	PaymentBaseURL       string
	PaymentAPIKey        string
	PaymentWebhookSecret string

	FirebaseCredentialsFile string

	DefaultLocale string

	CORSAllowedOrigins []string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int

	SweepInterval time.Duration
	SweepLookback time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:                  getEnv("APP_ENV", "development"),
		Port:                    getEnv("PORT", "8080"),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		MigrationsDir:           getEnv("MIGRATIONS_DIR", "migrations"),
		JWTSecret:               os.Getenv("JWT_SECRET"),
		JWTTTL:                  time.Hour * time.Duration(getEnvInt("JWT_TTL_HOURS", 72)),
		StorageDir:              getEnv("STORAGE_DIR", "storage"),
		StorageBaseURL:          os.Getenv("STORAGE_BASE_URL"),
		GeoIPDBPath:             os.Getenv("GEOIP_DB_PATH"),
		PaymentBaseURL:          os.Getenv("PAYMENT_BASE_URL"),
		PaymentAPIKey:           os.Getenv("PAYMENT_API_KEY"),
		PaymentWebhookSecret:    os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		FirebaseCredentialsFile: os.Getenv("FIREBASE_CREDENTIALS_FILE"),
		DefaultLocale:           getEnv("DEFAULT_LOCALE", "en"),
		CORSAllowedOrigins:      splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		HTTPReadTimeout:         time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:        time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:         time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:         getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		SweepInterval:           time.Second * time.Duration(getEnvInt("SWEEP_INTERVAL_SECONDS", 60)),
		SweepLookback:           time.Minute * time.Duration(getEnvInt("SWEEP_LOOKBACK_MINUTES", 15)),
	}

	// The static file default follows whatever port the API binds.
	if cfg.StorageBaseURL == "" {
		cfg.StorageBaseURL = "http://localhost:" + cfg.Port + "/static"
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
