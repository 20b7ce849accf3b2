package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"luckylogic-crm/internal/kvstore"
	"luckylogic-crm/internal/pkg/jwt"
)

type AppConfig struct {
	// Server
	AppName        string
	AppEnv         string
	HTTPAddr       string
	TrustedProxies []string
	AllowedOrigins []string

	// Counter store
	KV kvstore.Config

	// Data service
	DataBackend  string
	SupabaseURL  string
	SupabaseKey  string
	DataMaxRPS   float64
	DataTimeout  time.Duration
	DatabaseURL  string
	DBMaxConns   int32
	ListCacheTTL time.Duration

	// Auth
	AuthProvider  string
	AdminEmail    string
	AdminPassword string
	JWT           jwt.Config

	// Request gate
	RateLimit     int
	RateWindow    time.Duration
	RateFailMode  string
	RateAnalytics bool
	AnalyticsTTL  time.Duration
}

const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"

	AuthRemote = "remote"
	AuthLocal  = "local"
)

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	return AppConfig{
		AppName:        getEnv("APP_NAME", "LuckyLogic CRM"),
		AppEnv:         strings.ToLower(getEnv("APP_ENV", "production")),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8000"),
		TrustedProxies: getEnvSlice("TRUSTED_PROXIES", nil),
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", nil),

		KV: kvstore.Config{
			RedisURL:  getEnv("REDIS_URL", ""),
			RESTURL:   getEnv("UPSTASH_REDIS_REST_URL", ""),
			RESTToken: getEnv("UPSTASH_REDIS_REST_TOKEN", ""),
			PoolSize:  getEnvInt("REDIS_POOL_SIZE", 10),
		},

		DataBackend:  strings.ToLower(getEnv("DATA_BACKEND", BackendSupabase)),
		SupabaseURL:  strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseKey:  getEnv("SUPABASE_KEY", ""),
		DataMaxRPS:   getEnvFloat("DATA_MAX_RPS", 20),
		DataTimeout:  getEnvDuration("DATA_TIMEOUT", 15*time.Second),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		DBMaxConns:   int32(getEnvInt("DB_MAX_CONNS", 10)),
		ListCacheTTL: getEnvDuration("LIST_CACHE_TTL", 30*time.Second),

		AuthProvider:  strings.ToLower(getEnv("AUTH_PROVIDER", AuthRemote)),
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		JWT: jwt.Config{
			PrivPath: getEnv("JWT_PRIVATE_KEY_PATH", ""),
			PubPath:  getEnv("JWT_PUBLIC_KEY_PATH", ""),
			Issuer:   "luckylogic-crm",
			Audience: "crm-admin",
			TTL:      getEnvDuration("JWT_TTL", 12*time.Hour),
			KID:      "crm-key",
		},

		RateLimit:     getEnvInt("RATE_LIMIT_REQUESTS", 10),
		RateWindow:    getEnvDuration("RATE_LIMIT_WINDOW", 10*time.Second),
		RateFailMode:  strings.ToLower(getEnv("RATE_LIMIT_FAIL_MODE", "open")),
		RateAnalytics: getEnvBool("RATE_LIMIT_ANALYTICS", false),
		AnalyticsTTL:  getEnvDuration("RATE_LIMIT_ANALYTICS_TTL", 24*time.Hour),
	}
}

// Validate reports the misconfigurations the service cannot start with.
func (c AppConfig) Validate() error {
	var errs []error

	if c.KV.RedisURL == "" && (c.KV.RESTURL == "" || c.KV.RESTToken == "") {
		errs = append(errs, kvstore.ErrNotConfigured)
	}

	switch c.DataBackend {
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			errs = append(errs, errors.New("SUPABASE_URL and SUPABASE_KEY are required"))
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when DATA_BACKEND=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown DATA_BACKEND %q", c.DataBackend))
	}

	switch c.AuthProvider {
	case AuthRemote:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			errs = append(errs, errors.New("AUTH_PROVIDER=remote needs SUPABASE_URL and SUPABASE_KEY"))
		}
	case AuthLocal:
		if c.AdminEmail == "" || len(c.AdminPassword) < 8 {
			errs = append(errs, errors.New("AUTH_PROVIDER=local needs ADMIN_EMAIL and an ADMIN_PASSWORD of at least 8 characters"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_PROVIDER %q", c.AuthProvider))
	}

	if c.RateFailMode != "open" && c.RateFailMode != "closed" {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_FAIL_MODE must be open or closed, got %q", c.RateFailMode))
	}
	if c.RateLimit <= 0 || c.RateWindow <= 0 {
		errs = append(errs, errors.New("rate limit and window must be positive"))
	}

	return errors.Join(errs...)
}

func (c AppConfig) IsDev() bool {
	return c.AppEnv == "dev" || c.AppEnv == "development"
}

// --- Helper functions ---

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
