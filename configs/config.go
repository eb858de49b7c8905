package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Adapters  AdaptersConfig
	Admin     AdminConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TLSCertFile    string
	TLSKeyFile     string
	AllowedOrigins []string
	Environment    string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
}

type CacheConfig struct {
	// FreshTTL is how long a single-domain entry is served without
	// re-fetching; StaleTTL is how much longer it is retained for
	// stale-if-error fallback.
	FreshTTL time.Duration
	StaleTTL time.Duration
	// DashboardFreshTTL is the (shorter) freshness window for the
	// composite dashboard snapshot.
	DashboardFreshTTL time.Duration
	KeyPrefix         string
}

type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
	KeyPrefix   string
}

type AdaptersConfig struct {
	// Mode selects the adapter set: "live" uses the stats API over
	// HTTP, "static" serves bundled fixtures (demo/test deployments).
	Mode string
	// Domains are the sports wired into the gateway and the dashboard.
	Domains []string
	// Featured maps a domain to the resource id its dashboard slot
	// shows (flagship teams by default).
	Featured map[string]string
	BaseURL  string
	Timeout  time.Duration
}

type AdminConfig struct {
	// APIKey guards administrative endpoints (cache invalidation).
	// Empty disables them.
	APIKey string
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnv("SERVER_PORT", "8080"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			TLSCertFile:    getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:     getEnv("TLS_KEY_FILE", ""),
			AllowedOrigins: getSliceEnv("ALLOWED_ORIGINS", []string{"https://blaze-intelligence.com"}),
			Environment:    getEnv("ENVIRONMENT", "development"),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:  getDurationEnv("REDIS_POOL_TIMEOUT", 4*time.Second),
			IdleTimeout:  getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
		},
		Cache: CacheConfig{
			FreshTTL:          getDurationEnv("CACHE_FRESH_TTL", 5*time.Minute),
			StaleTTL:          getDurationEnv("CACHE_STALE_TTL", 24*time.Hour),
			DashboardFreshTTL: getDurationEnv("DASHBOARD_FRESH_TTL", 2*time.Minute),
			KeyPrefix:         getEnv("CACHE_KEY_PREFIX", "feedcache"),
		},
		RateLimit: RateLimitConfig{
			MaxRequests: getIntEnv("RATE_LIMIT_MAX_REQUESTS", 100),
			Window:      getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
			KeyPrefix:   getEnv("RATE_LIMIT_KEY_PREFIX", "ratelimit:client"),
		},
		Adapters: AdaptersConfig{
			Mode:    getEnv("ADAPTER_MODE", "live"),
			Domains: getSliceEnv("ADAPTER_DOMAINS", []string{"mlb", "nfl", "nba", "cfb"}),
			Featured: getMapEnv("DASHBOARD_FEATURED", map[string]string{
				"mlb": "138", "nfl": "TEN", "nba": "MEM", "cfb": "TEX",
			}),
			BaseURL: getEnv("STATS_API_BASE_URL", "https://statsapi.mlb.com/api/v1"),
			Timeout: getDurationEnv("ADAPTER_TIMEOUT", 8*time.Second),
		},
		Admin: AdminConfig{
			APIKey: getEnv("ADMIN_API_KEY", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if cfg.Cache.FreshTTL <= 0 {
		return nil, fmt.Errorf("CACHE_FRESH_TTL must be positive, got %s", cfg.Cache.FreshTTL)
	}
	if cfg.RateLimit.MaxRequests <= 0 || cfg.RateLimit.Window <= 0 {
		return nil, fmt.Errorf("rate limit config must be positive (max=%d window=%s)",
			cfg.RateLimit.MaxRequests, cfg.RateLimit.Window)
	}
	if len(cfg.Adapters.Domains) == 0 {
		return nil, fmt.Errorf("ADAPTER_DOMAINS must name at least one domain")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getMapEnv parses "key=value,key=value" pairs.
func getMapEnv(key string, defaultValue map[string]string) map[string]string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(value, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
