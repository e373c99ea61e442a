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
	JWT       JWTConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Backend   BackendConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Tracing   TracingConfig
}

type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	TLSCertFile     string
	TLSKeyFile      string
	AllowedOrigins  []string
}

type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
	Leeway   time.Duration
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
	// Store is "memory" or "redis".
	Store string
	// Codec is "msgpack", "cbor" or "json".
	Codec         string
	KeyPrefix     string
	MaxEntries    int
	SweepInterval time.Duration
	StoreTimeout  time.Duration
	// SettleWindow is added to the backend timeout to size tombstone retention.
	SettleWindow time.Duration
	PolicyFile   string
}

type BackendConfig struct {
	// Mode is "http" or "memory".
	Mode    string
	BaseURL string
	Timeout time.Duration
	// Circuit breaker
	BreakerMaxRequests  uint32
	BreakerInterval     time.Duration
	BreakerOpenTimeout  time.Duration
	BreakerFailureRatio float64
	BreakerMinRequests  uint32
}

type RateLimitConfig struct {
	Enabled bool
	// Store is "redis" or "memory".
	Store                    string
	DefaultRequestsPerMinute int
	BurstMultiplier          float64
	Window                   time.Duration
	KeyPrefix                string
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	Environment string
	SampleRatio float64
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			TLSCertFile:     getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:      getEnv("TLS_KEY_FILE", ""),
			AllowedOrigins:  getListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		JWT: JWTConfig{
			Secret:   getEnv("JWT_SECRET", ""),
			Issuer:   getEnv("JWT_ISSUER", ""),
			Audience: getEnv("JWT_AUDIENCE", ""),
			Leeway:   getDurationEnv("JWT_LEEWAY", 30*time.Second),
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
			Store:         getEnv("CACHE_STORE", "memory"),
			Codec:         getEnv("CACHE_CODEC", "msgpack"),
			KeyPrefix:     getEnv("CACHE_KEY_PREFIX", "gw:"),
			MaxEntries:    getIntEnv("CACHE_MAX_ENTRIES", 100000),
			SweepInterval: getDurationEnv("CACHE_SWEEP_INTERVAL", time.Minute),
			StoreTimeout:  getDurationEnv("CACHE_STORE_TIMEOUT", 500*time.Millisecond),
			SettleWindow:  getDurationEnv("CACHE_SETTLE_WINDOW", 2*time.Second),
			PolicyFile:    getEnv("CACHE_POLICY_FILE", ""),
		},
		Backend: BackendConfig{
			Mode:                getEnv("BACKEND_MODE", "http"),
			BaseURL:             getEnv("BACKEND_BASE_URL", "http://localhost:8069/api"),
			Timeout:             getDurationEnv("BACKEND_TIMEOUT", 10*time.Second),
			BreakerMaxRequests:  uint32(getIntEnv("BACKEND_BREAKER_MAX_REQUESTS", 5)),
			BreakerInterval:     getDurationEnv("BACKEND_BREAKER_INTERVAL", time.Minute),
			BreakerOpenTimeout:  getDurationEnv("BACKEND_BREAKER_OPEN_TIMEOUT", 30*time.Second),
			BreakerFailureRatio: getFloatEnv("BACKEND_BREAKER_FAILURE_RATIO", 0.6),
			BreakerMinRequests:  uint32(getIntEnv("BACKEND_BREAKER_MIN_REQUESTS", 10)),
		},
		RateLimit: RateLimitConfig{
			Enabled:                  getBoolEnv("RATE_LIMIT_ENABLED", true),
			Store:                    getEnv("RATE_LIMIT_STORE", "memory"),
			DefaultRequestsPerMinute: getIntEnv("RATE_LIMIT_RPM", 120),
			BurstMultiplier:          getFloatEnv("RATE_LIMIT_BURST", 2.0),
			Window:                   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
			KeyPrefix:                getEnv("RATE_LIMIT_KEY_PREFIX", "ratelimit:principal"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Tracing: TracingConfig{
			Enabled:     getBoolEnv("TRACING_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "commerce-gateway"),
			Environment: getEnv("ENVIRONMENT", "development"),
			SampleRatio: getFloatEnv("TRACING_SAMPLE_RATIO", 1.0),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the gateway cannot start with.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.Cache.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported CACHE_STORE %q", c.Cache.Store)
	}
	switch c.Cache.Codec {
	case "msgpack", "cbor", "json":
	default:
		return fmt.Errorf("unsupported CACHE_CODEC %q", c.Cache.Codec)
	}
	switch c.Backend.Mode {
	case "memory":
	case "http":
		if c.Backend.BaseURL == "" {
			return fmt.Errorf("BACKEND_BASE_URL is required in http mode")
		}
	default:
		return fmt.Errorf("unsupported BACKEND_MODE %q", c.Backend.Mode)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive")
	}
	switch c.RateLimit.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported RATE_LIMIT_STORE %q", c.RateLimit.Store)
	}
	return nil
}

// UsesRedis reports whether any component needs the Redis client.
func (c *Config) UsesRedis() bool {
	return c.Cache.Store == "redis" || (c.RateLimit.Enabled && c.RateLimit.Store == "redis")
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

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
