package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // delivery timezone must resolve in minimal images

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/backend-tani/internal/plans"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string
	BodyLimitBytes     int64

	DeliveryTimezone *time.Location
	Plans            plans.Table

	OrderProcessor        string
	OrderProcessorURL     string
	OrderProcessorSecret  string
	OrderProcessorTimeout time.Duration
	CircuitMinRequests    int
	CircuitFailureRatio   float64
	CircuitOpenFor        time.Duration

	IdempotencyTTL    time.Duration
	RateLimitStrategy string
	RateLimitWindow   time.Duration
	RateLimitMax      int

	LogFormat         string
	LogLevel          string
	MetricsEnabled    bool
	MetricsNamespace  string
	MetricsBuckets    string
	TracingEnabled    bool
	TracingExporter   string
	OTLPEndpoint      string
	TracingSampling   float64
	ReadyRedisTimeout time.Duration

	SecurityHSTS    bool
	ShutdownTimeout time.Duration
	PprofEnabled    bool
	PprofUser       string
	PprofPass       string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	tzName := valueOrDefault(k.String("DELIVERY_TIMEZONE"), "Europe/London")
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("DELIVERY_TIMEZONE %q: %w", tzName, err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		BodyLimitBytes:     int64(parseInt(k.String("BODY_LIMIT_BYTES"), 64<<10)),

		DeliveryTimezone: loc,

		OrderProcessor:        strings.ToLower(valueOrDefault(k.String("ORDER_PROCESSOR"), "mock")),
		OrderProcessorURL:     strings.TrimSpace(k.String("ORDER_PROCESSOR_URL")),
		OrderProcessorSecret:  strings.TrimSpace(k.String("ORDER_PROCESSOR_SECRET")),
		OrderProcessorTimeout: parseDuration(k.String("ORDER_PROCESSOR_TIMEOUT"), "10s"),
		CircuitMinRequests:    parseInt(k.String("CIRCUIT_MIN_REQUESTS"), 5),
		CircuitFailureRatio:   parseFloat(k.String("CIRCUIT_FAILURE_RATIO"), 0.5),
		CircuitOpenFor:        parseDuration(k.String("CIRCUIT_OPEN_FOR"), "30s"),

		IdempotencyTTL:    parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		RateLimitStrategy: strings.ToLower(valueOrDefault(k.String("RATE_LIMIT_STRATEGY"), "sliding")),
		RateLimitWindow:   parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:      parseInt(k.String("RATE_LIMIT_MAX"), 10),

		LogFormat:         valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:          valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsEnabled:    parseBool(k.String("OBS_ENABLE_PROMETHEUS"), true),
		MetricsNamespace:  valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "tani"),
		MetricsBuckets:    k.String("OBS_METRICS_BUCKETS_MS"),
		TracingEnabled:    parseBool(k.String("OBS_ENABLE_TRACING"), false),
		TracingExporter:   valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp"),
		OTLPEndpoint:      strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		TracingSampling:   parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1),
		ReadyRedisTimeout: time.Duration(parseInt(k.String("HEALTH_READY_REDIS_TIMEOUT_MS"), 300)) * time.Millisecond,

		SecurityHSTS:    parseBool(k.String("SECURITY_HSTS"), false),
		ShutdownTimeout: parseDuration(k.String("SHUTDOWN_TIMEOUT"), "15s"),
		PprofEnabled:    parseBool(k.String("PPROF_ENABLED"), false),
		PprofUser:       strings.TrimSpace(k.String("PPROF_USER")),
		PprofPass:       k.String("PPROF_PASS"),
	}

	cfg.Plans, err = loadPlans(k)
	if err != nil {
		return nil, err
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	switch cfg.OrderProcessor {
	case "mock":
	case "http":
		if cfg.OrderProcessorURL == "" {
			return nil, errors.New("ORDER_PROCESSOR_URL is required when ORDER_PROCESSOR=http")
		}
	default:
		return nil, fmt.Errorf("ORDER_PROCESSOR must be mock or http, got %q", cfg.OrderProcessor)
	}
	if cfg.PprofEnabled && (cfg.PprofUser == "" || cfg.PprofPass == "") {
		return nil, errors.New("PPROF_USER and PPROF_PASS are required when PPROF_ENABLED=true")
	}
	switch cfg.RateLimitStrategy {
	case "sliding", "fixed":
	default:
		return nil, fmt.Errorf("RATE_LIMIT_STRATEGY must be sliding or fixed, got %q", cfg.RateLimitStrategy)
	}

	return cfg, nil
}

// loadPlans applies PLAN_<TYPE>_PRICE and PLAN_<TYPE>_DISCOUNT overrides to
// the default plan table.
func loadPlans(k *koanf.Koanf) (plans.Table, error) {
	table := plans.DefaultTable()
	for _, p := range table.List() {
		prefix := "PLAN_" + strings.ToUpper(string(p.Type))
		price := parseFloat(k.String(prefix+"_PRICE"), p.Price)
		discount := parseFloat(k.String(prefix+"_DISCOUNT"), p.ProductDiscount)
		table = table.With(p.Type, price, discount)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
