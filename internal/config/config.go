// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes the restaurant
// floor settings (tablets, tables, queue, progress output), logging, the
// optional HTTP gateway, rate limiting and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "restaurant-orders")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// HTTPConfig configures the optional REST gateway in front of the dispatcher.
type HTTPConfig struct {
	Enabled           bool          // HTTP_ENABLED
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	ShutdownTimeout   time.Duration // graceful shutdown budget
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test
	SwaggerEnabled    bool          // enable Swagger UI route
	APIBasePath       string        // base path for API routes

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig
}

// Config holds all configuration values for the application.
type Config struct {
	// Floor
	TabletCount    int           // simulated tablets (>= 0)
	TabletWait     time.Duration // upper bound of the random pause between tablet steps
	TableCount     int           // tables created at startup (>= 1)
	PrintInterval  uint64        // progress line every N commands, 0 disables
	QueueCapacity  int           // pending commands before senders block (>= 1)
	ValidateOrders bool          // reject orders for unknown tables or menu items

	// Logging
	LogLevel  string // trace|debug|info|warn|error|fatal|panic
	LogPretty bool   // pretty console logs in dev

	// Gateway
	HTTP HTTPConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Floor
		TabletCount:    getint("TABLET_COUNT", 10),
		TabletWait:     time.Duration(getint("TABLET_WAIT_MS", 0)) * time.Millisecond,
		TableCount:     getint("TABLE_COUNT", 100),
		PrintInterval:  getuint("PRINT_INTERVAL", 10000),
		QueueCapacity:  getint("QUEUE_CAPACITY", 1024),
		ValidateOrders: getbool("VALIDATE_ORDERS", false),

		// Logging
		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty: getbool("LOG_PRETTY", false),

		HTTP: HTTPConfig{
			Enabled:           getbool("HTTP_ENABLED", false),
			Port:              getenv("PORT", "8080"),
			ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
			ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
			WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
			IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout:   getdur("SHUTDOWN_TIMEOUT", 10*time.Second),
			MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
			GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),
			SwaggerEnabled:    getbool("SWAGGER_ENABLED", false),
			APIBasePath:       normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

			RateRPS:   getfloat("RATE_RPS", 50.0),
			RateBurst: getint("RATE_BURST", 100),

			CORS: CORSConfig{
				AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
			},
			Security: SecurityConfig{
				EnableHSTS: getbool("ENABLE_HSTS", false),
				HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
			},
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "restaurant-orders"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.HTTP.GinMode {
	case "debug", "release", "test":
	default:
		cfg.HTTP.GinMode = "release"
	}

	// --- validation ---
	if cfg.TabletCount < 0 {
		return cfg, errors.New("TABLET_COUNT must be >= 0")
	}
	if cfg.TabletWait < 0 {
		return cfg, errors.New("TABLET_WAIT_MS must be >= 0")
	}
	if cfg.TableCount < 1 {
		return cfg, errors.New("TABLE_COUNT must be >= 1")
	}
	if cfg.QueueCapacity < 1 {
		return cfg, errors.New("QUEUE_CAPACITY must be >= 1")
	}
	switch cfg.LogLevel {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: trace, debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.HTTP.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.HTTP.ReadTimeout <= 0 || cfg.HTTP.ReadHeaderTimeout <= 0 || cfg.HTTP.WriteTimeout <= 0 || cfg.HTTP.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.HTTP.ShutdownTimeout <= 0 {
		return cfg, errors.New("SHUTDOWN_TIMEOUT must be > 0")
	}
	if cfg.HTTP.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if cfg.HTTP.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.HTTP.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.HTTP.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getuint(k string, def uint64) uint64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if u, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64); err == nil {
			return u
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
