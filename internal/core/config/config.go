package config

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override. Nested keys are separated by "__",
// e.g. TRACKGATE_PROVIDERS__POSTHOG__API_KEY.
const EnvPrefix = "TRACKGATE_"

// Config represents the top-level application config.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Log         LogConfig         `koanf:"log"`
	Schema      SchemaConfig      `koanf:"schema"`
	Gate        GateConfig        `koanf:"gate"`
	Dispatch    DispatchConfig    `koanf:"dispatch"`
	Providers   ProvidersConfig   `koanf:"providers"`
	DeliveryLog DeliveryLogConfig `koanf:"delivery_log"`
	Telemetry   TelemetryConfig   `koanf:"telemetry"`
}

type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeKB int    `koanf:"max_body_size_kb"`
	Mode          string `koanf:"mode"` // debug | release

	// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For is honoured.
	// Empty means the client IP is always the TCP peer address.
	TrustedProxies []string `koanf:"trusted_proxies"`
}

type LogConfig struct {
	Level string `koanf:"level"` // debug | info | warn | error
}

type SchemaConfig struct {
	SourceType string `koanf:"source_type"`
	Path       string `koanf:"path"`
}

type GateConfig struct {
	// MarkerSecret signs trust markers. Empty means a random key per process.
	MarkerSecret   string        `koanf:"marker_secret"`
	MarkerIssuer   string        `koanf:"marker_issuer"`
	MarkerTTL      time.Duration `koanf:"marker_ttl"`
	RateLimit      bool          `koanf:"rate_limit"`
	RateLimitRPS   float64       `koanf:"rate_limit_rps"`
	RateLimitBurst int           `koanf:"rate_limit_burst"`
}

type DispatchConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

type ProvidersConfig struct {
	PostHog PostHogConfig `koanf:"posthog"`
	GA4     GA4Config     `koanf:"ga4"`
	Webhook WebhookConfig `koanf:"webhook"`
}

type PostHogConfig struct {
	APIKey string `koanf:"api_key"`
	Host   string `koanf:"host"`
}

type GA4Config struct {
	MeasurementID string `koanf:"measurement_id"`
	APISecret     string `koanf:"api_secret"`
	Endpoint      string `koanf:"endpoint"`
}

type WebhookConfig struct {
	URL    string `koanf:"url"`
	Secret string `koanf:"secret"`
}

type DeliveryLogConfig struct {
	Enabled      bool   `koanf:"enabled"`
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

type TelemetryConfig struct {
	// OTLPEndpoint enables OTLP/gRPC export of traces and metrics when set
	// (host:port, e.g. otel-collector:4317).
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	Insecure     bool   `koanf:"insecure"`
	ServiceName  string `koanf:"service_name"`
}

// SlogLevel maps log.level to a slog level.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodySizeKB <= 0 {
		return fmt.Errorf("server.max_body_size_kb must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}
	for _, proxy := range c.Server.TrustedProxies {
		if net.ParseIP(proxy) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(proxy); err != nil {
			return fmt.Errorf("invalid server.trusted_proxies entry %q (must be an IP or CIDR)", proxy)
		}
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q (must be debug, info, warn or error)", c.Log.Level)
	}

	if c.Schema.SourceType != "filesystem" {
		return fmt.Errorf("unsupported schema.source_type %q", c.Schema.SourceType)
	}
	if strings.TrimSpace(c.Schema.Path) == "" {
		return fmt.Errorf("schema.path is required")
	}
	if _, err := os.Stat(c.Schema.Path); err != nil {
		return fmt.Errorf("schema.path %q is not accessible: %w", c.Schema.Path, err)
	}

	if strings.TrimSpace(c.Gate.MarkerIssuer) == "" {
		return fmt.Errorf("gate.marker_issuer is required")
	}
	if c.Gate.MarkerTTL <= 0 {
		return fmt.Errorf("gate.marker_ttl must be > 0")
	}
	if c.Gate.MarkerSecret != "" && len(c.Gate.MarkerSecret) < 32 {
		return fmt.Errorf("gate.marker_secret must be at least 32 bytes")
	}
	if c.Gate.RateLimit {
		if c.Gate.RateLimitRPS <= 0 {
			return fmt.Errorf("gate.rate_limit_rps must be > 0")
		}
		if c.Gate.RateLimitBurst <= 0 {
			return fmt.Errorf("gate.rate_limit_burst must be > 0")
		}
	}

	if c.Dispatch.Timeout <= 0 {
		return fmt.Errorf("dispatch.timeout must be > 0")
	}

	if err := validateURL("providers.posthog.host", c.Providers.PostHog.Host); err != nil {
		return err
	}
	if err := validateURL("providers.ga4.endpoint", c.Providers.GA4.Endpoint); err != nil {
		return err
	}
	if c.Providers.Webhook.URL != "" {
		if err := validateURL("providers.webhook.url", c.Providers.Webhook.URL); err != nil {
			return err
		}
	}

	if c.DeliveryLog.Enabled {
		if strings.TrimSpace(c.DeliveryLog.DSN) == "" {
			return fmt.Errorf("delivery_log.dsn is required when delivery_log.enabled is true")
		}
		if c.DeliveryLog.MaxOpenConns <= 0 {
			return fmt.Errorf("delivery_log.max_open_conns must be > 0")
		}
		if c.DeliveryLog.MaxIdleConns <= 0 {
			return fmt.Errorf("delivery_log.max_idle_conns must be > 0")
		}
	}

	if c.Telemetry.OTLPEndpoint != "" {
		if _, _, err := net.SplitHostPort(c.Telemetry.OTLPEndpoint); err != nil {
			return fmt.Errorf("invalid telemetry.otlp_endpoint %q (must be host:port)", c.Telemetry.OTLPEndpoint)
		}
	}

	return nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s %q (must be an absolute http(s) URL)", key, raw)
	}
	return nil
}

// Load parses config from defaults, file and env, then validates it.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":                 8080,
		"server.host":                 "0.0.0.0",
		"server.max_body_size_kb":     64,
		"server.mode":                 "release",
		"log.level":                   "info",
		"schema.source_type":          "filesystem",
		"schema.path":                 "./schemas",
		"gate.marker_secret":          "",
		"gate.marker_issuer":          "trackgate",
		"gate.marker_ttl":             "1m",
		"gate.rate_limit":             true,
		"gate.rate_limit_rps":         50.0,
		"gate.rate_limit_burst":       100,
		"dispatch.timeout":            "5s",
		"providers.posthog.host":      "https://us.i.posthog.com",
		"providers.ga4.endpoint":      "https://www.google-analytics.com/mp/collect",
		"delivery_log.enabled":        false,
		"delivery_log.max_open_conns": 10,
		"delivery_log.max_idle_conns": 10,
		"delivery_log.auto_migrate":   true,
		"telemetry.insecure":          true,
		"telemetry.service_name":      "trackgate",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
