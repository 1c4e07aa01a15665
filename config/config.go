// Package config loads the scribe server configuration from YAML with
// SCRIBE_* environment overrides for deployment settings and secrets.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML scalars like
// "90s" or "3h".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Std converts back to a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the top-level server configuration.
type Config struct {
	Listen    string          `yaml:"listen"`
	Tokens    []string        `yaml:"tokens"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Quota     QuotaConfig     `yaml:"quota"`
	Cache     CacheConfig     `yaml:"cache"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Repos     ReposConfig     `yaml:"repos"`
	Templates TemplatesConfig `yaml:"templates"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// RateLimitConfig bounds request bursts per credential.
type RateLimitConfig struct {
	Requests int      `yaml:"requests"`
	Window   Duration `yaml:"window"`
}

// QuotaConfig grants each credential a session token balance per reset
// window. A zero balance disables quota accounting.
type QuotaConfig struct {
	Balance int      `yaml:"balance"`
	Window  Duration `yaml:"window"`
}

// CacheConfig selects the repository analysis cache backend.
type CacheConfig struct {
	Backend  string   `yaml:"backend"` // "memory" or "redis"
	Addr     string   `yaml:"addr"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	TTL      Duration `yaml:"ttl"`
}

// GeminiConfig configures the document writer.
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// ReposConfig points at the root directory holding analyzable
// repositories.
type ReposConfig struct {
	Root   string   `yaml:"root"`
	Ignore []string `yaml:"ignore"`
}

// TemplatesConfig points at the directory of numbered document
// templates. Empty means the built-in default template only.
type TemplatesConfig struct {
	Dir string `yaml:"dir"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

// TelemetryConfig configures trace export.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Endpoint     string  `yaml:"endpoint"`
	Exporter     string  `yaml:"exporter"` // "grpc" or "http"
	Environment  string  `yaml:"environment"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// Default returns the configuration used when no file or overrides are
// present.
func Default() Config {
	return Config{
		Listen: ":8080",
		RateLimit: RateLimitConfig{
			Requests: 5,
			Window:   Duration(time.Minute),
		},
		Quota: QuotaConfig{
			Balance: 3,
			Window:  Duration(3 * time.Hour),
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     Duration(24 * time.Hour),
		},
		Repos: ReposConfig{
			Root: "./repos",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Environment:  "production",
			SamplingRate: 1.0,
		},
	}
}

// Load reads the configuration file at path (when non-empty), then
// applies environment overrides. Defaults fill anything left unset.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays SCRIBE_* environment variables. Secrets (API keys,
// redis passwords) are usually injected this way rather than committed
// to a config file.
func applyEnv(cfg *Config) {
	setString(&cfg.Listen, "SCRIBE_LISTEN")
	setString(&cfg.Gemini.APIKey, "SCRIBE_GEMINI_API_KEY")
	setString(&cfg.Gemini.Model, "SCRIBE_GEMINI_MODEL")
	setString(&cfg.Cache.Backend, "SCRIBE_CACHE_BACKEND")
	setString(&cfg.Cache.Addr, "SCRIBE_REDIS_ADDR")
	setString(&cfg.Cache.Password, "SCRIBE_REDIS_PASSWORD")
	setString(&cfg.Repos.Root, "SCRIBE_REPOS_ROOT")
	setString(&cfg.Templates.Dir, "SCRIBE_TEMPLATES_DIR")
	setString(&cfg.Log.Level, "SCRIBE_LOG_LEVEL")
	setString(&cfg.Log.Format, "SCRIBE_LOG_FORMAT")
	setString(&cfg.Telemetry.Endpoint, "SCRIBE_OTLP_ENDPOINT")

	if v, ok := os.LookupEnv("SCRIBE_TOKENS"); ok && v != "" {
		cfg.Tokens = splitTokens(v)
	}
	if v, ok := os.LookupEnv("SCRIBE_QUOTA_BALANCE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Quota.Balance = n
		}
	}
	if v, ok := os.LookupEnv("SCRIBE_TELEMETRY_ENABLED"); ok {
		cfg.Telemetry.Enabled = v == "true" || v == "1"
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func splitTokens(v string) []string {
	var out []string
	for _, tok := range strings.Split(v, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// Validate reports configuration errors that would only surface later
// as confusing runtime failures.
func (c Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("config: listen address is required")
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == "redis" && c.Cache.Addr == "" {
		return fmt.Errorf("config: redis cache requires an addr")
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	if c.Telemetry.SamplingRate < 0 || c.Telemetry.SamplingRate > 1 {
		return fmt.Errorf("config: sampling_rate must be within [0, 1]")
	}
	return nil
}
