package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment constants
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Config holds all application configuration.
type Config struct {
	App      AppConfig
	Log      LogConfig
	Policy   PolicyConfig
	SBOM     SBOMConfig
	Advisory AdvisoryConfig
	Metrics  MetricsConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Name string
	Env  string
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// PolicyConfig locates the review policy. An empty File selects the
// built-in policy.
type PolicyConfig struct {
	File string
}

// SBOMConfig configures SBOM generation.
type SBOMConfig struct {
	Command string
	Timeout time.Duration
}

// AdvisoryConfig configures the advisory provider.
type AdvisoryConfig struct {
	Command  string
	Timeout  time.Duration
	CacheDir string
}

// MetricsConfig configures the optional metrics listener used while serving.
type MetricsConfig struct {
	Addr string
}

// Enabled reports whether the metrics listener should be started.
func (c MetricsConfig) Enabled() bool {
	return c.Addr != ""
}

// Override adjusts a loaded configuration before it is validated.
type Override func(*Config)

// Load loads configuration from environment variables, applies the
// overrides in order and validates the result.
func Load(overrides ...Override) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name: getEnv("APP_NAME", "ossreview"),
			Env:  getEnv("APP_ENV", EnvDevelopment),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", ""),
		},
		Policy: PolicyConfig{
			File: getEnv("POLICY_FILE", ""),
		},
		SBOM: SBOMConfig{
			Command: getEnv("SBOM_COMMAND", "syft"),
			Timeout: getEnvDuration("SBOM_TIMEOUT", 5*time.Minute),
		},
		Advisory: AdvisoryConfig{
			Command:  getEnv("ADVISORY_COMMAND", "npm"),
			Timeout:  getEnvDuration("ADVISORY_TIMEOUT", 2*time.Minute),
			CacheDir: getEnv("ADVISORY_CACHE_DIR", ""),
		},
		Metrics: MetricsConfig{
			Addr: getEnv("METRICS_ADDR", ""),
		},
	}

	for _, o := range overrides {
		o(cfg)
	}

	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
		if cfg.IsProduction() {
			cfg.Log.Format = "json"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.validateBasic(); err != nil {
		return err
	}
	if c.App.Env == EnvProduction {
		return c.validateProduction()
	}
	return nil
}

// validateBasic validates basic configuration regardless of environment.
func (c *Config) validateBasic() error {
	if strings.TrimSpace(c.SBOM.Command) == "" {
		return fmt.Errorf("SBOM_COMMAND is required")
	}
	if c.SBOM.Timeout <= 0 {
		return fmt.Errorf("SBOM_TIMEOUT must be positive, got %s", c.SBOM.Timeout)
	}
	if strings.TrimSpace(c.Advisory.Command) == "" {
		return fmt.Errorf("ADVISORY_COMMAND is required")
	}
	if c.Advisory.Timeout <= 0 {
		return fmt.Errorf("ADVISORY_TIMEOUT must be positive, got %s", c.Advisory.Timeout)
	}
	if c.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
			return fmt.Errorf("invalid METRICS_ADDR %q: %w", c.Metrics.Addr, err)
		}
	}
	return c.validateLog()
}

// validateLog validates logging configuration.
func (c *Config) validateLog() error {
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL: %s (must be debug, info, warn, or error)", c.Log.Level)
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "json", "text":
	default:
		return fmt.Errorf("invalid LOG_FORMAT: %s (must be json or text)", c.Log.Format)
	}

	return nil
}

// validateProduction requires an explicit policy file so production reviews
// never run against the built-in policy by accident.
func (c *Config) validateProduction() error {
	if c.Policy.File == "" {
		return fmt.Errorf("POLICY_FILE is required in production")
	}
	return nil
}

// IsDevelopment returns true if the application is in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == EnvDevelopment
}

// IsProduction returns true if the application is in production mode.
func (c *Config) IsProduction() bool {
	return c.App.Env == EnvProduction
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Bare integers are seconds.
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
