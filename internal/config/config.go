package config

import (
	"fmt"
	"strings"
	"time"
)

// Default timing constants for the probe run.
const (
	DefaultTimeout          = 30 * time.Second
	DefaultConfigPollEvery  = time.Second
	DefaultConfigMaxWait    = 120 * time.Second
	DefaultProgressInterval = 2 * time.Second
)

// Config holds the full probe configuration, merged from config file and flags.
type Config struct {
	Scheme        string `mapstructure:"scheme"`
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	ServerVersion string `mapstructure:"server_version"` // fallback when the server omits its version
	Transport     string `mapstructure:"transport"`

	ResourceFile string `mapstructure:"resource_file"`

	Workers       int           `mapstructure:"workers"`
	SharedWorkers int           `mapstructure:"shared_workers"`
	Rate          int           `mapstructure:"rate"`
	Total         int           `mapstructure:"total"`
	Duration      time.Duration `mapstructure:"duration"`
	Timeout       time.Duration `mapstructure:"timeout"`

	LoaderNumber     int  `mapstructure:"loader_number"`
	SkipLoaderConfig bool `mapstructure:"skip_loader_config"`

	ConfigPollEvery time.Duration `mapstructure:"config_poll_every"`
	ConfigMaxWait   time.Duration `mapstructure:"config_max_wait"`

	ResultPath string            `mapstructure:"result_path"`
	Params     map[string]string `mapstructure:"params"`

	Tracing TracingConfig `mapstructure:"tracing"`

	ConfigFile string `mapstructure:"-"`
}

// TracingConfig configures the optional OTLP trace exporter.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
}

// Enabled reports whether tracing should be initialized at all.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

// BaseURL renders the target server base URL.
func (c Config) BaseURL() string {
	return fmt.Sprintf("%s://%s:%d", c.Scheme, c.Host, c.Port)
}

// Param returns the dynamic parameter for key, or "" when unset.
func (c Config) Param(key string) string {
	return c.Params[key]
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.Host) == "" {
		issues = append(issues, "host is required (use --help for usage information)")
	}
	switch c.Scheme {
	case "http", "https":
	default:
		issues = append(issues, fmt.Sprintf("scheme must be http or https, got %q", c.Scheme))
	}
	if c.Port < 1 || c.Port > 65535 {
		issues = append(issues, fmt.Sprintf("port must be in [1, 65535], got %d", c.Port))
	}
	if c.Workers < 1 {
		issues = append(issues, "workers must be at least 1")
	}
	if c.SharedWorkers < 0 {
		issues = append(issues, "shared-workers cannot be negative")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate cannot be negative")
	}
	if c.Total < 0 {
		issues = append(issues, "total cannot be negative")
	}
	if c.Duration < 0 {
		issues = append(issues, "duration cannot be negative")
	}
	if c.Total == 0 && c.Duration == 0 {
		issues = append(issues, "either total or duration must bound the run")
	}
	if c.ConfigPollEvery <= 0 {
		issues = append(issues, "config-poll-every must be positive")
	}
	if c.ConfigMaxWait <= 0 {
		issues = append(issues, "config-max-wait must be positive")
	}
	if strings.TrimSpace(c.ResourceFile) == "" {
		issues = append(issues, "resource-file is required")
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		issues = append(issues, fmt.Sprintf("tracing sample_rate must be between 0.0 and 1.0, got %g", c.Tracing.SampleRate))
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}
