// Package config provides configuration loading and parsing for loadprobe.
package config

import (
	"errors"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and configuration files to produce a Config.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	cfg := &Config{
		Scheme:          "http",
		Port:            8080,
		Transport:       "http",
		Workers:         1,
		Timeout:         DefaultTimeout,
		ConfigPollEvery: DefaultConfigPollEvery,
		ConfigMaxWait:   DefaultConfigMaxWait,
		Params:          map[string]string{},
		Tracing:         TracingConfig{Protocol: "grpc", SampleRate: 1.0},
		ConfigFile:      configPath,
	}

	if configPath != "" {
		cfgViper := viper.New()
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
		if err := cfgViper.Unmarshal(cfg); err != nil {
			return nil, err
		}
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.Scheme = strings.ToLower(strings.TrimSpace(cfg.Scheme))
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	cfg.ResourceFile = strings.TrimSpace(cfg.ResourceFile)
	cfg.ResultPath = strings.TrimSpace(cfg.ResultPath)
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}

	return cfg, nil
}
