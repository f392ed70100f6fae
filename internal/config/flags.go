package config

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "loadprobe",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Target server flags
	flags.String("scheme", "http", "Scheme used to reach the target server")
	flags.String("host", "", "Target server host")
	flags.IntP("port", "p", 8080, "Target server port")
	flags.String("server-version", "", "Server version recorded when the server does not report one")
	flags.String("transport", "http", "Transport recorded in the run configuration")

	// Load control flags
	flags.String("resource-file", "", "Path to the YAML or JSON resource tree to exercise")
	flags.IntP("workers", "w", 1, "Number of concurrent workers")
	flags.Int("shared-workers", 0, "Size of the monitored shared worker pool (0 disables it)")
	flags.IntP("rate", "r", 0, "Requests per second limit (0 means unlimited)")
	flags.IntP("total", "t", 0, "Total number of requests to send (0 means unlimited)")
	flags.DurationP("duration", "d", 0, "How long to run the load (e.g. 30s, 1m)")
	flags.Duration("timeout", DefaultTimeout, "Per-request timeout")

	// Coordinator flags
	flags.Int("loader-number", 0, "Instance number assigned to this probe by the harness")
	flags.Bool("skip-loader-config", false, "Skip retrieving the run configuration from the coordinator")
	flags.Duration("config-poll-every", DefaultConfigPollEvery, "Interval between run configuration polls")
	flags.Duration("config-max-wait", DefaultConfigMaxWait, "Max time to wait for the run configuration")

	// Result flags
	flags.String("result-path", "", "Path to write the JSON run result file")
	flags.StringToStringP("param", "D", nil, "Dynamic key=value parameters (build id, comment, sink credentials)")

	// Tracing flags
	flags.String("tracing-endpoint", "", "OTLP endpoint for trace export (empty disables tracing)")
	flags.String("tracing-protocol", "grpc", "OTLP transport: 'grpc' or 'http'")
	flags.Float64("tracing-sample-rate", 1.0, "Trace sampling rate between 0.0 and 1.0")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")

	flags.String("config", "", "Path to configuration file (JSON or YAML)")
}

// applyFlagOverrides applies explicitly set flags on top of file settings.
func applyFlagOverrides(cfg *Config, flags *pflag.FlagSet) error {
	var err error
	flags.Visit(func(flag *pflag.Flag) {
		if err != nil {
			return
		}
		switch flag.Name {
		case "scheme":
			cfg.Scheme, err = flags.GetString("scheme")
		case "host":
			cfg.Host, err = flags.GetString("host")
		case "port":
			cfg.Port, err = flags.GetInt("port")
		case "server-version":
			cfg.ServerVersion, err = flags.GetString("server-version")
		case "transport":
			cfg.Transport, err = flags.GetString("transport")
		case "resource-file":
			cfg.ResourceFile, err = flags.GetString("resource-file")
		case "workers":
			cfg.Workers, err = flags.GetInt("workers")
		case "shared-workers":
			cfg.SharedWorkers, err = flags.GetInt("shared-workers")
		case "rate":
			cfg.Rate, err = flags.GetInt("rate")
		case "total":
			cfg.Total, err = flags.GetInt("total")
		case "duration":
			cfg.Duration, err = flags.GetDuration("duration")
		case "timeout":
			cfg.Timeout, err = flags.GetDuration("timeout")
		case "loader-number":
			cfg.LoaderNumber, err = flags.GetInt("loader-number")
		case "skip-loader-config":
			cfg.SkipLoaderConfig, err = flags.GetBool("skip-loader-config")
		case "config-poll-every":
			cfg.ConfigPollEvery, err = flags.GetDuration("config-poll-every")
		case "config-max-wait":
			cfg.ConfigMaxWait, err = flags.GetDuration("config-max-wait")
		case "result-path":
			cfg.ResultPath, err = flags.GetString("result-path")
		case "param":
			var params map[string]string
			params, err = flags.GetStringToString("param")
			if err != nil {
				return
			}
			if cfg.Params == nil {
				cfg.Params = map[string]string{}
			}
			for k, v := range params {
				cfg.Params[k] = v
			}
		case "tracing-endpoint":
			cfg.Tracing.Endpoint, err = flags.GetString("tracing-endpoint")
		case "tracing-protocol":
			cfg.Tracing.Protocol, err = flags.GetString("tracing-protocol")
		case "tracing-sample-rate":
			cfg.Tracing.SampleRate, err = flags.GetFloat64("tracing-sample-rate")
		case "tracing-insecure":
			cfg.Tracing.Insecure, err = flags.GetBool("tracing-insecure")
		}
	})
	return err
}

func displayHelp(cmd *cobra.Command) {
	_ = cmd.Usage()
}
