// Package config provides configuration loading and validation for sensortrend.
//
// Values come from, in increasing precedence: built-in defaults, an optional
// YAML file, and SENSORTREND_* environment variables. Command-line flags are
// applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/sensortrend/pkg/alg/stats"
	"github.com/Sumatoshi-tech/sensortrend/pkg/anomaly"
	"github.com/Sumatoshi-tech/sensortrend/pkg/loader"
)

// Sentinel validation errors.
var (
	ErrInvalidBounds     = errors.New("max_val must be greater than min_val")
	ErrInvalidWindow     = errors.New("window size must be positive")
	ErrInvalidWorkers    = errors.New("workers must not be negative")
	ErrInvalidLineSize   = errors.New("invalid max line size")
	ErrInvalidLogLevel   = errors.New("invalid log level")
	ErrInvalidLogFormat  = errors.New("log format must be text or json")
	ErrInvalidSampleRate = errors.New("sample ratio must be within [0, 1]")
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "SENSORTREND"

// DefaultDatasets are processed when no files are given.
var DefaultDatasets = []string{
	"small_sensor_data_2024.csv",
	"medium_sensor_data_2024.csv",
	"large_sensor_data_2024.csv",
}

// Config holds all configuration for sensortrend.
type Config struct {
	Normalize NormalizeConfig `mapstructure:"normalize"`
	Stats     StatsConfig     `mapstructure:"stats"`
	Spikes    SpikesConfig    `mapstructure:"spikes"`
	Loader    LoaderConfig    `mapstructure:"loader"`
	Run       RunConfig       `mapstructure:"run"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// NormalizeConfig holds the accepted reading range and anomaly threshold.
type NormalizeConfig struct {
	MinVal           float64 `mapstructure:"min_val"`
	MaxVal           float64 `mapstructure:"max_val"`
	AnomalyThreshold float64 `mapstructure:"anomaly_threshold"`
}

// StatsConfig holds statistics engine settings.
type StatsConfig struct {
	WindowSize int `mapstructure:"window_size"`
}

// SpikesConfig holds Z-score spike detection settings.
type SpikesConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	WindowSize int     `mapstructure:"window_size"`
	Threshold  float64 `mapstructure:"threshold"`
}

// LoaderConfig holds input reading settings.
type LoaderConfig struct {
	// MaxLineSize is a human-readable byte size, e.g. "4MiB".
	MaxLineSize string `mapstructure:"max_line_size"`
}

// RunConfig holds batch run settings.
type RunConfig struct {
	Datasets []string `mapstructure:"datasets"`
	Format   string   `mapstructure:"format"`
	Workers  int      `mapstructure:"workers"`
	FailFast bool     `mapstructure:"fail_fast"`
}

// CacheConfig holds loaded-sample cache settings.
type CacheConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds OpenTelemetry and Prometheus export settings.
type TelemetryConfig struct {
	Environment     string  `mapstructure:"environment"`
	OTLPEndpoint    string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders     string  `mapstructure:"otlp_headers"`
	OTLPInsecure    bool    `mapstructure:"otlp_insecure"`
	SampleRatio     float64 `mapstructure:"sample_ratio"`
	MetricsTextfile string  `mapstructure:"metrics_textfile"`
}

// LoadConfig loads configuration from file and environment variables.
// An empty configPath searches for sensortrend.yaml in the usual places;
// a missing file there is not an error.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("sensortrend")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("/etc/sensortrend")
	}

	viperCfg.SetEnvPrefix(EnvPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := config.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	// Normalization defaults.
	viperCfg.SetDefault("normalize.min_val", loader.DefaultMin)
	viperCfg.SetDefault("normalize.max_val", loader.DefaultMax)
	viperCfg.SetDefault("normalize.anomaly_threshold", loader.DefaultAnomalyThreshold)

	// Statistics defaults.
	viperCfg.SetDefault("stats.window_size", stats.DefaultWindowSize)

	// Spike detection defaults.
	viperCfg.SetDefault("spikes.enabled", true)
	viperCfg.SetDefault("spikes.window_size", anomaly.DefaultWindowSize)
	viperCfg.SetDefault("spikes.threshold", anomaly.DefaultThreshold)

	// Loader defaults.
	viperCfg.SetDefault("loader.max_line_size", "4MiB")

	// Run defaults.
	viperCfg.SetDefault("run.datasets", DefaultDatasets)
	viperCfg.SetDefault("run.format", "text")
	viperCfg.SetDefault("run.workers", 1)
	viperCfg.SetDefault("run.fail_fast", false)

	// Cache defaults.
	viperCfg.SetDefault("cache.enabled", false)
	viperCfg.SetDefault("cache.directory", "")

	// Logging defaults.
	viperCfg.SetDefault("logging.level", "info")
	viperCfg.SetDefault("logging.format", "text")

	// Telemetry defaults.
	viperCfg.SetDefault("telemetry.environment", "")
	viperCfg.SetDefault("telemetry.otlp_endpoint", "")
	viperCfg.SetDefault("telemetry.otlp_headers", "")
	viperCfg.SetDefault("telemetry.otlp_insecure", false)
	viperCfg.SetDefault("telemetry.sample_ratio", 0.0)
	viperCfg.SetDefault("telemetry.metrics_textfile", "")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	_, err := c.LoaderOptions()
	if err != nil {
		return err
	}

	if c.Stats.WindowSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWindow, c.Stats.WindowSize)
	}

	if c.Spikes.Enabled {
		spikeErr := c.SpikeOptions().Validate()
		if spikeErr != nil {
			return spikeErr
		}
	}

	if c.Run.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Run.Workers)
	}

	_, err = c.LogLevel()
	if err != nil {
		return err
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidSampleRate, c.Telemetry.SampleRatio)
	}

	return nil
}

// LoaderOptions converts the normalization and loader sections.
func (c *Config) LoaderOptions() (loader.Options, error) {
	if c.Normalize.MaxVal <= c.Normalize.MinVal {
		return loader.Options{}, fmt.Errorf("%w: min_val=%g max_val=%g",
			ErrInvalidBounds, c.Normalize.MinVal, c.Normalize.MaxVal)
	}

	lineSize, err := c.MaxLineSizeBytes()
	if err != nil {
		return loader.Options{}, err
	}

	opts := loader.Options{
		Min:              c.Normalize.MinVal,
		Max:              c.Normalize.MaxVal,
		AnomalyThreshold: c.Normalize.AnomalyThreshold,
		MaxLineSize:      lineSize,
	}

	err = opts.Validate()
	if err != nil {
		return loader.Options{}, err
	}

	return opts, nil
}

// MaxLineSizeBytes parses loader.max_line_size. Empty selects the loader default.
func (c *Config) MaxLineSizeBytes() (int, error) {
	trimmed := strings.TrimSpace(c.Loader.MaxLineSize)
	if trimmed == "" {
		return loader.DefaultMaxLineSize, nil
	}

	size, err := humanize.ParseBytes(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidLineSize, trimmed, err)
	}

	if size == 0 || size > uint64(maxLineSize) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLineSize, trimmed)
	}

	return int(size), nil
}

// maxLineSize caps loader.max_line_size at 1 GiB.
const maxLineSize = 1 << 30

// SpikeOptions converts the spikes section.
func (c *Config) SpikeOptions() anomaly.Options {
	return anomaly.Options{
		WindowSize: c.Spikes.WindowSize,
		Threshold:  c.Spikes.Threshold,
	}
}

// LogLevel parses logging.level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level

	err := level.UnmarshalText([]byte(c.Logging.Level))
	if err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	return level, nil
}

// Datasets returns the configured dataset list, or DefaultDatasets if empty.
func (c *Config) Datasets() []string {
	if len(c.Run.Datasets) == 0 {
		return DefaultDatasets
	}

	return c.Run.Datasets
}
