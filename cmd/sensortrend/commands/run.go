// Package commands implements CLI command handlers for sensortrend.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/sensortrend/pkg/cache"
	"github.com/Sumatoshi-tech/sensortrend/pkg/config"
	"github.com/Sumatoshi-tech/sensortrend/pkg/observability"
	"github.com/Sumatoshi-tech/sensortrend/pkg/pipeline"
	"github.com/Sumatoshi-tech/sensortrend/pkg/report"
	"github.com/Sumatoshi-tech/sensortrend/pkg/version"
)

// Root persistent flag names.
const (
	FlagVerbose = "verbose"
	FlagQuiet   = "quiet"
)

// cacheSubdir is the directory under the user cache dir used when caching
// is enabled without an explicit directory.
const cacheSubdir = "sensortrend"

type telemetryInit func(cfg observability.Config) (observability.Providers, error)

// RunCommand holds flags and dependencies for the run command.
type RunCommand struct {
	configPath      string
	format          string
	window          int
	minVal          float64
	maxVal          float64
	workers         int
	failFast        bool
	cacheDir        string
	metricsTextfile string
	otlpEndpoint    string
	logLevel        string
	noColor         bool

	initTelemetry telemetryInit
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	return newRunCommandWithDeps(observability.Init)
}

func newRunCommandWithDeps(initTelemetry telemetryInit) *cobra.Command {
	rc := &RunCommand{initTelemetry: initTelemetry}

	cmd := &cobra.Command{
		Use:   "run [dataset...]",
		Short: "Process sensor datasets",
		Long: `Load each dataset, normalize the value column, and report summary
statistics and the windowed trend. Without arguments the datasets listed
under run.datasets in the configuration are processed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          rc.run,
	}

	cmd.Flags().StringVarP(&rc.configPath, "config", "c", "", "Config file (default: sensortrend.yaml in ., ./config, /etc/sensortrend)")
	cmd.Flags().StringVarP(&rc.format, "format", "f", report.FormatText, "Output format: text, json, yaml, plot")
	cmd.Flags().IntVarP(&rc.window, "window", "w", 0, "Trend window size (overrides stats.window_size)")
	cmd.Flags().Float64Var(&rc.minVal, "min", 0, "Lowest accepted reading (overrides normalize.min_val)")
	cmd.Flags().Float64Var(&rc.maxVal, "max", 0, "Highest accepted reading (overrides normalize.max_val)")
	cmd.Flags().IntVar(&rc.workers, "workers", 0, "Datasets processed in parallel (overrides run.workers)")
	cmd.Flags().BoolVar(&rc.failFast, "fail-fast", false, "Stop at the first failing dataset")
	cmd.Flags().StringVar(&rc.cacheDir, "cache-dir", "", "Cache loaded samples in this directory")
	cmd.Flags().StringVar(&rc.metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file on exit")
	cmd.Flags().StringVar(&rc.otlpEndpoint, "otlp-endpoint", "", "OTLP gRPC endpoint for traces and metrics")
	cmd.Flags().StringVar(&rc.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.Flags().BoolVar(&rc.noColor, "no-color", false, "Disable colored text output")

	return cmd
}

func (rc *RunCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(rc.configPath)
	if err != nil {
		return err
	}

	err = rc.applyFlags(cmd, cfg)
	if err != nil {
		return err
	}

	err = report.ValidateFormat(cfg.Run.Format)
	if err != nil {
		return err
	}

	providers, err := rc.initTelemetry(observabilityConfig(cmd, cfg))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("telemetry shutdown failed", "error", shutdownErr)
		}
	}()

	proc, err := rc.buildProcessor(cfg, providers)
	if err != nil {
		return err
	}

	paths := args
	if len(paths) == 0 {
		paths = cfg.Datasets()
	}

	ctx, span := providers.Tracer.Start(cmd.Context(), "sensortrend.run")
	defer span.End()

	runner := pipeline.NewRunner(proc, cfg.Run.Workers, cfg.Run.FailFast)

	results, runErr := runner.Run(ctx, paths)
	if runErr != nil {
		return runErr
	}

	loaderOpts, err := cfg.LoaderOptions()
	if err != nil {
		return err
	}

	rep := report.New(report.Settings{
		MinVal:           loaderOpts.Min,
		MaxVal:           loaderOpts.Max,
		AnomalyThreshold: loaderOpts.AnomalyThreshold,
		WindowSize:       cfg.Stats.WindowSize,
	}, results)

	err = report.Write(cmd.OutOrStdout(), cfg.Run.Format, rep, report.Options{NoColor: rc.noColor})
	if err != nil {
		return err
	}

	return pipeline.Failures(results)
}

// applyFlags overlays explicitly set flags onto cfg and revalidates it.
func (rc *RunCommand) applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("format") {
		cfg.Run.Format = rc.format
	}

	if flags.Changed("window") {
		cfg.Stats.WindowSize = rc.window
	}

	if flags.Changed("min") {
		cfg.Normalize.MinVal = rc.minVal
	}

	if flags.Changed("max") {
		cfg.Normalize.MaxVal = rc.maxVal
	}

	if flags.Changed("workers") {
		cfg.Run.Workers = rc.workers
	}

	if flags.Changed("fail-fast") {
		cfg.Run.FailFast = rc.failFast
	}

	if flags.Changed("cache-dir") {
		cfg.Cache.Enabled = rc.cacheDir != ""
		cfg.Cache.Directory = rc.cacheDir
	}

	if flags.Changed("metrics-textfile") {
		cfg.Telemetry.MetricsTextfile = rc.metricsTextfile
	}

	if flags.Changed("otlp-endpoint") {
		cfg.Telemetry.OTLPEndpoint = rc.otlpEndpoint
	}

	if flags.Changed("log-level") {
		cfg.Logging.Level = rc.logLevel
	}

	if boolFlag(cmd, FlagVerbose) {
		cfg.Logging.Level = "debug"
	} else if boolFlag(cmd, FlagQuiet) {
		cfg.Logging.Level = "error"
	}

	err := cfg.Validate()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}

// boolFlag reads a boolean flag that may be inherited from the root command.
func boolFlag(cmd *cobra.Command, name string) bool {
	flag := cmd.Flags().Lookup(name)
	if flag == nil {
		return false
	}

	return flag.Value.String() == "true"
}

func observabilityConfig(cmd *cobra.Command, cfg *config.Config) observability.Config {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Environment = cfg.Telemetry.Environment
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.SampleRatio = cfg.Telemetry.SampleRatio
	obsCfg.MetricsTextfile = cfg.Telemetry.MetricsTextfile
	obsCfg.LogJSON = cfg.Logging.Format == "json"
	obsCfg.LogWriter = cmd.ErrOrStderr()

	level, err := cfg.LogLevel()
	if err == nil {
		obsCfg.LogLevel = level
	}

	return obsCfg
}

func (rc *RunCommand) buildProcessor(cfg *config.Config, providers observability.Providers) (*pipeline.Processor, error) {
	loaderOpts, err := cfg.LoaderOptions()
	if err != nil {
		return nil, err
	}

	opts := pipeline.Options{
		Loader:     loaderOpts,
		WindowSize: cfg.Stats.WindowSize,
	}

	if cfg.Spikes.Enabled {
		spikes := cfg.SpikeOptions()
		opts.Spikes = &spikes
	}

	metrics, err := observability.NewPipelineMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	options := []pipeline.Option{
		pipeline.WithTracer(providers.Tracer),
		pipeline.WithMetrics(metrics),
		pipeline.WithLogger(providers.Logger),
	}

	if cfg.Cache.Enabled {
		store, storeErr := openCache(cfg.Cache.Directory)
		if storeErr != nil {
			return nil, storeErr
		}

		providers.Logger.Debug("sample cache enabled", slog.String("dir", store.Dir()))

		options = append(options, pipeline.WithCache(store))
	}

	return pipeline.NewProcessor(opts, options...)
}

func openCache(dir string) (*cache.Store, error) {
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("resolve cache directory: %w", err)
		}

		dir = filepath.Join(base, cacheSubdir)
	}

	return cache.Open(dir, cache.DefaultLRUCacheSize)
}
