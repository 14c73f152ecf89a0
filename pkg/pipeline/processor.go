// Package pipeline runs the load → summarize pipeline over one or more
// datasets and collects per-dataset results with stage timings.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/sensortrend/pkg/alg/stats"
	"github.com/Sumatoshi-tech/sensortrend/pkg/anomaly"
	"github.com/Sumatoshi-tech/sensortrend/pkg/cache"
	"github.com/Sumatoshi-tech/sensortrend/pkg/loader"
	"github.com/Sumatoshi-tech/sensortrend/pkg/observability"
)

// Span names.
const (
	spanDataset = "sensortrend.dataset"
	spanLoad    = "sensortrend.load"
	spanCompute = "sensortrend.compute"
)

// Options configures a Processor.
type Options struct {
	Loader     loader.Options
	WindowSize int
	// Spikes is nil when z-score spike detection is disabled.
	Spikes *anomaly.Options
}

// DefaultOptions returns the stock pipeline settings.
func DefaultOptions() Options {
	spikes := anomaly.DefaultOptions()

	return Options{
		Loader:     loader.DefaultOptions(),
		WindowSize: stats.DefaultWindowSize,
		Spikes:     &spikes,
	}
}

// Timings holds wall-clock durations of the pipeline stages.
type Timings struct {
	Load    time.Duration
	Compute time.Duration
	Total   time.Duration
}

// Result is the outcome of processing one dataset. Err is set when the
// dataset failed; the other fields are then partially filled at best.
type Result struct {
	Source       string
	Summary      stats.Summary
	Anomalies    int
	Spikes       []anomaly.Spike
	Distribution stats.Distribution
	WindowMeans  []float64
	Rows         loader.RowStats
	Timings      Timings
	Cached       bool
	Err          error
}

// Processor runs the pipeline for single datasets. It is safe for
// concurrent use.
type Processor struct {
	opts    Options
	loader  *loader.Loader
	cache   *cache.Store
	tracer  trace.Tracer
	metrics *observability.PipelineMetrics
	logger  *slog.Logger
}

// Option customizes a Processor.
type Option func(*Processor)

// WithCache enables the dataset cache.
func WithCache(store *cache.Store) Option {
	return func(p *Processor) { p.cache = store }
}

// WithTracer sets the tracer used for stage spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Processor) { p.tracer = tracer }
}

// WithMetrics sets the pipeline metric instruments.
func WithMetrics(metrics *observability.PipelineMetrics) Option {
	return func(p *Processor) { p.metrics = metrics }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) { p.logger = logger }
}

// NewProcessor validates opts and builds a Processor.
func NewProcessor(opts Options, options ...Option) (*Processor, error) {
	if opts.WindowSize < 1 {
		return nil, fmt.Errorf("%w: %d", stats.ErrInvalidWindow, opts.WindowSize)
	}

	if opts.Spikes != nil {
		err := opts.Spikes.Validate()
		if err != nil {
			return nil, err
		}
	}

	ld, err := loader.New(opts.Loader)
	if err != nil {
		return nil, err
	}

	p := &Processor{
		opts:   opts,
		loader: ld,
		tracer: noop.NewTracerProvider().Tracer(""),
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range options {
		opt(p)
	}

	return p, nil
}

// Process loads the dataset at path and summarizes it.
func (p *Processor) Process(ctx context.Context, path string) Result {
	start := time.Now()

	ctx, span := p.tracer.Start(ctx, spanDataset, trace.WithAttributes(attribute.String("source", path)))
	defer span.End()

	res := Result{Source: path}

	ds, cached, err := p.load(ctx, path)
	res.Timings.Load = time.Since(start)
	p.metrics.RecordStage(ctx, observability.StageLoad, res.Timings.Load)

	if err == nil {
		res.Cached = cached
		res.Rows = ds.Rows
		res.Anomalies = ds.Anomalies

		p.logger.DebugContext(ctx, "dataset loaded",
			"source", path,
			"cached", cached,
			"rows", ds.Rows.Total,
			"accepted", ds.Rows.Accepted,
			"malformed", ds.Rows.Malformed,
			"missing", ds.Rows.Missing,
			"unparsable", ds.Rows.Unparsable,
			"out_of_range", ds.Rows.OutOfRange,
		)

		computeStart := time.Now()
		err = p.compute(ctx, ds, &res)
		res.Timings.Compute = time.Since(computeStart)
		p.metrics.RecordStage(ctx, observability.StageCompute, res.Timings.Compute)
	}

	res.Timings.Total = time.Since(start)

	if err != nil {
		res.Err = fmt.Errorf("%s: %w", path, err)

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.metrics.RecordDataset(ctx, observability.StatusError)
		p.logger.DebugContext(ctx, "dataset failed", "source", path, "error", err)

		return res
	}

	p.metrics.RecordDataset(ctx, observability.StatusOK)
	p.metrics.RecordRows(ctx, observability.RowOutcomes{
		Accepted:   res.Rows.Accepted,
		Malformed:  res.Rows.Malformed,
		Missing:    res.Rows.Missing,
		Unparsable: res.Rows.Unparsable,
		OutOfRange: res.Rows.OutOfRange,
	}, res.Anomalies, len(res.Spikes))

	return res
}

// load reads the dataset, going through the cache when one is configured.
// Cache failures never fail the dataset.
func (p *Processor) load(ctx context.Context, path string) (ds *loader.Dataset, cached bool, err error) {
	ctx, span := p.tracer.Start(ctx, spanLoad)
	defer span.End()

	var key string

	if p.cache != nil {
		// A Key error means the file cannot be stat'ed; the loader reports it.
		key, _ = cache.Key(path, p.loader.Options())
	}

	if key != "" {
		ds, err = p.cache.Get(key)
		if err != nil {
			p.logger.WarnContext(ctx, "cache entry unreadable", "source", path, "error", err)
		}

		p.metrics.RecordCacheLookup(ctx, ds != nil)

		if ds != nil {
			span.SetAttributes(attribute.Bool("cached", true))

			return ds, true, nil
		}
	}

	ds, err = p.loader.LoadFile(ctx, path)
	if err != nil {
		return nil, false, err
	}

	if key != "" {
		putErr := p.cache.Put(key, ds)
		if putErr != nil {
			p.logger.WarnContext(ctx, "cache write failed", "source", path, "error", putErr)
		}
	}

	span.SetAttributes(attribute.Int("samples", len(ds.Samples)))

	return ds, false, nil
}

func (p *Processor) compute(ctx context.Context, ds *loader.Dataset, res *Result) error {
	_, span := p.tracer.Start(ctx, spanCompute)
	defer span.End()

	summary, err := stats.Summarize(ds.Samples, p.opts.WindowSize)
	if err != nil {
		return err
	}

	res.Summary = summary
	res.Distribution = stats.Describe(ds.Samples)

	means, err := stats.WindowMeans(ds.Samples, p.opts.WindowSize)
	if err != nil {
		return err
	}

	res.WindowMeans = means

	if p.opts.Spikes != nil {
		spikes, spikeErr := anomaly.Detect(ds.Samples, *p.opts.Spikes)
		if spikeErr != nil {
			return spikeErr
		}

		res.Spikes = spikes
	}

	span.SetAttributes(
		attribute.String("trend", string(summary.Trend)),
		attribute.Int("anomalies", ds.Anomalies),
	)

	return nil
}
