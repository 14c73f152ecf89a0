package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricDatasetsTotal  = "sensortrend.datasets.total"
	metricRowsTotal      = "sensortrend.rows.total"
	metricAnomaliesTotal = "sensortrend.anomalies.total"
	metricSpikesTotal    = "sensortrend.spikes.total"
	metricStageDuration  = "sensortrend.stage.duration.seconds"
	metricCacheTotal     = "sensortrend.cache.lookups.total"

	attrStatus  = "status"
	attrOutcome = "outcome"
	attrStage   = "stage"
	attrResult  = "result"
)

// Dataset statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Pipeline stages.
const (
	StageLoad    = "load"
	StageCompute = "compute"
)

// stageBucketBoundaries covers 100µs to 60s: small files parse in well under
// a millisecond, multi-gigabyte ones take tens of seconds.
var stageBucketBoundaries = []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60}

// RowOutcomes is the per-row disposition of one dataset, decoupled from
// loader types.
type RowOutcomes struct {
	Accepted   int
	Malformed  int
	Missing    int
	Unparsable int
	OutOfRange int
}

// PipelineMetrics holds OTel instruments for dataset processing.
type PipelineMetrics struct {
	datasetsTotal  metric.Int64Counter
	rowsTotal      metric.Int64Counter
	anomaliesTotal metric.Int64Counter
	spikesTotal    metric.Int64Counter
	stageDuration  metric.Float64Histogram
	cacheTotal     metric.Int64Counter
}

// NewPipelineMetrics creates pipeline metric instruments from the given meter.
func NewPipelineMetrics(mt metric.Meter) (*PipelineMetrics, error) {
	b := newMetricBuilder(mt)

	pm := &PipelineMetrics{
		datasetsTotal:  b.counter(metricDatasetsTotal, "Datasets processed", "{dataset}"),
		rowsTotal:      b.counter(metricRowsTotal, "Data rows read, by outcome", "{row}"),
		anomaliesTotal: b.counter(metricAnomaliesTotal, "Normalized samples above the anomaly threshold", "{sample}"),
		spikesTotal:    b.counter(metricSpikesTotal, "Samples flagged by Z-score spike detection", "{sample}"),
		stageDuration: b.histogram(metricStageDuration, "Per-dataset stage duration in seconds", "s",
			stageBucketBoundaries...),
		cacheTotal: b.counter(metricCacheTotal, "Sample cache lookups, by result", "{lookup}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return pm, nil
}

// RecordDataset records the completion of one dataset.
// Safe to call on a nil receiver (no-op).
func (pm *PipelineMetrics) RecordDataset(ctx context.Context, status string) {
	if pm == nil {
		return
	}

	pm.datasetsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}

// RecordRows records row outcomes plus anomaly and spike counts.
// Safe to call on a nil receiver (no-op).
func (pm *PipelineMetrics) RecordRows(ctx context.Context, rows RowOutcomes, anomalies, spikes int) {
	if pm == nil {
		return
	}

	outcomes := []struct {
		name  string
		count int
	}{
		{"accepted", rows.Accepted},
		{"malformed", rows.Malformed},
		{"missing", rows.Missing},
		{"unparsable", rows.Unparsable},
		{"out_of_range", rows.OutOfRange},
	}

	for _, o := range outcomes {
		if o.count == 0 {
			continue
		}

		pm.rowsTotal.Add(ctx, int64(o.count), metric.WithAttributes(attribute.String(attrOutcome, o.name)))
	}

	pm.anomaliesTotal.Add(ctx, int64(anomalies))
	pm.spikesTotal.Add(ctx, int64(spikes))
}

// RecordStage records how long a pipeline stage took.
// Safe to call on a nil receiver (no-op).
func (pm *PipelineMetrics) RecordStage(ctx context.Context, stage string, d time.Duration) {
	if pm == nil {
		return
	}

	pm.stageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String(attrStage, stage)))
}

// RecordCacheLookup records a sample cache hit or miss.
// Safe to call on a nil receiver (no-op).
func (pm *PipelineMetrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if pm == nil {
		return
	}

	result := "miss"
	if hit {
		result = "hit"
	}

	pm.cacheTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}
