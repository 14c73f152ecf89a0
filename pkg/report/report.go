// Package report turns pipeline results into text, JSON, YAML, or HTML plot output.
package report

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Sumatoshi-tech/sensortrend/pkg/alg/stats"
	"github.com/Sumatoshi-tech/sensortrend/pkg/loader"
	"github.com/Sumatoshi-tech/sensortrend/pkg/pipeline"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatPlot = "plot"
)

// Dataset statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ErrUnknownFormat is returned for an output format that is not supported.
var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists the supported output formats.
func Formats() []string {
	return []string{FormatText, FormatJSON, FormatYAML, FormatPlot}
}

// ValidateFormat returns ErrUnknownFormat for unsupported names.
func ValidateFormat(format string) error {
	switch format {
	case FormatText, FormatJSON, FormatYAML, FormatPlot:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Settings echoes the parameters the run used.
type Settings struct {
	MinVal           float64 `json:"min_val"           yaml:"min_val"`
	MaxVal           float64 `json:"max_val"           yaml:"max_val"`
	AnomalyThreshold float64 `json:"anomaly_threshold" yaml:"anomaly_threshold"`
	WindowSize       int     `json:"window_size"       yaml:"window_size"`
}

// Report is the serializable outcome of a run.
type Report struct {
	Settings Settings  `json:"settings" yaml:"settings"`
	Datasets []Dataset `json:"datasets" yaml:"datasets"`
}

// Timings are stage durations in milliseconds.
type Timings struct {
	LoadMS    float64 `json:"load_ms"    yaml:"load_ms"`
	ComputeMS float64 `json:"compute_ms" yaml:"compute_ms"`
	TotalMS   float64 `json:"total_ms"   yaml:"total_ms"`
}

// Dataset is the report entry for one source.
type Dataset struct {
	Source       string              `json:"source"                 yaml:"source"`
	Status       string              `json:"status"                 yaml:"status"`
	Error        string              `json:"error,omitempty"        yaml:"error,omitempty"`
	Count        int                 `json:"count"                  yaml:"count"`
	Mean         float64             `json:"mean"                   yaml:"mean"`
	Variance     float64             `json:"variance"               yaml:"variance"`
	StdDev       float64             `json:"std_dev"                yaml:"std_dev"`
	Trend        stats.Trend         `json:"trend,omitempty"        yaml:"trend,omitempty"`
	Windows      stats.TrendCounts   `json:"windows"                yaml:"windows"`
	Anomalies    int                 `json:"anomalies"              yaml:"anomalies"`
	Spikes       int                 `json:"spikes"                 yaml:"spikes"`
	Distribution *stats.Distribution `json:"distribution,omitempty" yaml:"distribution,omitempty"`
	Rows         loader.RowStats     `json:"rows"                   yaml:"rows"`
	Cached       bool                `json:"cached"                 yaml:"cached"`
	Timings      Timings             `json:"timings"                yaml:"timings"`

	windowMeans []float64
}

// New builds a report from pipeline results, keeping their order.
func New(settings Settings, results []pipeline.Result) *Report {
	rep := &Report{
		Settings: settings,
		Datasets: make([]Dataset, 0, len(results)),
	}

	for _, res := range results {
		rep.Datasets = append(rep.Datasets, datasetFromResult(res))
	}

	return rep
}

func datasetFromResult(res pipeline.Result) Dataset {
	ds := Dataset{
		Source: res.Source,
		Status: StatusOK,
		Rows:   res.Rows,
		Cached: res.Cached,
		Timings: Timings{
			LoadMS:    milliseconds(res.Timings.Load),
			ComputeMS: milliseconds(res.Timings.Compute),
			TotalMS:   milliseconds(res.Timings.Total),
		},
	}

	if res.Err != nil {
		ds.Status = StatusError
		ds.Error = res.Err.Error()

		return ds
	}

	dist := res.Distribution

	ds.Count = res.Summary.Count
	ds.Mean = res.Summary.Mean
	ds.Variance = res.Summary.Variance
	ds.StdDev = res.Summary.StdDev
	ds.Trend = res.Summary.Trend
	ds.Windows = res.Summary.Windows
	ds.Anomalies = res.Anomalies
	ds.Spikes = len(res.Spikes)
	ds.Distribution = &dist
	ds.windowMeans = res.WindowMeans

	return ds
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Options controls rendering.
type Options struct {
	NoColor bool
}

// Write renders rep in the given format.
func Write(w io.Writer, format string, rep *Report, opts Options) error {
	switch format {
	case FormatText:
		return WriteText(w, rep, opts)
	case FormatJSON:
		return WriteJSON(w, rep)
	case FormatYAML:
		return WriteYAML(w, rep)
	case FormatPlot:
		return WritePlot(w, rep)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
