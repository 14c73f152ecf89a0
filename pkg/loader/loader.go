// Package loader reads delimited sensor datasets and turns the value column
// into a sequence of normalized samples.
//
// The first line of every source is a header and is skipped. Each following
// line contributes its third comma-separated field. Rows that are malformed,
// marked missing ("NA"), unparsable, or outside the configured bounds are
// dropped without error; they only show up in [RowStats].
package loader

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/Sumatoshi-tech/sensortrend/pkg/units"
)

// Sentinel errors.
var (
	// ErrSourceUnavailable is returned when a source cannot be opened or read.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrInvalidBounds is returned when min/max do not describe a non-empty range.
	ErrInvalidBounds = errors.New("invalid normalization bounds")
	// ErrInvalidThreshold is returned for an anomaly threshold outside [0, 1].
	ErrInvalidThreshold = errors.New("anomaly threshold must be within [0, 1]")
)

// Default normalization settings.
const (
	DefaultMin              = 1.0
	DefaultMax              = 99.0
	DefaultAnomalyThreshold = 0.9
	DefaultMaxLineSize      = 4 * units.MiB
)

const (
	delimiter    = ','
	missingToken = "NA"

	// ctxCheckInterval is how many lines are read between cancellation checks.
	ctxCheckInterval = 1 << 14
)

// Options configures normalization.
type Options struct {
	// Min and Max bound accepted readings, inclusive on both ends.
	Min float64
	Max float64
	// AnomalyThreshold flags normalized samples strictly above it.
	AnomalyThreshold float64
	// MaxLineSize caps the length of a single line in bytes.
	MaxLineSize int
}

// DefaultOptions returns the stock [1, 99] bounds with a 0.9 anomaly threshold.
func DefaultOptions() Options {
	return Options{
		Min:              DefaultMin,
		Max:              DefaultMax,
		AnomalyThreshold: DefaultAnomalyThreshold,
		MaxLineSize:      DefaultMaxLineSize,
	}
}

// Validate checks that the options describe a usable normalization.
func (o Options) Validate() error {
	if math.IsNaN(o.Min) || math.IsNaN(o.Max) || math.IsInf(o.Min, 0) || math.IsInf(o.Max, 0) || o.Max <= o.Min {
		return fmt.Errorf("%w: min=%g max=%g", ErrInvalidBounds, o.Min, o.Max)
	}

	if !(o.AnomalyThreshold >= 0 && o.AnomalyThreshold <= 1) {
		return fmt.Errorf("%w: %g", ErrInvalidThreshold, o.AnomalyThreshold)
	}

	return nil
}

// RowStats tallies what happened to each data row. Header excluded.
type RowStats struct {
	Total      int `json:"total"       yaml:"total"`
	Accepted   int `json:"accepted"    yaml:"accepted"`
	Malformed  int `json:"malformed"   yaml:"malformed"`
	Missing    int `json:"missing"     yaml:"missing"`
	Unparsable int `json:"unparsable"  yaml:"unparsable"`
	OutOfRange int `json:"out_of_range" yaml:"out_of_range"`
}

// Dataset is the loader output: samples in file order plus the anomaly count.
type Dataset struct {
	Source    string
	Samples   []float64
	Anomalies int
	Rows      RowStats
}

// Loader parses and normalizes datasets. It holds no per-dataset state and
// is safe for concurrent use.
type Loader struct {
	opts Options
}

// New creates a Loader. Zero MaxLineSize selects DefaultMaxLineSize.
func New(opts Options) (*Loader, error) {
	err := opts.Validate()
	if err != nil {
		return nil, err
	}

	if opts.MaxLineSize <= 0 {
		opts.MaxLineSize = DefaultMaxLineSize
	}

	return &Loader{opts: opts}, nil
}

// Options returns the effective options.
func (l *Loader) Options() Options {
	return l.opts
}

// LoadFile opens path and loads it. Failure to open is ErrSourceUnavailable.
func (l *Loader) LoadFile(ctx context.Context, path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer file.Close()

	ds, err := l.Load(ctx, file)
	if err != nil {
		return nil, err
	}

	ds.Source = path

	return ds, nil
}

// Load reads a dataset from r. Read failures are ErrSourceUnavailable;
// everything wrong with individual rows is tolerated.
func (l *Loader) Load(ctx context.Context, r io.Reader) (*Dataset, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(l.opts.MaxLineSize, 64*units.KiB)), l.opts.MaxLineSize)

	ds := &Dataset{}

	// Header.
	if !scanner.Scan() {
		err := scanErr(scanner)
		if err != nil {
			return nil, err
		}

		return ds, nil
	}

	for scanner.Scan() {
		ds.Rows.Total++

		if ds.Rows.Total%ctxCheckInterval == 0 {
			ctxErr := ctx.Err()
			if ctxErr != nil {
				return nil, fmt.Errorf("load interrupted: %w", ctxErr)
			}
		}

		l.consume(ds, scanner.Bytes())
	}

	err := scanErr(scanner)
	if err != nil {
		return nil, err
	}

	return ds, nil
}

func scanErr(scanner *bufio.Scanner) error {
	err := scanner.Err()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	return nil
}

func (l *Loader) consume(ds *Dataset, line []byte) {
	field, ok := valueField(line)
	if !ok {
		ds.Rows.Malformed++

		return
	}

	token := string(field)
	if token == missingToken {
		ds.Rows.Missing++

		return
	}

	value, err := strconv.ParseFloat(token, 64)
	if err != nil || math.IsInf(value, 0) || math.IsNaN(value) {
		ds.Rows.Unparsable++

		return
	}

	normalized, ok := l.Normalize(value)
	if !ok {
		ds.Rows.OutOfRange++

		return
	}

	ds.Samples = append(ds.Samples, normalized)
	ds.Rows.Accepted++

	if normalized > l.opts.AnomalyThreshold {
		ds.Anomalies++
	}
}

// Normalize rescales value into [0, 1]. It reports false for values outside
// the closed [Min, Max] interval.
func (l *Loader) Normalize(value float64) (float64, bool) {
	if value < l.opts.Min || value > l.opts.Max {
		return 0, false
	}

	return (value - l.opts.Min) / (l.opts.Max - l.opts.Min), true
}

// valueField returns the text after the second delimiter, cut at a third
// delimiter if one exists, with surrounding whitespace (and a CR) removed.
// It reports false when the line has fewer than two delimiters.
func valueField(line []byte) ([]byte, bool) {
	first := bytes.IndexByte(line, delimiter)
	if first < 0 {
		return nil, false
	}

	rest := line[first+1:]

	second := bytes.IndexByte(rest, delimiter)
	if second < 0 {
		return nil, false
	}

	field := rest[second+1:]

	if end := bytes.IndexByte(field, delimiter); end >= 0 {
		field = field[:end]
	}

	return bytes.TrimSpace(field), true
}
