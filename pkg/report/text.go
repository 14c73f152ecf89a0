package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/sensortrend/pkg/alg/stats"
)

// decimals is the number of fractional digits shown for statistics.
const decimals = 5

func fixed(v float64) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

func millis(ms float64) string {
	return strconv.FormatFloat(ms, 'f', 3, 64) + " ms"
}

// WriteText renders one table per dataset, each headed by its source path.
func WriteText(w io.Writer, rep *Report, opts Options) error {
	pal := newPalette(opts.NoColor)

	for i, ds := range rep.Datasets {
		if i > 0 {
			_, err := fmt.Fprintln(w)
			if err != nil {
				return fmt.Errorf("write text report: %w", err)
			}
		}

		_, err := fmt.Fprintln(w, renderDataset(ds, pal))
		if err != nil {
			return fmt.Errorf("write text report: %w", err)
		}
	}

	return nil
}

func renderDataset(ds Dataset, pal palette) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false

	if ds.Status == StatusError {
		tbl.AppendRow(table.Row{"Status", pal.bad.Sprint(StatusError)})
		tbl.AppendRow(table.Row{"Error", ds.Error})

		return ds.Source + "\n" + tbl.Render()
	}

	tbl.AppendRows([]table.Row{
		{"Processing time", millis(ds.Timings.LoadMS)},
		{"Calculation time", millis(ds.Timings.ComputeMS)},
		{"Total time", millis(ds.Timings.TotalMS)},
	})
	tbl.AppendSeparator()
	tbl.AppendRows([]table.Row{
		{"Mean", fixed(ds.Mean)},
		{"Variance", fixed(ds.Variance)},
		{"Std Dev", fixed(ds.StdDev)},
		{"Trend", pal.trend(ds.Trend)},
		{"Anomalies", humanize.Comma(int64(ds.Anomalies))},
	})
	tbl.AppendSeparator()

	if ds.Distribution != nil {
		tbl.AppendRows([]table.Row{
			{"Min / Max", fixed(ds.Distribution.Min) + " / " + fixed(ds.Distribution.Max)},
			{"Median / P95", fixed(ds.Distribution.Median) + " / " + fixed(ds.Distribution.P95)},
		})
	}

	tbl.AppendRows([]table.Row{
		{"Spikes", humanize.Comma(int64(ds.Spikes))},
		{"Samples", humanize.Comma(int64(ds.Count)) + " of " + humanize.Comma(int64(ds.Rows.Total)) + " rows"},
	})

	if ds.Cached {
		tbl.AppendFooter(table.Row{"", "from cache"})
	}

	// Source goes on its own line; a table title would wrap long paths.
	return ds.Source + "\n" + tbl.Render()
}

type palette struct {
	good    *color.Color
	bad     *color.Color
	neutral *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		good:    color.New(color.FgGreen),
		bad:     color.New(color.FgRed),
		neutral: color.New(color.FgYellow),
	}

	if noColor {
		p.good.DisableColor()
		p.bad.DisableColor()
		p.neutral.DisableColor()
	}

	return p
}

func (p palette) trend(t stats.Trend) string {
	switch t {
	case stats.TrendIncreasing:
		return p.good.Sprint(t)
	case stats.TrendDecreasing:
		return p.bad.Sprint(t)
	default:
		return p.neutral.Sprint(t)
	}
}
