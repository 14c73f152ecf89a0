package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Sumatoshi-tech/sensortrend/pkg/alg/stats"
)

const (
	chartWidth  = "100%"
	chartHeight = "420px"
	lineWidth   = 2
	// emaAlpha smooths the window means for the overlay series.
	emaAlpha = 0.2
)

// WritePlot renders an HTML page with one line chart per successful dataset:
// the window means, their EMA, and the anomaly threshold.
func WritePlot(w io.Writer, rep *Report) error {
	page := components.NewPage()
	page.PageTitle = "sensortrend"

	for _, ds := range rep.Datasets {
		if ds.Status != StatusOK || len(ds.windowMeans) == 0 {
			continue
		}

		page.AddCharts(windowChart(ds, rep.Settings))
	}

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}

	return nil
}

func windowChart(ds Dataset, settings Settings) *charts.Line {
	means := ds.windowMeans
	smoothed := stats.Smooth(means, emaAlpha)

	labels := make([]string, len(means))
	meanData := make([]opts.LineData, len(means))
	emaData := make([]opts.LineData, len(means))
	thresholdData := make([]opts.LineData, len(means))

	for i, m := range means {
		labels[i] = strconv.Itoa(i)
		meanData[i] = opts.LineData{Value: m}
		emaData[i] = opts.LineData{Value: smoothed[i]}
		thresholdData[i] = opts.LineData{Value: settings.AnomalyThreshold}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{
			Title:    filepath.Base(ds.Source),
			Subtitle: fmt.Sprintf("window %d, trend %s", settings.WindowSize, ds.Trend),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Window"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Normalized mean", Min: 0, Max: 1}),
	)
	line.SetXAxis(labels)
	line.AddSeries("Window mean", meanData,
		charts.WithLineStyleOpts(opts.LineStyle{Width: lineWidth}),
	)
	line.AddSeries("EMA", emaData,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}),
	)
	line.AddSeries("Anomaly threshold", thresholdData,
		charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed"}),
	)

	return line
}
