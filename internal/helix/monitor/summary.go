package monitor

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/helixmc/internal/helix"
)

// WriteSummaryHTML renders one bar chart per step parameter comparing the
// recorded per-context means (with a companion standard deviation series)
// and writes the page to path. The sampling subsystem has no web surface,
// so this renders to a file rather than an HTTP handler.
func (dr *DistRecorder) WriteSummaryHTML(path string) error {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	if len(dr.order) == 0 {
		return fmt.Errorf("no draws recorded")
	}

	page := components.NewPage()
	page.PageTitle = "step parameter distributions"

	for j := 0; j < helix.NumParams; j++ {
		means := make([]opts.BarData, 0, len(dr.order))
		stds := make([]opts.BarData, 0, len(dr.order))
		for _, context := range dr.order {
			vs := dr.values(context, j)
			mean, std := stat.MeanStdDev(vs, nil)
			means = append(means, opts.BarData{Value: mean})
			stds = append(stds, opts.BarData{Value: std})
		}

		bar := charts.NewBar()
		bar.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{Title: paramLabels[j]}),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		)
		bar.SetXAxis(dr.order).
			AddSeries("mean", means).
			AddSeries("std dev", stds)
		page.AddCharts(bar)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		return fmt.Errorf("failed to render summary: %w", err)
	}
	return nil
}
