package diag

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderComparisonChart writes an HTML line chart with one series per
// non-nil level sequence, indexed by frame.
func RenderComparisonChart(w io.Writer, reference, recorded, corrected []int, title string) error {
	n := max(len(reference), len(recorded), len(corrected))
	if n == 0 {
		return fmt.Errorf("nothing to chart")
	}
	x := make([]int, n)
	for i := range x {
		x[i] = i
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("frames=%d", n)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Level", NameLocation: "middle", NameGap: 30}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	line.SetXAxis(x)

	for _, s := range []struct {
		name   string
		levels []int
	}{
		{"reference", reference},
		{"recorded", recorded},
		{"corrected", corrected},
	} {
		if s.levels == nil {
			continue
		}
		data := make([]opts.LineData, len(s.levels))
		for i, v := range s.levels {
			data[i] = opts.LineData{Value: v}
		}
		line.AddSeries(s.name, data)
	}

	if err := line.Render(w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
