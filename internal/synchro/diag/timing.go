package diag

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/framesync/internal/synchro/frames"
)

var anomalyColor = color.RGBA{R: 220, G: 40, B: 40, A: 255}

// newIntervalPlot plots the interval following each frame and marks the
// flagged ones.
func newIntervalPlot(timepoints []int, anomalies []frames.TimingAnomaly) (*plot.Plot, error) {
	if len(timepoints) < 2 {
		return nil, fmt.Errorf("need at least 2 timepoints to plot intervals, got %d", len(timepoints))
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Inter-frame intervals (%d frames)", len(timepoints))
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Interval (samples)"

	pts := make(plotter.XYs, 0, len(timepoints)-1)
	for k := 1; k < len(timepoints); k++ {
		pts = append(pts, plotter.XY{X: float64(k - 1), Y: float64(timepoints[k] - timepoints[k-1])})
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("interval", line)

	if len(anomalies) > 0 {
		marks := make(plotter.XYs, 0, len(anomalies))
		for _, a := range anomalies {
			marks = append(marks, plotter.XY{X: float64(a.Frame), Y: float64(a.Interval)})
		}
		scatter, err := plotter.NewScatter(marks)
		if err != nil {
			return nil, err
		}
		scatter.GlyphStyle.Color = anomalyColor
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		scatter.GlyphStyle.Radius = vg.Points(3)
		p.Add(scatter)
		p.Legend.Add(fmt.Sprintf("anomaly (%d)", len(anomalies)), scatter)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

// PlotIntervals saves the interval plot to path. The image format follows
// the file extension (png, svg, pdf, ...).
func PlotIntervals(timepoints []int, anomalies []frames.TimingAnomaly, path string) error {
	p, err := newIntervalPlot(timepoints, anomalies)
	if err != nil {
		return err
	}
	if err := p.Save(14*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save interval plot %s: %w", path, err)
	}
	return nil
}

// WriteIntervals writes the interval plot to w in the given format.
func WriteIntervals(w io.Writer, format string, timepoints []int, anomalies []frames.TimingAnomaly) error {
	p, err := newIntervalPlot(timepoints, anomalies)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(14*vg.Inch, 6*vg.Inch, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
