package dataset

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const histogramBins = 15

// corrGrid adapts a correlation matrix to plotter.GridXYZ. NaN cells plot as 0.
type corrGrid struct {
	m *mat.SymDense
}

func (g corrGrid) Dims() (c, r int) {
	n, _ := g.m.Dims()
	return n, n
}

func (g corrGrid) Z(c, r int) float64 {
	v := g.m.At(r, c)
	if math.IsNaN(v) {
		return 0
	}
	return v
}

func (g corrGrid) X(c int) float64 { return float64(c) }
func (g corrGrid) Y(r int) float64 { return float64(r) }

// PlotCorrelation renders an annotated correlation heatmap to a PNG at path.
func PlotCorrelation(cols []string, corr *mat.SymDense, path string) error {
	if corr == nil || len(cols) == 0 {
		return errors.New("plot correlation: no numeric columns")
	}
	cm := moreland.SmoothBlueRed()
	cm.SetMin(-1)
	cm.SetMax(1)

	p := plot.New()
	p.Title.Text = "Feature Correlation"
	h := plotter.NewHeatMap(corrGrid{corr}, cm.Palette(255))
	h.Min, h.Max = -1, 1
	p.Add(h)

	grid := corrGrid{corr}
	n, _ := grid.Dims()
	annot := plotter.XYLabels{XYs: make(plotter.XYs, 0, n*n), Labels: make([]string, 0, n*n)}
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			annot.XYs = append(annot.XYs, plotter.XY{X: float64(c), Y: float64(r)})
			annot.Labels = append(annot.Labels, fmt.Sprintf("%.2f", grid.Z(c, r)))
		}
	}
	labels, err := plotter.NewLabels(annot)
	if err != nil {
		return fmt.Errorf("plot correlation: %w", err)
	}
	p.Add(labels)
	p.NominalX(cols...)
	p.NominalY(cols...)

	side := vg.Length(max(6, n)) * vg.Inch
	return p.Save(side, side*0.8, path)
}

// PlotTrend renders values against times as a line chart. Points are sorted by time.
func PlotTrend(times []time.Time, values []float64, ylabel, path string) error {
	if len(times) != len(values) {
		return fmt.Errorf("plot trend: %d times for %d values", len(times), len(values))
	}
	pts := make(plotter.XYs, 0, len(times))
	for i, t := range times {
		if t.IsZero() || math.IsNaN(values[i]) {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(t.Unix()), Y: values[i]})
	}
	if len(pts) == 0 {
		return errors.New("plot trend: no points")
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].X < pts[j].X })

	p := plot.New()
	p.Title.Text = "Temperature Trend Over Time"
	p.Y.Label.Text = ylabel
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("plot trend: %w", err)
	}
	p.Add(plotter.NewGrid(), line)
	return p.Save(12*vg.Inch, 6*vg.Inch, path)
}

// PlotDistributions tiles one histogram per column into a single PNG.
func PlotDistributions(f *Frame, cols []string, path string) error {
	if len(cols) == 0 {
		return errors.New("plot distributions: no numeric columns")
	}
	nCols := int(math.Ceil(math.Sqrt(float64(len(cols)))))
	nRows := (len(cols) + nCols - 1) / nCols

	plots := make([][]*plot.Plot, nRows)
	for r := range plots {
		plots[r] = make([]*plot.Plot, nCols)
		for c := range plots[r] {
			p := plot.New()
			k := r*nCols + c
			if k >= len(cols) {
				p.HideAxes()
				plots[r][c] = p
				continue
			}
			p.Title.Text = cols[k]
			vals := finite(f.Floats(cols[k]))
			if len(vals) > 0 {
				hist, err := plotter.NewHist(plotter.Values(vals), histogramBins)
				if err != nil {
					return fmt.Errorf("histogram %s: %w", cols[k], err)
				}
				p.Add(hist)
			}
			plots[r][c] = p
		}
	}

	img := vgimg.New(vg.Length(nCols)*4*vg.Inch, vg.Length(nRows)*3*vg.Inch)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: nRows, Cols: nCols,
		PadX: vg.Millimeter, PadY: vg.Millimeter,
		PadTop: vg.Points(4), PadBottom: vg.Points(4),
		PadLeft: vg.Points(4), PadRight: vg.Points(4),
	}
	canvases := plot.Align(plots, tiles, dc)
	for r := range plots {
		for c := range plots[r] {
			plots[r][c].Draw(canvases[r][c])
		}
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(out); err != nil {
		_ = out.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return out.Close()
}

func finite(vals []float64) []float64 {
	out := vals[:0]
	for _, v := range vals {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}
