package debug

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/lodexport/internal/lidar"
	"github.com/banshee-data/lodexport/internal/lidar/lod"
)

// curveSamples is the number of points used to draw S(d).
const curveSamples = 512

var (
	curveColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	bandColor  = color.RGBA{R: 160, G: 160, B: 160, A: 255}
)

// SkipCurve samples S(d) from 0 to 1.25x the far radius.
func SkipCurve(p lod.Params, n int) (plotter.XYs, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if n < 2 {
		n = 2
	}
	maxD := 1.25 * p.FarRadius
	xys := make(plotter.XYs, n)
	for i := range xys {
		d := maxD * float64(i) / float64(n-1)
		xys[i] = plotter.XY{X: d, Y: p.SkipFactor(d)}
	}
	return xys, nil
}

// PlotSkipCurve saves a plot of S(d) with the band radii marked. The image
// format follows the file extension (.png, .svg, .pdf).
func PlotSkipCurve(p lod.Params, path string) error {
	xys, err := SkipCurve(p, curveSamples)
	if err != nil {
		return err
	}

	pl := plot.New()
	pl.Title.Text = fmt.Sprintf("LOD skip factor (mid %.3g, far %.3g)", p.MidSkip, p.FarSkip)
	pl.X.Label.Text = "Distance from camera"
	pl.Y.Label.Text = "Skip factor S(d)"
	pl.Add(plotter.NewGrid())

	line, err := plotter.NewLine(xys)
	if err != nil {
		return fmt.Errorf("skip curve line: %w", err)
	}
	line.Color = curveColor
	line.Width = vg.Points(1.5)
	pl.Add(line)

	for _, r := range []float64{p.NearRadius, p.MidRadius, p.FarRadius} {
		marker, err := plotter.NewLine(plotter.XYs{{X: r, Y: 0}, {X: r, Y: p.FarSkip}})
		if err != nil {
			return fmt.Errorf("band marker: %w", err)
		}
		marker.Color = bandColor
		marker.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		pl.Add(marker)
	}
	pl.Y.Min = 0
	pl.Y.Max = math.Ceil(p.FarSkip) + 1

	if err := pl.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// PlotDistanceHistogram saves a histogram of the world distance from camPos
// to every record, weighted by the raw points each record stands for.
func PlotDistanceHistogram(pts []lidar.PointRecord, camPos r3.Vec, bins int, path string) error {
	if len(pts) == 0 {
		return fmt.Errorf("distance histogram: no points")
	}
	if bins < 1 {
		bins = 1
	}
	vals := make(plotter.Values, 0, len(pts))
	for _, p := range pts {
		d := r3.Norm(r3.Sub(p.World, camPos))
		for w := p.EffectiveWeight(); w > 0; w-- {
			vals = append(vals, d)
		}
	}

	pl := plot.New()
	pl.Title.Text = fmt.Sprintf("Exported points by distance (n=%d)", len(vals))
	pl.X.Label.Text = "Distance from camera"
	pl.Y.Label.Text = "Points"

	h, err := plotter.NewHist(vals, bins)
	if err != nil {
		return fmt.Errorf("distance histogram: %w", err)
	}
	h.FillColor = curveColor
	pl.Add(h)

	if err := pl.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
