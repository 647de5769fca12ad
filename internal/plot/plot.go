// Package plot renders telemetry signals and detected peaks to PNG for
// tuning thresholds and inspecting rides.
package plot

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/LucachuTW/TikTok-maker/internal/peaks"
	"github.com/LucachuTW/TikTok-maker/internal/telemetry"
)

const (
	width  = 14 * vg.Inch
	height = 6 * vg.Inch
)

var (
	signalColor    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	peakColor      = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	thresholdColor = color.RGBA{R: 127, G: 127, B: 127, A: 255}
)

// Signal plots the derived signal for kind with its threshold and the
// selected peaks marked, and writes it as an image to path.
func Signal(path string, s *telemetry.Series, kind peaks.Kind, selected []peaks.Peak) error {
	signal, threshold, err := peaks.Signal(s, kind)
	if err != nil {
		return err
	}
	if len(signal) == 0 {
		return fmt.Errorf("no samples to plot")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s peaks", kind)
	if s.VideoName != "" {
		p.Title.Text = fmt.Sprintf("%s: %s peaks", s.VideoName, kind)
	}
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = kind.Label()
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(signal))
	for i, v := range signal {
		pts[i] = plotter.XY{X: s.Samples[i].Time, Y: v}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("signal line: %w", err)
	}
	line.Color = signalColor
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add(kind.Label(), line)

	thr, err := plotter.NewLine(plotter.XYs{
		{X: s.Samples[0].Time, Y: threshold},
		{X: s.Duration(), Y: threshold},
	})
	if err != nil {
		return fmt.Errorf("threshold line: %w", err)
	}
	thr.Color = thresholdColor
	thr.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(thr)
	p.Legend.Add(fmt.Sprintf("threshold %.2f", threshold), thr)

	if len(selected) > 0 {
		marks := make(plotter.XYs, len(selected))
		for i, pk := range selected {
			marks[i] = plotter.XY{X: pk.Time, Y: pk.Magnitude}
		}
		scatter, err := plotter.NewScatter(marks)
		if err != nil {
			return fmt.Errorf("peak markers: %w", err)
		}
		scatter.GlyphStyle.Color = peakColor
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		scatter.GlyphStyle.Radius = vg.Points(4)
		p.Add(scatter)
		p.Legend.Add(fmt.Sprintf("%d peaks", len(selected)), scatter)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := ensureParent(path); err != nil {
		return err
	}
	if err := p.Save(width, height, path); err != nil {
		return fmt.Errorf("save plot %s: %w", path, err)
	}
	return nil
}

// Raw plots the three gyro channels above the three accelerometer channels
// in a single PNG.
func Raw(path string, s *telemetry.Series) error {
	if s.Len() == 0 {
		return fmt.Errorf("no samples to plot")
	}

	gyro, err := channelPlot("Gyroscope", "deg/s", s, func(smp telemetry.Sample) telemetry.Vec3 { return smp.Rotation })
	if err != nil {
		return err
	}
	accel, err := channelPlot("Accelerometer", "g", s, func(smp telemetry.Sample) telemetry.Vec3 { return smp.Accel })
	if err != nil {
		return err
	}

	plots := [][]*plot.Plot{{gyro}, {accel}}
	img := vgimg.New(width, 2*height)
	dc := draw.New(img)
	tiles := draw.Tiles{Rows: 2, Cols: 1, PadY: vg.Points(10)}
	canvases := plot.Align(plots, tiles, dc)
	for row := range plots {
		plots[row][0].Draw(canvases[row][0])
	}

	if err := ensureParent(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func channelPlot(title, unit string, s *telemetry.Series, pick func(telemetry.Sample) telemetry.Vec3) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = unit
	p.Add(plotter.NewGrid())

	axes := []struct {
		name string
		get  func(telemetry.Vec3) float64
	}{
		{"x", func(v telemetry.Vec3) float64 { return v.X }},
		{"y", func(v telemetry.Vec3) float64 { return v.Y }},
		{"z", func(v telemetry.Vec3) float64 { return v.Z }},
	}
	for i, axis := range axes {
		pts := make(plotter.XYs, s.Len())
		for j, smp := range s.Samples {
			pts[j] = plotter.XY{X: smp.Time, Y: axis.get(pick(smp))}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("%s %s line: %w", title, axis.name, err)
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(axis.name, line)
	}
	p.Legend.Top = true
	return p, nil
}

func ensureParent(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create plot dir %s: %w", dir, err)
	}
	return nil
}
