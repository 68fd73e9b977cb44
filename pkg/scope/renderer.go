package scope

import (
	"fmt"
	"image/color"
	"math"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var (
	pressureColor     = color.RGBA{R: 0, G: 90, B: 200, A: 255}
	accelerationColor = color.RGBA{R: 200, G: 60, B: 0, A: 255}
	markerColor       = color.RGBA{R: 120, G: 120, B: 120, A: 255}
)

// Plots builds the pressure and acceleration plots sharing one time axis.
func (s *Scope) Plots() (pressure, acceleration *plot.Plot, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pressure = s.newPlot("Pressure", "Pressure (mbar)", s.pressure)
	acceleration = s.newPlot("Acceleration", "Acceleration (m/s²)", s.acceleration)
	if len(s.samples) == 0 {
		return pressure, acceleration, nil
	}

	pPts := make(plotter.XYs, len(s.samples))
	aPts := make(plotter.XYs, len(s.samples))
	for i, smp := range s.samples {
		x := s.offset(smp.Timestamp).Seconds()
		pPts[i] = plotter.XY{X: x, Y: smp.Pressure}
		aPts[i] = plotter.XY{X: x, Y: smp.Acceleration}
	}
	if err := addLine(pressure, pPts, pressureColor); err != nil {
		return nil, nil, err
	}
	if err := addLine(acceleration, aPts, accelerationColor); err != nil {
		return nil, nil, err
	}

	if err := s.drawTransitions(pressure, s.pressure, true); err != nil {
		return nil, nil, err
	}
	if err := s.drawTransitions(acceleration, s.acceleration, false); err != nil {
		return nil, nil, err
	}
	return pressure, acceleration, nil
}

func (s *Scope) newPlot(title, label string, y Range) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = label
	p.X.Min = 0
	p.X.Max = s.window.Seconds()
	p.Y.Min = y.Min
	p.Y.Max = y.Max
	p.Add(plotter.NewGrid())
	return p
}

func addLine(p *plot.Plot, pts plotter.XYs, c color.Color) error {
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = c
	line.Width = vg.Points(1)
	p.Add(line)
	return nil
}

// drawTransitions marks every state change inside the displayed window with a
// dashed vertical line, labelled on the pressure plot only.
func (s *Scope) drawTransitions(p *plot.Plot, y Range, labelled bool) error {
	var labels plotter.XYLabels
	span := s.offset(s.samples[len(s.samples)-1].Timestamp)
	for _, tr := range s.transitions {
		// Transitions older than the history show up as a far offset.
		offset := s.offset(tr.Timestamp)
		if offset > span {
			continue
		}
		x := offset.Seconds()

		marker, err := plotter.NewLine(plotter.XYs{{X: x, Y: y.Min}, {X: x, Y: y.Max}})
		if err != nil {
			return err
		}
		marker.Color = markerColor
		marker.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(marker)

		labels.XYs = append(labels.XYs, plotter.XY{X: x, Y: y.Max})
		labels.Labels = append(labels.Labels, tr.State.String())
	}

	if !labelled || len(labels.Labels) == 0 {
		return nil
	}
	l, err := plotter.NewLabels(labels)
	if err != nil {
		return err
	}
	for i := range l.TextStyle {
		l.TextStyle[i].Rotation = -math.Pi / 2
		l.TextStyle[i].Font.Size = vg.Points(6)
	}
	p.Add(l)
	return nil
}

// Save renders both plots stacked into a PNG file.
func (s *Scope) Save(path string, width, height vg.Length) error {
	pressure, acceleration, err := s.Plots()
	if err != nil {
		return fmt.Errorf("failed to build plots: %w", err)
	}

	img := vgimg.New(width, height)
	dc := draw.New(img)
	plots := [][]*plot.Plot{{pressure}, {acceleration}}
	canvases := plot.Align(plots, draw.Tiles{Rows: 2, Cols: 1, PadY: vg.Millimeter}, dc)
	plots[0][0].Draw(canvases[0][0])
	plots[1][0].Draw(canvases[1][0])

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
