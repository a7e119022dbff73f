// Package trajectory collects the locator's estimated path alongside the raw
// GNSS positions and renders both with gonum/plot.
package trajectory

import (
	"fmt"
	"image/color"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/rover/internal/locator"
	"github.com/banshee-data/rover/internal/sensors"
)

// Collector records one estimate per odometry sample and one point per GNSS
// measurement.
type Collector struct {
	loc *locator.Locator

	mu       sync.Mutex
	estimate plotter.XYs
	gnss     plotter.XYs
	unbind   []func()
}

// NewCollector subscribes to wheels and gnss. It must be created after loc
// so that loc sees each sample first.
func NewCollector(loc *locator.Locator, wheels *sensors.Wheels, gnss *sensors.Gnss) *Collector {
	c := &Collector{loc: loc}
	if wheels != nil {
		c.unbind = append(c.unbind, wheels.VelocityMeasured.Subscribe(func(sensors.VelocityMeasurement) {
			c.addEstimate()
		}))
	}
	if gnss != nil {
		c.unbind = append(c.unbind, gnss.NewMeasurement.Subscribe(func(m sensors.GnssMeasurement) {
			c.mu.Lock()
			c.gnss = append(c.gnss, plotter.XY{X: m.Point.X, Y: m.Point.Y})
			c.mu.Unlock()
			c.addEstimate()
		}))
	}
	return c
}

func (c *Collector) addEstimate() {
	p := c.loc.Pose()
	c.mu.Lock()
	c.estimate = append(c.estimate, plotter.XY{X: p.X, Y: p.Y})
	c.mu.Unlock()
}

// Close stops collecting.
func (c *Collector) Close() {
	for _, u := range c.unbind {
		u()
	}
	c.unbind = nil
}

// Len returns the number of estimate and gnss points collected.
func (c *Collector) Len() (estimate, gnss int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.estimate), len(c.gnss)
}

// Plot builds the trajectory plot.
func (c *Collector) Plot(title string) (*plot.Plot, error) {
	c.mu.Lock()
	estimate := append(plotter.XYs(nil), c.estimate...)
	gnss := append(plotter.XYs(nil), c.gnss...)
	c.mu.Unlock()

	if len(estimate) == 0 && len(gnss) == 0 {
		return nil, fmt.Errorf("no points to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x east (m)"
	p.Y.Label.Text = "y north (m)"
	p.Add(plotter.NewGrid())

	if len(estimate) > 0 {
		line, err := plotter.NewLine(estimate)
		if err != nil {
			return nil, fmt.Errorf("estimate line: %w", err)
		}
		line.Color = color.RGBA{R: 0, G: 90, B: 200, A: 255}
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add("estimate", line)
	}

	if len(gnss) > 0 {
		scatter, err := plotter.NewScatter(gnss)
		if err != nil {
			return nil, fmt.Errorf("gnss points: %w", err)
		}
		scatter.Color = color.RGBA{R: 220, G: 60, B: 30, A: 255}
		scatter.Radius = vg.Points(2)
		p.Add(scatter)
		p.Legend.Add("gnss", scatter)
	}

	p.Legend.Top = true
	return p, nil
}

// Save renders the plot to path; the format follows the file extension.
func (c *Collector) Save(path, title string) error {
	p, err := c.Plot(title)
	if err != nil {
		return err
	}
	if err := p.Save(10*vg.Inch, 10*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
