package sensors

import (
	"math"
	"sync"

	"github.com/banshee-data/rover/internal/geo"
	"github.com/paulmach/orb"
)

// Fix is a geographic GNSS solution as reported by the receiver.
type Fix struct {
	Position         orb.Point // {lon, lat} in degrees
	HeadingDeg       *float64  // compass heading, clockwise from north
	LatStdDev        float64   // metres
	LongStdDev       float64   // metres
	HeadingStdDevDeg float64   // degrees, NaN when unknown
	Quality          GpsQuality
	Mode             string
	Time             float64
}

// Gnss is the GNSS collaborator. It projects fixes into the local frame of
// its geo reference and emits them as GnssMeasurement values. Fixes without
// heading quality are still emitted; the locator decides whether to fuse them.
type Gnss struct {
	NewMeasurement Event[GnssMeasurement]

	mu         sync.RWMutex
	reference  *geo.Reference
	minQuality GpsQuality
	last       *GnssMeasurement
}

// NewGnss returns a Gnss that projects through ref (which may be nil until
// the operator anchors the robot) and drops fixes below minQuality.
func NewGnss(ref *geo.Reference, minQuality GpsQuality) *Gnss {
	return &Gnss{reference: ref, minQuality: minQuality}
}

// SetReference replaces the geo reference used for subsequent fixes.
func (g *Gnss) SetReference(ref *geo.Reference) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reference = ref
}

// Reference returns the current geo reference, or nil.
func (g *Gnss) Reference() *geo.Reference {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.reference
}

// Handle converts f and emits it. It reports whether the fix was emitted.
func (g *Gnss) Handle(f Fix) bool {
	g.mu.RLock()
	ref, minQuality := g.reference, g.minQuality
	g.mu.RUnlock()

	if ref == nil {
		logf("dropping gnss fix at t=%.3f: no geo reference set", f.Time)
		return false
	}
	if !f.Quality.AtLeast(minQuality) {
		logf("dropping gnss fix at t=%.3f: quality %s below %s", f.Time, f.Quality, minQuality)
		return false
	}
	if !finite(f.Position.Lon(), f.Position.Lat(), f.LatStdDev, f.LongStdDev, f.Time) {
		logf("dropping non-finite gnss fix at t=%.3f", f.Time)
		return false
	}
	if d := ref.DistanceFromOrigin(f.Position); d > geo.MaxReliableDistance {
		logf("dropping gnss fix at t=%.3f: %.0fm from reference origin", f.Time, d)
		return false
	}

	m := g.Localize(ref, f)
	if !m.HasHeading() {
		logf("gnss fix at t=%.3f has no heading quality; it will not be fused", f.Time)
	}

	g.mu.Lock()
	g.last = &m
	g.mu.Unlock()

	g.NewMeasurement.Emit(m)
	return true
}

// Localize projects f into ref's local frame without emitting it.
func (g *Gnss) Localize(ref *geo.Reference, f Fix) GnssMeasurement {
	x, y := ref.ToLocal(f.Position)
	m := GnssMeasurement{
		Point:            Point{X: x, Y: y},
		LatStdDev:        f.LatStdDev,
		LongStdDev:       f.LongStdDev,
		HeadingStdDevDeg: f.HeadingStdDevDeg,
		Time:             f.Time,
		Quality:          f.Quality,
		Mode:             f.Mode,
	}
	if f.HeadingDeg != nil && !math.IsNaN(*f.HeadingDeg) {
		h := CompassToYawDeg(*f.HeadingDeg)
		m.HeadingDeg = &h
	}
	return m
}

// LastMeasurement returns the most recently emitted measurement.
func (g *Gnss) LastMeasurement() (GnssMeasurement, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.last == nil {
		return GnssMeasurement{}, false
	}
	return *g.last, true
}

// CompassToYawDeg converts a compass heading (clockwise from north) into a
// local-frame yaw (counter-clockwise from east), both in degrees.
func CompassToYawDeg(compass float64) float64 {
	return 90 - compass
}
