// Package geo converts between WGS84 geographic coordinates and the robot's
// local Cartesian frame.
package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/wroge/wgs84"
)

// MaxReliableDistance is how far from the origin (metres) the local projection
// is considered accurate for field work.
const MaxReliableDistance = 20000.0

// Reference anchors the local frame at a geographic origin. x points east and
// y points north, both in metres. A Reference is immutable; re-anchoring the
// robot means building a new one.
type Reference struct {
	origin  orb.Point
	forward func(a, b, c float64) (float64, float64, float64)
	inverse func(a, b, c float64) (float64, float64, float64)
}

// NewReference returns a Reference centred on origin ({lon, lat} in degrees).
func NewReference(origin orb.Point) (*Reference, error) {
	lon, lat := origin.Lon(), origin.Lat()
	if math.IsNaN(lon) || math.IsNaN(lat) {
		return nil, fmt.Errorf("origin contains NaN: %v", origin)
	}
	if lat < -90 || lat > 90 {
		return nil, fmt.Errorf("origin latitude %f out of range [-90, 90]", lat)
	}
	if lon < -180 || lon > 180 {
		return nil, fmt.Errorf("origin longitude %f out of range [-180, 180]", lon)
	}

	lonLat := wgs84.WGS84().LonLat()
	local := wgs84.WGS84().TransverseMercator(lon, lat, 1, 0, 0)

	return &Reference{
		origin:  origin,
		forward: wgs84.Transform(lonLat, local),
		inverse: wgs84.Transform(local, lonLat),
	}, nil
}

// Origin returns the geographic origin of the frame.
func (r *Reference) Origin() orb.Point {
	return r.origin
}

// ToLocal projects a geographic point into the local frame.
func (r *Reference) ToLocal(p orb.Point) (x, y float64) {
	x, y, _ = r.forward(p.Lon(), p.Lat(), 0)
	return x, y
}

// ToGeographic converts local coordinates back into a geographic point.
func (r *Reference) ToGeographic(x, y float64) orb.Point {
	lon, lat, _ := r.inverse(x, y, 0)
	return orb.Point{lon, lat}
}

// DistanceFromOrigin returns the great-circle distance in metres between the
// origin and p.
func (r *Reference) DistanceFromOrigin(p orb.Point) float64 {
	return orbgeo.Distance(r.origin, p)
}

// String implements fmt.Stringer.
func (r *Reference) String() string {
	return fmt.Sprintf("geo.Reference(lat=%.7f, lon=%.7f)", r.origin.Lat(), r.origin.Lon())
}
