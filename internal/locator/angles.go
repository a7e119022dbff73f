package locator

import "math"

// ShortestAngle returns the signed difference b − a wrapped into [-π, π),
// i.e. the rotation that takes a to b along the shorter way round.
func ShortestAngle(a, b float64) float64 {
	d := math.Mod(b-a+math.Pi, 2*math.Pi)
	if d < 0 {
		d += 2 * math.Pi
	}
	if d >= 2*math.Pi {
		d = 0
	}
	return d - math.Pi
}

// WrapAngle maps a into [-π, π).
func WrapAngle(a float64) float64 {
	return ShortestAngle(0, a)
}

func deg2rad(d float64) float64 {
	return d * math.Pi / 180
}

func rad2deg(r float64) float64 {
	return r * 180 / math.Pi
}
