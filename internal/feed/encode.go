package feed

import (
	"encoding/json"
	"math"

	"github.com/banshee-data/rover/internal/sensors"
)

// EncodeVelocity renders m as a feed line without the trailing newline.
func EncodeVelocity(m sensors.VelocityMeasurement) ([]byte, error) {
	return json.Marshal(wireMessage{
		Type:    TypeVelocity,
		T:       &m.Time,
		Linear:  &m.Linear,
		Angular: &m.Angular,
	})
}

// EncodeImu renders m as a feed line without the trailing newline.
func EncodeImu(m sensors.ImuMeasurement) ([]byte, error) {
	r := m.Rotation
	return json.Marshal(wireMessage{
		Type:  TypeImu,
		T:     &m.Time,
		Roll:  &r.Roll,
		Pitch: &r.Pitch,
		Yaw:   &r.Yaw,
	})
}

// EncodeGnss renders f as a feed line without the trailing newline. A NaN
// heading deviation is omitted.
func EncodeGnss(f sensors.Fix) ([]byte, error) {
	lon, lat := f.Position.Lon(), f.Position.Lat()
	q := int(f.Quality)
	w := wireMessage{
		Type:    TypeGnss,
		T:       &f.Time,
		Lat:     &lat,
		Lon:     &lon,
		Heading: f.HeadingDeg,
		LatStd:  &f.LatStdDev,
		LonStd:  &f.LongStdDev,
		Quality: &q,
		Mode:    f.Mode,
	}
	if !math.IsNaN(f.HeadingStdDevDeg) {
		w.HeadingStd = &f.HeadingStdDevDeg
	}
	return json.Marshal(w)
}
