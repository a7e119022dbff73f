// Package feed decodes the newline-delimited JSON measurement stream the
// robot brain forwards over the serial link and routes each measurement to
// its sensor collaborator.
package feed

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"

	"github.com/banshee-data/rover/internal/sensors"
)

var (
	// ErrUnknownType is returned for well-formed lines whose type is not
	// velocity, imu or gnss.
	ErrUnknownType = errors.New("feed: unknown message type")
	// ErrMalformed is returned for lines that are not valid measurement JSON.
	ErrMalformed = errors.New("feed: malformed message")
)

// Message types carried in the "type" field.
const (
	TypeVelocity = "velocity"
	TypeImu      = "imu"
	TypeGnss     = "gnss"
)

// Message is one decoded line. Exactly one of the measurement fields is set,
// matching Type.
type Message struct {
	Type     string
	Velocity *sensors.VelocityMeasurement
	Imu      *sensors.ImuMeasurement
	Gnss     *sensors.Fix
}

// Time returns the measurement timestamp in seconds.
func (m Message) Time() float64 {
	switch {
	case m.Velocity != nil:
		return m.Velocity.Time
	case m.Imu != nil:
		return m.Imu.Time
	case m.Gnss != nil:
		return m.Gnss.Time
	}
	return 0
}

// wireMessage is the on-the-wire envelope. Pointer fields distinguish a
// missing value from zero.
type wireMessage struct {
	Type string   `json:"type"`
	T    *float64 `json:"t"`

	// velocity
	Linear  *float64 `json:"linear,omitempty"`
	Angular *float64 `json:"angular,omitempty"`

	// imu, radians
	Roll  *float64 `json:"roll,omitempty"`
	Pitch *float64 `json:"pitch,omitempty"`
	Yaw   *float64 `json:"yaw,omitempty"`

	// gnss
	Lat        *float64 `json:"lat,omitempty"`
	Lon        *float64 `json:"lon,omitempty"`
	Heading    *float64 `json:"heading,omitempty"` // compass degrees
	LatStd     *float64 `json:"lat_std,omitempty"`
	LonStd     *float64 `json:"lon_std,omitempty"`
	HeadingStd *float64 `json:"heading_std,omitempty"`
	Quality    *int     `json:"quality,omitempty"`
	Mode       string   `json:"mode,omitempty"`
}

// Decode parses one line of the feed.
func Decode(line []byte) (Message, error) {
	var w wireMessage
	if err := json.Unmarshal(line, &w); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	typ := strings.ToLower(strings.TrimSpace(w.Type))
	if typ == "" {
		return Message{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	switch typ {
	case TypeVelocity:
		if err := requireFields(typ, "t", w.T, "linear", w.Linear, "angular", w.Angular); err != nil {
			return Message{}, err
		}
		return Message{Type: typ, Velocity: &sensors.VelocityMeasurement{
			Linear:  *w.Linear,
			Angular: *w.Angular,
			Time:    *w.T,
		}}, nil

	case TypeImu:
		if err := requireFields(typ, "t", w.T, "yaw", w.Yaw); err != nil {
			return Message{}, err
		}
		return Message{Type: typ, Imu: &sensors.ImuMeasurement{
			Rotation: sensors.Rotation{
				Roll:  valueOr(w.Roll, 0),
				Pitch: valueOr(w.Pitch, 0),
				Yaw:   *w.Yaw,
			},
			Time: *w.T,
		}}, nil

	case TypeGnss:
		if err := requireFields(typ, "t", w.T, "lat", w.Lat, "lon", w.Lon, "lat_std", w.LatStd, "lon_std", w.LonStd); err != nil {
			return Message{}, err
		}
		fix := &sensors.Fix{
			Position:         orb.Point{*w.Lon, *w.Lat},
			HeadingDeg:       w.Heading,
			LatStdDev:        *w.LatStd,
			LongStdDev:       *w.LonStd,
			HeadingStdDevDeg: valueOr(w.HeadingStd, math.NaN()),
			Quality:          sensors.GpsQuality(valueOr(w.Quality, int(sensors.QualityInvalid))),
			Mode:             w.Mode,
			Time:             *w.T,
		}
		return Message{Type: typ, Gnss: fix}, nil
	}

	return Message{}, fmt.Errorf("%w: %q", ErrUnknownType, w.Type)
}

// requireFields checks name/value pairs and reports the first missing field.
func requireFields(typ string, pairs ...any) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if v, ok := pairs[i+1].(*float64); ok && v == nil {
			return fmt.Errorf("%w: %s message missing %q", ErrMalformed, typ, pairs[i])
		}
	}
	return nil
}

func valueOr[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}
