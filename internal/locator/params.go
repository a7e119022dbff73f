package locator

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/banshee-data/rover/internal/config"
)

// Persisted parameter keys.
const (
	KeyROdomLinear           = "r_odom_linear"
	KeyROdomAngular          = "r_odom_angular"
	KeyRImuAngular           = "r_imu_angular"
	KeyOdometryAngularWeight = "odometry_angular_weight"
)

// Params are the tunable noise parameters. They have a lifecycle independent
// of the estimate and are the only part of the locator that is persisted.
type Params struct {
	// ROdomLinear and ROdomAngular scale the odometry process noise per second.
	ROdomLinear  float64
	ROdomAngular float64
	// RImuAngular scales the IMU process noise per second.
	RImuAngular float64
	// OdometryAngularWeight in [0,1]; 1 trusts the odometry angular rate
	// exclusively.
	OdometryAngularWeight float64
}

// DefaultParams returns the documented defaults.
func DefaultParams() Params {
	return Params{
		ROdomLinear:           config.DefaultROdomLinear,
		ROdomAngular:          config.DefaultROdomAngular,
		RImuAngular:           config.DefaultRImuAngular,
		OdometryAngularWeight: config.DefaultOdometryAngularWeight,
	}
}

// ParamsFromTuning builds Params from a loaded tuning file.
func ParamsFromTuning(cfg *config.LocatorTuning) Params {
	return Params{
		ROdomLinear:           cfg.GetROdomLinear(),
		ROdomAngular:          cfg.GetROdomAngular(),
		RImuAngular:           cfg.GetRImuAngular(),
		OdometryAngularWeight: cfg.GetOdometryAngularWeight(),
	}.normalized()
}

// normalized replaces unusable values with defaults and clamps the weight.
func (p Params) normalized() Params {
	d := DefaultParams()
	p.ROdomLinear = nonNegativeOr(p.ROdomLinear, d.ROdomLinear)
	p.ROdomAngular = nonNegativeOr(p.ROdomAngular, d.ROdomAngular)
	p.RImuAngular = nonNegativeOr(p.RImuAngular, d.RImuAngular)
	switch w := p.OdometryAngularWeight; {
	case math.IsNaN(w):
		p.OdometryAngularWeight = d.OdometryAngularWeight
	case w < 0:
		p.OdometryAngularWeight = 0
	case w > 1:
		p.OdometryAngularWeight = 1
	}
	return p
}

func nonNegativeOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fallback
	}
	return v
}

// Params returns the current tunable parameters.
func (l *Locator) Params() Params {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.params
}

// SetParams replaces the tunable parameters.
func (l *Locator) SetParams(p Params) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.params = p.normalized()
}

// Backup returns the tunable parameters as a flat key/value record.
func (l *Locator) Backup() map[string]any {
	p := l.Params()
	return map[string]any{
		KeyROdomLinear:           p.ROdomLinear,
		KeyROdomAngular:          p.ROdomAngular,
		KeyRImuAngular:           p.RImuAngular,
		KeyOdometryAngularWeight: p.OdometryAngularWeight,
	}
}

// Restore loads the tunable parameters from a record produced by Backup.
// Missing or unparseable keys fall back to defaults; the estimate is not
// touched.
func (l *Locator) Restore(data map[string]any) {
	d := DefaultParams()
	p := Params{
		ROdomLinear:           numberOr(data, KeyROdomLinear, d.ROdomLinear),
		ROdomAngular:          numberOr(data, KeyROdomAngular, d.ROdomAngular),
		RImuAngular:           numberOr(data, KeyRImuAngular, d.RImuAngular),
		OdometryAngularWeight: numberOr(data, KeyOdometryAngularWeight, d.OdometryAngularWeight),
	}
	l.SetParams(p)
}

func numberOr(data map[string]any, key string, fallback float64) float64 {
	raw, ok := data[key]
	if !ok {
		return fallback
	}
	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return fallback
		}
		v = f
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return fallback
		}
		v = f
	default:
		return fallback
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
