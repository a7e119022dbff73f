package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"
)

// Documented defaults for the locator tuning parameters.
const (
	DefaultROdomLinear           = 0.1
	DefaultROdomAngular          = 0.097
	DefaultRImuAngular           = 0.01
	DefaultOdometryAngularWeight = 0.1
	DefaultMinGnssQuality        = 4 // RTK fixed
	DefaultTelemetryInterval     = time.Second
)

// maxFileSize bounds the tuning file read from disk.
const maxFileSize = 1 * 1024 * 1024

// LocatorTuning is the on-disk tuning record for the pose locator. Every
// field is optional; the Get* accessors fall back to the documented defaults,
// so partial files are safe.
type LocatorTuning struct {
	// Filter noise parameters
	ROdomLinear           *float64 `json:"r_odom_linear,omitempty"`
	ROdomAngular          *float64 `json:"r_odom_angular,omitempty"`
	RImuAngular           *float64 `json:"r_imu_angular,omitempty"`
	OdometryAngularWeight *float64 `json:"odometry_angular_weight,omitempty"`

	// Startup overrides
	IgnoreOdometry *bool `json:"ignore_odometry,omitempty"`
	IgnoreGnss     *bool `json:"ignore_gnss,omitempty"`
	IgnoreImu      *bool `json:"ignore_imu,omitempty"`

	// GNSS collaborator
	MinGnssQuality *int `json:"min_gnss_quality,omitempty"`

	// Telemetry
	TelemetryInterval *string `json:"telemetry_interval,omitempty"` // duration string like "500ms"
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a LocatorTuning with every field unset.
func EmptyTuningConfig() *LocatorTuning {
	return &LocatorTuning{}
}

// DefaultTuningConfig returns a LocatorTuning with every field set to its
// default value.
func DefaultTuningConfig() *LocatorTuning {
	return &LocatorTuning{
		ROdomLinear:           ptrFloat64(DefaultROdomLinear),
		ROdomAngular:          ptrFloat64(DefaultROdomAngular),
		RImuAngular:           ptrFloat64(DefaultRImuAngular),
		OdometryAngularWeight: ptrFloat64(DefaultOdometryAngularWeight),
		IgnoreOdometry:        ptrBool(false),
		IgnoreGnss:            ptrBool(false),
		IgnoreImu:             ptrBool(false),
		MinGnssQuality:        ptrInt(DefaultMinGnssQuality),
		TelemetryInterval:     ptrString(DefaultTelemetryInterval.String()),
	}
}

// LoadTuningConfig loads a LocatorTuning from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadTuningConfig(path string) (*LocatorTuning, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the set values are usable.
func (c *LocatorTuning) Validate() error {
	for name, v := range map[string]*float64{
		"r_odom_linear":  c.ROdomLinear,
		"r_odom_angular": c.ROdomAngular,
		"r_imu_angular":  c.RImuAngular,
	} {
		if v == nil {
			continue
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
			return fmt.Errorf("%s must be a non-negative number, got %f", name, *v)
		}
	}

	if c.OdometryAngularWeight != nil {
		if w := *c.OdometryAngularWeight; math.IsNaN(w) || w < 0 || w > 1 {
			return fmt.Errorf("odometry_angular_weight must be between 0 and 1, got %f", w)
		}
	}

	if c.MinGnssQuality != nil {
		if q := *c.MinGnssQuality; q < 0 || q > 5 {
			return fmt.Errorf("min_gnss_quality must be between 0 and 5, got %d", q)
		}
	}

	if c.TelemetryInterval != nil && *c.TelemetryInterval != "" {
		d, err := time.ParseDuration(*c.TelemetryInterval)
		if err != nil {
			return fmt.Errorf("invalid telemetry_interval '%s': %w", *c.TelemetryInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("telemetry_interval must be positive, got %s", d)
		}
	}

	return nil
}

// GetROdomLinear returns the r_odom_linear value or the default.
func (c *LocatorTuning) GetROdomLinear() float64 {
	if c.ROdomLinear == nil {
		return DefaultROdomLinear
	}
	return *c.ROdomLinear
}

// GetROdomAngular returns the r_odom_angular value or the default.
func (c *LocatorTuning) GetROdomAngular() float64 {
	if c.ROdomAngular == nil {
		return DefaultROdomAngular
	}
	return *c.ROdomAngular
}

// GetRImuAngular returns the r_imu_angular value or the default.
func (c *LocatorTuning) GetRImuAngular() float64 {
	if c.RImuAngular == nil {
		return DefaultRImuAngular
	}
	return *c.RImuAngular
}

// GetOdometryAngularWeight returns the odometry_angular_weight value or the default.
func (c *LocatorTuning) GetOdometryAngularWeight() float64 {
	if c.OdometryAngularWeight == nil {
		return DefaultOdometryAngularWeight
	}
	return *c.OdometryAngularWeight
}

func (c *LocatorTuning) GetIgnoreOdometry() bool {
	return c.IgnoreOdometry != nil && *c.IgnoreOdometry
}

func (c *LocatorTuning) GetIgnoreGnss() bool {
	return c.IgnoreGnss != nil && *c.IgnoreGnss
}

func (c *LocatorTuning) GetIgnoreImu() bool {
	return c.IgnoreImu != nil && *c.IgnoreImu
}

// GetMinGnssQuality returns the min_gnss_quality value or the default.
func (c *LocatorTuning) GetMinGnssQuality() int {
	if c.MinGnssQuality == nil {
		return DefaultMinGnssQuality
	}
	return *c.MinGnssQuality
}

// GetTelemetryInterval parses and returns the TelemetryInterval.
func (c *LocatorTuning) GetTelemetryInterval() time.Duration {
	if c.TelemetryInterval == nil || *c.TelemetryInterval == "" {
		return DefaultTelemetryInterval
	}
	d, err := time.ParseDuration(*c.TelemetryInterval)
	if err != nil || d <= 0 {
		return DefaultTelemetryInterval // default on parse error
	}
	return d
}
