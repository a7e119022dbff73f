// Package locator estimates the robot's 2-D pose with an Extended Kalman
// Filter fusing wheel odometry, an optional IMU heading and RTK GNSS fixes.
//
// The state is x = [x, y, yaw] with covariance Sxx. Yaw is not wrapped between
// updates; it is only unwrapped against GNSS headings during a correction.
// Every handler runs to completion under one mutex, so sensor callbacks
// arriving on different goroutines never observe a torn estimate.
package locator

import (
	"fmt"
	"sync"

	"github.com/banshee-data/rover/internal/sensors"
)

// Variant is the sensor configuration fixed at construction time.
type Variant int

const (
	// OdometryOnly integrates wheel odometry alone.
	OdometryOnly Variant = iota
	// OdometryPlusImu blends the IMU heading rate into each prediction.
	OdometryPlusImu
)

func (v Variant) String() string {
	switch v {
	case OdometryOnly:
		return "odometry-only"
	case OdometryPlusImu:
		return "odometry+imu"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

// Pose is a read-only snapshot of the estimate.
type Pose struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Yaw float64 `json:"yaw"`
}

// Overrides are operator and test switches that disable individual inputs.
type Overrides struct {
	IgnoreOdometry bool `json:"ignore_odometry"`
	IgnoreGnss     bool `json:"ignore_gnss"`
	IgnoreImu      bool `json:"ignore_imu"`
}

// Stats counts how the filter has treated its inputs. Counters only ever grow.
type Stats struct {
	Predictions          uint64 `json:"predictions"`
	ImuBlendedSteps      uint64 `json:"imu_blended_steps"`
	OutOfOrderDropped    uint64 `json:"out_of_order_dropped"`
	TimeResyncs          uint64 `json:"time_resyncs"`
	Corrections          uint64 `json:"corrections"`
	SkippedIgnored       uint64 `json:"skipped_ignored"`
	SkippedUninitialised uint64 `json:"skipped_uninitialised"`
	SkippedNoHeading     uint64 `json:"skipped_no_heading"`
	SkippedSingular      uint64 `json:"skipped_singular"`
	Regularizations      uint64 `json:"regularizations"`
}

// Snapshot is a consistent copy of everything downstream consumers may read.
type Snapshot struct {
	Pose               Pose    `json:"pose"`
	CovarianceDiagonal Vec3    `json:"covariance_diagonal"`
	Time               float64 `json:"time"`
	Variant            string  `json:"variant"`
	Stats              Stats   `json:"stats"`
}

// Locator is the pose estimator. The zero value is not usable; call New.
type Locator struct {
	mu sync.RWMutex

	x                   Vec3
	sxx                 Mat3
	t                   float64
	firstPredictionDone bool
	heading             headingRate

	params    Params
	overrides Overrides
	stats     Stats

	unbind []func()
}

// Option configures a Locator at construction.
type Option func(*Locator)

// WithStartTime sets the initial time cursor. Without it the cursor starts
// at zero.
func WithStartTime(t float64) Option {
	return func(l *Locator) { l.t = t }
}

// WithOverrides sets the initial ignore switches.
func WithOverrides(o Overrides) Option {
	return func(l *Locator) { l.overrides = o }
}

// New builds a Locator and binds it to its event sources. A nil imu selects
// the OdometryOnly variant; nil wheels or gnss simply leave that input
// unbound, which is useful when the handlers are driven directly.
func New(params Params, wheels *sensors.Wheels, imu *sensors.Imu, gnss *sensors.Gnss, opts ...Option) *Locator {
	l := &Locator{
		params:  params.normalized(),
		heading: odometryHeading{},
	}
	if imu != nil {
		l.heading = &imuHeading{}
	}
	for _, opt := range opts {
		opt(l)
	}

	if wheels != nil {
		l.unbind = append(l.unbind, wheels.VelocityMeasured.Subscribe(l.Predict))
	}
	if imu != nil {
		l.unbind = append(l.unbind, imu.NewMeasurement.Subscribe(l.ObserveImu))
	}
	if gnss != nil {
		l.unbind = append(l.unbind, gnss.NewMeasurement.Subscribe(l.Correct))
	}
	return l
}

// Close detaches the locator from its event sources.
func (l *Locator) Close() {
	l.mu.Lock()
	unbind := l.unbind
	l.unbind = nil
	l.mu.Unlock()
	for _, fn := range unbind {
		fn()
	}
}

// Variant reports the sensor configuration chosen at construction.
func (l *Locator) Variant() Variant {
	return l.heading.variant()
}

// ObserveImu caches the latest IMU sample for the next prediction.
func (l *Locator) ObserveImu(m sensors.ImuMeasurement) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.heading.observe(m)
}

// headingRate is the capability that distinguishes the two variants.
type headingRate interface {
	variant() Variant
	observe(m sensors.ImuMeasurement)
	// rate consumes the newest IMU sample and returns the angular rate
	// since the previously consumed one.
	rate() (omega float64, ok bool)
	// skip consumes the newest sample without producing a rate.
	skip()
}

type odometryHeading struct{}

func (odometryHeading) variant() Variant               { return OdometryOnly }
func (odometryHeading) observe(sensors.ImuMeasurement) {}
func (odometryHeading) rate() (float64, bool)          { return 0, false }
func (odometryHeading) skip()                          {}

type imuHeading struct {
	latest     sensors.ImuMeasurement
	haveLatest bool
	last       sensors.ImuMeasurement
	haveLast   bool
}

func (h *imuHeading) variant() Variant { return OdometryPlusImu }

func (h *imuHeading) observe(m sensors.ImuMeasurement) {
	h.latest = m
	h.haveLatest = true
}

func (h *imuHeading) rate() (float64, bool) {
	if !h.haveLatest {
		return 0, false
	}
	if !h.haveLast {
		h.skip()
		return 0, false
	}
	dt := h.latest.Time - h.last.Time
	if dt <= 0 {
		return 0, false
	}
	dtheta := ShortestAngle(h.last.Rotation.Yaw, h.latest.Rotation.Yaw)
	h.last = h.latest
	return dtheta / dt, true
}

func (h *imuHeading) skip() {
	if h.haveLatest {
		h.last = h.latest
		h.haveLast = true
	}
}

func (l *Locator) blendWeight() float64 {
	if l.heading.variant() == OdometryOnly {
		return 1
	}
	return l.params.OdometryAngularWeight
}
