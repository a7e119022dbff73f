package locator

import (
	"math"

	"github.com/banshee-data/rover/internal/sensors"
)

// Predict advances the estimate with one odometry sample.
//
// The heading is advanced before it is used to project the translation, so
// a step with both v and ω integrates along the new heading.
func (l *Locator) Predict(m sensors.VelocityMeasurement) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.overrides.IgnoreOdometry {
		return
	}

	dt := m.Time - l.t
	if dt < 0 {
		if l.firstPredictionDone {
			l.stats.OutOfOrderDropped++
			return
		}
		// Nothing has been integrated yet, so adopt the sensor's clock.
		l.stats.TimeResyncs++
		dt = 0
	}
	l.t = m.Time

	v, omega := m.Linear, m.Angular
	w := l.blendWeight()
	if l.overrides.IgnoreImu {
		l.heading.skip()
	} else if imuOmega, ok := l.heading.rate(); ok {
		correction := 1 / (1 + math.Abs(omega-imuOmega))
		v = w*v + (1-w)*v*correction
		omega = w*omega + (1-w)*imuOmega
		l.stats.ImuBlendedSteps++
	}

	theta := l.x[2] + omega*dt
	sin, cos := math.Sincos(theta)
	l.x = Vec3{
		l.x[0] + v*cos*dt,
		l.x[1] + v*sin*dt,
		theta,
	}

	F := Mat3{
		{1, 0, -v * sin * dt},
		{0, 1, v * cos * dt},
		{0, 0, 1},
	}

	rLin := l.params.ROdomLinear
	rTheta := w*l.params.ROdomAngular + (1-w)*l.params.RImuAngular
	R := Diag3(
		square(rLin*cos*dt),
		square(rLin*sin*dt),
		square(rTheta*dt),
	)

	l.sxx = conditionCovariance(F.Mul(l.sxx).Mul(F.Transpose()).Add(R))
	l.firstPredictionDone = true
	l.stats.Predictions++
}

func square(v float64) float64 {
	return v * v
}

// conditionCovariance restores symmetry and clears negative round-off on the
// diagonal.
func conditionCovariance(m Mat3) Mat3 {
	m = m.Symmetrize()
	for i := 0; i < 3; i++ {
		if m[i][i] < 0 {
			m[i][i] = 0
		}
	}
	return m
}
