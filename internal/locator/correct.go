package locator

import (
	"math"

	"github.com/banshee-data/rover/internal/sensors"
	"gonum.org/v1/gonum/mat"
)

const (
	// machineEpsilon is the float64 spacing at 1.
	machineEpsilon = 2.220446049250313e-16
	// innovationRegularizer is added to the diagonal of a near-singular
	// innovation covariance before it is inverted.
	innovationRegularizer = 1e-9
)

// Correct pulls the estimate toward a GNSS fix. Fixes are skipped entirely
// when GNSS is ignored, before the first prediction, or when the fix carries
// no finite heading quality; there is no position-only fusion.
func (l *Locator) Correct(m sensors.GnssMeasurement) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.overrides.IgnoreGnss {
		l.stats.SkippedIgnored++
		return
	}
	if !l.firstPredictionDone {
		l.stats.SkippedUninitialised++
		return
	}
	if !m.HasHeading() {
		l.stats.SkippedNoHeading++
		return
	}

	theta := l.x[2]
	yaw := theta + ShortestAngle(theta, deg2rad(*m.HeadingDeg))

	z := Vec3{m.Point.X, m.Point.Y, yaw}
	h := l.x

	rxy := (m.LatStdDev + m.LongStdDev) / 2
	rTheta := deg2rad(m.HeadingStdDevDeg)
	Q := Diag3(square(rxy), square(rxy), square(rTheta))

	// H is the identity: the fix observes the full pose directly.
	S := l.sxx.Add(Q)
	if !S.finite() {
		l.stats.SkippedSingular++
		return
	}
	if nearSingular(S) {
		S = S.Add(Diag3(innovationRegularizer, innovationRegularizer, innovationRegularizer))
		l.stats.Regularizations++
	}
	Sinv, ok := S.Inverse()
	if !ok {
		l.stats.SkippedSingular++
		return
	}

	K := l.sxx.Mul(Sinv)
	l.x = l.x.Add(K.MulVec(z.Sub(h)))
	l.sxx = conditionCovariance(Identity3().Sub(K).Mul(l.sxx))
	l.stats.Corrections++
}

// nearSingular reports whether the 2-norm condition number of s reaches
// 1/ε, at which point its inverse carries no correct digits.
func nearSingular(s Mat3) bool {
	c := mat.Cond(mat.NewDense(3, 3, s.Flat()), 2)
	return math.IsInf(c, 1) || math.IsNaN(c) || c >= 1/machineEpsilon
}
