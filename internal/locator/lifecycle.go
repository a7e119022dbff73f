package locator

// Reset re-anchors the estimate at (x, y, yaw) with full confidence. The time
// cursor and parameters are kept.
func (l *Locator) Reset(x, y, yaw float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.x = Vec3{x, y, yaw}
	l.sxx = Mat3{}
}

// Pose returns the current estimate.
func (l *Locator) Pose() Pose {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Pose{X: l.x[0], Y: l.x[1], Yaw: l.x[2]}
}

// Covariance returns a copy of the pose covariance.
func (l *Locator) Covariance() Mat3 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sxx
}

// CovarianceDiagonal returns the variances of x, y and yaw.
func (l *Locator) CovarianceDiagonal() Vec3 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sxx.Diagonal()
}

// Time returns the timestamp of the last applied prediction.
func (l *Locator) Time() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.t
}

// Initialized reports whether a prediction has established the time base.
func (l *Locator) Initialized() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.firstPredictionDone
}

// Stats returns a copy of the counters.
func (l *Locator) Stats() Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stats
}

// Overrides returns the current sensor switches.
func (l *Locator) Overrides() Overrides {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.overrides
}

// SetOverrides replaces all sensor switches at once.
func (l *Locator) SetOverrides(o Overrides) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.overrides = o
}

// Snapshot returns pose, covariance diagonal, time and stats read under a
// single lock.
func (l *Locator) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Snapshot{
		Pose:               Pose{X: l.x[0], Y: l.x[1], Yaw: l.x[2]},
		CovarianceDiagonal: l.sxx.Diagonal(),
		Time:               l.t,
		Variant:            l.heading.variant().String(),
		Stats:              l.stats,
	}
}

// YawDeg returns the heading wrapped into [-180, 180) degrees.
func (p Pose) YawDeg() float64 {
	return rad2deg(WrapAngle(p.Yaw))
}
