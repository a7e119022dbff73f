package sensors

import "math"

// Wheels is the wheel-odometry collaborator. It forwards velocity samples
// reported by the motor controllers.
type Wheels struct {
	VelocityMeasured Event[VelocityMeasurement]
}

// NewWheels returns a Wheels with no subscribers.
func NewWheels() *Wheels {
	return &Wheels{}
}

// Handle emits m unless it contains non-finite values.
func (w *Wheels) Handle(m VelocityMeasurement) bool {
	if !finite(m.Linear, m.Angular, m.Time) {
		logf("dropping non-finite velocity sample %+v", m)
		return false
	}
	w.VelocityMeasured.Emit(m)
	return true
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
