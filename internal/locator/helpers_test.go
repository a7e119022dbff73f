package locator

import (
	"testing"

	"github.com/banshee-data/rover/internal/monitoring"
	"github.com/banshee-data/rover/internal/sensors"
)

func init() {
	monitoring.SetLogger(nil)
}

// newTestLocator returns an unbound locator with its time cursor at zero.
func newTestLocator(t *testing.T, params Params, withImu bool) *Locator {
	t.Helper()
	var imu *sensors.Imu
	if withImu {
		imu = sensors.NewImu()
	}
	l := New(params, nil, imu, nil, WithStartTime(0))
	t.Cleanup(l.Close)
	return l
}

func velocity(v, omega, time float64) sensors.VelocityMeasurement {
	return sensors.VelocityMeasurement{Linear: v, Angular: omega, Time: time}
}

func imuYaw(yaw, time float64) sensors.ImuMeasurement {
	return sensors.ImuMeasurement{Rotation: sensors.Rotation{Yaw: yaw}, Time: time}
}

func fix(x, y, headingDeg, latStd, longStd, headingStdDeg float64) sensors.GnssMeasurement {
	h := headingDeg
	return sensors.GnssMeasurement{
		Point:            sensors.Point{X: x, Y: y},
		HeadingDeg:       &h,
		LatStdDev:        latStd,
		LongStdDev:       longStd,
		HeadingStdDevDeg: headingStdDeg,
	}
}

// setState overwrites the estimate directly.
func setState(l *Locator, x Vec3, sxx Mat3) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.x = x
	l.sxx = sxx
}
