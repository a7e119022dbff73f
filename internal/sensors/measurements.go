package sensors

import "math"

// VelocityMeasurement is one wheel-odometry sample.
type VelocityMeasurement struct {
	Linear  float64 // m/s
	Angular float64 // rad/s
	Time    float64 // seconds
}

// Rotation is an orientation in radians.
type Rotation struct {
	Roll  float64
	Pitch float64
	Yaw   float64
}

// ImuMeasurement is one inertial orientation sample.
type ImuMeasurement struct {
	Rotation Rotation
	Time     float64 // seconds
}

// Point is a position in the local Cartesian frame (metres, x east, y north).
type Point struct {
	X float64
	Y float64
}

// Distance returns the Euclidean distance between p and o.
func (p Point) Distance(o Point) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// GpsQuality mirrors the NMEA GGA fix quality indicator.
type GpsQuality int

const (
	QualityInvalid GpsQuality = 0
	QualityGPS     GpsQuality = 1
	QualityDGPS    GpsQuality = 2
	QualityPPS     GpsQuality = 3
	QualityRTKFix  GpsQuality = 4
	QualityRTKFlt  GpsQuality = 5
)

// rank orders qualities by positional accuracy; RTK fixed beats RTK float
// even though its NMEA code is lower.
func (q GpsQuality) rank() int {
	switch q {
	case QualityGPS:
		return 1
	case QualityDGPS, QualityPPS:
		return 2
	case QualityRTKFlt:
		return 3
	case QualityRTKFix:
		return 4
	default:
		return 0
	}
}

// AtLeast reports whether q is as accurate as min or better.
func (q GpsQuality) AtLeast(min GpsQuality) bool {
	return q.rank() >= min.rank()
}

func (q GpsQuality) String() string {
	switch q {
	case QualityInvalid:
		return "invalid"
	case QualityGPS:
		return "gps"
	case QualityDGPS:
		return "dgps"
	case QualityPPS:
		return "pps"
	case QualityRTKFix:
		return "rtk-fixed"
	case QualityRTKFlt:
		return "rtk-float"
	default:
		return "unknown"
	}
}

// GnssMeasurement is a GNSS fix already projected into the local frame.
// HeadingDeg is the local-frame yaw in degrees (counter-clockwise from the
// x axis) and is nil when the receiver reports no heading. Standard
// deviations are in metres for position and degrees for heading; a fix
// without heading quality carries math.NaN() in HeadingStdDevDeg.
type GnssMeasurement struct {
	Point            Point
	HeadingDeg       *float64
	LatStdDev        float64
	LongStdDev       float64
	HeadingStdDevDeg float64
	Time             float64
	Quality          GpsQuality
	Mode             string
}

// HasHeading reports whether the fix carries a heading with finite quality.
func (m GnssMeasurement) HasHeading() bool {
	if m.HeadingDeg == nil {
		return false
	}
	return !math.IsNaN(m.HeadingStdDevDeg) && !math.IsInf(m.HeadingStdDevDeg, 0)
}
