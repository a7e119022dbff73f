package feed

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/banshee-data/rover/internal/geo"
	"github.com/banshee-data/rover/internal/sensors"
	"github.com/banshee-data/rover/internal/timeutil"
)

// Simulator writes a synthetic feed for a robot driving a constant-curvature
// path. It backs the -dev mode of the locator binary.
type Simulator struct {
	Reference *geo.Reference
	Speed     float64       // m/s
	TurnRate  float64       // rad/s
	Interval  time.Duration // between odometry samples
	GnssEvery int           // emit a fix every n samples; 0 disables gnss
	WithImu   bool

	x, y, yaw float64
	step      int
}

// Step advances the simulated robot by dt seconds and returns the lines for
// time t.
func (s *Simulator) Step(t, dt float64) ([][]byte, error) {
	s.yaw = wrap(s.yaw + s.TurnRate*dt)
	s.x += s.Speed * math.Cos(s.yaw) * dt
	s.y += s.Speed * math.Sin(s.yaw) * dt
	s.step++

	var lines [][]byte
	v, err := EncodeVelocity(sensors.VelocityMeasurement{Linear: s.Speed, Angular: s.TurnRate, Time: t})
	if err != nil {
		return nil, err
	}
	lines = append(lines, v)

	if s.WithImu {
		line, err := EncodeImu(sensors.ImuMeasurement{Rotation: sensors.Rotation{Yaw: s.yaw}, Time: t})
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	if s.GnssEvery > 0 && s.Reference != nil && s.step%s.GnssEvery == 0 {
		// ToGeographic is biased about 0.35 mm north, so simulated fixes
		// project back slightly off the true path.
		heading := 90 - s.yaw*180/math.Pi
		line, err := EncodeGnss(sensors.Fix{
			Position:         s.Reference.ToGeographic(s.x, s.y),
			HeadingDeg:       &heading,
			LatStdDev:        0.02,
			LongStdDev:       0.02,
			HeadingStdDevDeg: 0.5,
			Quality:          sensors.QualityRTKFix,
			Mode:             "sim",
			Time:             t,
		})
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Position returns the simulated ground truth.
func (s *Simulator) Position() (x, y, yaw float64) {
	return s.x, s.y, s.yaw
}

// Run writes lines to w on every tick of clock until ctx is done or a write
// fails.
func (s *Simulator) Run(ctx context.Context, w io.Writer, clock timeutil.Clock) error {
	interval := s.Interval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	start := clock.Now()
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	last := 0.0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C():
			t := now.Sub(start).Seconds()
			lines, err := s.Step(t, t-last)
			if err != nil {
				return err
			}
			last = t
			for _, line := range lines {
				if _, err := fmt.Fprintf(w, "%s\n", line); err != nil {
					return fmt.Errorf("simulator write: %w", err)
				}
			}
		}
	}
}

func wrap(a float64) float64 {
	return math.Remainder(a, 2*math.Pi)
}
