package feed

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/banshee-data/rover/internal/monitoring"
	"github.com/banshee-data/rover/internal/sensors"
	"github.com/banshee-data/rover/internal/serialmux"
)

var logf = monitoring.Component("feed")

// Dispatcher routes decoded messages to the sensor collaborators. Imu may be
// nil on robots without an inertial unit, in which case imu lines are
// counted and dropped.
type Dispatcher struct {
	Wheels *sensors.Wheels
	Imu    *sensors.Imu
	Gnss   *sensors.Gnss

	dispatched atomic.Uint64
	rejected   atomic.Uint64
	malformed  atomic.Uint64
	unknown    atomic.Uint64
	noImu      atomic.Uint64
}

// Counters is a point-in-time copy of the dispatcher's line accounting.
type Counters struct {
	Dispatched uint64 `json:"dispatched"`
	Rejected   uint64 `json:"rejected"` // refused by the collaborator
	Malformed  uint64 `json:"malformed"`
	Unknown    uint64 `json:"unknown"`
	NoImu      uint64 `json:"no_imu"`
}

// Counters returns the current line accounting.
func (d *Dispatcher) Counters() Counters {
	return Counters{
		Dispatched: d.dispatched.Load(),
		Rejected:   d.rejected.Load(),
		Malformed:  d.malformed.Load(),
		Unknown:    d.unknown.Load(),
		NoImu:      d.noImu.Load(),
	}
}

// Dispatch hands msg to its collaborator and reports whether it was accepted.
func (d *Dispatcher) Dispatch(msg Message) bool {
	var ok bool
	switch {
	case msg.Velocity != nil && d.Wheels != nil:
		ok = d.Wheels.Handle(*msg.Velocity)
	case msg.Imu != nil:
		if d.Imu == nil {
			d.noImu.Add(1)
			return false
		}
		ok = d.Imu.Handle(*msg.Imu)
	case msg.Gnss != nil && d.Gnss != nil:
		ok = d.Gnss.Handle(*msg.Gnss)
	default:
		d.rejected.Add(1)
		return false
	}
	if ok {
		d.dispatched.Add(1)
	} else {
		d.rejected.Add(1)
	}
	return ok
}

// HandleLine decodes and dispatches one line. Blank lines and lines starting
// with '#' are ignored. Decode errors are counted and returned.
func (d *Dispatcher) HandleLine(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}
	msg, err := Decode([]byte(line))
	switch {
	case errors.Is(err, ErrUnknownType):
		d.unknown.Add(1)
		return err
	case err != nil:
		d.malformed.Add(1)
		return err
	}
	d.Dispatch(msg)
	return nil
}

// Run subscribes to mux and dispatches every line until ctx is done or the
// mux closes the subscription. Bad lines are logged and skipped.
func Run(ctx context.Context, mux serialmux.Mux, d *Dispatcher) error {
	id, lines := mux.Subscribe()
	defer mux.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := d.HandleLine(line); err != nil {
				logf("skipping line: %v", err)
			}
		}
	}
}

// Replay feeds a recorded log through d, in file order. Bad lines are logged
// and skipped; only read errors are returned.
func Replay(r io.Reader, d *Dispatcher) error {
	scan := bufio.NewScanner(r)
	scan.Buffer(make([]byte, 0, 4096), 64*1024)
	n := 0
	for scan.Scan() {
		n++
		if err := d.HandleLine(scan.Text()); err != nil {
			logf("line %d: %v", n, err)
		}
	}
	if err := scan.Err(); err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	return nil
}
