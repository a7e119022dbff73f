package sensors

import (
	"sync"

	"github.com/banshee-data/rover/internal/monitoring"
)

var logf = monitoring.Component("sensors")

// Imu is the inertial collaborator. Only the yaw of each sample is consumed
// downstream; roll and pitch are carried for diagnostics.
type Imu struct {
	NewMeasurement Event[ImuMeasurement]

	mu   sync.RWMutex
	last *ImuMeasurement
}

// NewImu returns an Imu with no subscribers.
func NewImu() *Imu {
	return &Imu{}
}

// Handle records m as the latest sample and emits it.
func (i *Imu) Handle(m ImuMeasurement) bool {
	if !finite(m.Rotation.Roll, m.Rotation.Pitch, m.Rotation.Yaw, m.Time) {
		logf("dropping non-finite imu sample %+v", m)
		return false
	}
	i.mu.Lock()
	last := m
	i.last = &last
	i.mu.Unlock()

	i.NewMeasurement.Emit(m)
	return true
}

// LastMeasurement returns the most recent accepted sample.
func (i *Imu) LastMeasurement() (ImuMeasurement, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.last == nil {
		return ImuMeasurement{}, false
	}
	return *i.last, true
}
