package telemetry

import (
	"context"
	"time"

	"github.com/banshee-data/rover/internal/db"
)

// PoseRecorder is the part of *db.DB the store sink uses.
type PoseRecorder interface {
	RecordPose(db.PoseRecord) error
}

// StoreSink appends every report to the pose history.
type StoreSink struct {
	store PoseRecorder
}

func NewStoreSink(store PoseRecorder) *StoreSink {
	return &StoreSink{store: store}
}

func (s *StoreSink) Name() string { return "store" }

func (s *StoreSink) Send(_ context.Context, r Report) error {
	snap := r.Snapshot
	return s.store.RecordPose(db.PoseRecord{
		RecordedAt: r.SentAt,
		FilterTime: filterTime(snap.Time),
		X:          snap.Pose.X,
		Y:          snap.Pose.Y,
		Yaw:        snap.Pose.Yaw,
		VarX:       snap.CovarianceDiagonal[0],
		VarY:       snap.CovarianceDiagonal[1],
		VarYaw:     snap.CovarianceDiagonal[2],
	})
}

// filterTime converts the locator's seconds cursor to a time.Time.
func filterTime(seconds float64) time.Time {
	if seconds == 0 {
		return time.Time{}
	}
	return time.Unix(0, int64(seconds*float64(time.Second)))
}
