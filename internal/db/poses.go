package db

import (
	"fmt"
	"time"
)

// PoseRecord is one row of the pose history.
type PoseRecord struct {
	RecordedAt time.Time `json:"recorded_at"`
	FilterTime time.Time `json:"filter_time"`
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Yaw        float64   `json:"yaw"`
	VarX       float64   `json:"var_x"`
	VarY       float64   `json:"var_y"`
	VarYaw     float64   `json:"var_yaw"`
}

// RecordPose appends a pose to the history.
func (db *DB) RecordPose(p PoseRecord) error {
	_, err := db.Exec(`
		INSERT INTO pose_history (recorded_at, filter_time, x, y, yaw, var_x, var_y, var_yaw)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		unixNanos(p.RecordedAt), unixNanos(p.FilterTime),
		p.X, p.Y, p.Yaw, p.VarX, p.VarY, p.VarYaw,
	)
	if err != nil {
		return fmt.Errorf("record pose: %w", err)
	}
	return nil
}

// RecentPoses returns up to limit of the most recent poses, oldest first.
func (db *DB) RecentPoses(limit int) ([]PoseRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`
		SELECT recorded_at, filter_time, x, y, yaw, var_x, var_y, var_yaw FROM (
			SELECT * FROM pose_history ORDER BY pose_id DESC LIMIT ?
		) ORDER BY pose_id ASC`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var poses []PoseRecord
	for rows.Next() {
		var (
			p                  PoseRecord
			recorded, filterNs int64
		)
		if err := rows.Scan(&recorded, &filterNs, &p.X, &p.Y, &p.Yaw, &p.VarX, &p.VarY, &p.VarYaw); err != nil {
			return nil, err
		}
		p.RecordedAt = fromUnixNanos(recorded)
		p.FilterTime = fromUnixNanos(filterNs)
		poses = append(poses, p)
	}
	return poses, rows.Err()
}

// PrunePoses deletes history older than before and returns the number of
// rows removed.
func (db *DB) PrunePoses(before time.Time) (int64, error) {
	res, err := db.Exec(`DELETE FROM pose_history WHERE recorded_at < ?`, unixNanos(before))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// unixNanos maps the zero time to 0 so it round-trips.
func unixNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNanos(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
