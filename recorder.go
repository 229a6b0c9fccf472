package fotasync

import (
	"context"

	"github.com/fleetops/fotasync/internal/storage"
)

// SQLiteRecorder mirrors each snapshot into the local SQLite fleet database
// so external tooling can inspect fleet state without touching the API.
type SQLiteRecorder struct {
	mirror *storage.SnapshotMirror
}

var _ SnapshotRecorder = (*SQLiteRecorder)(nil)

// NewSQLiteRecorder opens the mirror at the default database path
// (FOTA_DB_PATH or ~/.fotasync/fleet.sqlite).
func NewSQLiteRecorder() (*SQLiteRecorder, error) {
	mirror, err := storage.NewSnapshotMirror()
	if err != nil {
		return nil, err
	}
	return &SQLiteRecorder{mirror: mirror}, nil
}

// NewSQLiteRecorderAt opens the mirror at an explicit database path.
func NewSQLiteRecorderAt(path string) (*SQLiteRecorder, error) {
	mirror, err := storage.NewSnapshotMirrorAt(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteRecorder{mirror: mirror}, nil
}

// RecordSnapshot replaces the mirrored fleet state with the snapshot.
func (r *SQLiteRecorder) RecordSnapshot(ctx context.Context, snap *Snapshot) error {
	devices := make([]storage.DeviceRow, 0, len(snap.Devices))
	for _, dev := range snap.Devices {
		devices = append(devices, storage.DeviceRow{
			IMEI:           dev.IMEI,
			Name:           dev.Name,
			Model:          dev.Model,
			ActivityStatus: dev.ActivityStatus,
			Firmware:       dev.Firmware,
			PendingTasks:   len(dev.TaskQueue),
			LastSeenAt:     dev.LastSeenAt,
		})
	}
	tasks := make([]storage.TaskRow, 0, len(snap.Tasks))
	for _, task := range snap.Tasks {
		tasks = append(tasks, storage.TaskRow{
			ID:     task.ID,
			Type:   task.Type,
			Status: task.Status,
			IMEI:   task.IMEI,
		})
	}
	stats := storage.StatsRow{
		GroupCount:  snap.Stats.GroupCount,
		TaskCount:   snap.Stats.TaskCount,
		DeviceCount: snap.Stats.DeviceCount,
		FileCount:   snap.Stats.FileCount,
		FetchedAt:   snap.FetchedAt,
	}
	return r.mirror.Replace(ctx, devices, tasks, stats)
}

// Close releases the underlying database handle.
func (r *SQLiteRecorder) Close() error {
	return r.mirror.Close()
}
