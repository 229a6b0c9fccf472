package fotasync

import (
	"context"

	"github.com/fleetops/fotasync/internal/fota"
)

// Domain types re-exported from the internal API package so callers can
// depend on the root fotasync package only.
type (
	Device       = fota.Device
	Task         = fota.Task
	TaskRef      = fota.TaskRef
	CompanyStats = fota.CompanyStats
	DevicePage   = fota.DevicePage
	TaskPage     = fota.TaskPage
	Ack          = fota.Ack
)

// Shared status and type values for devices and tasks.
const (
	StatusOnline   = fota.StatusOnline
	StatusOffline  = fota.StatusOffline
	StatusInactive = fota.StatusInactive

	TaskStatusPending   = fota.TaskStatusPending
	TaskStatusRunning   = fota.TaskStatusRunning
	TaskStatusCompleted = fota.TaskStatusCompleted
	TaskStatusFailed    = fota.TaskStatusFailed
	TaskStatusCancelled = fota.TaskStatusCancelled

	TaskTypeFirmware      = fota.TaskTypeFirmware
	TaskTypeConfiguration = fota.TaskTypeConfiguration
)

// RemoteClient is the capability the coordinator and mutation commands need
// from the remote API. Every method fails with either *fota.AuthError or
// *fota.APIError.
type RemoteClient interface {
	ListDevices(ctx context.Context, page, perPage int) (DevicePage, error)
	ListTasks(ctx context.Context, page, perPage int) (TaskPage, error)
	GetCompanyStats(ctx context.Context) (CompanyStats, error)
	CancelTasks(ctx context.Context, ids []int64) (Ack, error)
	CreateFirmwareTask(ctx context.Context, imei string, firmwareID int64) (Ack, error)
	CreateConfigTask(ctx context.Context, imei string, configID int64) (Ack, error)
	RetryFailedTasks(ctx context.Context, batchID int64) (Ack, error)
}

var _ RemoteClient = (*fota.Client)(nil)

// SnapshotRecorder mirrors each successfully fetched snapshot into external
// storage (SQLite by default). Recorder failures only degrade observability;
// they never fail a refresh.
type SnapshotRecorder interface {
	RecordSnapshot(ctx context.Context, snap *Snapshot) error
}

type noopRecorder struct{}

func (noopRecorder) RecordSnapshot(ctx context.Context, snap *Snapshot) error { return nil }
