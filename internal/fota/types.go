package fota

import (
	"encoding/json"
	"time"
)

// Activity status values as returned by the API (capitalized).
const (
	StatusOnline   = "Online"
	StatusOffline  = "Offline"
	StatusInactive = "Inactive"
)

// Task statuses owned by the remote system; the local model only mirrors the
// last-fetched value.
const (
	TaskStatusPending   = "pending"
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
	TaskStatusCancelled = "cancelled"
)

// Task types accepted by the task creation endpoint.
const (
	TaskTypeFirmware      = "firmware"
	TaskTypeConfiguration = "configuration"
)

// Device is one managed unit, parsed from the loosely-shaped API record.
type Device struct {
	IMEI           string
	Model          string
	Name           string
	ActivityStatus string
	Firmware       string
	TaskQueue      []TaskRef
	LastSeenAt     *time.Time
}

// Online reports whether the device's activity status is Online.
func (d Device) Online() bool { return d.ActivityStatus == StatusOnline }

// TaskRef is the task summary embedded in a device's pending queue.
type TaskRef struct {
	ID     int64
	Type   string
	Status string
}

// Task is a remote unit of work against a device.
type Task struct {
	ID     int64
	Type   string
	Status string
	IMEI   string
}

// CompanyStats is the account-wide statistics record.
type CompanyStats struct {
	GroupCount  int `json:"group_count"`
	TaskCount   int `json:"task_count"`
	DeviceCount int `json:"device_count"`
	FileCount   int `json:"file_count"`
}

// DevicePage is one page of the device listing.
type DevicePage struct {
	Items       []Device
	CurrentPage int
	LastPage    int
}

// TaskPage is one page of the task listing.
type TaskPage struct {
	Items       []Task
	CurrentPage int
	LastPage    int
}

// Ack is the raw acknowledgement body returned by mutation endpoints.
type Ack = json.RawMessage

// pageMeta mirrors the pagination envelope the API attaches to listings.
type pageMeta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
}

// listEnvelope is the {data, meta} wrapper around paginated listings. Records
// stay loose here; parse.go turns them into typed values.
type listEnvelope struct {
	Data []map[string]any `json:"data"`
	Meta pageMeta         `json:"meta"`
}
