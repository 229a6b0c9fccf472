package fotasync

import "time"

// Snapshot is the atomically-published result of one complete refresh round:
// the full device map keyed by IMEI, the most recent task listing and the
// account statistics. A snapshot is never mutated after publication; every
// refresh builds a fresh one.
type Snapshot struct {
	Devices   map[string]Device
	Tasks     []Task
	Stats     CompanyStats
	FetchedAt time.Time
}

func newSnapshot() *Snapshot {
	return &Snapshot{Devices: make(map[string]Device)}
}

// Device returns the device with the given IMEI.
func (s *Snapshot) Device(imei string) (Device, bool) {
	dev, ok := s.Devices[imei]
	return dev, ok
}

// The counters below are always computed from the snapshot's collections so
// they cannot drift from the data they describe.

// TotalDevices returns the number of devices in the snapshot.
func (s *Snapshot) TotalDevices() int { return len(s.Devices) }

// OnlineDevices returns the number of devices whose activity status is Online.
func (s *Snapshot) OnlineDevices() int {
	count := 0
	for _, dev := range s.Devices {
		if dev.Online() {
			count++
		}
	}
	return count
}

// OfflineDevices returns every device that is not online.
func (s *Snapshot) OfflineDevices() int { return s.TotalDevices() - s.OnlineDevices() }

// PendingTasks returns the number of tasks in pending status.
func (s *Snapshot) PendingTasks() int { return s.countTasks(TaskStatusPending) }

// FailedTasks returns the number of tasks in failed status.
func (s *Snapshot) FailedTasks() int { return s.countTasks(TaskStatusFailed) }

func (s *Snapshot) countTasks(status string) int {
	count := 0
	for _, task := range s.Tasks {
		if task.Status == status {
			count++
		}
	}
	return count
}

// GroupCount returns the account-wide group count.
func (s *Snapshot) GroupCount() int { return s.Stats.GroupCount }

// TaskCount returns the account-wide task count.
func (s *Snapshot) TaskCount() int { return s.Stats.TaskCount }

// PendingTaskIDs returns the ids queued on the given device, in queue order.
// An absent device or empty queue yields nil.
func (s *Snapshot) PendingTaskIDs(imei string) []int64 {
	dev, ok := s.Devices[imei]
	if !ok || len(dev.TaskQueue) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(dev.TaskQueue))
	for _, ref := range dev.TaskQueue {
		if ref.ID > 0 {
			ids = append(ids, ref.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	return ids
}
