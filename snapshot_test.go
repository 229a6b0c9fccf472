package fotasync

import "testing"

func testSnapshot() *Snapshot {
	snap := newSnapshot()
	snap.Devices["860000000000001"] = Device{IMEI: "860000000000001", ActivityStatus: StatusOnline}
	snap.Devices["860000000000002"] = Device{IMEI: "860000000000002", ActivityStatus: StatusOffline}
	snap.Devices["860000000000003"] = Device{
		IMEI:           "860000000000003",
		ActivityStatus: StatusInactive,
		TaskQueue:      []TaskRef{{ID: 11, Status: TaskStatusPending}, {ID: 0}, {ID: 13, Status: TaskStatusPending}},
	}
	snap.Tasks = []Task{
		{ID: 11, Status: TaskStatusPending},
		{ID: 13, Status: TaskStatusPending},
		{ID: 14, Status: TaskStatusFailed},
		{ID: 15, Status: TaskStatusCompleted},
	}
	snap.Stats = CompanyStats{GroupCount: 2, TaskCount: 17, DeviceCount: 3}
	return snap
}

func TestSnapshotCounters(t *testing.T) {
	snap := testSnapshot()

	if snap.TotalDevices() != 3 {
		t.Fatalf("expected 3 devices, got %d", snap.TotalDevices())
	}
	if snap.OnlineDevices() != 1 {
		t.Fatalf("expected 1 online device, got %d", snap.OnlineDevices())
	}
	if snap.OfflineDevices() != 2 {
		t.Fatalf("expected 2 offline devices, got %d", snap.OfflineDevices())
	}
	if snap.PendingTasks() != 2 {
		t.Fatalf("expected 2 pending tasks, got %d", snap.PendingTasks())
	}
	if snap.FailedTasks() != 1 {
		t.Fatalf("expected 1 failed task, got %d", snap.FailedTasks())
	}
	if snap.GroupCount() != 2 || snap.TaskCount() != 17 {
		t.Fatalf("stats counters mismatch: groups=%d tasks=%d", snap.GroupCount(), snap.TaskCount())
	}
}

func TestSnapshotDeviceLookup(t *testing.T) {
	snap := testSnapshot()

	dev, ok := snap.Device("860000000000001")
	if !ok || dev.IMEI != "860000000000001" {
		t.Fatalf("expected device lookup hit, got ok=%v dev=%+v", ok, dev)
	}
	if _, ok := snap.Device("missing"); ok {
		t.Fatal("expected lookup miss for unknown imei")
	}
}

func TestSnapshotPendingTaskIDs(t *testing.T) {
	snap := testSnapshot()

	ids := snap.PendingTaskIDs("860000000000003")
	if len(ids) != 2 || ids[0] != 11 || ids[1] != 13 {
		t.Fatalf("expected queued ids [11 13], got %v", ids)
	}
	if ids := snap.PendingTaskIDs("860000000000001"); ids != nil {
		t.Fatalf("expected nil for empty queue, got %v", ids)
	}
	if ids := snap.PendingTaskIDs("missing"); ids != nil {
		t.Fatalf("expected nil for unknown device, got %v", ids)
	}
}
