package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestMirror(t *testing.T) *SnapshotMirror {
	t.Helper()
	mirror, err := NewSnapshotMirrorAt(filepath.Join(t.TempDir(), "fleet.sqlite"))
	if err != nil {
		t.Fatalf("open mirror failed: %v", err)
	}
	t.Cleanup(func() {
		_ = mirror.Close()
	})
	return mirror
}

func TestReplaceAndReadBack(t *testing.T) {
	mirror := newTestMirror(t)
	ctx := context.Background()
	seen := time.Date(2026, 8, 20, 11, 2, 33, 0, time.UTC)

	devices := []DeviceRow{
		{IMEI: "860000000000002", Name: "Van 12 (860000000000002)", Model: "FMB920", ActivityStatus: "Offline", Firmware: "03.28.07", PendingTasks: 2, LastSeenAt: &seen},
		{IMEI: "860000000000001", Name: "Teltonika (860000000000001)", ActivityStatus: "Online"},
	}
	tasks := []TaskRow{{ID: 11, Type: "firmware", Status: "pending", IMEI: "860000000000002"}}
	stats := StatsRow{GroupCount: 3, TaskCount: 42, DeviceCount: 2, FetchedAt: time.Now()}

	if err := mirror.Replace(ctx, devices, tasks, stats); err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	rows, err := mirror.Devices(ctx)
	if err != nil {
		t.Fatalf("read devices failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 device rows, got %d", len(rows))
	}
	// Rows come back ordered by imei.
	if rows[0].IMEI != "860000000000001" || rows[1].IMEI != "860000000000002" {
		t.Fatalf("unexpected order: %q, %q", rows[0].IMEI, rows[1].IMEI)
	}
	if rows[0].LastSeenAt != nil {
		t.Fatalf("expected nil last seen, got %v", rows[0].LastSeenAt)
	}
	if rows[1].PendingTasks != 2 || rows[1].Firmware != "03.28.07" {
		t.Fatalf("device fields lost on round trip: %+v", rows[1])
	}
	if rows[1].LastSeenAt == nil || !rows[1].LastSeenAt.Equal(seen) {
		t.Fatalf("unexpected last seen: %v", rows[1].LastSeenAt)
	}
}

func TestReplaceIsFullSwap(t *testing.T) {
	mirror := newTestMirror(t)
	ctx := context.Background()

	first := []DeviceRow{
		{IMEI: "860000000000001", ActivityStatus: "Online"},
		{IMEI: "860000000000002", ActivityStatus: "Online"},
	}
	if err := mirror.Replace(ctx, first, nil, StatsRow{FetchedAt: time.Now()}); err != nil {
		t.Fatalf("first replace failed: %v", err)
	}

	second := []DeviceRow{{IMEI: "860000000000003", ActivityStatus: "Offline"}}
	if err := mirror.Replace(ctx, second, nil, StatsRow{FetchedAt: time.Now()}); err != nil {
		t.Fatalf("second replace failed: %v", err)
	}

	rows, err := mirror.Devices(ctx)
	if err != nil {
		t.Fatalf("read devices failed: %v", err)
	}
	if len(rows) != 1 || rows[0].IMEI != "860000000000003" {
		t.Fatalf("stale rows survived the swap: %+v", rows)
	}
}

func TestResolveDatabasePathOverride(t *testing.T) {
	custom := filepath.Join(t.TempDir(), "nested", "fleet.sqlite")
	t.Setenv("FOTA_DB_PATH", custom)

	path, err := ResolveDatabasePath()
	if err != nil {
		t.Fatalf("resolve path failed: %v", err)
	}
	if path != custom {
		t.Fatalf("expected %q, got %q", custom, path)
	}
}
