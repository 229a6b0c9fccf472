package fota

import (
	"testing"
	"time"
)

func TestParseDeviceFullRecord(t *testing.T) {
	raw := map[string]any{
		"imei":             "860000000000001",
		"model":            "FMB920",
		"description":      "Van 12",
		"activity_status":  StatusOnline,
		"current_firmware": "03.28.07.Rev.00",
		"seen_at":          "2026-08-20 11:02:33",
		"task_queue": []any{
			map[string]any{"id": float64(11), "type": TaskTypeFirmware, "status": TaskStatusPending},
			map[string]any{"id": float64(0)},
			"Empty",
		},
	}

	dev, ok := parseDevice(raw)
	if !ok {
		t.Fatal("expected record to parse")
	}
	if dev.IMEI != "860000000000001" || dev.Model != "FMB920" {
		t.Fatalf("identity fields mismatch: %+v", dev)
	}
	if dev.Name != "Van 12 (860000000000001)" {
		t.Fatalf("unexpected name: %q", dev.Name)
	}
	if dev.Firmware != "03.28.07.Rev.00" {
		t.Fatalf("unexpected firmware: %q", dev.Firmware)
	}
	if !dev.Online() {
		t.Fatal("expected device to be online")
	}
	if len(dev.TaskQueue) != 1 || dev.TaskQueue[0].ID != 11 {
		t.Fatalf("unexpected task queue: %+v", dev.TaskQueue)
	}
	want := time.Date(2026, 8, 20, 11, 2, 33, 0, time.UTC)
	if dev.LastSeenAt == nil || !dev.LastSeenAt.Equal(want) {
		t.Fatalf("unexpected last seen: %v", dev.LastSeenAt)
	}
}

func TestParseDeviceRequiresIMEI(t *testing.T) {
	if _, ok := parseDevice(map[string]any{"model": "FMB920"}); ok {
		t.Fatal("record without imei must be rejected")
	}
	if _, ok := parseDevice(map[string]any{"imei": "  "}); ok {
		t.Fatal("blank imei must be rejected")
	}
}

func TestParseDeviceNumericIMEI(t *testing.T) {
	dev, ok := parseDevice(map[string]any{"imei": float64(860000000000001)})
	if !ok || dev.IMEI != "860000000000001" {
		t.Fatalf("numeric imei not normalized: ok=%v imei=%q", ok, dev.IMEI)
	}
}

func TestParseDeviceNameFallback(t *testing.T) {
	dev, _ := parseDevice(map[string]any{"imei": "860000000000002"})
	if dev.Name != "Teltonika (860000000000002)" {
		t.Fatalf("unexpected fallback name: %q", dev.Name)
	}

	dev, _ = parseDevice(map[string]any{"imei": "860000000000002", "alias": "Truck"})
	if dev.Name != "Truck (860000000000002)" {
		t.Fatalf("alias field ignored: %q", dev.Name)
	}
}

func TestFirmwareVersionAliases(t *testing.T) {
	cases := []struct {
		name string
		raw  map[string]any
		want string
	}{
		{"plain string", map[string]any{"firmware": "1.2.3"}, "1.2.3"},
		{"legacy field", map[string]any{"fw_version": "0.9"}, "0.9"},
		{"nested version", map[string]any{"current_firmware": map[string]any{"version": "3.1"}}, "3.1"},
		{"nested name", map[string]any{"firmware": map[string]any{"name": "FMB.Ver44"}}, "FMB.Ver44"},
		{"priority order", map[string]any{"current_firmware": "new", "version": "old"}, "new"},
		{"absent", map[string]any{}, ""},
		{"null", map[string]any{"firmware": nil}, ""},
	}
	for _, tc := range cases {
		if got := firmwareVersion(tc.raw); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestLastSeenAtLayouts(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  time.Time
	}{
		{"rfc3339", "2026-08-20T11:02:33Z", time.Date(2026, 8, 20, 11, 2, 33, 0, time.UTC)},
		{"space separated", "2026-08-20 11:02:33", time.Date(2026, 8, 20, 11, 2, 33, 0, time.UTC)},
		{"t separated no zone", "2026-08-20T11:02:33", time.Date(2026, 8, 20, 11, 2, 33, 0, time.UTC)},
	}
	for _, tc := range cases {
		got := lastSeenAt(map[string]any{"last_connection": tc.value})
		if got == nil || !got.Equal(tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}

	if got := lastSeenAt(map[string]any{"seen_at": "not a timestamp"}); got != nil {
		t.Fatalf("garbage timestamp must yield nil, got %v", got)
	}
	if got := lastSeenAt(map[string]any{}); got != nil {
		t.Fatalf("absent timestamp must yield nil, got %v", got)
	}
}

func TestParseTask(t *testing.T) {
	task, ok := parseTask(map[string]any{
		"id":     float64(42),
		"type":   TaskTypeConfiguration,
		"status": TaskStatusRunning,
		"imei":   "860000000000001",
	})
	if !ok {
		t.Fatal("expected record to parse")
	}
	if task.ID != 42 || task.Type != TaskTypeConfiguration || task.Status != TaskStatusRunning {
		t.Fatalf("unexpected task: %+v", task)
	}
	if task.IMEI != "860000000000001" {
		t.Fatalf("unexpected imei: %q", task.IMEI)
	}

	if _, ok := parseTask(map[string]any{"status": TaskStatusPending}); ok {
		t.Fatal("record without id must be rejected")
	}
	if _, ok := parseTask(map[string]any{"id": float64(-1)}); ok {
		t.Fatal("negative id must be rejected")
	}
}
