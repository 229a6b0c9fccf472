package fota

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// The API returns open-ended JSON objects whose field names have drifted
// across versions. All tolerance for that lives in this file; the rest of
// the codebase only ever sees typed Device/Task values.

// Accepted source fields, in priority order.
var (
	firmwareFields = []string{"current_firmware", "firmware", "firmware_version", "fw_version", "fw", "version"}
	lastSeenFields = []string{"seen_at", "last_connection", "last_update", "lastConnection", "last_seen", "updated_at"}
	nameFields     = []string{"description", "name", "title", "label", "alias"}
)

// parseDevice converts one raw device record. The second return value is
// false when the record has no IMEI; such records are skipped upstream.
func parseDevice(raw map[string]any) (Device, bool) {
	imei := stringValue(raw["imei"])
	if imei == "" {
		return Device{}, false
	}
	dev := Device{
		IMEI:           imei,
		Model:          firstString(raw, "model"),
		Name:           deviceName(raw, imei),
		ActivityStatus: firstString(raw, "activity_status"),
		Firmware:       firmwareVersion(raw),
		TaskQueue:      deviceTaskQueue(raw),
		LastSeenAt:     lastSeenAt(raw),
	}
	return dev, true
}

// parseTask converts one raw task record. The second return value is false
// when the record has no positive numeric id.
func parseTask(raw map[string]any) (Task, bool) {
	id := int64Value(raw["id"])
	if id <= 0 {
		return Task{}, false
	}
	return Task{
		ID:     id,
		Type:   firstString(raw, "type"),
		Status: firstString(raw, "status"),
		IMEI:   stringValue(raw["imei"]),
	}, true
}

// firmwareVersion walks the known firmware field aliases; dict-shaped values
// expose either a "version" or a "name" key.
func firmwareVersion(raw map[string]any) string {
	for _, field := range firmwareFields {
		value, ok := raw[field]
		if !ok || value == nil {
			continue
		}
		if nested, ok := value.(map[string]any); ok {
			if v := stringValue(nested["version"]); v != "" {
				return v
			}
			if v := stringValue(nested["name"]); v != "" {
				return v
			}
			continue
		}
		if v := stringValue(value); v != "" {
			return v
		}
	}
	return ""
}

// lastSeenAt extracts and parses the last-contact timestamp. The API emits
// either "2006-01-02 15:04:05" or RFC3339; a zoneless value is taken as UTC.
func lastSeenAt(raw map[string]any) *time.Time {
	var candidate string
	for _, field := range lastSeenFields {
		if v := stringValue(raw[field]); v != "" {
			candidate = v
			break
		}
	}
	if candidate == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if parsed, err := time.Parse(layout, candidate); err == nil {
			return &parsed
		}
	}
	log.Debug().Str("value", candidate).Msg("fota: unparseable last-seen timestamp")
	return nil
}

// deviceName builds a display name from the first description-like field,
// falling back to the IMEI alone.
func deviceName(raw map[string]any, imei string) string {
	for _, field := range nameFields {
		if v := stringValue(raw[field]); v != "" {
			return fmt.Sprintf("%s (%s)", v, imei)
		}
	}
	return fmt.Sprintf("Teltonika (%s)", imei)
}

// deviceTaskQueue reads the pending-task queue. The field may be absent, the
// literal string "Empty", or a list of task summaries.
func deviceTaskQueue(raw map[string]any) []TaskRef {
	value, ok := raw["task_queue"]
	if !ok || value == nil {
		return nil
	}
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	queue := make([]TaskRef, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id := int64Value(entry["id"])
		if id <= 0 {
			continue
		}
		queue = append(queue, TaskRef{
			ID:     id,
			Type:   stringValue(entry["type"]),
			Status: stringValue(entry["status"]),
		})
	}
	if len(queue) == 0 {
		return nil
	}
	return queue
}

func firstString(raw map[string]any, field string) string {
	return stringValue(raw[field])
}

// stringValue renders scalar JSON values as trimmed strings. Numbers lose no
// precision for the integer ranges the API uses (IMEIs fit in float64).
func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

func int64Value(value any) int64 {
	switch v := value.(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
