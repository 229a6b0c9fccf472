package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fleetops/fotasync/internal/config"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const (
	envDBPath         = "FOTA_DB_PATH"
	defaultDBDirName  = ".fotasync"
	defaultDBFileName = "fleet.sqlite"

	devicesTable = "fleet_devices"
	tasksTable   = "fleet_tasks"
	statsTable   = "fleet_stats"
)

// SnapshotMirror keeps the latest fleet snapshot inside a local SQLite
// database so external tooling can read fleet state without hitting the API.
// Each recorded snapshot fully replaces the previous contents in one
// transaction.
type SnapshotMirror struct {
	db *sql.DB
}

// NewSnapshotMirror opens (or creates) the mirror database at
// ResolveDatabasePath and ensures the schema exists.
func NewSnapshotMirror() (*SnapshotMirror, error) {
	path, err := ResolveDatabasePath()
	if err != nil {
		return nil, errors.Wrap(err, "resolve sqlite path for fleet mirror failed")
	}
	return NewSnapshotMirrorAt(path)
}

// NewSnapshotMirrorAt opens the mirror database at an explicit path.
func NewSnapshotMirrorAt(path string) (*SnapshotMirror, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite database for fleet mirror failed")
	}
	if err := configureSQLite(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SnapshotMirror{db: db}, nil
}

// Close releases the underlying database handle.
func (m *SnapshotMirror) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}

// DeviceRow is what the mirror needs to know about one device.
type DeviceRow struct {
	IMEI           string
	Name           string
	Model          string
	ActivityStatus string
	Firmware       string
	PendingTasks   int
	LastSeenAt     *time.Time
}

// TaskRow is what the mirror needs to know about one task.
type TaskRow struct {
	ID     int64
	Type   string
	Status string
	IMEI   string
}

// StatsRow is the single account-statistics row.
type StatsRow struct {
	GroupCount  int
	TaskCount   int
	DeviceCount int
	FileCount   int
	FetchedAt   time.Time
}

// Replace swaps the mirrored fleet state for the given rows atomically.
func (m *SnapshotMirror) Replace(ctx context.Context, devices []DeviceRow, tasks []TaskRow, stats StatsRow) error {
	if m == nil || m.db == nil {
		return errors.New("storage: fleet mirror is not initialized")
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin fleet mirror transaction failed")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, table := range []string{devicesTable, tasksTable, statsTable} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", quoteIdent(table))); err != nil {
			return errors.Wrapf(err, "clear table %s failed", table)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	deviceStmt := fmt.Sprintf(
		"INSERT INTO %s (imei, name, model, activity_status, firmware, pending_tasks, last_seen_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		quoteIdent(devicesTable))
	for _, dev := range devices {
		var lastSeen sql.NullString
		if dev.LastSeenAt != nil && !dev.LastSeenAt.IsZero() {
			lastSeen = sql.NullString{String: dev.LastSeenAt.UTC().Format(time.RFC3339), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, deviceStmt,
			dev.IMEI, dev.Name, dev.Model, dev.ActivityStatus, dev.Firmware,
			dev.PendingTasks, lastSeen, now); err != nil {
			return errors.Wrapf(err, "insert mirrored device %s failed", dev.IMEI)
		}
	}

	taskStmt := fmt.Sprintf(
		"INSERT INTO %s (id, type, status, imei, updated_at) VALUES (?, ?, ?, ?, ?)",
		quoteIdent(tasksTable))
	for _, task := range tasks {
		if _, err := tx.ExecContext(ctx, taskStmt,
			task.ID, task.Type, task.Status, task.IMEI, now); err != nil {
			return errors.Wrapf(err, "insert mirrored task %d failed", task.ID)
		}
	}

	statsStmt := fmt.Sprintf(
		"INSERT INTO %s (id, group_count, task_count, device_count, file_count, fetched_at) VALUES (1, ?, ?, ?, ?, ?)",
		quoteIdent(statsTable))
	if _, err := tx.ExecContext(ctx, statsStmt,
		stats.GroupCount, stats.TaskCount, stats.DeviceCount, stats.FileCount,
		stats.FetchedAt.UTC().Format(time.RFC3339)); err != nil {
		return errors.Wrap(err, "insert mirrored stats failed")
	}

	return errors.Wrap(tx.Commit(), "commit fleet mirror transaction failed")
}

// Devices returns the mirrored device rows, for tooling and tests.
func (m *SnapshotMirror) Devices(ctx context.Context) ([]DeviceRow, error) {
	query := fmt.Sprintf(
		"SELECT imei, name, model, activity_status, firmware, pending_tasks, last_seen_at FROM %s ORDER BY imei",
		quoteIdent(devicesTable))
	rows, err := m.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "query mirrored devices failed")
	}
	defer rows.Close()

	var result []DeviceRow
	for rows.Next() {
		var row DeviceRow
		var lastSeen sql.NullString
		if err := rows.Scan(&row.IMEI, &row.Name, &row.Model, &row.ActivityStatus,
			&row.Firmware, &row.PendingTasks, &lastSeen); err != nil {
			return nil, errors.Wrap(err, "scan mirrored device failed")
		}
		if lastSeen.Valid {
			if parsed, err := time.Parse(time.RFC3339, lastSeen.String); err == nil {
				row.LastSeenAt = &parsed
			}
		}
		result = append(result, row)
	}
	return result, errors.Wrap(rows.Err(), "iterate mirrored devices failed")
}

// ResolveDatabasePath returns the absolute path to the mirror SQLite
// database, creating the parent directory if necessary. FOTA_DB_PATH
// overrides the default under the user's home directory.
func ResolveDatabasePath() (string, error) {
	if custom := config.String(envDBPath, ""); custom != "" {
		if err := ensureDirExists(filepath.Dir(custom)); err != nil {
			return "", err
		}
		return custom, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve home directory failed")
	}
	dir := filepath.Join(home, defaultDBDirName)
	if err := ensureDirExists(dir); err != nil {
		return "", err
	}
	return filepath.Join(dir, defaultDBFileName), nil
}

func ensureDirExists(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return errors.Wrapf(os.MkdirAll(path, 0o755), "storage: create dir %s failed", path)
}

func configureSQLite(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=MEMORY;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return errors.Wrapf(err, "execute sqlite pragma %s failed", pragma)
		}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return nil
}

func ensureSchema(db *sql.DB) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			imei TEXT PRIMARY KEY,
			name TEXT,
			model TEXT,
			activity_status TEXT,
			firmware TEXT,
			pending_tasks INTEGER NOT NULL DEFAULT 0,
			last_seen_at TEXT,
			updated_at TEXT NOT NULL
		)`, quoteIdent(devicesTable)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY,
			type TEXT,
			status TEXT,
			imei TEXT,
			updated_at TEXT NOT NULL
		)`, quoteIdent(tasksTable)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			group_count INTEGER NOT NULL DEFAULT 0,
			task_count INTEGER NOT NULL DEFAULT 0,
			device_count INTEGER NOT NULL DEFAULT 0,
			file_count INTEGER NOT NULL DEFAULT 0,
			fetched_at TEXT NOT NULL
		)`, quoteIdent(statsTable)),
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return errors.Wrap(err, "ensure fleet mirror schema failed")
		}
	}
	return nil
}

func quoteIdent(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	escaped := strings.ReplaceAll(trimmed, "\"", "\"\"")
	return fmt.Sprintf("\"%s\"", escaped)
}
