// Package store persists the hub's device snapshot, relayed-message log, and
// durable configuration in SQLite. The database is owned by the hub process;
// all writes go through this package.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"pozordom/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS devices (
	device_id TEXT PRIMARY KEY,
	channel TEXT NOT NULL,
	temperature TEXT NOT NULL,
	humidity TEXT NOT NULL,
	signal_strength INTEGER NOT NULL,
	timestamp TEXT NOT NULL,
	last_seen TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	content TEXT NOT NULL,
	timestamp TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS config (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_devices_channel ON devices(channel);
CREATE INDEX IF NOT EXISTS idx_devices_timestamp ON devices(timestamp);
CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp);
`

const cloudEnabledKey = "cloud_enabled"

// Store wraps the SQLite handle. database/sql serializes concurrent access
// per connection; the busy timeout covers writer contention across them.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStore opens (creating if necessary) the database at path and ensures the
// schema exists.
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("Database initialized", zap.String("path", path))

	return &Store{db: db, logger: logger}, nil
}

// SaveDevice durably upserts the latest telemetry for a device and stamps
// last_seen with the current time. Last write wins per device_id.
func (s *Store) SaveDevice(t *models.DeviceTelemetry) error {
	now := time.Now().Format(time.RFC3339)

	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO devices
		 (device_id, channel, temperature, humidity, signal_strength, timestamp, last_seen)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.DeviceID, t.Channel, t.Temperature, t.Humidity, t.SignalStrength, t.Timestamp, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save device %s: %w", t.DeviceID, err)
	}
	return nil
}

// LoadDevices returns the full snapshot keyed by device_id. Used once at
// startup to rehydrate the in-memory state.
func (s *Store) LoadDevices() (map[string]models.DeviceTelemetry, error) {
	rows, err := s.db.Query(
		`SELECT device_id, channel, temperature, humidity, signal_strength, timestamp
		 FROM devices ORDER BY last_seen DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to load devices: %w", err)
	}
	defer rows.Close()

	devices := make(map[string]models.DeviceTelemetry)
	for rows.Next() {
		var t models.DeviceTelemetry
		if err := rows.Scan(&t.DeviceID, &t.Channel, &t.Temperature, &t.Humidity,
			&t.SignalStrength, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan device row: %w", err)
		}
		devices[t.DeviceID] = t
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate device rows: %w", err)
	}

	return devices, nil
}

// SaveMessage appends a relayed frame to the durable message log.
func (s *Store) SaveMessage(content string) error {
	now := time.Now().Format(time.RFC3339)

	if _, err := s.db.Exec(
		`INSERT INTO messages (content, timestamp) VALUES (?, ?)`, content, now); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// RecentMessages returns up to limit of the newest logged frames, oldest
// first, matching the display order of the in-memory rolling log.
func (s *Store) RecentMessages(limit int) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT content FROM (
			SELECT id, content FROM messages ORDER BY id DESC LIMIT ?
		 ) ORDER BY id ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	var messages []string
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, content)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate message rows: %w", err)
	}

	return messages, nil
}

// GetCloudEnabled reads the durable cloud flag. Defaults to true when unset.
func (s *Store) GetCloudEnabled() (bool, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM config WHERE key = ?`, cloudEnabledKey).Scan(&value)
	switch {
	case err == sql.ErrNoRows:
		return true, nil
	case err != nil:
		return true, fmt.Errorf("failed to read %s: %w", cloudEnabledKey, err)
	}
	return value == "true", nil
}

// SetCloudEnabled durably records the desired cloud link state.
func (s *Store) SetCloudEnabled(enabled bool) error {
	now := time.Now().Format(time.RFC3339)
	value := "false"
	if enabled {
		value = "true"
	}

	if _, err := s.db.Exec(
		`INSERT OR REPLACE INTO config (key, value, updated_at) VALUES (?, ?, ?)`,
		cloudEnabledKey, value, now); err != nil {
		return fmt.Errorf("failed to persist %s: %w", cloudEnabledKey, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
