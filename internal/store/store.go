package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

// DB wraps the SQLite match archive
type DB struct {
	conn *sql.DB
}

// OperatorRow is an account allowed to create matches and issue tokens
type OperatorRow struct {
	ID        int64
	Username  string
	PassHash  string
	CreatedAt time.Time
}

// Open opens (or creates) the database at path. ":memory:" is accepted
// for tests.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		conn.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS operators (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		pass_hash TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS matches (
		id TEXT PRIMARY KEY,
		scenario TEXT NOT NULL DEFAULT '',
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		ticks INTEGER NOT NULL DEFAULT 0,
		winner TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		match_id TEXT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
		tick INTEGER NOT NULL,
		data BLOB NOT NULL,
		PRIMARY KEY (match_id, tick)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		match_id TEXT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
		tick INTEGER NOT NULL,
		kind TEXT NOT NULL,
		ship_id TEXT NOT NULL DEFAULT '',
		data TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_events_match ON events(match_id, tick);
	CREATE INDEX IF NOT EXISTS idx_matches_started ON matches(started_at);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// GetSetting returns a stored setting or "" when unset
func (db *DB) GetSetting(key string) (string, error) {
	var v string
	err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return v, err
}

func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// CreateOperator stores a new operator account and returns its id
func (db *DB) CreateOperator(username, passHash string) (int64, error) {
	res, err := db.conn.Exec("INSERT INTO operators (username, pass_hash) VALUES (?, ?)", username, passHash)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetOperator returns an operator by username, or nil when missing
func (db *DB) GetOperator(username string) (*OperatorRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, pass_hash, created_at FROM operators WHERE username = ?",
		username,
	)
	o := &OperatorRow{}
	err := row.Scan(&o.ID, &o.Username, &o.PassHash, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return o, err
}

// OperatorExists checks if a username is taken
func (db *DB) OperatorExists(username string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM operators WHERE username = ?", username).Scan(&count)
	return count > 0, err
}
