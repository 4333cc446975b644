package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// MatchRow is one archived match. Winner holds the surviving teams
// joined by commas; it is empty for a draw or an unfinished match.
type MatchRow struct {
	ID        string     `json:"id"`
	Scenario  string     `json:"scenario"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
	Ticks     int64      `json:"ticks"`
	Winner    string     `json:"winner"`
}

// Winners splits the Winner column
func (m MatchRow) Winners() []string {
	if m.Winner == "" {
		return nil
	}
	return strings.Split(m.Winner, ",")
}

// Finished reports whether FinishMatch was called
func (m MatchRow) Finished() bool {
	return m.EndedAt != nil
}

// RecordMatch registers a match that just started
func (db *DB) RecordMatch(id, scenario string, startedAt time.Time) error {
	_, err := db.conn.Exec(
		"INSERT INTO matches (id, scenario, started_at) VALUES (?, ?, ?)",
		id, scenario, startedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record match %s: %w", id, err)
	}
	return nil
}

// FinishMatch stores the outcome of a match
func (db *DB) FinishMatch(id string, ticks int64, winners []string, endedAt time.Time) error {
	res, err := db.conn.Exec(
		"UPDATE matches SET ended_at = ?, ticks = ?, winner = ? WHERE id = ?",
		endedAt.UTC(), ticks, strings.Join(winners, ","), id,
	)
	if err != nil {
		return fmt.Errorf("finish match %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish match %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanMatch(row interface{ Scan(...any) error }) (MatchRow, error) {
	var m MatchRow
	var ended sql.NullTime
	if err := row.Scan(&m.ID, &m.Scenario, &m.StartedAt, &ended, &m.Ticks, &m.Winner); err != nil {
		return m, err
	}
	if ended.Valid {
		t := ended.Time
		m.EndedAt = &t
	}
	return m, nil
}

// GetMatch returns one match or ErrNotFound
func (db *DB) GetMatch(id string) (MatchRow, error) {
	m, err := scanMatch(db.conn.QueryRow(
		"SELECT id, scenario, started_at, ended_at, ticks, winner FROM matches WHERE id = ?", id,
	))
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	return m, err
}

// ListMatches returns the most recent matches first
func (db *DB) ListMatches(limit int) ([]MatchRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.Query(
		"SELECT id, scenario, started_at, ended_at, ticks, winner FROM matches ORDER BY started_at DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []MatchRow
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// SaveSnapshot stores an encoded snapshot, replacing one at the same tick
func (db *DB) SaveSnapshot(matchID string, tick int64, data []byte) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO snapshots (match_id, tick, data) VALUES (?, ?, ?)",
		matchID, tick, data,
	)
	if err != nil {
		return fmt.Errorf("save snapshot %s@%d: %w", matchID, tick, err)
	}
	return nil
}

// LoadSnapshot returns the snapshot taken at tick. A negative tick loads
// the latest one.
func (db *DB) LoadSnapshot(matchID string, tick int64) (int64, []byte, error) {
	var row *sql.Row
	if tick < 0 {
		row = db.conn.QueryRow(
			"SELECT tick, data FROM snapshots WHERE match_id = ? ORDER BY tick DESC LIMIT 1", matchID,
		)
	} else {
		row = db.conn.QueryRow(
			"SELECT tick, data FROM snapshots WHERE match_id = ? AND tick = ?", matchID, tick,
		)
	}
	var at int64
	var data []byte
	err := row.Scan(&at, &data)
	if err == sql.ErrNoRows {
		return 0, nil, ErrNotFound
	}
	return at, data, err
}

// SnapshotTicks lists the ticks with a stored snapshot, ascending
func (db *DB) SnapshotTicks(matchID string) ([]int64, error) {
	rows, err := db.conn.Query("SELECT tick FROM snapshots WHERE match_id = ? ORDER BY tick", matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ticks []int64
	for rows.Next() {
		var t int64
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		ticks = append(ticks, t)
	}
	return ticks, rows.Err()
}
