package store

import (
	"database/sql"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const (
	archiveQueue    = 1024
	archiveBatch    = 50
	archiveInterval = 5 * time.Second
)

// EventRow is one archived match event. Data is a JSON document.
type EventRow struct {
	MatchID string `json:"match"`
	Tick    int64  `json:"tick"`
	Kind    string `json:"kind"`
	ShipID  string `json:"ship,omitempty"`
	Data    string `json:"data,omitempty"`
}

// Archiver persists match events with batched background writes
type Archiver struct {
	db     *DB
	events chan EventRow
	stop   chan struct{}
	wg     sync.WaitGroup
	log    zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	dropped atomic.Int64
}

// NewArchiver creates and starts the background writer
func NewArchiver(db *DB, log zerolog.Logger) *Archiver {
	a := &Archiver{
		db:     db,
		events: make(chan EventRow, archiveQueue),
		stop:   make(chan struct{}),
		log:    log,
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues an event without blocking the caller. Events are dropped
// when the queue is full or the archiver is stopped.
func (a *Archiver) Track(evt EventRow) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.stopped {
		return
	}
	select {
	case a.events <- evt:
	default:
		a.dropped.Add(1)
	}
}

// Dropped returns how many events did not fit in the queue
func (a *Archiver) Dropped() int64 {
	return a.dropped.Load()
}

// Stop flushes queued events and shuts the writer down. It is safe to
// call more than once.
func (a *Archiver) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	a.mu.Unlock()
	close(a.stop)
	a.wg.Wait()
}

func (a *Archiver) writer() {
	defer a.wg.Done()

	batch := make([]EventRow, 0, 64)
	ticker := time.NewTicker(archiveInterval)
	defer ticker.Stop()

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= archiveBatch {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-a.stop:
			// Track can no longer enqueue, so the queue only shrinks
			for {
				select {
				case evt := <-a.events:
					batch = append(batch, evt)
					continue
				default:
				}
				break
			}
			a.flush(batch)
			return
		}
	}
}

func (a *Archiver) flush(events []EventRow) {
	if a.db == nil || len(events) == 0 {
		return
	}
	tx, err := a.db.conn.Begin()
	if err != nil {
		a.log.Error().Err(err).Msg("archive: begin tx")
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT INTO events (match_id, tick, kind, ship_id, data) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		a.log.Error().Err(err).Msg("archive: prepare")
		return
	}
	defer stmt.Close()

	for _, evt := range events {
		data := sql.NullString{String: evt.Data, Valid: evt.Data != ""}
		if _, err := stmt.Exec(evt.MatchID, evt.Tick, evt.Kind, evt.ShipID, data); err != nil {
			a.log.Warn().Err(err).Str("match", evt.MatchID).Msg("archive: insert")
		}
	}
	if err := tx.Commit(); err != nil {
		a.log.Error().Err(err).Msg("archive: commit")
	}
}

// Events returns the archived events of a match in tick order, optionally
// filtered by kind
func (db *DB) Events(matchID, kind string) ([]EventRow, error) {
	query := "SELECT match_id, tick, kind, ship_id, COALESCE(data, '') FROM events WHERE match_id = ?"
	args := []any{matchID}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY tick, id"

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []EventRow
	for rows.Next() {
		var e EventRow
		if err := rows.Scan(&e.MatchID, &e.Tick, &e.Kind, &e.ShipID, &e.Data); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
