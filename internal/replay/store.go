// Package replay archives simulation events to SQLite so a run can be
// inspected after the fact. The rolling in-memory event log samples;
// this store keeps what made it through the limiters.
package replay

import (
	"database/sql"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"horde-sim/internal/game"
)

// Store wraps the SQLite connection for one archive file. A Store
// records exactly one run between Open and Close.
type Store struct {
	conn  *sql.DB
	runID int64

	insertEvent *sql.Stmt

	mu       sync.Mutex
	lastTick uint64
	written  int64
}

// RunRow represents one recorded simulation run.
type RunRow struct {
	ID        int64
	StartedAt time.Time
	EndedAt   sql.NullTime
	Ticks     int64
	Events    int64
}

// EventRow represents one archived event.
type EventRow struct {
	ID      int64
	RunID   int64
	Seq     uint64
	Tick    uint64
	Type    string
	Source  uint32
	Payload []byte
}

// Open opens (or creates) the archive and starts a new run row.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// WAL lets the writer goroutine insert while inspection queries
	// run from another connection.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, err
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	if err := s.beginRun(); err != nil {
		conn.Close()
		return nil, err
	}

	s.insertEvent, err = conn.Prepare(
		`INSERT INTO events (run_id, seq, tick, type, source, payload) VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close finalizes the run row and closes the connection.
func (s *Store) Close() error {
	s.mu.Lock()
	lastTick := s.lastTick
	written := s.written
	s.mu.Unlock()

	if _, err := s.conn.Exec(
		"UPDATE runs SET ended_at = CURRENT_TIMESTAMP, ticks = ?, events = ? WHERE id = ?",
		lastTick, written, s.runID,
	); err != nil {
		log.Printf("⚠️ Replay run finalize error: %v", err)
	}

	if s.insertEvent != nil {
		s.insertEvent.Close()
	}
	return s.conn.Close()
}

// RunID returns the id of the run this store is recording.
func (s *Store) RunID() int64 {
	return s.runID
}

// migrate creates tables if they don't exist
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		ended_at DATETIME,
		ticks INTEGER NOT NULL DEFAULT 0,
		events INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		seq INTEGER NOT NULL,
		tick INTEGER NOT NULL,
		type TEXT NOT NULL,
		source INTEGER NOT NULL DEFAULT 0,
		payload BLOB
	);

	CREATE INDEX IF NOT EXISTS idx_events_run_tick ON events(run_id, tick);
	CREATE INDEX IF NOT EXISTS idx_events_run_type ON events(run_id, type);
	`
	_, err := s.conn.Exec(schema)
	if err != nil {
		log.Printf("Replay migration error: %v", err)
	}
	return err
}

func (s *Store) beginRun() error {
	res, err := s.conn.Exec("INSERT INTO runs DEFAULT VALUES")
	if err != nil {
		return err
	}
	s.runID, err = res.LastInsertId()
	return err
}

// Consume archives one event. It is the event log's sink, so it runs
// on the writer goroutine; insert failures are logged and dropped
// rather than fed back to the simulation.
func (s *Store) Consume(ev game.Event) {
	_, err := s.insertEvent.Exec(
		s.runID, ev.Sequence, ev.Tick, ev.Type.String(), ev.Source, ev.Payload,
	)
	if err != nil {
		log.Printf("⚠️ Replay insert error: %v", err)
		return
	}

	s.mu.Lock()
	if ev.Tick > s.lastTick {
		s.lastTick = ev.Tick
	}
	s.written++
	s.mu.Unlock()
}

// EventsWritten returns how many events made it into the archive.
func (s *Store) EventsWritten() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// GetRun returns one run row, or nil when the id is unknown.
func (s *Store) GetRun(runID int64) (*RunRow, error) {
	row := s.conn.QueryRow(
		"SELECT id, started_at, ended_at, ticks, events FROM runs WHERE id = ?",
		runID,
	)
	r := &RunRow{}
	err := row.Scan(&r.ID, &r.StartedAt, &r.EndedAt, &r.Ticks, &r.Events)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// CountByType returns how many events of each type a run recorded.
func (s *Store) CountByType(runID int64) (map[string]int64, error) {
	rows, err := s.conn.Query(
		"SELECT type, COUNT(*) FROM events WHERE run_id = ? GROUP BY type",
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var typ string
		var count int64
		if err := rows.Scan(&typ, &count); err != nil {
			return nil, err
		}
		result[typ] = count
	}
	return result, rows.Err()
}

// EventsForTickRange returns archived events inside [fromTick, toTick],
// in sequence order.
func (s *Store) EventsForTickRange(runID int64, fromTick, toTick uint64) ([]EventRow, error) {
	rows, err := s.conn.Query(`
		SELECT id, run_id, seq, tick, type, source, payload
		FROM events
		WHERE run_id = ? AND tick BETWEEN ? AND ?
		ORDER BY seq`,
		runID, fromTick, toTick,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []EventRow
	for rows.Next() {
		var e EventRow
		if err := rows.Scan(&e.ID, &e.RunID, &e.Seq, &e.Tick, &e.Type, &e.Source, &e.Payload); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// RecentRuns returns the newest runs, newest first.
func (s *Store) RecentRuns(limit int) ([]RunRow, error) {
	rows, err := s.conn.Query(
		"SELECT id, started_at, ended_at, ticks, events FROM runs ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.EndedAt, &r.Ticks, &r.Events); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
