package breaker

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists breaker snapshots to sqlite so the admin CLI can inspect a
// live process's breakers from outside. Writes are best-effort; the call
// path never depends on them.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the snapshot database at dir/breakers.db.
func OpenStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	dbPath := filepath.Join(dir, "breakers.db")
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open breaker store: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS circuit_breakers (
			capability TEXT PRIMARY KEY,
			state INTEGER NOT NULL DEFAULT 0,
			failures INTEGER NOT NULL DEFAULT 0,
			successes INTEGER NOT NULL DEFAULT 0,
			last_failure TIMESTAMP,
			last_success TIMESTAMP,
			window_start TIMESTAMP,
			opened_at TIMESTAMP,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	return err
}

// Save upserts one breaker snapshot.
func (s *Store) Save(snap Snapshot) error {
	_, err := s.db.Exec(`
		INSERT INTO circuit_breakers
			(capability, state, failures, successes, last_failure, last_success, window_start, opened_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (capability) DO UPDATE SET
			state = excluded.state,
			failures = excluded.failures,
			successes = excluded.successes,
			last_failure = excluded.last_failure,
			last_success = excluded.last_success,
			window_start = excluded.window_start,
			opened_at = excluded.opened_at,
			updated_at = excluded.updated_at
	`,
		snap.Capability, int(snap.State), snap.Failures, snap.Successes,
		nullableTime(snap.LastFailure), nullableTime(snap.LastSuccess),
		snap.WindowStart, nullableTime(snap.OpenedAt), time.Now(),
	)
	return err
}

// LoadAll reads every persisted snapshot, capability-keyed.
func (s *Store) LoadAll() (map[string]Snapshot, error) {
	rows, err := s.db.Query(`
		SELECT capability, state, failures, successes, last_failure, last_success, window_start, opened_at
		FROM circuit_breakers
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := make(map[string]Snapshot)
	for rows.Next() {
		var snap Snapshot
		var state int
		var lastFailure, lastSuccess, windowStart, openedAt sql.NullTime
		if err := rows.Scan(&snap.Capability, &state, &snap.Failures, &snap.Successes,
			&lastFailure, &lastSuccess, &windowStart, &openedAt); err != nil {
			return nil, err
		}
		snap.State = State(state)
		snap.LastFailure = lastFailure.Time
		snap.LastSuccess = lastSuccess.Time
		snap.WindowStart = windowStart.Time
		snap.OpenedAt = openedAt.Time
		snapshots[snap.Capability] = snap
	}
	return snapshots, rows.Err()
}

// Delete removes one capability's snapshot.
func (s *Store) Delete(capability string) error {
	_, err := s.db.Exec(`DELETE FROM circuit_breakers WHERE capability = ?`, capability)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
