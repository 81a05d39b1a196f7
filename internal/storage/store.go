package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps SQLite-backed persistence for the ABI fetch cache and run history.
type Store struct {
	db *sql.DB
}

// Open initializes a SQLite database and runs minimal schema setup.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := configure(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("store not initialized")
	}
	return s.db.PingContext(ctx)
}

func configure(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pragmas := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("set pragma %q: %w", p, err)
		}
	}
	return nil
}

func migrate(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	schema := `
CREATE TABLE IF NOT EXISTS abis (
  network     TEXT NOT NULL,
  address     TEXT NOT NULL,
  abi_json    TEXT NOT NULL,
  fetched_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
  PRIMARY KEY(network, address)
);

CREATE TABLE IF NOT EXISTS runs (
  id           INTEGER PRIMARY KEY AUTOINCREMENT,
  network      TEXT NOT NULL,
  address      TEXT NOT NULL,
  strategy     TEXT NOT NULL,
  modules      INTEGER NOT NULL,
  events_added INTEGER NOT NULL,
  created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// PutABI stores or refreshes a fetched ABI document for (network, address).
func (s *Store) PutABI(ctx context.Context, network, address, abiJSON string) error {
	if network == "" || address == "" {
		return errors.New("network and address required")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO abis (network, address, abi_json, fetched_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(network, address) DO UPDATE SET
  abi_json=excluded.abi_json,
  fetched_at=CURRENT_TIMESTAMP;
`, network, address, abiJSON)
	if err != nil {
		return fmt.Errorf("put abi: %w", err)
	}
	return nil
}

// GetABI retrieves a cached ABI document, if any.
func (s *Store) GetABI(ctx context.Context, network, address string) (abiJSON string, fetchedAt time.Time, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `
SELECT abi_json, fetched_at FROM abis WHERE network = ? AND address = ?;
`, network, address)
	switch err = row.Scan(&abiJSON, &fetchedAt); err {
	case nil:
		return abiJSON, fetchedAt, true, nil
	case sql.ErrNoRows:
		return "", time.Time{}, false, nil
	default:
		return "", time.Time{}, false, fmt.Errorf("get abi: %w", err)
	}
}

// CachedABI is one entry of the fetch cache.
type CachedABI struct {
	Network   string
	Address   string
	FetchedAt time.Time
}

// ListABIs returns cache entries ordered by fetch time, newest first.
func (s *Store) ListABIs(ctx context.Context) ([]CachedABI, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT network, address, fetched_at FROM abis ORDER BY fetched_at DESC;
`)
	if err != nil {
		return nil, fmt.Errorf("list abis: %w", err)
	}
	defer rows.Close()

	var out []CachedABI
	for rows.Next() {
		var e CachedABI
		if err := rows.Scan(&e.Network, &e.Address, &e.FetchedAt); err != nil {
			return nil, fmt.Errorf("scan abi row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PruneABIs deletes cache entries fetched before the cutoff and reports how
// many were removed.
func (s *Store) PruneABIs(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM abis WHERE fetched_at < ?;`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune abis: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune abis: %w", err)
	}
	return n, nil
}

// Run records the outcome of one discovery run.
type Run struct {
	Network     string
	Address     string
	Strategy    string
	Modules     int
	EventsAdded int
}

// InsertRun appends a run-history row.
func (s *Store) InsertRun(ctx context.Context, r Run) error {
	if r.Network == "" || r.Address == "" {
		return errors.New("network and address required")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO runs (network, address, strategy, modules, events_added)
VALUES (?, ?, ?, ?, ?);
`, r.Network, r.Address, r.Strategy, r.Modules, r.EventsAdded)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}
