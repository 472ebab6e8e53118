// Package outbox is the client-side durable action queue: actions taken
// while offline are appended locally and replayed to the server in one
// all-or-nothing batch once connectivity returns.
package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Action is one queued record. IDs are assigned by the local store in
// enqueue order.
type Action struct {
	ID        int64     `json:"id"`
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the durable sqlite-backed queue storage. It survives process
// restarts.
type Store struct {
	db *sql.DB
}

// OpenStore opens or creates the queue database at the given path.
func OpenStore(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS actions (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		payload    BLOB NOT NULL,
		created_at TEXT NOT NULL
	);`
	_, err := s.db.Exec(schema)
	return err
}

// Enqueue appends one action durably and returns its id. It never touches
// the network.
func (s *Store) Enqueue(ctx context.Context, payload []byte) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO actions (payload, created_at) VALUES (?, ?)`,
		payload, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("enqueue action: %w", err)
	}
	return res.LastInsertId()
}

// All returns every pending action in enqueue order.
func (s *Store) All(ctx context.Context) ([]Action, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, payload, created_at FROM actions ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	var actions []Action
	for rows.Next() {
		var (
			a  Action
			ts string
		)
		if err := rows.Scan(&a.ID, &a.Payload, &ts); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		if parsed, perr := time.Parse(time.RFC3339Nano, ts); perr == nil {
			a.CreatedAt = parsed
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// Clear deletes every action with id <= upTo in one transaction. Actions
// enqueued after the flush snapshot stay put.
func (s *Store) Clear(ctx context.Context, upTo int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM actions WHERE id <= ?`, upTo)
	if err != nil {
		return fmt.Errorf("clear actions: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
