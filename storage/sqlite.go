package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteBackend implements Backend using a SQLite database.
// Each Save replaces the whole table in one transaction, so the database
// holds exactly the collection last written, in order.
//
// The database is prepared on first use, so an unreadable or foreign file
// surfaces from Load and the store's load policy decides what happens.
type SQLiteBackend struct {
	path  string
	db    *sql.DB
	mu    sync.Mutex
	ready bool
}

// NewSQLiteBackend returns a backend for the database at path.
// Use ":memory:" for a throwaway database.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive between calls
	db.SetMaxOpenConns(1)

	return &SQLiteBackend{path: path, db: db}, nil
}

// prepare creates the parent directory, enables WAL and ensures the schema.
// It is retried on every call until it succeeds once.
func (b *SQLiteBackend) prepare() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.ready {
		return nil
	}

	if b.path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(b.path), 0755); err != nil {
			return fmt.Errorf("creating database directory: %w", err)
		}
	}

	if _, err := b.db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("enabling WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS tasks (
			position INTEGER NOT NULL,
			id INTEGER NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			completed INTEGER NOT NULL DEFAULT 0
		);`
	if _, err := b.db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	b.ready = true
	return nil
}

// Load reads the collection in stored order
func (b *SQLiteBackend) Load() ([]Task, error) {
	if err := b.prepare(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptData, b.path, err)
	}

	rows, err := b.db.Query(`SELECT id, title, description, completed FROM tasks ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying tasks: %v", ErrCorruptData, err)
	}
	defer rows.Close()

	tasks := []Task{}
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Completed); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

// Save replaces the stored collection
func (b *SQLiteBackend) Save(tasks []Task) error {
	if err := b.prepare(); err != nil {
		return err
	}

	tx, err := b.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tasks`); err != nil {
		return fmt.Errorf("clearing tasks: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO tasks (position, id, title, description, completed) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range tasks {
		if _, err := stmt.Exec(i, t.ID, t.Title, t.Description, t.Completed); err != nil {
			return fmt.Errorf("inserting task %d: %w", t.ID, err)
		}
	}

	return tx.Commit()
}

// Close closes the database
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

func (b *SQLiteBackend) String() string {
	return "sqlite:" + b.path
}
