// Package runlog persists per-step training losses into a SQLite database so
// runs can be inspected after the fact. Divergence analysis stays a human
// task: the log records, it never reacts.
package runlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// StepRecord One recorded training step.
type StepRecord struct {
	Step              int
	DiscriminatorLoss float64
	GeneratorLoss     float64
}

// Store SQLite-backed run log.
type Store struct {
	path string

	mu sync.Mutex
	db *sql.DB
}

// NewStore Constructor for Store. Call Init before use.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Init Opens the database and creates tables when missing.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("runlog: sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}
	s.db = db
	return nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id         TEXT PRIMARY KEY,
			started_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS steps (
			run_id             TEXT NOT NULL,
			step               INTEGER NOT NULL,
			discriminator_loss REAL NOT NULL,
			generator_loss     REAL NOT NULL,
			PRIMARY KEY (run_id, step),
			FOREIGN KEY (run_id) REFERENCES runs(id)
		);
	`)
	return err
}

func (s *Store) getDB() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, errors.New("runlog: store is not initialized")
	}
	return s.db, nil
}

// StartRun Registers a run identifier.
func (s *Store) StartRun(ctx context.Context, runID string) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET started_at = excluded.started_at
	`, runID, time.Now().Unix())
	return err
}

// LogStep Upserts one step's losses for a run.
func (s *Store) LogStep(ctx context.Context, runID string, rec StepRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO steps (run_id, step, discriminator_loss, generator_loss)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, step) DO UPDATE SET
			discriminator_loss = excluded.discriminator_loss,
			generator_loss = excluded.generator_loss
	`, runID, rec.Step, rec.DiscriminatorLoss, rec.GeneratorLoss)
	return err
}

// Steps Returns all recorded steps of a run in step order.
func (s *Store) Steps(ctx context.Context, runID string) ([]StepRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT step, discriminator_loss, generator_loss
		FROM steps WHERE run_id = ? ORDER BY step
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []StepRecord
	for rows.Next() {
		var rec StepRecord
		if err := rows.Scan(&rec.Step, &rec.DiscriminatorLoss, &rec.GeneratorLoss); err != nil {
			return nil, fmt.Errorf("runlog: scan step of run %s: %w", runID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close Closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
