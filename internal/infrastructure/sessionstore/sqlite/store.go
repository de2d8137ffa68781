// Package sqlite provides a SQLite implementation of the SessionStore interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/pvandijk/housekeeper/internal/domain/entities"
	"github.com/pvandijk/housekeeper/internal/infrastructure/config"
)

// Store implements ports.SessionStore using SQLite. Plans, batches and
// rollback results are stored as JSON documents; only the columns used for
// lookup are broken out.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite session store.
func NewStore(cfg config.SQLiteConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// Enable foreign keys for referential integrity
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	// Enable WAL mode for better concurrent read/write performance
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Set busy timeout to avoid "database is locked" errors
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return &Store{
		db:   db,
		path: cfg.Path,
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// EnsureSchema creates the database schema if it doesn't exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	schema := `
	-- Reconciliation plans, one JSON document per run
	CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		data TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_plans_created ON plans(created_at);

	-- Applied batches, kept so rollback works across restarts
	CREATE TABLE IF NOT EXISTS batches (
		id TEXT PRIMARY KEY,
		plan_id TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		data TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_batches_plan ON batches(plan_id);
	CREATE INDEX IF NOT EXISTS idx_batches_started ON batches(started_at);

	-- Rollback results, at most one per batch
	CREATE TABLE IF NOT EXISTS rollbacks (
		batch_id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		data TEXT NOT NULL
	);

	-- Ignored action fingerprints
	CREATE TABLE IF NOT EXISTS ignored (
		fingerprint TEXT PRIMARY KEY,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// SavePlan stores a plan, replacing any previous document with the same id.
func (s *Store) SavePlan(ctx context.Context, plan *entities.Plan) error {
	data, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshaling plan: %w", err)
	}
	query := `
		INSERT INTO plans (id, created_at, data)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data
	`
	if _, err := s.db.ExecContext(ctx, query, plan.ID, plan.CreatedAt, string(data)); err != nil {
		return fmt.Errorf("saving plan: %w", err)
	}
	return nil
}

// FindPlan returns a plan by id.
func (s *Store) FindPlan(ctx context.Context, id string) (*entities.Plan, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM plans WHERE id = ?`, id)
	return scanPlan(row)
}

// FindLatestPlan returns the most recently created plan.
func (s *Store) FindLatestPlan(ctx context.Context) (*entities.Plan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT data FROM plans
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`)
	return scanPlan(row)
}

func scanPlan(row *sql.Row) (*entities.Plan, error) {
	var data string
	err := row.Scan(&data)
	if err == sql.ErrNoRows {
		return nil, entities.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning plan: %w", err)
	}
	var plan entities.Plan
	if err := json.Unmarshal([]byte(data), &plan); err != nil {
		return nil, fmt.Errorf("unmarshaling plan: %w", err)
	}
	return &plan, nil
}

// SaveBatch stores an applied batch.
func (s *Store) SaveBatch(ctx context.Context, batch *entities.AppliedBatch) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshaling batch: %w", err)
	}
	query := `
		INSERT INTO batches (id, plan_id, started_at, data)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data
	`
	if _, err := s.db.ExecContext(ctx, query, batch.ID, batch.PlanID, batch.StartedAt, string(data)); err != nil {
		return fmt.Errorf("saving batch: %w", err)
	}
	return nil
}

// FindBatch returns a batch by id.
func (s *Store) FindBatch(ctx context.Context, id string) (*entities.AppliedBatch, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM batches WHERE id = ?`, id)
	return scanBatch(row)
}

// FindLatestBatch returns the most recently started batch.
func (s *Store) FindLatestBatch(ctx context.Context) (*entities.AppliedBatch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT data FROM batches
		ORDER BY started_at DESC, rowid DESC
		LIMIT 1
	`)
	return scanBatch(row)
}

func scanBatch(row *sql.Row) (*entities.AppliedBatch, error) {
	var data string
	err := row.Scan(&data)
	if err == sql.ErrNoRows {
		return nil, entities.ErrBatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning batch: %w", err)
	}
	var batch entities.AppliedBatch
	if err := json.Unmarshal([]byte(data), &batch); err != nil {
		return nil, fmt.Errorf("unmarshaling batch: %w", err)
	}
	return &batch, nil
}

// ListBatches returns batches newest first; limit <= 0 means no limit.
func (s *Store) ListBatches(ctx context.Context, limit int) ([]entities.AppliedBatch, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM batches
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying batches: %w", err)
	}
	defer rows.Close()

	var batches []entities.AppliedBatch
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning batch: %w", err)
		}
		var batch entities.AppliedBatch
		if err := json.Unmarshal([]byte(data), &batch); err != nil {
			return nil, fmt.Errorf("unmarshaling batch: %w", err)
		}
		batches = append(batches, batch)
	}
	return batches, rows.Err()
}

// SaveRollback stores a rollback result for its batch.
func (s *Store) SaveRollback(ctx context.Context, result *entities.RollbackResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling rollback result: %w", err)
	}
	query := `
		INSERT INTO rollbacks (batch_id, started_at, data)
		VALUES (?, ?, ?)
		ON CONFLICT(batch_id) DO UPDATE SET data = excluded.data
	`
	if _, err := s.db.ExecContext(ctx, query, result.BatchID, result.StartedAt, string(data)); err != nil {
		return fmt.Errorf("saving rollback result: %w", err)
	}
	return nil
}

// FindRollback returns the rollback result for a batch, or nil if the batch
// was never rolled back.
func (s *Store) FindRollback(ctx context.Context, batchID string) (*entities.RollbackResult, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM rollbacks WHERE batch_id = ?`, batchID)
	var data string
	err := row.Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning rollback result: %w", err)
	}
	var result entities.RollbackResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, fmt.Errorf("unmarshaling rollback result: %w", err)
	}
	return &result, nil
}

// ListIgnored returns all ignored fingerprints, sorted.
func (s *Store) ListIgnored(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT fingerprint FROM ignored ORDER BY fingerprint ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying ignore list: %w", err)
	}
	defer rows.Close()

	var fingerprints []string
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("scanning fingerprint: %w", err)
		}
		fingerprints = append(fingerprints, fp)
	}
	return fingerprints, rows.Err()
}

// AddIgnored records fingerprints; duplicates are kept once.
func (s *Store) AddIgnored(ctx context.Context, fingerprints []string) error {
	for _, fp := range fingerprints {
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO ignored (fingerprint) VALUES (?)`, fp); err != nil {
			return fmt.Errorf("adding fingerprint: %w", err)
		}
	}
	return nil
}

// RemoveIgnored drops fingerprints from the ignore list.
func (s *Store) RemoveIgnored(ctx context.Context, fingerprints []string) error {
	for _, fp := range fingerprints {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM ignored WHERE fingerprint = ?`, fp); err != nil {
			return fmt.Errorf("removing fingerprint: %w", err)
		}
	}
	return nil
}

// ClearIgnored empties the ignore list.
func (s *Store) ClearIgnored(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM ignored`); err != nil {
		return fmt.Errorf("clearing ignore list: %w", err)
	}
	return nil
}
