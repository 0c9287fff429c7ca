package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/kgview/pkg/model"
)

// Schema is the mastery table layout. updated_at is optional for readers.
const Schema = `
CREATE TABLE IF NOT EXISTS mastery (
	node_id    TEXT PRIMARY KEY,
	score      REAL NOT NULL,
	updated_at TEXT
)`

// SQLiteStore reads and writes a mastery table
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLiteReader opens a mastery database for reading
func OpenSQLiteReader(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot open database %s: %w", path, err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// OpenSQLiteStore opens (creating if needed) a writable mastery database and
// ensures the table exists.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating mastery table: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// LoadMastery reads every score. Rows with NULL or non-finite scores are
// skipped.
func (s *SQLiteStore) LoadMastery(ctx context.Context) (model.Mastery, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT node_id, score FROM mastery`)
	if err != nil {
		return nil, fmt.Errorf("querying mastery: %w", err)
	}
	defer rows.Close()

	m := make(model.Mastery)
	for rows.Next() {
		var id string
		var score sql.NullFloat64
		if err := rows.Scan(&id, &score); err != nil {
			continue
		}
		if !score.Valid || math.IsNaN(score.Float64) || math.IsInf(score.Float64, 0) {
			continue
		}
		m[id] = score.Float64
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mastery: %w", err)
	}
	return m, nil
}

// SaveScores upserts scores in one transaction.
func (s *SQLiteStore) SaveScores(ctx context.Context, scores model.Mastery) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO mastery (node_id, score, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(node_id) DO UPDATE SET score = excluded.score, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for id, v := range scores {
		if _, err := stmt.ExecContext(ctx, id, v, now); err != nil {
			return fmt.Errorf("saving score for %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// CountScores returns the number of rows in the mastery table
func (s *SQLiteStore) CountScores(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM mastery`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// GetLastModified returns the most recent updated_at, zero when unknown.
func (s *SQLiteStore) GetLastModified(ctx context.Context) (time.Time, error) {
	var updatedAt sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(updated_at) FROM mastery`).Scan(&updatedAt); err != nil {
		return time.Time{}, err
	}
	if !updatedAt.Valid || updatedAt.String == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, updatedAt.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing updated_at %q: %w", updatedAt.String, err)
	}
	return t, nil
}
