package registry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS entities (
	entity_id       TEXT PRIMARY KEY,
	unique_id       TEXT NOT NULL,
	platform        TEXT NOT NULL,
	domain          TEXT NOT NULL,
	config_entry_id TEXT NOT NULL DEFAULT '',
	original_name   TEXT NOT NULL DEFAULT '',
	created_at      INTEGER NOT NULL,
	UNIQUE (domain, platform, unique_id)
);
CREATE INDEX IF NOT EXISTS idx_entities_config_entry ON entities (config_entry_id);
`

// SQLiteRepository stores registry entries in a SQLite database
type SQLiteRepository struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the registry database at path
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create registry directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between pooled connections
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to registry database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate registry database: %w", err)
	}
	return &SQLiteRepository{db: db, path: path}, nil
}

// Path returns the database file path
func (s *SQLiteRepository) Path() string { return s.path }

// Close closes the database
func (s *SQLiteRepository) Close() error { return s.db.Close() }

func (s *SQLiteRepository) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT entity_id, unique_id, platform, domain, config_entry_id, original_name, created_at FROM entities ORDER BY entity_id`)
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.EntityID, &e.UniqueID, &e.Platform, &e.Domain, &e.ConfigEntryID, &e.OriginalName, &created); err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		e.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteRepository) Save(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO entities (entity_id, unique_id, platform, domain, config_entry_id, original_name, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (entity_id) DO UPDATE SET
	unique_id = excluded.unique_id,
	platform = excluded.platform,
	domain = excluded.domain,
	config_entry_id = excluded.config_entry_id,
	original_name = excluded.original_name`,
		e.EntityID, e.UniqueID, e.Platform, e.Domain, e.ConfigEntryID, e.OriginalName, e.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("saving entity %s: %w", e.EntityID, err)
	}
	return nil
}

func (s *SQLiteRepository) Delete(ctx context.Context, entityIDs ...string) error {
	return s.tx(ctx, func(tx *sql.Tx) error {
		for _, id := range entityIDs {
			if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE entity_id = ?`, id); err != nil {
				return fmt.Errorf("deleting entity %s: %w", id, err)
			}
		}
		return nil
	})
}

// tx runs fn in a transaction, rolling back when it fails
func (s *SQLiteRepository) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
