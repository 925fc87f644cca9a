package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const createLocalStorageTable = `
CREATE TABLE IF NOT EXISTS local_storage (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// SQLitePersister keeps entries in a local_storage key/value table.
type SQLitePersister struct {
	db *sql.DB
}

// OpenSQLitePersister opens (or creates) the database at path.
func OpenSQLitePersister(path string) (*SQLitePersister, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(createLocalStorageTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create local_storage table: %w", err)
	}
	return &SQLitePersister{db: db}, nil
}

func (p *SQLitePersister) Load(ctx context.Context) (Credential, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT key, value FROM local_storage WHERE key IN (?, ?)`, KeyToken, KeyUsername)
	if err != nil {
		return Credential{}, fmt.Errorf("query local_storage: %w", err)
	}
	defer rows.Close()

	var cred Credential
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return Credential{}, fmt.Errorf("scan local_storage: %w", err)
		}
		switch key {
		case KeyToken:
			cred.Token = value
		case KeyUsername:
			cred.Username = value
		}
	}
	if err := rows.Err(); err != nil {
		return Credential{}, fmt.Errorf("iterate local_storage: %w", err)
	}
	return cred, nil
}

func (p *SQLitePersister) Save(ctx context.Context, cred Credential) error {
	return p.inTx(ctx, func(tx *sql.Tx) error {
		const upsert = `INSERT INTO local_storage (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`
		if _, err := tx.ExecContext(ctx, upsert, KeyToken, cred.Token); err != nil {
			return fmt.Errorf("save token: %w", err)
		}
		if _, err := tx.ExecContext(ctx, upsert, KeyUsername, cred.Username); err != nil {
			return fmt.Errorf("save username: %w", err)
		}
		return nil
	})
}

func (p *SQLitePersister) Delete(ctx context.Context) error {
	return p.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM local_storage WHERE key IN (?, ?)`, KeyToken, KeyUsername); err != nil {
			return fmt.Errorf("delete entries: %w", err)
		}
		return nil
	})
}

// Close closes the database handle.
func (p *SQLitePersister) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

func (p *SQLitePersister) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
