// Package userconfig persists per-user configuration (the system prompt
// override) in SQLite, one record per user id with last-writer-wins
// semantics.
package userconfig

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

type UserConfig struct {
	UserID            string
	SystemRoleContent string
}

// String renders the record the way the `list user_config` command shows it.
func (c UserConfig) String() string {
	return fmt.Sprintf("USER_ID: %s\nSYSTEM_ROLE_CONTENT: %s", c.UserID, c.SystemRoleContent)
}

type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS user_config (
	user_id TEXT PRIMARY KEY,
	system_role_content TEXT NOT NULL
);
`

// Open opens (creating if needed) the store at cfg.DSN.
func Open(cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("userconfig: dsn is required")
	}
	db, err := sql.Open("sqlite3", cfg.connString())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("userconfig: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the record for userID, or nil when none exists.
func (s *Store) Get(ctx context.Context, userID string) (*UserConfig, error) {
	if userID == "" {
		return nil, fmt.Errorf("userconfig: user_id is required")
	}
	var cfg UserConfig
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, system_role_content FROM user_config WHERE user_id = ?`, userID,
	).Scan(&cfg.UserID, &cfg.SystemRoleContent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Put inserts or fully replaces the record for cfg.UserID.
func (s *Store) Put(ctx context.Context, cfg UserConfig) error {
	if cfg.UserID == "" {
		return fmt.Errorf("userconfig: user_id is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_config (user_id, system_role_content) VALUES (?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET system_role_content = excluded.system_role_content`,
		cfg.UserID, cfg.SystemRoleContent,
	)
	return err
}
