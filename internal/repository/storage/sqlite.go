package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// registers the pure Go "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

type SQLiteStorage struct {
	Connection *sql.DB
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("can't create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("can't open database: %w", err)
	}

	if err = conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("can't connect to database: %w", err)
	}

	return &SQLiteStorage{Connection: conn}, nil
}

func (that *SQLiteStorage) Init(ctx context.Context) error {
	query := `CREATE TABLE IF NOT EXISTS game_results (
		id TEXT PRIMARY KEY,
		size INTEGER NOT NULL,
		time_control INTEGER NOT NULL,
		with_ai BOOLEAN NOT NULL,
		player1 TEXT NOT NULL,
		player2 TEXT NOT NULL,
		winner TEXT NOT NULL,
		winner_seat INTEGER NOT NULL,
		reason TEXT NOT NULL,
		moves TEXT NOT NULL,
		ended_at TEXT NOT NULL
	)`

	if _, err := that.Connection.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("can't create table: %w", err)
	}

	return nil
}

func (that *SQLiteStorage) Close() error {
	if err := that.Connection.Close(); err != nil {
		return fmt.Errorf("can't close database: %w", err)
	}

	return nil
}
