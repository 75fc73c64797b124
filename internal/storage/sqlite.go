package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"outagebot/internal/transport"
	logx "outagebot/pkg/logx"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS message_state (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	chat_id    INTEGER NOT NULL,
	message_id INTEGER NOT NULL,
	date       INTEGER NOT NULL,
	saved_at   TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);`

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (MessageStore, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")

	if _, err := db.ExecContext(context.Background(), sqliteSchema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &sqliteStore{db: db, log: log}, nil
}

func (s *sqliteStore) Load(ctx context.Context) (transport.MessageRef, bool, error) {
	var ref transport.MessageRef
	err := s.db.QueryRowContext(ctx,
		`SELECT chat_id, message_id, date FROM message_state WHERE id = 1`,
	).Scan(&ref.ChatID, &ref.MessageID, &ref.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return transport.MessageRef{}, false, nil
	}
	if err != nil {
		return transport.MessageRef{}, false, err
	}
	return ref, true, nil
}

func (s *sqliteStore) Save(ctx context.Context, ref transport.MessageRef) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO message_state(id, chat_id, message_id, date) VALUES(1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET chat_id=excluded.chat_id, message_id=excluded.message_id,
		 date=excluded.date, saved_at=strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		ref.ChatID, ref.MessageID, ref.Date,
	)
	return err
}

func (s *sqliteStore) Delete(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM message_state WHERE id = 1`)
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
