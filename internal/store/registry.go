// Package store persists the set of chats the bot belongs to, kept in
// sync from bot-added and bot-removed events.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Chat is one registry row.
type Chat struct {
	ChatID    string
	Name      string
	Active    bool
	AddedAt   time.Time
	UpdatedAt time.Time
}

// ChatRegistry manages chat membership persistence using SQLite.
type ChatRegistry struct {
	db *sql.DB
}

// Open opens or creates the registry database at dbPath.
func Open(dbPath string) (*ChatRegistry, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS chats (
			chat_id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			active INTEGER NOT NULL DEFAULT 1,
			added_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &ChatRegistry{db: db}, nil
}

// Close closes the database connection.
func (r *ChatRegistry) Close() error {
	return r.db.Close()
}

// MarkAdded records the bot joining a chat. Re-adding a known chat
// reactivates it and refreshes its name.
func (r *ChatRegistry) MarkAdded(chatID, name string) error {
	now := time.Now().Unix()
	_, err := r.db.Exec(`
		INSERT INTO chats (chat_id, name, active, added_at, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			name = excluded.name,
			active = 1,
			updated_at = excluded.updated_at
	`, chatID, name, now, now)
	if err != nil {
		return fmt.Errorf("failed to mark chat added: %w", err)
	}
	return nil
}

// MarkRemoved flags a chat inactive. Unknown chats are a no-op.
func (r *ChatRegistry) MarkRemoved(chatID string) error {
	_, err := r.db.Exec(`
		UPDATE chats SET active = 0, updated_at = ? WHERE chat_id = ?
	`, time.Now().Unix(), chatID)
	if err != nil {
		return fmt.Errorf("failed to mark chat removed: %w", err)
	}
	return nil
}

// Active returns chats the bot is currently a member of, oldest first.
func (r *ChatRegistry) Active() ([]*Chat, error) {
	rows, err := r.db.Query(`
		SELECT chat_id, name, active, added_at, updated_at
		FROM chats WHERE active = 1 ORDER BY added_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()
	return scanChats(rows)
}

// All returns every registry row, active or not, oldest first.
func (r *ChatRegistry) All() ([]*Chat, error) {
	rows, err := r.db.Query(`
		SELECT chat_id, name, active, added_at, updated_at
		FROM chats ORDER BY added_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()
	return scanChats(rows)
}

func scanChats(rows *sql.Rows) ([]*Chat, error) {
	var chats []*Chat
	for rows.Next() {
		var c Chat
		var active int
		var addedAt, updatedAt int64
		if err := rows.Scan(&c.ChatID, &c.Name, &active, &addedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat: %w", err)
		}
		c.Active = active != 0
		c.AddedAt = time.Unix(addedAt, 0)
		c.UpdatedAt = time.Unix(updatedAt, 0)
		chats = append(chats, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chats: %w", err)
	}
	return chats, nil
}
