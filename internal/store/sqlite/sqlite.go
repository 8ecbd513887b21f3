package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pairpad/pairpad-server/internal/store"
)

const schema = `
CREATE TABLE IF NOT EXISTS rooms (
	room_id    TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS participants (
	conn_id   TEXT PRIMARY KEY,
	room_id   TEXT NOT NULL,
	username  TEXT NOT NULL,
	joined_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (room_id) REFERENCES rooms(room_id)
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id    TEXT NOT NULL,
	username   TEXT NOT NULL,
	recipient  TEXT NOT NULL DEFAULT 'everyone',
	body       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (room_id) REFERENCES rooms(room_id)
);

CREATE INDEX IF NOT EXISTS idx_participants_room ON participants(room_id);
CREATE INDEX IF NOT EXISTS idx_chat_room ON chat_messages(room_id, created_at);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== RoomStore implementation ====

// EnsureRoom creates the room row if it does not exist and bumps updated_at.
func (s *SQLiteStore) EnsureRoom(ctx context.Context, roomID string) (*store.Room, error) {
	query := `
		INSERT INTO rooms (room_id) VALUES (?)
		ON CONFLICT(room_id) DO UPDATE SET updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, query, roomID); err != nil {
		return nil, fmt.Errorf("upsert room: %w", err)
	}

	var room store.Room
	err := s.db.QueryRowContext(ctx,
		`SELECT room_id, created_at, updated_at FROM rooms WHERE room_id = ?`, roomID,
	).Scan(&room.ID, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("query room: %w", err)
	}

	return &room, nil
}

// DeleteRoom removes the room, its participants, and its chat history.
func (s *SQLiteStore) DeleteRoom(ctx context.Context, roomID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, query := range []string{
		`DELETE FROM chat_messages WHERE room_id = ?`,
		`DELETE FROM participants WHERE room_id = ?`,
		`DELETE FROM rooms WHERE room_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, query, roomID); err != nil {
			return fmt.Errorf("delete room: %w", err)
		}
	}

	return tx.Commit()
}

// AddParticipant registers a connection under a room. Re-adding rebinds
// the username and room without duplicating the row.
func (s *SQLiteStore) AddParticipant(ctx context.Context, roomID string, p store.Participant) error {
	query := `
		INSERT INTO participants (conn_id, room_id, username)
		VALUES (?, ?, ?)
		ON CONFLICT(conn_id) DO UPDATE SET room_id = excluded.room_id, username = excluded.username
	`
	if _, err := s.db.ExecContext(ctx, query, p.ConnID, roomID, p.Username); err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

// RemoveParticipant drops a connection and reports what was removed.
func (s *SQLiteStore) RemoveParticipant(ctx context.Context, connID string) (string, string, error) {
	var roomID, username string
	err := s.db.QueryRowContext(ctx,
		`SELECT room_id, username FROM participants WHERE conn_id = ?`, connID,
	).Scan(&roomID, &username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", store.ErrNotFound
		}
		return "", "", fmt.Errorf("query participant: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM participants WHERE conn_id = ?`, connID); err != nil {
		return "", "", fmt.Errorf("delete participant: %w", err)
	}

	return roomID, username, nil
}

// ListParticipants returns the current roster of a room.
func (s *SQLiteStore) ListParticipants(ctx context.Context, roomID string) ([]store.Participant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT conn_id, username FROM participants WHERE room_id = ? ORDER BY joined_at, conn_id`, roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	participants := make([]store.Participant, 0)
	for rows.Next() {
		var p store.Participant
		if err := rows.Scan(&p.ConnID, &p.Username); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}

	return participants, nil
}

// ==== ChatStore implementation ====

// AppendChat appends a message to a room's history.
func (s *SQLiteStore) AppendChat(ctx context.Context, msg *store.ChatMessage) error {
	recipient := msg.Recipient
	if recipient == "" {
		recipient = "everyone"
	}

	query := `
		INSERT INTO chat_messages (room_id, username, recipient, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, msg.RoomID, msg.Username, recipient, msg.Body, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	msg.ID = id

	return nil
}

// ListChat returns up to limit most recent messages, oldest first.
func (s *SQLiteStore) ListChat(ctx context.Context, roomID string, limit int) ([]*store.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, room_id, username, recipient, body, created_at
		FROM (
			SELECT id, room_id, username, recipient, body, created_at
			FROM chat_messages
			WHERE room_id = ?
			ORDER BY id DESC
			LIMIT ?
		)
		ORDER BY id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.ChatMessage, 0)
	for rows.Next() {
		var m store.ChatMessage
		if err := rows.Scan(&m.ID, &m.RoomID, &m.Username, &m.Recipient, &m.Body, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		messages = append(messages, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}

	return messages, nil
}
