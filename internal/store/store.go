package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup misses.
var ErrNotFound = errors.New("not found")

// Room is a persisted room row. Rooms exist while at least one
// participant is connected.
type Room struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Participant is a connected member of a room. ConnID is the transport
// connection identifier and is unique per live connection; Username is
// display data and may collide.
type Participant struct {
	ConnID   string
	Username string
}

// ChatMessage is a persisted chat message.
type ChatMessage struct {
	ID        int64
	RoomID    string
	Username  string
	Recipient string // "everyone" for room-wide messages
	Body      string
	CreatedAt time.Time
}

// RoomStore handles room and participant persistence.
type RoomStore interface {
	// EnsureRoom creates the room row if it does not exist and bumps updated_at.
	EnsureRoom(ctx context.Context, roomID string) (*Room, error)

	// DeleteRoom removes the room and its chat history. No-op if absent.
	DeleteRoom(ctx context.Context, roomID string) error

	// AddParticipant registers a connection under a room. Re-adding the same
	// connection rebinds its username and room without duplicating the row.
	AddParticipant(ctx context.Context, roomID string, p Participant) error

	// RemoveParticipant drops a connection from whichever room it belongs to
	// and reports what was removed. Returns ErrNotFound for unknown connections.
	RemoveParticipant(ctx context.Context, connID string) (roomID, username string, err error)

	// ListParticipants returns the current roster of a room.
	ListParticipants(ctx context.Context, roomID string) ([]Participant, error)
}

// ChatStore handles chat history persistence.
type ChatStore interface {
	// AppendChat appends a message to a room's history and fills in msg.ID.
	AppendChat(ctx context.Context, msg *ChatMessage) error

	// ListChat returns up to limit most recent messages, oldest first.
	ListChat(ctx context.Context, roomID string, limit int) ([]*ChatMessage, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	RoomStore
	ChatStore

	// Close closes the underlying database connection.
	Close() error
}
