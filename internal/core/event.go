package core

import "time"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventJoined announces a (re)join to the whole room, roster included.
	// The joiner receives it too, as its ack.
	EventJoined EventKind = iota
	// EventCodeChange carries a peer's buffer snapshot. Never echoed to the sender.
	EventCodeChange
	// EventSyncRequest asks the receiving client to send its buffer to the
	// requesting connection.
	EventSyncRequest
	// EventDisconnected announces a departure to the remaining room members.
	EventDisconnected
	// EventChatMessage delivers a chat message.
	EventChatMessage
	// EventExecResult delivers an execution outcome to the requester only.
	EventExecResult
	// EventError notifies the client about a domain error.
	EventError
)

// Participant is one roster entry. Keyed by connection identity; usernames
// may collide and are display data only.
type Participant struct {
	ConnID   string
	Username string
}

// ChatMessage is a chat payload with a server-side timestamp.
type ChatMessage struct {
	Username  string
	Text      string
	Recipient string
	SentAt    time.Time
}

// ExecOutcome is the result of one execution request. Err is empty on
// success; on failure it carries compiler or interpreter diagnostics.
type ExecOutcome struct {
	Language string
	Stdout   string
	Err      string
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind   EventKind
	Room   string
	User   string
	ConnID string
	Roster []Participant
	Code   string
	Chat   *ChatMessage
	Exec   *ExecOutcome
	Error  *CoreError
}
