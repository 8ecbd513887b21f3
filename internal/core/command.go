package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoin registers the connection in a room under a username.
	CommandJoin CommandKind = iota
	// CommandLeave removes the connection from its room.
	CommandLeave
	// CommandCodeChange relays a full buffer snapshot to room peers.
	CommandCodeChange
	// CommandSyncCode asks a specific peer to send its buffer to the requester.
	CommandSyncCode
	// CommandChat sends a chat message to the room or a named recipient.
	CommandChat
	// CommandExecute submits the source snippet to the execution coordinator.
	CommandExecute
)

// Command represents an action requested by a client.
type Command struct {
	Kind     CommandKind
	Room     string
	Username string

	// Code is the full buffer snapshot for CommandCodeChange.
	Code string

	// TargetConnID names the buffer holder for CommandSyncCode.
	TargetConnID string

	// Chat fields.
	Text      string
	Recipient string

	// Execution fields.
	Language string
	Source   string
}
