package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeJoin          = "join"
	InboundTypeLeave         = "leave"
	InboundTypeCodeChange    = "code_change"
	InboundTypeSyncCode      = "sync_code"
	InboundTypeChat          = "chat"
	InboundTypeExecutePython = "execute_python"
	InboundTypeExecuteCpp    = "execute_cpp"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventNameJoined       = "joined"
	EventNameCodeChange   = "code_change"
	EventNameSyncCode     = "sync_code"
	EventNameDisconnected = "disconnected"
	EventNameChatMessage  = "chat_message"
)

// JoinData registers the connection in a room under a display name.
type JoinData struct {
	Room     string `json:"room"`
	Username string `json:"username"`
}

// CodeChangeData carries a full buffer snapshot. The server never inspects it.
type CodeChangeData struct {
	Code string `json:"code"`
}

// SyncCodeData asks the server to route a sync request to the connection
// currently holding the buffer.
type SyncCodeData struct {
	ConnID string `json:"conn_id"`
}

// ChatData is a chat message from the client. Recipient is empty or
// "everyone" for room-wide delivery.
type ChatData struct {
	Message   string `json:"message"`
	Recipient string `json:"recipient,omitempty"`
}

// ExecuteData is the source snippet for execute_python / execute_cpp.
type ExecuteData struct {
	Code string `json:"code"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// ClientInfo is one roster entry.
type ClientInfo struct {
	ConnID   string `json:"conn_id"`
	Username string `json:"username"`
}

// EventJoined announces a join to the whole room, roster included.
type EventJoined struct {
	Room     string       `json:"room"`
	Clients  []ClientInfo `json:"clients"`
	Username string       `json:"username"`
	ConnID   string       `json:"conn_id"`
}

// EventCodeChange carries a peer's buffer snapshot.
type EventCodeChange struct {
	Room string `json:"room"`
	Code string `json:"code"`
}

// EventSyncCode asks the receiving client to send its buffer to conn_id.
type EventSyncCode struct {
	Room   string `json:"room"`
	ConnID string `json:"conn_id"`
}

// EventDisconnected announces a departure.
type EventDisconnected struct {
	Room     string `json:"room"`
	ConnID   string `json:"conn_id"`
	Username string `json:"username"`
}

// EventChatMessage delivers a chat message. Timestamp is RFC3339.
type EventChatMessage struct {
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Recipient string `json:"recipient"`
}

// ExecOutput reports an execution outcome. Exactly one of Output and Error
// is populated; the event name is language-tagged (python_output, cpp_output).
type ExecOutput struct {
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
