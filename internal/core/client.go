package core

// Client is a connected participant as seen by the core layer. ID is the
// transport connection identifier; Name is the display username bound at
// join time and is never assumed unique. Room is the current room ID, empty
// until the client joins. Name and Room are owned by the hub goroutine.
type Client struct {
	ID       string
	Name     string
	Room     string
	Commands chan *Command
	Events   chan *Event

	done chan struct{}
}

// NewClient constructs a client with initialized channels.
func NewClient(id, name string) *Client {
	return &Client{
		ID:       id,
		Name:     name,
		Commands: make(chan *Command, 16),
		Events:   make(chan *Event, 16),
		done:     make(chan struct{}),
	}
}

// trySend delivers an event without blocking. Slow consumers lose events
// rather than stalling the dispatch loop.
func (c *Client) trySend(ev *Event) {
	select {
	case c.Events <- ev:
	default:
	}
}
