package core

import (
	"sort"

	"github.com/samber/lo"
)

// Room groups clients editing the same shared buffer. Only the hub
// goroutine touches a room, so no locking is needed here.
type Room struct {
	ID      string
	clients map[string]*Client // keyed by connection ID
}

// NewRoom constructs a room with no clients.
func NewRoom(id string) *Room {
	return &Room{
		ID:      id,
		clients: make(map[string]*Client),
	}
}

// Add inserts a client into the room. Returns true if newly added.
func (r *Room) Add(c *Client) bool {
	if _, exists := r.clients[c.ID]; exists {
		return false
	}
	r.clients[c.ID] = c
	return true
}

// Remove deletes a client from the room. Returns true if removed.
func (r *Room) Remove(connID string) bool {
	if _, exists := r.clients[connID]; !exists {
		return false
	}
	delete(r.clients, connID)
	return true
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}

// Roster returns a snapshot of the current participants, ordered by
// username then connection ID for stable output.
func (r *Room) Roster() []Participant {
	roster := lo.MapToSlice(r.clients, func(id string, c *Client) Participant {
		return Participant{ConnID: id, Username: c.Name}
	})
	sort.Slice(roster, func(i, j int) bool {
		if roster[i].Username != roster[j].Username {
			return roster[i].Username < roster[j].Username
		}
		return roster[i].ConnID < roster[j].ConnID
	})
	return roster
}

// FindByName returns the participant with the given username, or nil.
// With colliding usernames the connection with the lowest ID wins, so the
// choice is at least deterministic.
func (r *Room) FindByName(username string) *Client {
	ids := lo.Keys(r.clients)
	sort.Strings(ids)
	for _, id := range ids {
		if r.clients[id].Name == username {
			return r.clients[id]
		}
	}
	return nil
}

// Broadcast sends an event to all clients in the room, skipping the
// connection named by except (empty means no exclusion).
func (r *Room) Broadcast(ev *Event, except string) {
	for id, client := range r.clients {
		if id == except {
			continue
		}
		client.trySend(ev)
	}
}
