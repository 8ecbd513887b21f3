package core

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/pairpad/pairpad-server/internal/exec"
	"github.com/pairpad/pairpad-server/internal/store"
)

// Executor is the slice of the execution coordinator the hub needs.
// *exec.Runner satisfies it.
type Executor interface {
	Submit(req exec.Request) error
	Languages() []string
}

type clientCommand struct {
	client *Client
	cmd    *Command
}

type execDelivery struct {
	connID  string
	outcome *ExecOutcome
}

type rosterQuery struct {
	room  string
	reply chan []Participant
}

// Hub owns room membership and event fan-out. All state is confined to the
// single Run goroutine; transports talk to it exclusively through channels,
// and execution results re-enter through the same loop so no send ever
// races a client teardown.
type Hub struct {
	store    store.Store // nil disables persistence
	executor Executor    // nil disables remote execution
	log      *zerolog.Logger

	register    chan *Client
	unregister  chan *Client
	commands    chan clientCommand
	execResults chan execDelivery
	rosters     chan rosterQuery

	rooms   map[string]*Room
	clients map[string]*Client
}

// NewHub creates a hub. Both store and executor may be nil.
func NewHub(st store.Store, executor Executor, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		store:       st,
		executor:    executor,
		log:         logger,
		register:    make(chan *Client, 16),
		unregister:  make(chan *Client, 16),
		commands:    make(chan clientCommand, 64),
		execResults: make(chan execDelivery, 64),
		rosters:     make(chan rosterQuery),
		rooms:       make(map[string]*Room),
		clients:     make(map[string]*Client),
	}
}

// RegisterClient hands a new connection to the hub.
func (h *Hub) RegisterClient(c *Client) {
	h.register <- c
}

// UnregisterClient removes a connection. Safe to call for clients the hub
// has already dropped.
func (h *Hub) UnregisterClient(c *Client) {
	h.unregister <- c
}

// Roster returns a snapshot of a room's participants. Safe to call from any
// goroutine; the snapshot is produced by the dispatch loop.
func (h *Hub) Roster(ctx context.Context, roomID string) []Participant {
	reply := make(chan []Participant, 1)
	select {
	case h.rosters <- rosterQuery{room: roomID, reply: reply}:
	case <-ctx.Done():
		return nil
	}
	select {
	case roster := <-reply:
		return roster
	case <-ctx.Done():
		return nil
	}
}

// Run processes hub traffic until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for _, c := range h.clients {
				h.dropClient(ctx, c)
			}
			return
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.dropClient(ctx, c)
		case cc := <-h.commands:
			h.dispatch(ctx, cc.client, cc.cmd)
		case d := <-h.execResults:
			h.deliverExec(d)
		case q := <-h.rosters:
			q.reply <- h.roomRoster(q.room)
		}
	}
}

func (h *Hub) addClient(c *Client) {
	h.clients[c.ID] = c
	h.log.Debug().Str("conn_id", c.ID).Msg("client registered")
	go h.pump(c)
}

// pump forwards a client's commands into the central dispatch channel until
// the client is dropped.
func (h *Hub) pump(c *Client) {
	for {
		select {
		case <-c.done:
			return
		case cmd := <-c.Commands:
			select {
			case h.commands <- clientCommand{client: c, cmd: cmd}:
			case <-c.done:
				return
			}
		}
	}
}

func (h *Hub) dropClient(ctx context.Context, c *Client) {
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	delete(h.clients, c.ID)
	close(c.done)

	h.leaveRoom(ctx, c, true)
	close(c.Events)
	h.log.Debug().Str("conn_id", c.ID).Msg("client dropped")
}

// leaveRoom detaches a client from its room, notifies the remaining members
// and garbage-collects the room once empty.
func (h *Hub) leaveRoom(ctx context.Context, c *Client, notify bool) {
	if c.Room == "" {
		return
	}
	room, ok := h.rooms[c.Room]
	c.Room = ""
	if !ok {
		return
	}

	room.Remove(c.ID)
	if notify {
		room.Broadcast(&Event{
			Kind:   EventDisconnected,
			Room:   room.ID,
			User:   c.Name,
			ConnID: c.ID,
		}, c.ID)
	}

	if h.store != nil {
		if _, _, err := h.store.RemoveParticipant(ctx, c.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			h.log.Warn().Err(err).Str("conn_id", c.ID).Msg("remove participant")
		}
	}

	if room.Empty() {
		delete(h.rooms, room.ID)
		if h.store != nil {
			if err := h.store.DeleteRoom(ctx, room.ID); err != nil {
				h.log.Warn().Err(err).Str("room", room.ID).Msg("delete empty room")
			}
		}
		h.log.Debug().Str("room", room.ID).Msg("room garbage collected")
	}
}

func (h *Hub) dispatch(ctx context.Context, c *Client, cmd *Command) {
	// The pump may have forwarded a command before the drop landed; the
	// client's Events channel is closed by then, so the command is stale.
	if _, ok := h.clients[c.ID]; !ok {
		return
	}

	switch cmd.Kind {
	case CommandJoin:
		h.handleJoin(ctx, c, cmd)
	case CommandLeave:
		h.leaveRoom(ctx, c, true)
	case CommandCodeChange:
		h.handleCodeChange(c, cmd)
	case CommandSyncCode:
		h.handleSyncCode(c, cmd)
	case CommandChat:
		h.handleChat(ctx, c, cmd)
	case CommandExecute:
		h.handleExecute(c, cmd)
	default:
		c.trySend(errorEvent(ErrCodeInvalidMessage, "unknown command"))
	}
}

func (h *Hub) handleJoin(ctx context.Context, c *Client, cmd *Command) {
	if cmd.Room == "" || cmd.Username == "" {
		c.trySend(errorEvent(ErrCodeBadRequest, "room and username are required"))
		return
	}

	// Moving between rooms counts as leaving the old one.
	if c.Room != "" && c.Room != cmd.Room {
		h.leaveRoom(ctx, c, true)
	}

	room, ok := h.rooms[cmd.Room]
	if !ok {
		room = NewRoom(cmd.Room)
		h.rooms[cmd.Room] = room
		h.log.Info().Str("room", room.ID).Msg("room created")
	}

	c.Name = cmd.Username
	c.Room = room.ID
	room.Add(c) // re-join of the same connection is a no-op here

	if h.store != nil {
		if _, err := h.store.EnsureRoom(ctx, room.ID); err != nil {
			h.log.Warn().Err(err).Str("room", room.ID).Msg("ensure room")
		}
		p := store.Participant{ConnID: c.ID, Username: c.Name}
		if err := h.store.AddParticipant(ctx, room.ID, p); err != nil {
			h.log.Warn().Err(err).Str("conn_id", c.ID).Msg("add participant")
		}
	}

	h.log.Info().Str("room", room.ID).Str("conn_id", c.ID).Str("user", c.Name).Msg("client joined")

	// The whole room gets the fresh roster; the joiner's copy is its ack.
	room.Broadcast(&Event{
		Kind:   EventJoined,
		Room:   room.ID,
		User:   c.Name,
		ConnID: c.ID,
		Roster: room.Roster(),
	}, "")
}

func (h *Hub) handleCodeChange(c *Client, cmd *Command) {
	room := h.requireRoom(c)
	if room == nil {
		return
	}

	// The buffer is an opaque payload; relay it verbatim to everyone but
	// the author.
	room.Broadcast(&Event{
		Kind:   EventCodeChange,
		Room:   room.ID,
		ConnID: c.ID,
		Code:   cmd.Code,
	}, c.ID)
}

func (h *Hub) handleSyncCode(c *Client, cmd *Command) {
	room := h.requireRoom(c)
	if room == nil {
		return
	}

	target, ok := h.clients[cmd.TargetConnID]
	if !ok || target.Room != room.ID {
		// Holder already gone: drop silently per relay failure semantics.
		h.log.Debug().Str("target", cmd.TargetConnID).Msg("sync target not in room")
		return
	}

	target.trySend(&Event{
		Kind:   EventSyncRequest,
		Room:   room.ID,
		ConnID: c.ID,
	})
}

func (h *Hub) handleChat(ctx context.Context, c *Client, cmd *Command) {
	room := h.requireRoom(c)
	if room == nil {
		return
	}

	recipient := cmd.Recipient
	if recipient == "" {
		recipient = "everyone"
	}

	chat := &ChatMessage{
		Username:  c.Name,
		Text:      cmd.Text,
		Recipient: recipient,
		SentAt:    time.Now().UTC(),
	}
	ev := &Event{Kind: EventChatMessage, Room: room.ID, ConnID: c.ID, Chat: chat}

	if recipient == "everyone" {
		room.Broadcast(ev, "")
	} else {
		target := room.FindByName(recipient)
		if target == nil {
			h.log.Debug().Str("recipient", recipient).Msg("chat recipient not in room")
			return
		}
		c.trySend(ev)
		if target.ID != c.ID {
			target.trySend(ev)
		}
	}

	if h.store != nil {
		msg := &store.ChatMessage{
			RoomID:    room.ID,
			Username:  chat.Username,
			Recipient: chat.Recipient,
			Body:      chat.Text,
			CreatedAt: chat.SentAt,
		}
		if err := h.store.AppendChat(ctx, msg); err != nil {
			h.log.Warn().Err(err).Str("room", room.ID).Msg("append chat")
		}
	}
}

func (h *Hub) handleExecute(c *Client, cmd *Command) {
	if h.requireRoom(c) == nil {
		return
	}
	if h.executor == nil {
		c.trySend(errorEvent(ErrCodeExecutionFailed, "execution is disabled"))
		return
	}

	connID := c.ID
	language := cmd.Language
	err := h.executor.Submit(exec.Request{
		Language: language,
		Source:   cmd.Source,
		Deliver: func(res exec.Result) {
			h.execResults <- execDelivery{
				connID:  connID,
				outcome: outcomeFromResult(language, res),
			}
		},
	})
	if err != nil {
		switch {
		case errors.Is(err, exec.ErrBusy):
			c.trySend(errorEvent(ErrCodeExecutionBusy, "too many executions in flight, try again"))
		case errors.Is(err, exec.ErrUnknownLanguage):
			c.trySend(errorEvent(ErrCodeUnknownLanguage, "unsupported language: "+language))
		default:
			h.log.Error().Err(err).Msg("submit execution")
			c.trySend(errorEvent(ErrCodeExecutionFailed, "execution failed"))
		}
	}
}

// deliverExec routes a finished execution back to the requesting connection
// only. A vanished requester means the result is dropped.
func (h *Hub) deliverExec(d execDelivery) {
	c, ok := h.clients[d.connID]
	if !ok {
		return
	}
	c.trySend(&Event{
		Kind:   EventExecResult,
		ConnID: d.connID,
		Exec:   d.outcome,
	})
}

func (h *Hub) requireRoom(c *Client) *Room {
	if c.Room == "" {
		c.trySend(errorEvent(ErrCodeNotJoined, "join a room first"))
		return nil
	}
	room, ok := h.rooms[c.Room]
	if !ok {
		c.trySend(errorEvent(ErrCodeNotJoined, "join a room first"))
		return nil
	}
	return room
}

func (h *Hub) roomRoster(roomID string) []Participant {
	room, ok := h.rooms[roomID]
	if !ok {
		return []Participant{}
	}
	return room.Roster()
}

func outcomeFromResult(language string, res exec.Result) *ExecOutcome {
	out := &ExecOutcome{Language: language}
	if res.Err == nil {
		out.Stdout = res.Stdout
		return out
	}
	switch {
	case errors.Is(res.Err, context.DeadlineExceeded):
		out.Err = "execution timed out"
	case res.Stderr != "":
		out.Err = res.Stderr
	default:
		// Filesystem and spawn failures stay opaque to the client.
		out.Err = "execution failed"
	}
	return out
}

func errorEvent(code, msg string) *Event {
	return &Event{Kind: EventError, Error: coreError(code, msg)}
}
