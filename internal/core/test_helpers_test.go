package core

import (
	"testing"
	"time"

	"github.com/pairpad/pairpad-server/internal/exec"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// mustNoEvent drains whatever is buffered after a settle delay and fails if
// an event of the given kind shows up.
func mustNoEvent(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()

	time.Sleep(100 * time.Millisecond)
	for {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v: %+v", kind, ev)
			}
		default:
			return
		}
	}
}

// fakeExecutor satisfies Executor without spawning processes.
type fakeExecutor struct {
	submitErr error
	result    exec.Result
}

func (f *fakeExecutor) Submit(req exec.Request) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	go req.Deliver(f.result)
	return nil
}

func (f *fakeExecutor) Languages() []string {
	return []string{"cpp", "python"}
}

func joinRoom(t *testing.T, c *Client, room, username string) {
	t.Helper()

	c.Commands <- &Command{Kind: CommandJoin, Room: room, Username: username}
}

// joinAndAck joins and waits for the client's own JOINED ack, which pins
// down the join order across clients.
func joinAndAck(t *testing.T, c *Client, room, username string) *Event {
	t.Helper()

	joinRoom(t, c, room, username)
	for {
		ev := mustEvent(t, c.Events, EventJoined)
		if ev.ConnID == c.ID {
			return ev
		}
	}
}
