package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pairpad/pairpad-server/internal/exec"
	"github.com/pairpad/pairpad-server/internal/store/sqlite"
)

func startHub(t *testing.T, hub *Hub) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	go hub.Run(ctx)
}

func TestJoinBroadcastsRosterToWholeRoom(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	startHub(t, hub)

	alice := NewClient("a", "")
	bob := NewClient("b", "")
	carol := NewClient("c", "")
	for _, c := range []*Client{alice, bob, carol} {
		hub.RegisterClient(c)
	}

	joinAndAck(t, alice, "42", "alice")
	joinAndAck(t, bob, "42", "bob")
	rosterEv := joinAndAck(t, carol, "42", "carol")

	if len(rosterEv.Roster) != 3 {
		t.Fatalf("expected 3 roster entries, got %d: %+v", len(rosterEv.Roster), rosterEv.Roster)
	}
	seen := map[string]string{}
	for _, p := range rosterEv.Roster {
		seen[p.ConnID] = p.Username
	}
	for conn, user := range map[string]string{"a": "alice", "b": "bob", "c": "carol"} {
		if seen[conn] != user {
			t.Errorf("roster missing %s/%s: %+v", conn, user, rosterEv.Roster)
		}
	}

	// Existing members see Carol's join too.
	ev := mustEvent(t, bob.Events, EventJoined)
	for ev.ConnID != "c" {
		ev = mustEvent(t, bob.Events, EventJoined)
	}
	if ev.User != "carol" || ev.Room != "42" {
		t.Fatalf("unexpected join event at bob: %+v", ev)
	}
}

func TestRejoinIsIdempotent(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	startHub(t, hub)

	alice := NewClient("a", "")
	hub.RegisterClient(alice)

	joinAndAck(t, alice, "42", "alice")

	// Re-join rebinds the username without duplicating the roster entry.
	ev := joinAndAck(t, alice, "42", "alicia")

	if len(ev.Roster) != 1 {
		t.Fatalf("expected 1 roster entry after re-join, got %d: %+v", len(ev.Roster), ev.Roster)
	}
	if ev.Roster[0].Username != "alicia" {
		t.Errorf("expected rebound username alicia, got %s", ev.Roster[0].Username)
	}
}

func TestCodeChangeNeverEchoesToSender(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	startHub(t, hub)

	alice := NewClient("a", "")
	bob := NewClient("b", "")
	carol := NewClient("c", "")
	for _, c := range []*Client{alice, bob, carol} {
		hub.RegisterClient(c)
		joinAndAck(t, c, "42", "user-"+c.ID)
	}

	alice.Commands <- &Command{Kind: CommandCodeChange, Code: "print('hi')"}

	for _, peer := range []*Client{bob, carol} {
		ev := mustEvent(t, peer.Events, EventCodeChange)
		if ev.Code != "print('hi')" || ev.ConnID != "a" {
			t.Fatalf("unexpected code change at %s: %+v", peer.ID, ev)
		}
	}
	mustNoEvent(t, alice.Events, EventCodeChange)
}

func TestLastReceivedCodeChangeWins(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	startHub(t, hub)

	alice := NewClient("a", "")
	bob := NewClient("b", "")
	carol := NewClient("c", "")
	for _, c := range []*Client{alice, bob, carol} {
		hub.RegisterClient(c)
		joinAndAck(t, c, "42", "user-"+c.ID)
	}

	// Carol's buffer converges to whichever snapshot she received last,
	// regardless of who sent it.
	alice.Commands <- &Command{Kind: CommandCodeChange, Code: "version-a"}
	first := mustEvent(t, carol.Events, EventCodeChange)
	if first.Code != "version-a" {
		t.Fatalf("unexpected first snapshot: %+v", first)
	}

	bob.Commands <- &Command{Kind: CommandCodeChange, Code: "version-b"}
	second := mustEvent(t, carol.Events, EventCodeChange)
	if second.Code != "version-b" {
		t.Fatalf("unexpected second snapshot: %+v", second)
	}
}

func TestDisconnectNotifiesRemainingPeers(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	startHub(t, hub)

	alice := NewClient("a", "")
	bob := NewClient("b", "")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)
	joinAndAck(t, alice, "42", "alice")
	joinAndAck(t, bob, "42", "bob")

	hub.UnregisterClient(alice)

	ev := mustEvent(t, bob.Events, EventDisconnected)
	if ev.ConnID != "a" || ev.User != "alice" {
		t.Fatalf("unexpected disconnect event: %+v", ev)
	}
	mustNoEvent(t, bob.Events, EventDisconnected)
}

func TestSyncCodeRoutedToHolderOnly(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	startHub(t, hub)

	alice := NewClient("a", "")
	bob := NewClient("b", "")
	carol := NewClient("c", "")
	for _, c := range []*Client{alice, bob, carol} {
		hub.RegisterClient(c)
		joinAndAck(t, c, "42", "user-"+c.ID)
	}

	// Carol just joined and asks Alice for the current buffer.
	carol.Commands <- &Command{Kind: CommandSyncCode, TargetConnID: "a"}

	ev := mustEvent(t, alice.Events, EventSyncRequest)
	if ev.ConnID != "c" || ev.Room != "42" {
		t.Fatalf("unexpected sync request: %+v", ev)
	}
	mustNoEvent(t, bob.Events, EventSyncRequest)

	// A vanished holder is a silent drop.
	carol.Commands <- &Command{Kind: CommandSyncCode, TargetConnID: "ghost"}
	mustNoEvent(t, carol.Events, EventError)
}

func TestChatToEveryoneReachesWholeRoom(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	startHub(t, hub)

	alice := NewClient("a", "")
	bob := NewClient("b", "")
	carol := NewClient("c", "")
	for _, c := range []*Client{alice, bob, carol} {
		hub.RegisterClient(c)
		joinAndAck(t, c, "42", "user-"+c.ID)
	}

	alice.Commands <- &Command{Kind: CommandChat, Text: "hello all"}

	for _, c := range []*Client{alice, bob, carol} {
		ev := mustEvent(t, c.Events, EventChatMessage)
		if ev.Chat == nil || ev.Chat.Text != "hello all" || ev.Chat.Recipient != "everyone" {
			t.Fatalf("unexpected chat at %s: %+v", c.ID, ev)
		}
		if ev.Chat.SentAt.IsZero() {
			t.Errorf("chat timestamp not set at %s", c.ID)
		}
	}
}

func TestPrivateChatReachesSenderAndRecipientOnly(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	startHub(t, hub)

	alice := NewClient("a", "")
	bob := NewClient("b", "")
	carol := NewClient("c", "")
	for _, c := range []*Client{alice, bob, carol} {
		hub.RegisterClient(c)
	}
	joinAndAck(t, alice, "42", "alice")
	joinAndAck(t, bob, "42", "bob")
	joinAndAck(t, carol, "42", "carol")

	alice.Commands <- &Command{Kind: CommandChat, Text: "psst", Recipient: "bob"}

	for _, c := range []*Client{alice, bob} {
		ev := mustEvent(t, c.Events, EventChatMessage)
		if ev.Chat.Text != "psst" || ev.Chat.Recipient != "bob" {
			t.Fatalf("unexpected private chat at %s: %+v", c.ID, ev)
		}
	}
	mustNoEvent(t, carol.Events, EventChatMessage)

	// Unknown recipient is a silent drop, not an error.
	alice.Commands <- &Command{Kind: CommandChat, Text: "void", Recipient: "nobody"}
	mustNoEvent(t, alice.Events, EventChatMessage)
}

func TestExecResultDeliveredToRequesterOnly(t *testing.T) {
	executor := &fakeExecutor{result: exec.Result{Stdout: "4\n"}}
	hub := NewHub(nil, executor, nil)
	startHub(t, hub)

	alice := NewClient("a", "")
	bob := NewClient("b", "")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)
	joinAndAck(t, alice, "42", "alice")
	joinAndAck(t, bob, "42", "bob")

	alice.Commands <- &Command{Kind: CommandExecute, Language: "python", Source: "print(2+2)"}

	ev := mustEvent(t, alice.Events, EventExecResult)
	if ev.Exec == nil || ev.Exec.Stdout != "4\n" || ev.Exec.Err != "" {
		t.Fatalf("unexpected exec result: %+v", ev.Exec)
	}
	if ev.Exec.Language != "python" {
		t.Errorf("expected language tag python, got %s", ev.Exec.Language)
	}
	mustNoEvent(t, bob.Events, EventExecResult)
}

func TestExecFailureReportsDiagnostics(t *testing.T) {
	executor := &fakeExecutor{result: exec.Result{
		Stderr: "SyntaxError: invalid syntax",
		Err:    errors.New("run: exit status 1"),
	}}
	hub := NewHub(nil, executor, nil)
	startHub(t, hub)

	alice := NewClient("a", "")
	hub.RegisterClient(alice)
	joinAndAck(t, alice, "42", "alice")

	alice.Commands <- &Command{Kind: CommandExecute, Language: "python", Source: "print(2+"}

	ev := mustEvent(t, alice.Events, EventExecResult)
	if ev.Exec.Err != "SyntaxError: invalid syntax" {
		t.Fatalf("expected interpreter diagnostics, got %+v", ev.Exec)
	}
	if ev.Exec.Stdout != "" {
		t.Errorf("expected empty stdout on failure, got %q", ev.Exec.Stdout)
	}
}

func TestExecBusyProducesError(t *testing.T) {
	executor := &fakeExecutor{submitErr: exec.ErrBusy}
	hub := NewHub(nil, executor, nil)
	startHub(t, hub)

	alice := NewClient("a", "")
	hub.RegisterClient(alice)
	joinAndAck(t, alice, "42", "alice")

	alice.Commands <- &Command{Kind: CommandExecute, Language: "python", Source: "x"}

	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeExecutionBusy {
		t.Fatalf("expected execution_busy error, got %+v", ev)
	}
}

func TestCommandsBeforeJoinAreRejected(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	startHub(t, hub)

	alice := NewClient("a", "")
	hub.RegisterClient(alice)

	alice.Commands <- &Command{Kind: CommandCodeChange, Code: "x"}

	ev := mustEvent(t, alice.Events, EventError)
	if ev.Error == nil || ev.Error.Code != ErrCodeNotJoined {
		t.Fatalf("expected not_joined error, got %+v", ev)
	}
}

func TestCommandQueuedBeforeDropIsIgnored(t *testing.T) {
	hub := NewHub(nil, nil, nil)

	ctx := context.Background()
	alice := NewClient("a", "")
	bob := NewClient("b", "")
	hub.addClient(alice)
	hub.addClient(bob)
	hub.dispatch(ctx, alice, &Command{Kind: CommandJoin, Room: "42", Username: "alice"})
	hub.dispatch(ctx, bob, &Command{Kind: CommandJoin, Room: "42", Username: "bob"})
	hub.dropClient(ctx, alice)

	// The pump can forward a command into the dispatch channel in the same
	// instant the drop is processed; by the time it is dispatched the
	// client's Events channel is already closed. Dispatching it must be a
	// no-op, not a send on a closed channel.
	hub.dispatch(ctx, alice, &Command{Kind: CommandCodeChange, Code: "stale"})

	mustEvent(t, bob.Events, EventDisconnected)
	mustNoEvent(t, bob.Events, EventCodeChange)
}

func TestPersistedRoomLifecycle(t *testing.T) {
	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	defer st.Close()

	hub := NewHub(st, nil, nil)
	startHub(t, hub)

	alice := NewClient("a", "")
	bob := NewClient("b", "")
	hub.RegisterClient(alice)
	hub.RegisterClient(bob)
	joinAndAck(t, alice, "42", "alice")
	joinAndAck(t, bob, "42", "bob")

	alice.Commands <- &Command{Kind: CommandChat, Text: "persisted"}
	mustEvent(t, bob.Events, EventChatMessage)

	ctx := context.Background()
	roster, err := st.ListParticipants(ctx, "42")
	if err != nil {
		t.Fatalf("list participants: %v", err)
	}
	if len(roster) != 2 {
		t.Fatalf("expected 2 persisted participants, got %d", len(roster))
	}

	msgs, err := st.ListChat(ctx, "42", 10)
	if err != nil {
		t.Fatalf("list chat: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Body != "persisted" {
		t.Fatalf("unexpected chat history: %+v", msgs)
	}

	// Room row disappears once the last participant leaves.
	hub.UnregisterClient(alice)
	mustEvent(t, bob.Events, EventDisconnected)
	hub.UnregisterClient(bob)

	deadline := time.Now().Add(2 * time.Second)
	for {
		roster, err = st.ListParticipants(ctx, "42")
		if err != nil {
			t.Fatalf("list participants: %v", err)
		}
		if len(roster) == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("participants not cleaned up: %+v", roster)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRosterSnapshotQuery(t *testing.T) {
	hub := NewHub(nil, nil, nil)
	startHub(t, hub)

	alice := NewClient("a", "")
	hub.RegisterClient(alice)
	joinAndAck(t, alice, "42", "alice")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	roster := hub.Roster(ctx, "42")
	if len(roster) != 1 || roster[0].Username != "alice" {
		t.Fatalf("unexpected roster snapshot: %+v", roster)
	}

	if got := hub.Roster(ctx, "unknown"); len(got) != 0 {
		t.Fatalf("expected empty roster for unknown room, got %+v", got)
	}
}
