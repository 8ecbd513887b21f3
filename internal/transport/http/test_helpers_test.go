package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/pairpad/pairpad-server/internal/config"
	"github.com/pairpad/pairpad-server/internal/core"
	"github.com/pairpad/pairpad-server/internal/exec"
	"github.com/pairpad/pairpad-server/internal/log"
	"github.com/pairpad/pairpad-server/internal/store/sqlite"
)

// stubExecutor satisfies core.Executor without spawning processes.
type stubExecutor struct {
	result    exec.Result
	submitErr error
}

func (s *stubExecutor) Submit(req exec.Request) error {
	if s.submitErr != nil {
		return s.submitErr
	}
	go req.Deliver(s.result)
	return nil
}

func (s *stubExecutor) Languages() []string {
	return []string{"cpp", "python"}
}

type testServerOptions struct {
	executor   core.Executor
	ratePerSec float64
}

func startTestServer(t *testing.T, opts testServerOptions) *httptest.Server {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	hub := core.NewHub(st, opts.executor, log.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.AllowedOrigins = nil // tests dial without an Origin header
	cfg.Exec.RatePerSec = opts.ratePerSec

	languages := []string{}
	if opts.executor != nil {
		languages = opts.executor.Languages()
	}

	server := NewServer(hub, st, languages, &cfg, log.Nop())
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts
}

func dialWS(t *testing.T, ctx context.Context, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })

	return conn
}

type frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
	} `json:"error"`
}

func sendFrame(t *testing.T, ctx context.Context, conn *websocket.Conn, frameType string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", frameType, err)
	}
	if err := wsjson.Write(ctx, conn, map[string]any{"type": frameType, "data": json.RawMessage(payload)}); err != nil {
		t.Fatalf("write %s frame: %v", frameType, err)
	}
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) frame {
	t.Helper()

	var f frame
	if err := wsjson.Read(ctx, conn, &f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

// readEvent skips frames until one with the given event name arrives.
func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		f := readFrame(t, ctx, conn)
		if f.Type == "event" && f.Event == event {
			return f.Data
		}
	}
	t.Fatalf("event %q not received", event)
	return nil
}

// expectNoFrame asserts that nothing arrives within the wait window.
func expectNoFrame(t *testing.T, conn *websocket.Conn, wait time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()

	var f frame
	if err := wsjson.Read(ctx, conn, &f); err == nil {
		t.Fatalf("unexpected frame: %+v", f)
	}
}
