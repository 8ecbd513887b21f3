package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/pairpad/pairpad-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_client: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:5000/ws", "WebSocket address")
	user := flag.String("user", "cli-user", "username")
	room := flag.String("room", "demo", "room to join")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(frameType string, data any) {
		payload, marshalErr := json.Marshal(data)
		if marshalErr != nil {
			log.Printf("marshal %s: %v", frameType, marshalErr)
			return
		}
		if writeErr := wsjson.Write(ctx, conn, proto.Inbound{Type: frameType, Data: payload}); writeErr != nil {
			cancel()
			log.Printf("send: %v", writeErr)
		}
	}

	send(proto.InboundTypeJoin, proto.JoinData{Room: *room, Username: *user})

	fmt.Printf("Connected to %s as %s in room %s\n", *addr, *user, *room)
	fmt.Println("Commands: /code <text>, /py <code>, /cpp <code>, plain text sends chat. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case strings.HasPrefix(line, "/code "):
			send(proto.InboundTypeCodeChange, proto.CodeChangeData{Code: strings.TrimPrefix(line, "/code ")})
		case strings.HasPrefix(line, "/py "):
			send(proto.InboundTypeExecutePython, proto.ExecuteData{Code: strings.TrimPrefix(line, "/py ")})
		case strings.HasPrefix(line, "/cpp "):
			send(proto.InboundTypeExecuteCpp, proto.ExecuteData{Code: strings.TrimPrefix(line, "/cpp ")})
		default:
			send(proto.InboundTypeChat, proto.ChatData{Message: line})
		}
	}

	stop()
	cancel()
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var outbound struct {
			Type  string          `json:"type"`
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		if outbound.Type == "error" && outbound.Error != nil {
			fmt.Printf("[error] %s: %s\n", outbound.Error.Code, outbound.Error.Msg)
			continue
		}

		switch outbound.Event {
		case proto.EventNameJoined:
			var ev proto.EventJoined
			if json.Unmarshal(outbound.Data, &ev) == nil {
				names := make([]string, 0, len(ev.Clients))
				for _, c := range ev.Clients {
					names = append(names, c.Username)
				}
				fmt.Printf("[room] %s joined; roster: %s\n", ev.Username, strings.Join(names, ", "))
			}
		case proto.EventNameCodeChange:
			var ev proto.EventCodeChange
			if json.Unmarshal(outbound.Data, &ev) == nil {
				fmt.Printf("[buffer]\n%s\n", ev.Code)
			}
		case proto.EventNameDisconnected:
			var ev proto.EventDisconnected
			if json.Unmarshal(outbound.Data, &ev) == nil {
				fmt.Printf("[room] %s left\n", ev.Username)
			}
		case proto.EventNameChatMessage:
			var ev proto.EventChatMessage
			if json.Unmarshal(outbound.Data, &ev) == nil {
				fmt.Printf("[%s] %s: %s\n", ev.Timestamp, ev.Username, ev.Message)
			}
		case "python_output", "cpp_output":
			var ev proto.ExecOutput
			if json.Unmarshal(outbound.Data, &ev) == nil {
				if ev.Error != "" {
					fmt.Printf("[exec error]\n%s\n", ev.Error)
				} else {
					fmt.Printf("[exec]\n%s\n", ev.Output)
				}
			}
		default:
			fmt.Printf("[event] %s %s\n", outbound.Event, string(outbound.Data))
		}
	}
}
