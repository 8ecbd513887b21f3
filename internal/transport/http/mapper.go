package http

import (
	"encoding/json"
	"time"

	"github.com/samber/lo"

	"github.com/pairpad/pairpad-server/internal/core"
	"github.com/pairpad/pairpad-server/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return nil, nil, err
		}
		if join.Room == "" || join.Username == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room and username are required"}, nil
		}
		return &core.Command{
			Kind:     core.CommandJoin,
			Room:     join.Room,
			Username: join.Username,
		}, nil, nil
	case proto.InboundTypeLeave:
		return &core.Command{Kind: core.CommandLeave}, nil, nil
	case proto.InboundTypeCodeChange:
		var change proto.CodeChangeData
		if err := json.Unmarshal(inbound.Data, &change); err != nil {
			return nil, nil, err
		}
		return &core.Command{
			Kind: core.CommandCodeChange,
			Code: change.Code,
		}, nil, nil
	case proto.InboundTypeSyncCode:
		var sync proto.SyncCodeData
		if err := json.Unmarshal(inbound.Data, &sync); err != nil {
			return nil, nil, err
		}
		if sync.ConnID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "conn_id is required"}, nil
		}
		return &core.Command{
			Kind:         core.CommandSyncCode,
			TargetConnID: sync.ConnID,
		}, nil, nil
	case proto.InboundTypeChat:
		var chat proto.ChatData
		if err := json.Unmarshal(inbound.Data, &chat); err != nil {
			return nil, nil, err
		}
		if chat.Message == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "message is required"}, nil
		}
		return &core.Command{
			Kind:      core.CommandChat,
			Text:      chat.Message,
			Recipient: chat.Recipient,
		}, nil, nil
	case proto.InboundTypeExecutePython, proto.InboundTypeExecuteCpp:
		var execData proto.ExecuteData
		if err := json.Unmarshal(inbound.Data, &execData); err != nil {
			return nil, nil, err
		}
		language := "python"
		if inbound.Type == proto.InboundTypeExecuteCpp {
			language = "cpp"
		}
		return &core.Command{
			Kind:     core.CommandExecute,
			Language: language,
			Source:   execData.Code,
		}, nil, nil
	default:
		return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "unknown message type"}, nil
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventJoined:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameJoined,
			Data: proto.EventJoined{
				Room: event.Room,
				Clients: lo.Map(event.Roster, func(p core.Participant, _ int) proto.ClientInfo {
					return proto.ClientInfo{ConnID: p.ConnID, Username: p.Username}
				}),
				Username: event.User,
				ConnID:   event.ConnID,
			},
		}
	case core.EventCodeChange:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameCodeChange,
			Data: proto.EventCodeChange{
				Room: event.Room,
				Code: event.Code,
			},
		}
	case core.EventSyncRequest:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameSyncCode,
			Data: proto.EventSyncCode{
				Room:   event.Room,
				ConnID: event.ConnID,
			},
		}
	case core.EventDisconnected:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameDisconnected,
			Data: proto.EventDisconnected{
				Room:     event.Room,
				ConnID:   event.ConnID,
				Username: event.User,
			},
		}
	case core.EventChatMessage:
		if event.Chat == nil {
			return proto.Outbound{Type: proto.OutboundTypeEvent}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameChatMessage,
			Data: proto.EventChatMessage{
				Username:  event.Chat.Username,
				Message:   event.Chat.Text,
				Timestamp: event.Chat.SentAt.Format(time.RFC3339),
				Recipient: event.Chat.Recipient,
			},
		}
	case core.EventExecResult:
		if event.Exec == nil {
			return proto.Outbound{Type: proto.OutboundTypeEvent}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: event.Exec.Language + "_output",
			Data: proto.ExecOutput{
				Output: event.Exec.Stdout,
				Error:  event.Exec.Err,
			},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
