package room

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/luciancaetano/roomlink"
	"github.com/luciancaetano/roomlink/internal/protocol"
)

// hostHandler implements the host side of the protocol: the auth-secret
// handshake, then routing of host traffic to clients or the system target.
type hostHandler struct {
	c *Conn
}

func (h *hostHandler) onMessage(msg *protocol.Inbound) {
	if h.c.State() == roomlink.StateWaiting {
		h.handshake(msg)
		return
	}
	h.route(msg)
}

// handshake validates the one-time auth secret. Failures leave the
// connection waiting so the host may retry within the auth window.
func (h *hostHandler) handshake(msg *protocol.Inbound) {
	c := h.c

	if msg.Auth == "" || msg.AppID == "" {
		c.sendNotice(authFailure(roomlink.MsgMissingRequired, roomlink.CodeMissingRequired))
		return
	}
	if msg.Auth != c.room.AuthSecret() {
		c.sendNotice(authFailure(roomlink.MsgAuthMismatch, roomlink.CodeAuthMismatch))
		return
	}

	c.sendNotice(protocol.Notice{Success: true, Event: roomlink.EventAuthenticate})
	c.setAuthenticated()
	c.room.open(msg.AppID, msg.Password)
	c.log.Info("host verified room")
}

// route dispatches an authenticated host message by its to field: "system"
// for control actions, a client id for forwarding. Routing errors are
// reported to the host only and change no state.
func (h *hostHandler) route(msg *protocol.Inbound) {
	c := h.c

	switch msg.To {
	case "":
		c.sendNotice(messageAck(roomlink.MsgMissingReciever, roomlink.CodeMissingReciever))
	case "system":
		h.system(msg)
	default:
		target, err := c.room.FindConnection(msg.To)
		if err != nil {
			c.sendNotice(messageAck(roomlink.MsgInvalidClient, roomlink.CodeInvalidClient))
			return
		}
		target.Send(roomlink.SenderHost, msg.Data)
		c.sendNotice(messageAck("", ""))
	}
}

// system handles to:"system" control actions. Only kick exists today.
func (h *hostHandler) system(msg *protocol.Inbound) {
	c := h.c

	var action protocol.SystemAction
	if len(msg.Data) > 0 {
		// A malformed action body reads as an unknown action below.
		json.Unmarshal(msg.Data, &action)
	}

	switch action.Action {
	case "kick":
		target, err := c.room.FindConnection(action.ID)
		if err != nil {
			c.sendNotice(messageAck(roomlink.MsgInvalidClient, roomlink.CodeInvalidClient))
			return
		}
		target.Kill(roomlink.MsgHostKick, roomlink.CodeHostKick)
		c.log.Info("host kicked client", zap.String("target_id", action.ID))
		c.sendNotice(messageAck("", ""))
	default:
		c.sendNotice(messageAck(roomlink.MsgInvalidAction, roomlink.CodeInvalidAction))
	}
}

// onClose tears the whole room down: clients have no meaning without a host.
func (h *hostHandler) onClose() {
	h.c.room.Close(roomlink.MsgHostDisconnect, roomlink.CodeHostDisconnect)
}

// authFailure builds a failed authenticate notice.
func authFailure(msg, code string) protocol.Notice {
	return protocol.Notice{
		Success: false,
		Event:   roomlink.EventAuthenticate,
		Error:   &protocol.ErrorBody{Msg: msg, Code: code},
	}
}

// messageAck builds a message ack; empty msg/code means success.
func messageAck(msg, code string) protocol.Notice {
	n := protocol.Notice{Success: true, Event: roomlink.EventMessage}
	if code != "" {
		n.Success = false
		n.Error = &protocol.ErrorBody{Msg: msg, Code: code}
	}
	return n
}
