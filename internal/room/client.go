package room

import (
	"github.com/luciancaetano/roomlink"
	"github.com/luciancaetano/roomlink/internal/protocol"
)

// clientHandler implements the client side of the protocol: the appID /
// password handshake, then verbatim forwarding of everything to the host.
type clientHandler struct {
	c *Conn
}

func (h *clientHandler) onMessage(msg *protocol.Inbound) {
	c := h.c

	if c.State() == roomlink.StateWaiting {
		h.handshake(msg)
		return
	}

	// Post-auth client traffic goes to the host untouched, tagged with the
	// sender's id so the host can tell clients apart.
	host := c.room.Host()
	if host == nil {
		return
	}
	host.sendTagged(roomlink.SenderClient, c.id, msg.Raw())
}

// handshake checks the client's credentials against what the host
// registered: the appID must match, and the room must either have no
// password or be given the right one. An input failing both checks reports
// the appID mismatch first. Failures leave the connection waiting for a
// retry within the auth window.
func (h *clientHandler) handshake(msg *protocol.Inbound) {
	c := h.c
	appID, password := c.room.Credentials()

	switch {
	case msg.AppID != "" && msg.AppID == appID && (password == "" || msg.Password == password):
		c.setAuthenticated()
		if host := c.room.Host(); host != nil {
			host.sendSystem(protocol.SystemEvent{Event: roomlink.EventJoin, ID: c.id})
		}
		c.sendNotice(protocol.Notice{Success: true, Event: roomlink.EventAuthenticate})
		c.log.Info("client joined room")
	case msg.AppID == "" || msg.AppID != appID:
		c.sendNotice(authFailure(roomlink.MsgAppIDMismatch, roomlink.CodeAppIDMismatch))
	case password != "" && msg.Password != password:
		c.sendNotice(authFailure(roomlink.MsgInvalidPassword, roomlink.CodeInvalidPassword))
	default:
		c.sendNotice(authFailure(roomlink.MsgAuthFailed, roomlink.CodeAuthFailed))
	}
}

// onClose lets the host release whatever state it holds for this client.
// Nothing is sent if the client never finished its handshake.
func (h *clientHandler) onClose() {
	c := h.c
	if !c.everAuthenticated() {
		return
	}
	if host := c.room.Host(); host != nil && host != c {
		host.sendSystem(protocol.SystemEvent{Event: roomlink.EventDisconnect, ID: c.id})
	}
}
