package room

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/luciancaetano/roomlink"
	"github.com/luciancaetano/roomlink/internal/protocol"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next frame or pong from the peer.
	pongWait = 60 * time.Second

	// Ping period; must be less than pongWait.
	pingPeriod = 54 * time.Second

	// Maximum frame size accepted from a peer.
	maxMessageSize = 64 * 1024
)

// roleHandler is the strategy bound to a connection at construction. The
// host and client variants share the Conn state machine and differ only in
// how they handle admitted messages and transport loss.
type roleHandler interface {
	onMessage(msg *protocol.Inbound)
	onClose()
}

// Conn is one socket inside a room. It owns the read loop, a keepalive
// pinger, a rate gate and the auth-timeout timer; all of them stop when the
// connection reaches a terminal state.
type Conn struct {
	id   string
	role roomlink.Role
	room *Room
	sock *websocket.Conn
	log  *zap.Logger

	mu     sync.RWMutex
	state  roomlink.State
	authed bool

	// writeMu serializes data and ping writes on the socket.
	writeMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc

	gate        *bucket
	handler     roleHandler
	authTimeout time.Duration
	authTimer   *time.Timer
	closeOnce   sync.Once
}

var _ roomlink.Connection = (*Conn)(nil)

func newConn(sock *websocket.Conn, r *Room, role roomlink.Role, cfg *Config, log *zap.Logger) *Conn {
	ctx, cancel := context.WithCancel(context.Background())

	id := uuid.NewString()
	c := &Conn{
		id:          id,
		role:        role,
		room:        r,
		sock:        sock,
		state:       roomlink.StateWaiting,
		ctx:         ctx,
		cancel:      cancel,
		gate:        newBucket(cfg.RateLimit),
		authTimeout: cfg.AuthTimeout,
		log: log.With(
			zap.Int("room_id", r.ID()),
			zap.String("conn_id", id),
			zap.String("role", string(role)),
		),
	}
	return c
}

// ID returns the connection's unique identifier.
func (c *Conn) ID() string {
	return c.id
}

// Role returns the fixed role assigned when the connection joined its room.
func (c *Conn) Role() roomlink.Role {
	return c.role
}

// State returns the connection's current lifecycle state.
func (c *Conn) State() roomlink.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Context returns the connection's lifecycle context.
func (c *Conn) Context() context.Context {
	return c.ctx
}

// run drives the connection until the transport goes away or the connection
// is killed. It blocks; callers start it in its own goroutine.
func (c *Conn) run() {
	c.armAuthTimer()

	go c.gate.run(c.ctx)
	go c.keepalive()

	c.readLoop()
}

// armAuthTimer starts the handshake deadline. The timer field is guarded by
// c.mu; Kill may race this from another connection's teardown (a host loss
// kills every room member), so the assignment and the stop must be ordered.
// A connection already terminal by the time run starts gets no timer.
func (c *Conn) armAuthTimer() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Terminal() {
		return
	}
	c.authTimer = time.AfterFunc(c.authTimeout, func() {
		if c.State() == roomlink.StateWaiting {
			c.Kill(roomlink.MsgAuthTimeout, roomlink.CodeAuthTimeout)
		}
	})
}

// readLoop processes inbound frames strictly in arrival order. A frame that
// fails to parse is fatal; an admitted frame goes to the role handler.
func (c *Conn) readLoop() {
	defer c.transportClosed()

	c.sock.SetReadLimit(maxMessageSize)
	c.sock.SetReadDeadline(time.Now().Add(pongWait))
	c.sock.SetPongHandler(func(string) error {
		return c.sock.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.sock.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Debug("unexpected socket close", zap.Error(err))
			}
			return
		}
		c.sock.SetReadDeadline(time.Now().Add(pongWait))

		msg, err := protocol.ParseInbound(data)
		if err != nil {
			c.Kill(roomlink.MsgInvalidJSON, roomlink.CodeInvalidJSON)
			return
		}

		switch c.gate.offer() {
		case verdictAdmit:
			c.handler.onMessage(msg)
		case verdictDrop:
			c.sendNotice(protocol.Notice{
				Success: false,
				Event:   roomlink.EventMessage,
				Error: &protocol.ErrorBody{
					Msg:  roomlink.MsgRateLimited,
					Code: roomlink.CodeRateLimited,
				},
			})
		case verdictKill:
			c.Kill(roomlink.MsgRateExceeded, roomlink.CodeRateExceeded)
			return
		}
	}
}

// keepalive pings the peer until the connection dies.
func (c *Conn) keepalive() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.writeMu.Lock()
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			err := c.sock.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// Send wraps data in a {from, data} envelope and writes it to the transport.
// It is a no-op once the connection is terminal.
func (c *Conn) Send(from string, data []byte) error {
	return c.sendEnvelope(protocol.Envelope{From: from, Data: data})
}

// sendTagged additionally tags the envelope with a sender id; used when
// relaying a client's traffic to the host.
func (c *Conn) sendTagged(from, id string, data []byte) error {
	return c.sendEnvelope(protocol.Envelope{From: from, ID: id, Data: data})
}

// sendSystem delivers a system event envelope.
func (c *Conn) sendSystem(event protocol.SystemEvent) error {
	return c.sendEnvelope(protocol.NewSystemEnvelope(event))
}

func (c *Conn) sendEnvelope(env protocol.Envelope) error {
	if c.State().Terminal() {
		return nil
	}
	frame, err := protocol.Encode(env)
	if err != nil {
		return err
	}
	return c.writeFrame(frame)
}

// sendNotice writes a {success, event, ...} frame.
func (c *Conn) sendNotice(n protocol.Notice) error {
	if c.State().Terminal() {
		return nil
	}
	return c.writeFrame(protocol.MustEncode(n))
}

// writeFrame performs one serialized text write. A failed write is not
// retried; an unreachable peer surfaces as a transport close shortly after.
func (c *Conn) writeFrame(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.sock.SetWriteDeadline(time.Now().Add(writeWait))
	return c.sock.WriteMessage(websocket.TextMessage, frame)
}

// setAuthenticated moves the connection from waiting to authenticated and
// disarms the auth-timeout timer. No-op in any other state.
func (c *Conn) setAuthenticated() {
	c.mu.Lock()
	if c.state != roomlink.StateWaiting {
		c.mu.Unlock()
		return
	}
	c.state = roomlink.StateAuthenticated
	c.authed = true
	c.mu.Unlock()

	c.stopAuthTimer()
}

// everAuthenticated reports whether the connection completed its handshake at
// some point, regardless of its current state.
func (c *Conn) everAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authed
}

// Kill terminates the connection at the protocol level: it leaves the room,
// emits a final disconnected notice carrying {reason, code}, closes the
// socket and cancels the lifecycle context. Idempotent.
func (c *Conn) Kill(reason, code string) {
	c.mu.Lock()
	if c.state.Terminal() {
		c.mu.Unlock()
		return
	}
	c.state = roomlink.StateKilled
	c.mu.Unlock()

	if reason == "" {
		reason = "Unknown"
	}
	if code == "" {
		code = "unknown"
	}

	c.stopAuthTimer()
	c.room.removeConn(c)

	// Best-effort final notice; the peer may already be gone.
	c.writeFrame(protocol.MustEncode(protocol.NewSystemEnvelope(protocol.SystemEvent{
		Event:  roomlink.EventDisconnected,
		Reason: &protocol.ErrorBody{Msg: reason, Code: code},
	})))

	deadline := time.Now().Add(time.Second)
	c.sock.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, code), deadline)
	c.sock.Close()
	c.cancel()

	c.log.Info("connection killed",
		zap.String("code", code),
		zap.String("reason", reason),
	)

	c.finish()
}

// transportClosed runs when the read loop exits. If the connection was not
// already killed it transitions to closed and cleans up.
func (c *Conn) transportClosed() {
	c.mu.Lock()
	if c.state.Terminal() {
		c.mu.Unlock()
		c.finish()
		return
	}
	c.state = roomlink.StateClosed
	c.mu.Unlock()

	c.stopAuthTimer()
	c.room.removeConn(c)
	c.sock.Close()
	c.cancel()

	c.log.Info("connection closed")

	c.finish()
}

// finish runs the role-specific close handling exactly once, no matter which
// of Kill or transportClosed got there first.
func (c *Conn) finish() {
	c.closeOnce.Do(func() {
		c.handler.onClose()
	})
}

func (c *Conn) stopAuthTimer() {
	c.mu.Lock()
	timer := c.authTimer
	c.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
}
