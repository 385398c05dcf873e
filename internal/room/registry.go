package room

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/luciancaetano/roomlink"
	"github.com/luciancaetano/roomlink/internal/protocol"
)

// Config holds the protocol engine knobs.
type Config struct {
	// AuthTimeout is how long a connection may stay unauthenticated before
	// it is killed.
	AuthTimeout time.Duration
	// ClaimTimeout is how long a freshly created room waits for a host
	// before self-destructing.
	ClaimTimeout time.Duration
	// RateLimit is the per-connection inbound gate. Nil means defaults.
	RateLimit *RateLimitConfig
}

// DefaultConfig returns the engine defaults: a 2s handshake window, 5s room
// claim window and the default rate gate.
func DefaultConfig() *Config {
	return &Config{
		AuthTimeout:  2 * time.Second,
		ClaimTimeout: 5 * time.Second,
		RateLimit:    DefaultRateLimitConfig(),
	}
}

// Registry owns every active room. There is exactly one registry per server
// process, created at startup and handed to whatever accepts sockets; no
// ambient singleton.
type Registry struct {
	cfg *Config
	log *zap.Logger

	mu    sync.Mutex
	rooms map[int]*Room
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg *Config, log *zap.Logger) *Registry {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Registry{
		cfg:   cfg,
		log:   log,
		rooms: make(map[int]*Room),
	}
}

// NewRoom allocates the smallest unused positive integer as the room id,
// constructs a room with a fresh auth secret and inserts it. Ids are reused
// once the prior room with that id has been destroyed.
func (h *Registry) NewRoom() *Room {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := 1
	for {
		if _, taken := h.rooms[id]; !taken {
			break
		}
		id++
	}

	r := newRoom(h, id, h.cfg.ClaimTimeout, h.log)
	h.rooms[id] = r

	h.log.Info("room created", zap.Int("room_id", id))
	return r
}

// GetRoom looks a room up by id.
func (h *Registry) GetRoom(id int) (*Room, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[id]
	return r, ok
}

// DestroyRoom removes the room from the registry. No-op if absent.
func (h *Registry) DestroyRoom(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, id)
}

// CloseRoom notifies a room's members of shutdown and destroys it. No-op if
// the room is absent.
func (h *Registry) CloseRoom(id int) {
	r, ok := h.GetRoom(id)
	if !ok {
		return
	}
	r.Close(roomlink.MsgHostDisconnect, roomlink.CodeHostDisconnect)
}

// Len returns the number of active rooms.
func (h *Registry) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// CloseAll tears down every active room; used on server shutdown.
func (h *Registry) CloseAll() {
	h.mu.Lock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.mu.Unlock()

	for _, r := range rooms {
		r.Close(roomlink.MsgHostDisconnect, roomlink.CodeHostDisconnect)
	}
}

// Accept takes ownership of an upgraded socket headed for the given room id.
// It plays the connect/join notice sequence, decides the connection's role
// (host if the slot is free, client otherwise) and starts the connection's
// goroutines. Sockets for unknown rooms, or client sockets arriving before
// the room is verified, are notified and closed.
func (h *Registry) Accept(sock *websocket.Conn, roomID int) {
	r, ok := h.GetRoom(roomID)
	if !ok {
		writeNotice(sock, protocol.Notice{
			Success: false,
			Event:   roomlink.EventConnect,
			Error:   &protocol.ErrorBody{Msg: roomlink.MsgInvalidRoom, Code: roomlink.CodeInvalidRoom},
		})
		sock.Close()
		return
	}

	writeNotice(sock, protocol.Notice{
		Success:  true,
		Event:    roomlink.EventConnect,
		Info:     "All messages will be in JSON syntax. Provide connection information to finalize connection.",
		Autokick: time.Now().Add(h.cfg.AuthTimeout).UnixMilli(),
	})

	c, joinNotice := h.place(sock, r)
	writeNotice(sock, joinNotice)
	if c == nil {
		sock.Close()
		return
	}

	go c.run()
}

// place decides the socket's role within the room and registers the
// resulting connection. A nil connection means the socket was rejected; the
// returned notice says why.
func (h *Registry) place(sock *websocket.Conn, r *Room) (*Conn, protocol.Notice) {
	if r.Host() == nil {
		c := newConn(sock, r, roomlink.RoleHost, h.cfg, h.log)
		c.handler = &hostHandler{c: c}
		if err := r.attachHost(c); err == nil {
			return c, protocol.Notice{
				Success: true,
				Event:   roomlink.EventJoin,
				Role:    string(roomlink.RoleHost),
				Info:    "Ready for authentication.",
			}
		}
		// Lost the race for the host slot; fall through as a client.
	}

	if r.State() == RoomWaiting {
		return nil, protocol.Notice{
			Success: false,
			Event:   roomlink.EventJoin,
			Error:   &protocol.ErrorBody{Msg: roomlink.MsgUnverified, Code: roomlink.CodeUnverified},
		}
	}
	if r.State() == RoomClosed {
		return nil, protocol.Notice{
			Success: false,
			Event:   roomlink.EventJoin,
			Error:   &protocol.ErrorBody{Msg: roomlink.MsgUnknownFailure, Code: roomlink.CodeUnknownFailure},
		}
	}

	c := newConn(sock, r, roomlink.RoleClient, h.cfg, h.log)
	c.handler = &clientHandler{c: c}
	r.AddConnection(c)
	return c, protocol.Notice{
		Success: true,
		Event:   roomlink.EventJoin,
		Role:    string(roomlink.RoleClient),
		Info:    "Ready for authentication.",
	}
}

// writeNotice writes a pre-connection notice straight to the socket; the
// Conn's serialized writer does not exist yet at this point.
func writeNotice(sock *websocket.Conn, n protocol.Notice) error {
	sock.SetWriteDeadline(time.Now().Add(writeWait))
	return sock.WriteMessage(websocket.TextMessage, protocol.MustEncode(n))
}
