package room

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrConnNotFound  = errors.New("no connection with that id in room")
	ErrDuplicateConn = errors.New("duplicate connection id in room")
	ErrHostTaken     = errors.New("room already has a host")
)

// RoomState tracks a room through its lifecycle. A room is waiting until its
// host completes authentication, open while it can accept clients, and closed
// once it has been torn down and removed from the registry.
type RoomState string

const (
	RoomWaiting RoomState = "waiting"
	RoomOpen    RoomState = "open"
	RoomClosed  RoomState = "closed"
)

// Room is one rendezvous point: at most one host plus any number of clients.
// The connection set is the only state shared across connection goroutines
// and is guarded by a single mutex.
type Room struct {
	id           int
	authSecret   string
	createdAt    time.Time
	claimTimeout time.Duration

	registry *Registry
	log      *zap.Logger

	mu       sync.Mutex
	state    RoomState
	appID    string
	password string
	host     *Conn
	conns    []*Conn
	expiry   *time.Timer
}

func newRoom(reg *Registry, id int, claimTimeout time.Duration, log *zap.Logger) *Room {
	r := &Room{
		id:           id,
		authSecret:   uuid.NewString(),
		createdAt:    time.Now(),
		claimTimeout: claimTimeout,
		registry:     reg,
		state:        RoomWaiting,
		log:          log.With(zap.Int("room_id", id)),
	}

	// An unclaimed room self-destructs. No notifications are needed: the
	// host slot is still empty, so no connections exist to notify.
	r.expiry = time.AfterFunc(claimTimeout, func() {
		r.mu.Lock()
		waiting := r.state == RoomWaiting
		r.mu.Unlock()
		if waiting {
			r.log.Info("room expired unclaimed")
			reg.DestroyRoom(id)
		}
	})

	return r
}

// ID returns the room's numeric id.
func (r *Room) ID() int {
	return r.id
}

// AuthSecret returns the one-time token the host must present.
func (r *Room) AuthSecret() string {
	return r.authSecret
}

// ClaimDeadline is the absolute time by which a host must claim the room.
func (r *Room) ClaimDeadline() time.Time {
	return r.createdAt.Add(r.claimTimeout)
}

// State returns the room's lifecycle state.
func (r *Room) State() RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Host returns the host connection, or nil while the host slot is empty.
func (r *Room) Host() *Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.host
}

// Credentials returns the appID and password the host registered. Both are
// empty until the room opens.
func (r *Room) Credentials() (appID, password string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.appID, r.password
}

// open records the credentials clients must present and moves the room from
// waiting to open. Called exactly once, when the host authenticates.
func (r *Room) open(appID, password string) {
	r.mu.Lock()
	if r.state != RoomWaiting {
		r.mu.Unlock()
		return
	}
	r.state = RoomOpen
	r.appID = appID
	r.password = password
	r.mu.Unlock()

	r.expiry.Stop()
	r.log.Info("room open", zap.String("app_id", appID))
}

// AddConnection inserts a connection into the room's set and returns it.
func (r *Room) AddConnection(c *Conn) *Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns = append(r.conns, c)
	return c
}

func (r *Room) removeConn(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, other := range r.conns {
		if other == c {
			r.conns = append(r.conns[:i], r.conns[i+1:]...)
			break
		}
	}
}

// Connections returns a snapshot of the room's connection set.
func (r *Room) Connections() []*Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Conn, len(r.conns))
	copy(out, r.conns)
	return out
}

// FindConnection returns the unique connection with the given id. Zero
// matches is a routing error; more than one would mean id generation broke,
// which is reported rather than silently picking one.
func (r *Room) FindConnection(id string) (*Conn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var found *Conn
	for _, c := range r.conns {
		if c.id != id {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateConn, id)
		}
		found = c
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrConnNotFound, id)
	}
	return found, nil
}

// Send delivers data to every connection in the room.
func (r *Room) Send(from string, data []byte) {
	for _, c := range r.Connections() {
		c.Send(from, data)
	}
}

// SendExcluding delivers data to every connection except the ignored ones.
func (r *Room) SendExcluding(ignored []*Conn, from string, data []byte) {
	skip := make(map[*Conn]struct{}, len(ignored))
	for _, c := range ignored {
		skip[c] = struct{}{}
	}
	for _, c := range r.Connections() {
		if _, ok := skip[c]; ok {
			continue
		}
		c.Send(from, data)
	}
}

// SendOnly delivers data to the given connections only.
func (r *Room) SendOnly(targets []*Conn, from string, data []byte) {
	for _, c := range targets {
		c.Send(from, data)
	}
}

// Close kills every connection in the room (each kill notifies its socket
// individually) and removes the room from the registry. Idempotent.
func (r *Room) Close(reason, code string) {
	r.mu.Lock()
	if r.state == RoomClosed {
		r.mu.Unlock()
		return
	}
	r.state = RoomClosed
	conns := make([]*Conn, len(r.conns))
	copy(conns, r.conns)
	r.mu.Unlock()

	r.expiry.Stop()

	for _, c := range conns {
		c.Kill(reason, code)
	}

	r.log.Info("room closed", zap.String("code", code))
	r.registry.DestroyRoom(r.id)
}

// attachHost claims the host slot. Fails if another connection got there
// first.
func (r *Room) attachHost(c *Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.host != nil {
		return ErrHostTaken
	}
	r.host = c
	r.conns = append(r.conns, c)
	return nil
}
