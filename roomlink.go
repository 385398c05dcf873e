package roomlink

import "context"

// Role identifies which side of a room a connection plays. A room has at most
// one host; every other connection is a client.
type Role string

const (
	RoleHost   Role = "host"
	RoleClient Role = "client"
)

// State tracks a connection through its lifecycle. Every connection starts in
// StateWaiting and must authenticate before it may exchange messages. The two
// terminal states are absorbing: StateClosed means the transport went away,
// StateKilled means the server terminated the connection at the protocol level
// (auth timeout, rate limit, host kick, malformed input).
type State string

const (
	StateWaiting       State = "waiting"
	StateAuthenticated State = "authenticated"
	StateClosed        State = "closed"
	StateKilled        State = "killed"
)

// Terminal reports whether s is one of the absorbing states.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateKilled
}

// Server is the combined HTTP/WebSocket front end: it creates rooms, upgrades
// sockets into room connections, and serves the convenience endpoints.
//
// Example usage:
//
//	import "github.com/luciancaetano/roomlink/relay"
//
//	srv, err := relay.New(relay.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
type Server interface {
	// Start starts the server and begins accepting room connections.
	// The server keeps running until Stop is called or the context is
	// cancelled.
	Start(ctx context.Context) error

	// Stop gracefully stops the server, tearing down every active room and
	// its connections.
	Stop(ctx context.Context) error
}

// Connection is one authenticated (or authenticating) socket inside a room.
//
// A connection belongs to exactly one room for its whole lifetime. The host
// side addresses clients by their ID; the ID is generated at construction and
// never changes.
type Connection interface {
	// ID returns the connection's unique identifier.
	ID() string

	// Role returns the fixed role assigned when the connection joined its
	// room.
	Role() Role

	// State returns the connection's current lifecycle state.
	State() State

	// Context returns the connection's lifecycle context. It is cancelled
	// when the connection reaches a terminal state, which also cancels the
	// connection's periodic timers.
	Context() context.Context

	// Send wraps data in a relay envelope tagged with the given sender and
	// writes it to the transport. It is a no-op once the connection is in a
	// terminal state.
	Send(from string, data []byte) error

	// Kill terminates the connection at the protocol level: it removes the
	// connection from its room, emits a final disconnected notice carrying
	// reason and code, and closes the transport. Kill is idempotent.
	Kill(reason, code string)
}
