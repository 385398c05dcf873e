// Package roomlink implements an ephemeral room rendezvous and relay server
// for remote-control style applications (keyboard/mouse forwarding and
// similar). It pairs exactly one host with any number of clients inside a
// numbered room and relays opaque JSON payloads between them, never inspecting
// anything beyond routing metadata.
//
// # Architecture
//
// Rooms are created out-of-band over HTTP; creation returns the room id plus a
// one-time auth secret. The first socket to connect to a room becomes its
// host and must present that secret (together with an application id and an
// optional password) within the auth window. Later sockets join as clients
// and authenticate against the credentials the host registered. After the
// handshake the host addresses clients by id and may kick them; clients talk
// to the host only. A host disconnect tears down the whole room.
//
// Every connection carries its own token-bucket rate limiter. A connection
// that keeps sending while its bucket is empty is warned and, past the
// warning limit, terminated.
//
// # Quick Start
//
//	import (
//	    "github.com/luciancaetano/roomlink/relay"
//	)
//
//	cfg := relay.DefaultConfig()
//	cfg.Addr = ":8080"
//
//	srv, err := relay.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Create a room:
//
//	POST /newRoom              -> {"id": 1, "auth": "<secret>", "timeout": 1700000000000}
//
// Connect to it:
//
//	GET  /room/1  (WebSocket)  -> {"success": true, "event": "connect", ...}
//	                              {"success": true, "event": "join", "role": "host", ...}
//
// # Wire Format
//
// All traffic is JSON text frames. Server-originated frames are either
// notices ({success, event, ...}) or relay envelopes ({from, data}), where
// from is "system", "host" or "client". The internal/protocol package holds
// the exact shapes; codes.go holds the frozen error codes.
//
// # Rate Limiting
//
//	// Default: bucket of 20 tokens, +1 token every 100ms,
//	// 3 warnings tolerated per 5s window
//	cfg := relay.DefaultConfig()
//
//	// Custom
//	cfg.RateLimit = relay.RateLimitConfig{
//	    Capacity:       50,
//	    RefillInterval: 50 * time.Millisecond,
//	    WarnWindow:     10 * time.Second,
//	    WarnLimit:      5,
//	    Enabled:        true,
//	}
//
// A connection that exhausts its warnings is killed with code "rateExceeded".
//
// # Important
//
//   - Messages from one connection are handled strictly in arrival order.
//   - Nothing is retried by the server; recoverable errors require the remote
//     side to resend a corrected message.
//   - Set AllowedOrigins in production; the default admits every origin.
package roomlink
