// Package protocol defines the JSON frames exchanged over a room connection
// and the parser for inbound traffic. Outbound frames come in two families:
// notices ({success, event, ...}) around connection setup and acks, and relay
// envelopes ({from, id?, data}) carrying application payloads or system
// events.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const maxFrameSize = 1 << 20 // 1MB per frame

var (
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
	ErrNotAnObject   = errors.New("frame is not a JSON object")
)

// ErrorBody is the {msg, code} pair attached to failed notices and to
// termination reasons. Code values come from the roomlink root package and
// are stable.
type ErrorBody struct {
	Msg  string `json:"msg"`
	Code string `json:"code"`
}

// Notice is the server-originated {success, event, ...} frame family used for
// the connect/join sequence, authentication results and message acks.
type Notice struct {
	Success  bool       `json:"success"`
	Event    string     `json:"event"`
	Role     string     `json:"role,omitempty"`
	Info     string     `json:"info,omitempty"`
	Autokick int64      `json:"autokick,omitempty"`
	Error    *ErrorBody `json:"error,omitempty"`
}

// Envelope is the relay frame {from, id?, data}. From names the logical
// sender ("system", "host" or "client"); ID tags a client's messages with its
// connection id when relayed to the host.
type Envelope struct {
	From string          `json:"from"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data"`
}

// SystemEvent is the payload carried inside system envelopes: join and
// disconnect notifications ({event, id}) and the final termination notice
// ({event, reason}).
type SystemEvent struct {
	Event  string     `json:"event"`
	ID     string     `json:"id,omitempty"`
	Reason *ErrorBody `json:"reason,omitempty"`
}

// SystemAction is the payload a host sends under to:"system", currently only
// {action:"kick", id}.
type SystemAction struct {
	Action string `json:"action"`
	ID     string `json:"id"`
}

// Inbound is a parsed connection-to-server frame. All fields are optional at
// the parsing layer; which ones are required depends on the connection's
// state and role.
type Inbound struct {
	Auth     string          `json:"auth"`
	AppID    string          `json:"appID"`
	Password string          `json:"password"`
	To       string          `json:"to"`
	Data     json.RawMessage `json:"data"`

	raw []byte
}

// Raw returns the original frame bytes. Client traffic is relayed to the host
// verbatim, so the raw form must survive parsing.
func (m *Inbound) Raw() json.RawMessage {
	return m.raw
}

// ParseInbound parses one inbound frame. The frame must be a JSON object;
// anything else (arrays, scalars, malformed input, oversized frames) is a
// protocol violation and fatal to the connection upstream.
func ParseInbound(data []byte) (*Inbound, error) {
	if len(data) > maxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(data))
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotAnObject
	}

	msg := &Inbound{raw: data}
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("invalid frame: %w", err)
	}
	return msg, nil
}

// Encode marshals any outbound frame. Frames are built from the structs in
// this package, so a marshal failure is a programming error surfaced to the
// caller rather than swallowed.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return data, nil
}

// MustEncode is Encode for frames assembled from static shapes; it panics on
// marshal failure.
func MustEncode(v any) []byte {
	data, err := Encode(v)
	if err != nil {
		panic(err)
	}
	return data
}

// NewSystemEnvelope builds a {from:"system", data:<event>} frame.
func NewSystemEnvelope(event SystemEvent) Envelope {
	return Envelope{
		From: "system",
		Data: MustEncode(event),
	}
}
