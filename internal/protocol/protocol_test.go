package protocol

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

// TestParseInbound tests parsing of connection-to-server frames
func TestParseInbound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		frame   string
		wantErr bool
		check   func(t *testing.T, msg *Inbound)
	}{
		{
			name:  "host handshake",
			frame: `{"auth":"secret","appID":"app","password":"pw"}`,
			check: func(t *testing.T, msg *Inbound) {
				if msg.Auth != "secret" || msg.AppID != "app" || msg.Password != "pw" {
					t.Errorf("fields = %q/%q/%q", msg.Auth, msg.AppID, msg.Password)
				}
			},
		},
		{
			name:  "routed message",
			frame: `{"to":"abc","data":{"x":1}}`,
			check: func(t *testing.T, msg *Inbound) {
				if msg.To != "abc" {
					t.Errorf("To = %q, want abc", msg.To)
				}
				if string(msg.Data) != `{"x":1}` {
					t.Errorf("Data = %s", msg.Data)
				}
			},
		},
		{
			name:  "empty object",
			frame: `{}`,
			check: func(t *testing.T, msg *Inbound) {
				if msg.Auth != "" || msg.To != "" || msg.Data != nil {
					t.Errorf("expected zero fields, got %+v", msg)
				}
			},
		},
		{
			name:  "leading whitespace",
			frame: "  \r\n {\"appID\":\"app\"}",
			check: func(t *testing.T, msg *Inbound) {
				if msg.AppID != "app" {
					t.Errorf("AppID = %q", msg.AppID)
				}
			},
		},
		{
			name:    "array frame",
			frame:   `[1,2,3]`,
			wantErr: true,
		},
		{
			name:    "scalar frame",
			frame:   `"hello"`,
			wantErr: true,
		},
		{
			name:    "malformed object",
			frame:   `{"auth":`,
			wantErr: true,
		},
		{
			name:    "empty frame",
			frame:   ``,
			wantErr: true,
		},
		{
			name:    "garbage",
			frame:   `not json at all`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			msg, err := ParseInbound([]byte(tt.frame))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected parse error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseInbound() error = %v", err)
			}
			if tt.check != nil {
				tt.check(t, msg)
			}
		})
	}
}

// TestParseInboundOversized tests the frame size ceiling
func TestParseInboundOversized(t *testing.T) {
	t.Parallel()

	frame := []byte(`{"data":"` + strings.Repeat("a", maxFrameSize) + `"}`)
	if _, err := ParseInbound(frame); err == nil {
		t.Fatal("expected oversized frame to be rejected")
	}
}

// TestParseInboundRaw tests that the original bytes survive parsing
func TestParseInboundRaw(t *testing.T) {
	t.Parallel()

	frame := []byte(`{"key":"held-down","modifiers":["shift"]}`)
	msg, err := ParseInbound(frame)
	if err != nil {
		t.Fatalf("ParseInbound() error = %v", err)
	}
	if !bytes.Equal(msg.Raw(), frame) {
		t.Errorf("Raw() = %s, want %s", msg.Raw(), frame)
	}
}

// TestNoticeShapes tests the wire shape of outbound notices
func TestNoticeShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		notice Notice
		want   string
	}{
		{
			name:   "success ack",
			notice: Notice{Success: true, Event: "message"},
			want:   `{"success":true,"event":"message"}`,
		},
		{
			name: "failed authenticate",
			notice: Notice{
				Success: false,
				Event:   "authenticate",
				Error:   &ErrorBody{Msg: "appID doesn't match", Code: "appIDMismatch"},
			},
			want: `{"success":false,"event":"authenticate","error":{"msg":"appID doesn't match","code":"appIDMismatch"}}`,
		},
		{
			name: "connect with autokick",
			notice: Notice{
				Success:  true,
				Event:    "connect",
				Info:     "hi",
				Autokick: 1700000000000,
			},
			want: `{"success":true,"event":"connect","info":"hi","autokick":1700000000000}`,
		},
		{
			name:   "join with role",
			notice: Notice{Success: true, Event: "join", Role: "host", Info: "Ready for authentication."},
			want:   `{"success":true,"event":"join","role":"host","info":"Ready for authentication."}`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data, err := Encode(tt.notice)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Encode() = %s, want %s", data, tt.want)
			}
		})
	}
}

// TestEnvelopeShapes tests the wire shape of relay envelopes
func TestEnvelopeShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		env  Envelope
		want string
	}{
		{
			name: "host to client",
			env:  Envelope{From: "host", Data: json.RawMessage(`{"x":1}`)},
			want: `{"from":"host","data":{"x":1}}`,
		},
		{
			name: "client to host tagged with id",
			env:  Envelope{From: "client", ID: "abc", Data: json.RawMessage(`{"y":2}`)},
			want: `{"from":"client","id":"abc","data":{"y":2}}`,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data, err := Encode(tt.env)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Encode() = %s, want %s", data, tt.want)
			}
		})
	}
}

// TestSystemEnvelope tests the system event envelope helper
func TestSystemEnvelope(t *testing.T) {
	t.Parallel()

	env := NewSystemEnvelope(SystemEvent{Event: "join", ID: "abc"})
	data, err := Encode(env)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	want := `{"from":"system","data":{"event":"join","id":"abc"}}`
	if string(data) != want {
		t.Errorf("Encode() = %s, want %s", data, want)
	}

	env = NewSystemEnvelope(SystemEvent{
		Event:  "disconnected",
		Reason: &ErrorBody{Msg: "Auth not provided in time", Code: "authTimeout"},
	})
	data, err = Encode(env)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	want = `{"from":"system","data":{"event":"disconnected","reason":{"msg":"Auth not provided in time","code":"authTimeout"}}}`
	if string(data) != want {
		t.Errorf("Encode() = %s, want %s", data, want)
	}
}
