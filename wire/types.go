// Copyright 2026 The Shuttle Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import "github.com/shuttle-works/shuttle/schema"

// ProtocolVersion is the bridge wire protocol version, echoed in Pong
// replies so the UI can detect an incompatible bridge binary.
const ProtocolVersion = 1

// HandshakeID is the fixed correlation id carried by handshake frames.
// Request ids are client-chosen and live in the same number space, but
// by convention clients start at 1 so HandshakeID never collides.
const HandshakeID uint64 = 0

// Handshake is the first envelope a client sends on a new connection.
type Handshake struct {
	// Token is the shared secret configured out-of-band by the host
	// process.
	Token string `cbor:"token"`
}

// HandshakeReply answers a Handshake. On Success the connection is
// authenticated and accepts Request frames; otherwise the bridge
// closes the transport immediately after writing the reply.
type HandshakeReply struct {
	Success bool   `cbor:"success"`
	Error   string `cbor:"error,omitempty"`
}

// Request operations. Op selects the command handler.
const (
	// OpPing is answered locally by the bridge without touching the
	// upstream server.
	OpPing = "ping"

	// OpConnect sets the active upstream server.
	OpConnect = "connect"

	// OpDisconnect clears the active upstream server.
	OpDisconnect = "disconnect"

	// OpServerStatus reports the active upstream server, if any.
	OpServerStatus = "server_status"

	// OpListSessions lists sessions on the active upstream server.
	OpListSessions = "list_sessions"

	// OpCreateSession creates a session, optionally titled.
	OpCreateSession = "create_session"

	// OpDeleteSession deletes a session by id.
	OpDeleteSession = "delete_session"

	// OpSendMessage sends a message into a session and waits for the
	// assistant's reply. Runs under the extended upstream timeout.
	OpSendMessage = "send_message"

	// OpAbort cancels the in-flight generation in a session.
	OpAbort = "abort"
)

// Request is a client request envelope. Op discriminates the payload;
// the remaining fields are populated per operation and omitted
// otherwise.
type Request struct {
	// ID is the client-chosen correlation id. The matching Response
	// carries the same id. Ids need not be sequential; the bridge
	// echoes them without interpretation.
	ID uint64 `cbor:"request_id"`

	// Op is the operation discriminant (one of the Op* constants).
	Op string `cbor:"op"`

	// URL and Directory configure the upstream server (for connect).
	URL       string `cbor:"url,omitempty"`
	Directory string `cbor:"directory,omitempty"`

	// Title is the optional session title (for create_session).
	Title string `cbor:"title,omitempty"`

	// SessionID targets an existing session (for delete_session,
	// send_message, abort).
	SessionID string `cbor:"session_id,omitempty"`

	// Text is the message body (for send_message).
	Text string `cbor:"text,omitempty"`

	// ProviderID and ModelID select the model (for send_message).
	ProviderID string `cbor:"provider_id,omitempty"`
	ModelID    string `cbor:"model_id,omitempty"`

	// Agent is the optional agent profile (for send_message).
	Agent string `cbor:"agent,omitempty"`
}

// Response is a bridge response envelope. Exactly one payload field is
// set: Error on failure, otherwise the field matching the request's
// operation.
type Response struct {
	// ID echoes the correlation id of the request being answered.
	ID uint64 `cbor:"request_id"`

	// Error is set when the operation failed. All failures are data;
	// the connection keeps serving subsequent requests.
	Error *Error `cbor:"error,omitempty"`

	// Pong answers ping.
	Pong *Pong `cbor:"pong,omitempty"`

	// Server answers connect, disconnect, and server_status.
	Server *ServerStatus `cbor:"server,omitempty"`

	// Sessions answers list_sessions.
	Sessions []schema.SessionInfo `cbor:"sessions,omitempty"`

	// Session answers create_session.
	Session *schema.SessionInfo `cbor:"session,omitempty"`

	// Deleted answers delete_session. Pointer so "false" is
	// distinguishable from "field not present".
	Deleted *bool `cbor:"deleted,omitempty"`

	// Aborted answers abort.
	Aborted *bool `cbor:"aborted,omitempty"`

	// Message answers send_message.
	Message *schema.Message `cbor:"message,omitempty"`
}

// Pong is the ping reply payload.
type Pong struct {
	Protocol int `cbor:"protocol"`
}

// ServerStatus reports the active upstream server.
type ServerStatus struct {
	Connected bool   `cbor:"connected"`
	URL       string `cbor:"url,omitempty"`
	Directory string `cbor:"directory,omitempty"`
}

// Event is the unsolicited event envelope forwarded from the upstream
// event stream on FrameEvent frames.
type Event struct {
	Type       string         `cbor:"type"`
	Properties map[string]any `cbor:"properties,omitempty"`
}

// Error codes carried in Error envelopes. Only a failed handshake
// terminates a connection; every code below is reported in-band and
// the connection continues.
const (
	// ErrCodeProtocol marks a malformed frame or unknown operation.
	ErrCodeProtocol = "protocol"

	// ErrCodeNotConnected marks a request that needs an upstream
	// server when none is set.
	ErrCodeNotConnected = "not_connected"

	// ErrCodeUpstreamHTTP marks a non-success status (or transport
	// failure) from the upstream server.
	ErrCodeUpstreamHTTP = "upstream_http"

	// ErrCodeUpstreamDecode marks a normalization or typed-decode
	// failure on an upstream response — a schema drift signal, logged
	// loudly by the bridge.
	ErrCodeUpstreamDecode = "upstream_decode"

	// ErrCodeTimeout marks an upstream call that exceeded its
	// deadline.
	ErrCodeTimeout = "timeout"

	// ErrCodeCancelled marks an upstream call aborted by cancellation.
	ErrCodeCancelled = "cancelled"
)

// Error is the structured failure payload. Never a Go error crossing
// the connection boundary — always a value inside a Response.
type Error struct {
	Code    string `cbor:"code"`
	Message string `cbor:"message"`
}
