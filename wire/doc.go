// Copyright 2026 The Shuttle Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire defines the bridge wire protocol: binary frames carrying
// CBOR envelopes between the UI process and shuttle-bridge.
//
// Every frame is a 5-byte header (1 byte frame type + 4 byte big-endian
// payload length) followed by a CBOR payload. Field names inside
// payloads use the internal convention (lower snake_case) exclusively;
// translation to and from the upstream convention happens only at the
// upstream client boundary, never on this wire.
//
// Connection lifecycle: the first client frame must be FrameHandshake.
// After a successful HandshakeReply the client sends Request envelopes
// and receives Response envelopes correlated by request_id, plus
// unsolicited Event frames from the upstream event stream. Responses
// may complete out of order; the request_id is the only correlation.
package wire
