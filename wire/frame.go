// Copyright 2026 The Shuttle Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/shuttle-works/shuttle/lib/codec"
)

// Frame type constants for the bridge wire format.
const (
	// FrameHandshake carries a Handshake envelope. Client→bridge only,
	// and only as the first frame on a connection.
	FrameHandshake byte = 0x01

	// FrameHandshakeReply carries a HandshakeReply envelope.
	// Bridge→client only, in answer to FrameHandshake.
	FrameHandshakeReply byte = 0x02

	// FrameRequest carries a Request envelope. Client→bridge only.
	FrameRequest byte = 0x03

	// FrameResponse carries a Response envelope. Bridge→client only;
	// always answers a previously received Request.
	FrameResponse byte = 0x04

	// FrameEvent carries an Event envelope. Bridge→client only,
	// unsolicited: the bridge forwards upstream server-sent events on
	// this frame type and never on FrameResponse.
	FrameEvent byte = 0x05
)

// frameHeaderLength is the fixed size of a frame header: 1 byte type
// + 4 bytes payload length.
const frameHeaderLength = 5

// MaxPayloadLength is the maximum allowed payload size. 16 MB is
// generous for control envelopes; assistant messages with large text
// parts stay well under it.
const MaxPayloadLength = 16 * 1024 * 1024

// Frame is a single wire frame: a type discriminant and its raw CBOR
// payload.
type Frame struct {
	Type    byte
	Payload []byte
}

// WriteFrame writes a framed payload to w. The frame format is:
// [1 byte type] [4 bytes payload length, big-endian uint32] [payload].
func WriteFrame(w io.Writer, frame Frame) error {
	if len(frame.Payload) > MaxPayloadLength {
		return fmt.Errorf("frame payload %d bytes exceeds maximum %d", len(frame.Payload), MaxPayloadLength)
	}
	var header [frameHeaderLength]byte
	header[0] = frame.Type
	binary.BigEndian.PutUint32(header[1:5], uint32(len(frame.Payload)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("write frame header: %w", err)
	}
	if len(frame.Payload) > 0 {
		if _, err := w.Write(frame.Payload); err != nil {
			return fmt.Errorf("write frame payload: %w", err)
		}
	}
	return nil
}

// ReadFrame reads one framed payload from r. Returns io.EOF when the
// connection closes cleanly between frames.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [frameHeaderLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("read frame header: %w", err)
	}

	length := binary.BigEndian.Uint32(header[1:5])
	if length > MaxPayloadLength {
		return Frame{}, fmt.Errorf("frame payload %d bytes exceeds maximum %d", length, MaxPayloadLength)
	}

	frame := Frame{Type: header[0]}
	if length > 0 {
		frame.Payload = make([]byte, length)
		if _, err := io.ReadFull(r, frame.Payload); err != nil {
			return Frame{}, fmt.Errorf("read frame payload: %w", err)
		}
	}
	return frame, nil
}

// WriteEnvelope CBOR-encodes v and writes it as a frame of the given
// type.
func WriteEnvelope(w io.Writer, frameType byte, v any) error {
	payload, err := codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %#x envelope: %w", frameType, err)
	}
	return WriteFrame(w, Frame{Type: frameType, Payload: payload})
}
