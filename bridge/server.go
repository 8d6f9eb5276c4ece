// Copyright 2026 The Shuttle Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/shuttle-works/shuttle/lib/codec"
	"github.com/shuttle-works/shuttle/state"
	"github.com/shuttle-works/shuttle/wire"
)

// authTimeout is the maximum time a new connection gets to complete
// the handshake. A connection that has not authenticated within this
// window is closed.
const authTimeout = 10 * time.Second

// outboundBuffer is the per-connection outbound frame queue depth.
// Responses block on a full queue (they must not be lost); broadcast
// events are dropped instead.
const outboundBuffer = 16

// ServerConfig holds configuration for creating a Server.
type ServerConfig struct {
	// Owner is the process-wide state owner. Required.
	Owner *state.Owner
	// Token is the shared secret the UI must present in its handshake.
	// Required. Only its BLAKE3 digest is retained.
	Token string
	// Logger is used for structured logging. If nil, slog.Default().
	Logger *slog.Logger
}

// Server is the protocol engine. Create with NewServer, then call Run
// with one or more listeners.
type Server struct {
	owner       *state.Owner
	tokenDigest [32]byte
	logger      *slog.Logger
	hub         *hub
}

// NewServer creates a protocol engine.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Owner == nil {
		return nil, fmt.Errorf("bridge: Owner is required")
	}
	if config.Token == "" {
		return nil, fmt.Errorf("bridge: Token is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		owner:       config.Owner,
		tokenDigest: blake3.Sum256([]byte(config.Token)),
		logger:      logger,
		hub:         newHub(),
	}, nil
}

// Run serves connections from the given listeners until ctx is
// cancelled. It also pumps the owner's upstream event stream to every
// authenticated connection. Blocks until all listeners and connections
// have shut down.
func (s *Server) Run(ctx context.Context, listeners ...net.Listener) error {
	if len(listeners) == 0 {
		return fmt.Errorf("bridge: at least one listener is required")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.hub.run(ctx)
	go s.forwardEvents(ctx)

	// Closing the listeners is what unblocks the accept loops.
	go func() {
		<-ctx.Done()
		for _, listener := range listeners {
			listener.Close()
		}
	}()

	var connections sync.WaitGroup
	var accepts sync.WaitGroup
	for _, listener := range listeners {
		accepts.Add(1)
		go func(listener net.Listener) {
			defer accepts.Done()
			s.serve(ctx, listener, &connections)
		}(listener)
	}
	accepts.Wait()
	cancel()
	connections.Wait()
	return nil
}

// serve accepts connections and handles each in its own goroutine.
func (s *Server) serve(ctx context.Context, listener net.Listener, connections *sync.WaitGroup) {
	s.logger.Info("listening", "address", listener.Addr())
	for {
		transport, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Error("accept error", "error", err)
			continue
		}
		connections.Add(1)
		go func() {
			defer connections.Done()
			s.handleConnection(ctx, transport)
		}()
	}
}

// connection is the per-connection state owned by its reader
// goroutine. The outbound channel is the single funnel to the wire:
// handler goroutines and the event hub send frames; one writer
// goroutine drains them.
type connection struct {
	id       string
	outbound chan wire.Frame
	logger   *slog.Logger
}

// send queues an envelope for the connection's writer. Blocks until
// queued or the connection is torn down.
func (c *connection) send(ctx context.Context, frameType byte, envelope any) {
	payload, err := codec.Marshal(envelope)
	if err != nil {
		// Only possible for a malformed envelope type, which is a
		// programming error; there is nothing useful to put on the
		// wire.
		c.logger.Error("encoding envelope", "error", err)
		return
	}
	select {
	case c.outbound <- wire.Frame{Type: frameType, Payload: payload}:
	case <-ctx.Done():
	}
}

// handleConnection runs one connection from handshake to close.
func (s *Server) handleConnection(ctx context.Context, transport net.Conn) {
	defer transport.Close()

	logger := s.logger.With("connection", uuid.NewString(), "remote", transport.RemoteAddr().String())

	// Authentication. The first frame must be a valid handshake; any
	// failure before that point closes the transport without a reply
	// (fail closed), except a well-formed handshake with a wrong
	// token, which is answered then closed.
	transport.SetReadDeadline(time.Now().Add(authTimeout))
	frame, err := wire.ReadFrame(transport)
	if err != nil {
		logger.Warn("closing connection before handshake", "error", err)
		return
	}
	if frame.Type != wire.FrameHandshake {
		logger.Warn("closing connection: first frame was not a handshake", "frame_type", frame.Type)
		return
	}
	var handshake wire.Handshake
	if err := codec.Unmarshal(frame.Payload, &handshake); err != nil {
		logger.Warn("closing connection: undecodable handshake", "error", err)
		return
	}
	if !s.verifyToken(handshake.Token) {
		logger.Warn("handshake rejected: invalid token")
		wire.WriteEnvelope(transport, wire.FrameHandshakeReply, wire.HandshakeReply{
			Success: false,
			Error:   "invalid token",
		})
		return
	}
	if err := wire.WriteEnvelope(transport, wire.FrameHandshakeReply, wire.HandshakeReply{Success: true}); err != nil {
		logger.Warn("writing handshake reply", "error", err)
		return
	}
	transport.SetReadDeadline(time.Time{})
	logger.Info("connection authenticated")

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Closing the transport is what unblocks the read loop when the
	// server shuts down.
	go func() {
		<-connCtx.Done()
		transport.Close()
	}()

	conn := &connection{
		id:       uuid.NewString(),
		outbound: make(chan wire.Frame, outboundBuffer),
		logger:   logger,
	}

	// Writer: the only goroutine that touches the transport's write
	// side after authentication.
	go func() {
		for {
			select {
			case frame := <-conn.outbound:
				if err := wire.WriteFrame(transport, frame); err != nil {
					logger.Warn("writing frame", "error", err)
					cancel()
					return
				}
			case <-connCtx.Done():
				return
			}
		}
	}()

	s.hub.add(connCtx, conn)
	defer s.hub.remove(conn)

	// Read loop. Post-auth decode failures are answered in-band; only
	// transport errors end the connection.
	for {
		frame, err := wire.ReadFrame(transport)
		if err != nil {
			if err != io.EOF && connCtx.Err() == nil {
				logger.Warn("connection read failed", "error", err)
			} else {
				logger.Info("connection closed")
			}
			return
		}

		if frame.Type != wire.FrameRequest {
			conn.send(connCtx, wire.FrameResponse, errorResponse(wire.HandshakeID, wire.ErrCodeProtocol,
				fmt.Sprintf("unexpected frame type %#x", frame.Type)))
			continue
		}

		var request wire.Request
		if err := codec.Unmarshal(frame.Payload, &request); err != nil {
			conn.send(connCtx, wire.FrameResponse, errorResponse(wire.HandshakeID, wire.ErrCodeProtocol,
				"undecodable request envelope: "+err.Error()))
			continue
		}

		logger.Debug("request", "request_id", request.ID, "op", request.Op)

		// Each request runs independently; the response is tagged with
		// the request id, so out-of-order completion is fine.
		go func(request wire.Request) {
			conn.send(connCtx, wire.FrameResponse, s.dispatch(connCtx, logger, request))
		}(request)
	}
}

// verifyToken compares the presented token against the configured
// secret by digest, in constant time.
func (s *Server) verifyToken(token string) bool {
	digest := blake3.Sum256([]byte(token))
	return subtle.ConstantTimeCompare(digest[:], s.tokenDigest[:]) == 1
}

// forwardEvents pumps the owner's upstream event stream into the hub
// for fan-out to all authenticated connections.
func (s *Server) forwardEvents(ctx context.Context) {
	for {
		select {
		case event, ok := <-s.owner.Events():
			if !ok {
				return
			}
			select {
			case s.hub.events <- wire.Event{Type: event.Type, Properties: event.Properties}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// hub owns the registry of live connections. All access runs through
// its goroutine — registration, removal, and event broadcast are
// messages, so the registry needs no lock.
type hub struct {
	register   chan *connection
	unregister chan *connection
	events     chan wire.Event
	stopped    chan struct{}
}

func newHub() *hub {
	return &hub{
		register:   make(chan *connection),
		unregister: make(chan *connection),
		events:     make(chan wire.Event, 64),
		stopped:    make(chan struct{}),
	}
}

func (h *hub) add(ctx context.Context, conn *connection) {
	select {
	case h.register <- conn:
	case <-ctx.Done():
	}
}

func (h *hub) remove(conn *connection) {
	select {
	case h.unregister <- conn:
	case <-h.stopped:
	}
}

func (h *hub) run(ctx context.Context) {
	defer close(h.stopped)
	connections := make(map[*connection]struct{})
	for {
		select {
		case conn := <-h.register:
			connections[conn] = struct{}{}
		case conn := <-h.unregister:
			delete(connections, conn)
		case event := <-h.events:
			payload, err := codec.Marshal(event)
			if err != nil {
				continue
			}
			frame := wire.Frame{Type: wire.FrameEvent, Payload: payload}
			for conn := range connections {
				// Never let one slow consumer stall the broadcast;
				// events are droppable, responses are not.
				select {
				case conn.outbound <- frame:
				default:
					conn.logger.Warn("dropping event for slow connection", "type", event.Type)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
