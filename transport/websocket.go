// Copyright 2026 The Shuttle Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var _ net.Listener = (*WebSocketListener)(nil)
var _ net.Conn = (*wsConn)(nil)

// WebSocketListener accepts websocket connections and presents each as
// a net.Conn carrying the bridge's binary frame stream. Frames travel
// inside binary websocket messages; message boundaries are not
// significant, the frame header delimits everything.
type WebSocketListener struct {
	listener net.Listener
	server   *http.Server
	upgrader websocket.Upgrader

	conns     chan net.Conn
	closed    chan struct{}
	closeOnce sync.Once
}

// NewWebSocketListener creates a websocket listener on the specified
// loopback address. Upgrade requests are accepted on any path.
func NewWebSocketListener(address string) (*WebSocketListener, error) {
	if err := checkLoopback(address); err != nil {
		return nil, err
	}
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	l := &WebSocketListener{
		listener: listener,
		upgrader: websocket.Upgrader{
			// Webview hosts send file:// or app-scheme origins; the
			// listener is loopback-only and the handshake token is the
			// actual gate.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns:  make(chan net.Conn),
		closed: make(chan struct{}),
	}
	l.server = &http.Server{Handler: http.HandlerFunc(l.upgrade)}
	go l.server.Serve(listener)
	return l, nil
}

func (l *WebSocketListener) upgrade(w http.ResponseWriter, r *http.Request) {
	ws, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	select {
	case l.conns <- &wsConn{ws: ws}:
	case <-l.closed:
		ws.Close()
	case <-r.Context().Done():
		ws.Close()
	}
}

// Accept waits for the next upgraded connection.
func (l *WebSocketListener) Accept() (net.Conn, error) {
	select {
	case conn := <-l.conns:
		return conn, nil
	case <-l.closed:
		return nil, net.ErrClosed
	}
}

// Addr returns the underlying TCP address.
func (l *WebSocketListener) Addr() net.Addr {
	return l.listener.Addr()
}

// Close shuts down the HTTP server and unblocks Accept.
func (l *WebSocketListener) Close() error {
	l.closeOnce.Do(func() { close(l.closed) })
	return l.server.Close()
}

// wsConn adapts a websocket connection to net.Conn. Reads drain binary
// messages in order; writes emit one binary message per call. Not safe
// for concurrent writes, matching net.Conn usage in the bridge where a
// single writer goroutine owns the write side.
type wsConn struct {
	ws     *websocket.Conn
	reader io.Reader
}

func (c *wsConn) Read(p []byte) (int, error) {
	for {
		if c.reader == nil {
			messageType, reader, err := c.ws.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			if messageType != websocket.BinaryMessage {
				// Text and other message types carry nothing for the
				// frame stream.
				continue
			}
			c.reader = reader
		}
		n, err := c.reader.Read(p)
		if err == io.EOF {
			c.reader = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (c *wsConn) Write(p []byte) (int, error) {
	if err := c.ws.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *wsConn) Close() error { return c.ws.Close() }

func (c *wsConn) LocalAddr() net.Addr  { return c.ws.LocalAddr() }
func (c *wsConn) RemoteAddr() net.Addr { return c.ws.RemoteAddr() }

func (c *wsConn) SetDeadline(t time.Time) error {
	if err := c.ws.SetReadDeadline(t); err != nil {
		return err
	}
	return c.ws.SetWriteDeadline(t)
}

func (c *wsConn) SetReadDeadline(t time.Time) error  { return c.ws.SetReadDeadline(t) }
func (c *wsConn) SetWriteDeadline(t time.Time) error { return c.ws.SetWriteDeadline(t) }
