// Copyright 2026 The Shuttle Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport provides the listeners the bridge serves on. Both
// produce net.Listener values, so the protocol engine is transport
// agnostic.
//
// TCPListener is the primary transport: plain TCP, restricted to
// loopback addresses. The bridge is a local rendezvous between the UI
// and the workbench server; it never listens on a routable interface.
//
// WebSocketListener wraps each accepted websocket in a net.Conn
// adapter that carries the same binary frame stream over binary
// websocket messages. Webview-based UI hosts cannot open raw TCP
// sockets; this is their way in. It enforces the same loopback
// restriction.
package transport
