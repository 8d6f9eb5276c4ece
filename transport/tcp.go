// Copyright 2026 The Shuttle Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"
	"net"
)

// NewTCPListener creates a TCP listener on the specified loopback
// address (e.g., "127.0.0.1:4096"). Use port 0 for a random available
// port. Non-loopback addresses are refused: the bridge carries a
// shared-secret handshake, not peer authentication, and must never be
// reachable off-host.
func NewTCPListener(address string) (net.Listener, error) {
	if err := checkLoopback(address); err != nil {
		return nil, err
	}
	return net.Listen("tcp", address)
}

// checkLoopback verifies that address names a loopback interface.
func checkLoopback(address string) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("transport: invalid listen address %q: %w", address, err)
	}
	if host == "localhost" {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("transport: invalid listen host %q", host)
	}
	if !ip.IsLoopback() {
		return fmt.Errorf("transport: refusing to listen on non-loopback address %q", address)
	}
	return nil
}
