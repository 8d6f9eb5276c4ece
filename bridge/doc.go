// Copyright 2026 The Shuttle Authors
// SPDX-License-Identifier: Apache-2.0

// Package bridge implements the connection-level protocol engine: it
// accepts UI connections, runs the authentication handshake, frames
// and parses binary wire messages, correlates requests to responses,
// and dispatches decoded requests to command handlers.
//
// Each connection is serviced by its own reader goroutine; every
// decoded request runs in its own handler goroutine, and completed
// responses funnel through a single writer goroutine per connection.
// Responses therefore complete out of order without head-of-line
// blocking, each tagged with its originating request id.
//
// Per-connection state machine: Unauthenticated → Authenticated →
// Closed. The first frame must be a handshake; a bad token (or any
// pre-auth garbage) closes the transport. After authentication, all
// failures — malformed frames, unknown ops, upstream errors — are
// reported in-band as Error envelopes and the connection keeps
// serving.
//
// The only process-wide shared state is the state.Owner; connections
// share nothing else. Event fan-out runs through a hub goroutine that
// owns the connection registry, so no registry lock exists either.
package bridge
