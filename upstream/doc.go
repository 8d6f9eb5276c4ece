// Copyright 2026 The Shuttle Authors
// SPDX-License-Identifier: Apache-2.0

// Package upstream implements the HTTP client for the workbench server
// the bridge proxies: session CRUD, message sending, and the
// server-sent event stream.
//
// Every JSON body crossing this boundary passes through the normalize
// package — responses before typed decoding, request bodies after
// encoding. This is mandatory for all endpoints: the upstream naming
// convention is inconsistent per-field and nothing downstream of this
// package ever sees it.
//
// A Client is immutable once constructed. When the active server
// changes, the state owner builds a new Client rather than mutating
// the old one; in-flight calls on the superseded client run to
// completion.
package upstream
