// Copyright 2026 The Shuttle Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// SessionInfo describes one conversation session on the workbench
// server. Decoded from normalized upstream JSON; forwarded verbatim in
// SessionList and SessionInfo response envelopes.
type SessionInfo struct {
	// ID is the session identifier assigned by the workbench server.
	ID string `json:"id"`

	// ProjectID identifies the project the session belongs to. The
	// upstream API spells this "projectID"; the normalizer rewrites it.
	ProjectID string `json:"project_id,omitempty"`

	// Directory is the working directory the session was created in.
	Directory string `json:"directory,omitempty"`

	// ParentID is the parent session for forked sessions, empty for
	// top-level sessions.
	ParentID string `json:"parent_id,omitempty"`

	// Title is the human-readable session title. The server generates
	// one from the first message when the session was created untitled.
	Title string `json:"title,omitempty"`

	// Version is the workbench server version that created the session.
	Version string `json:"version,omitempty"`

	// Time carries creation and last-update timestamps.
	Time SessionTime `json:"time"`
}

// SessionTime holds session timestamps in Unix milliseconds, matching
// the upstream representation.
type SessionTime struct {
	Created float64 `json:"created,omitempty"`
	Updated float64 `json:"updated,omitempty"`
}
