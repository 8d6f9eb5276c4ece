// Copyright 2026 The Shuttle Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// Event is one server-sent event from the workbench event stream.
// Events are forwarded to every authenticated UI connection on the
// bridge's event channel; the bridge never interprets Properties
// beyond normalizing its field names.
type Event struct {
	// Type is the event discriminant (e.g. "session.updated",
	// "message.part.updated").
	Type string `json:"type"`

	// Properties is the event payload with field names already
	// rewritten to the internal convention. Kept as a generic map
	// because the set of event types evolves with the upstream server
	// and the bridge forwards all of them.
	Properties map[string]any `json:"properties,omitempty"`
}
