// Copyright 2026 The Shuttle Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// Message is one message in a session, as returned by the workbench
// message endpoint: metadata plus an ordered list of content parts.
type Message struct {
	Info  MessageInfo `json:"info"`
	Parts []Part      `json:"parts,omitempty"`
}

// MessageInfo is the metadata half of a Message.
type MessageInfo struct {
	// ID is the message identifier assigned by the workbench server.
	ID string `json:"id"`

	// SessionID is the session the message belongs to.
	SessionID string `json:"session_id,omitempty"`

	// Role is "user" or "assistant".
	Role string `json:"role"`

	// ProviderID and ModelID identify the model that produced (or will
	// answer) the message.
	ProviderID string `json:"provider_id,omitempty"`
	ModelID    string `json:"model_id,omitempty"`

	// Agent is the agent profile the message was addressed to, empty
	// for the default agent.
	Agent string `json:"agent,omitempty"`

	// Time carries creation and completion timestamps in Unix
	// milliseconds. Completed is zero while the assistant is still
	// generating.
	Time MessageTime `json:"time"`
}

// MessageTime holds message timestamps in Unix milliseconds.
type MessageTime struct {
	Created   float64 `json:"created,omitempty"`
	Completed float64 `json:"completed,omitempty"`
}

// Part is one content part of a message. Only Type is always present;
// the remaining fields depend on the part kind (text, tool call, file
// reference). Unknown part kinds pass through with their typed fields
// zero — the UI renders what it recognizes.
type Part struct {
	// ID is the part identifier, present on server-produced parts.
	ID string `json:"id,omitempty"`

	// Type discriminates the part kind: "text", "tool", "file".
	Type string `json:"type"`

	// Text is the content for text parts.
	Text string `json:"text,omitempty"`

	// Tool is the tool name for tool parts.
	Tool string `json:"tool,omitempty"`

	// CallID correlates a tool part with its invocation.
	CallID string `json:"call_id,omitempty"`
}

// ModelRef pairs a provider with one of its models. Sent in the
// send-message request body.
type ModelRef struct {
	ProviderID string `json:"provider_id"`
	ModelID    string `json:"model_id"`
}
