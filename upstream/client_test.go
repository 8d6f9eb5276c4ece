// Copyright 2026 The Shuttle Authors
// SPDX-License-Identifier: Apache-2.0

package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler, configure func(*ClientConfig)) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := ClientConfig{BaseURL: server.URL}
	if configure != nil {
		configure(&config)
	}
	client, err := NewClient(config)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Fatal("expected error for empty BaseURL")
	}
}

func TestListSessionsNormalizesResponse(t *testing.T) {
	var gotDirectory string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/session" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotDirectory = r.Header.Get(DirectoryHeader)
		io.WriteString(w, `[{"id":"s1","projectID":"p1","title":"Demo","time":{"created":100,"updated":200}}]`)
	}), func(c *ClientConfig) {
		c.Directory = "/home/user/project"
	})

	sessions, err := client.ListSessions(context.Background())
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	if sessions[0].ProjectID != "p1" {
		t.Errorf("ProjectID = %q, want p1 (normalization not applied)", sessions[0].ProjectID)
	}
	if sessions[0].ID != "s1" || sessions[0].Title != "Demo" {
		t.Errorf("unexpected session: %+v", sessions[0])
	}
	if gotDirectory != "/home/user/project" {
		t.Errorf("directory header = %q, want /home/user/project", gotDirectory)
	}
}

func TestListSessionsHTTPError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "storage unavailable", http.StatusInternalServerError)
	}), nil)

	_, err := client.ListSessions(context.Background())
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("got %v, want *HTTPError", err)
	}
	if httpErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", httpErr.StatusCode)
	}
	if httpErr.Body == "" {
		t.Error("HTTPError.Body is empty, want body excerpt")
	}
}

func TestListSessionsDecodeError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"not":"an array"`)
	}), nil)

	_, err := client.ListSessions(context.Background())
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("got %v, want *DecodeError", err)
	}
}

func TestCreateSession(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/session" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		io.WriteString(w, `{"id":"s2","projectID":"p1","title":"`+body["title"].(string)+`"}`)
	}), nil)

	session, err := client.CreateSession(context.Background(), "Demo")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if session.Title != "Demo" || session.ID != "s2" {
		t.Errorf("unexpected session: %+v", session)
	}
}

func TestCreateSessionUntitledSendsNoBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if len(body) != 0 {
			t.Errorf("untitled create sent body %q, want none", body)
		}
		io.WriteString(w, `{"id":"s3"}`)
	}), nil)

	if _, err := client.CreateSession(context.Background(), ""); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
}

func TestDeleteSession(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/session/s1" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		io.WriteString(w, `true`)
	}), nil)

	deleted, err := client.DeleteSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if !deleted {
		t.Error("deleted = false, want true")
	}
}

func TestDeleteSessionNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}), nil)

	deleted, err := client.DeleteSession(context.Background(), "missing")
	if deleted {
		t.Error("deleted = true for 404")
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusNotFound {
		t.Fatalf("got %v, want *HTTPError with 404", err)
	}
}

func TestSendMessageDenormalizesBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/session/s1/message" {
			t.Errorf("path = %s, want /session/s1/message", r.URL.Path)
		}
		var body struct {
			Model map[string]any `json:"model"`
			Parts []map[string]any
		}
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}
		// The upstream boundary must see the upstream convention.
		if body.Model["providerID"] != "anthropic" || body.Model["modelID"] != "large" {
			t.Errorf("model keys not denormalized: %s", raw)
		}
		io.WriteString(w, `{"info":{"id":"m1","sessionID":"s1","role":"assistant","providerID":"anthropic"},"parts":[{"type":"text","text":"hello"}]}`)
	}), nil)

	message, err := client.SendMessage(context.Background(), SendMessageRequest{
		SessionID:  "s1",
		Text:       "hi",
		ProviderID: "anthropic",
		ModelID:    "large",
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if message.Info.SessionID != "s1" {
		t.Errorf("Info.SessionID = %q, want s1 (normalization not applied)", message.Info.SessionID)
	}
	if len(message.Parts) != 1 || message.Parts[0].Text != "hello" {
		t.Errorf("unexpected parts: %+v", message.Parts)
	}
}

func TestSendMessageTimeout(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}), func(c *ClientConfig) {
		c.MessageTimeout = 50 * time.Millisecond
	})

	_, err := client.SendMessage(context.Background(), SendMessageRequest{SessionID: "s1", Text: "hi"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got %v, want context.DeadlineExceeded in chain", err)
	}
}

func TestEvents(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "text/event-stream" {
			t.Errorf("Accept = %q, want text/event-stream", r.Header.Get("Accept"))
		}
		flusher := w.(http.Flusher)
		io.WriteString(w, "data: {\"type\":\"session.updated\",\"properties\":{\"sessionID\":\"s1\"}}\n\n")
		flusher.Flush()
		io.WriteString(w, ": keepalive comment\n")
		io.WriteString(w, "data: not json\n\n")
		io.WriteString(w, "data: {\"type\":\"message.part.updated\"}\n\n")
		flusher.Flush()
	}), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := client.Events(ctx)
	if err != nil {
		t.Fatalf("Events: %v", err)
	}

	first, ok := <-events
	if !ok {
		t.Fatal("event channel closed before first event")
	}
	if first.Type != "session.updated" {
		t.Errorf("first event type = %q, want session.updated", first.Type)
	}
	if first.Properties["session_id"] != "s1" {
		t.Errorf("event properties not normalized: %v", first.Properties)
	}

	// The malformed event is skipped; the next delivery is the third.
	second, ok := <-events
	if !ok {
		t.Fatal("event channel closed before second event")
	}
	if second.Type != "message.part.updated" {
		t.Errorf("second event type = %q, want message.part.updated", second.Type)
	}

	if _, ok := <-events; ok {
		t.Error("expected channel close after stream end")
	}
}

func TestEventsHTTPError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no stream here", http.StatusNotFound)
	}), nil)

	_, err := client.Events(context.Background())
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusNotFound {
		t.Fatalf("got %v, want *HTTPError with 404", err)
	}
}
