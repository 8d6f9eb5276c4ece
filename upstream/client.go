// Copyright 2026 The Shuttle Authors
// SPDX-License-Identifier: Apache-2.0

package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shuttle-works/shuttle/lib/netutil"
	"github.com/shuttle-works/shuttle/normalize"
	"github.com/shuttle-works/shuttle/schema"
)

// DirectoryHeader carries the working-directory context on every
// request when the client has one configured.
const DirectoryHeader = "X-Workbench-Directory"

// errorBodyExcerptLength bounds the response-body excerpt embedded in
// HTTPError values.
const errorBodyExcerptLength = 512

// Default operation timeouts. Session CRUD is seconds-scale;
// send-message blocks on model generation and gets minutes.
const (
	DefaultRequestTimeout = 15 * time.Second
	DefaultMessageTimeout = 5 * time.Minute
)

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the base URL of the workbench server (e.g.
	// "http://127.0.0.1:4096").
	BaseURL string
	// Directory is the optional working-directory context, attached as
	// DirectoryHeader on every request when non-empty.
	Directory string
	// HTTPClient is used for all requests. If nil, http.DefaultClient
	// is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default().
	Logger *slog.Logger
	// RequestTimeout bounds session CRUD calls. Zero means
	// DefaultRequestTimeout.
	RequestTimeout time.Duration
	// MessageTimeout bounds SendMessage. Zero means
	// DefaultMessageTimeout.
	MessageTimeout time.Duration
}

// Client is a handle to one workbench server. Immutable after
// construction; safe for concurrent use.
type Client struct {
	baseURL        string
	directory      string
	httpClient     *http.Client
	logger         *slog.Logger
	requestTimeout time.Duration
	messageTimeout time.Duration
}

// NewClient creates a workbench client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("upstream: BaseURL is required")
	}
	// Validate the URL structure. We store the string form (with
	// trailing slash stripped) and build request URLs by direct
	// concatenation.
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("upstream: invalid BaseURL %q: %w", config.BaseURL, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	requestTimeout := config.RequestTimeout
	if requestTimeout == 0 {
		requestTimeout = DefaultRequestTimeout
	}
	messageTimeout := config.MessageTimeout
	if messageTimeout == 0 {
		messageTimeout = DefaultMessageTimeout
	}

	return &Client{
		baseURL:        strings.TrimRight(config.BaseURL, "/"),
		directory:      config.Directory,
		httpClient:     httpClient,
		logger:         logger,
		requestTimeout: requestTimeout,
		messageTimeout: messageTimeout,
	}, nil
}

// BaseURL returns the server URL this client is bound to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Directory returns the working-directory context, empty if none.
func (c *Client) Directory() string {
	return c.directory
}

// ListSessions returns all sessions on the server.
func (c *Client) ListSessions(ctx context.Context) ([]schema.SessionInfo, error) {
	body, err := c.doRequest(ctx, http.MethodGet, "/session", nil, c.requestTimeout)
	if err != nil {
		return nil, err
	}

	var sessions []schema.SessionInfo
	if err := json.Unmarshal(body, &sessions); err != nil {
		return nil, &DecodeError{Path: "/session", Err: err}
	}
	return sessions, nil
}

// CreateSession creates a session. title may be empty; the server
// generates one from the first message.
func (c *Client) CreateSession(ctx context.Context, title string) (*schema.SessionInfo, error) {
	var requestBody any
	if title != "" {
		requestBody = map[string]any{"title": title}
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/session", requestBody, c.requestTimeout)
	if err != nil {
		return nil, err
	}

	var session schema.SessionInfo
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, &DecodeError{Path: "/session", Err: err}
	}
	return &session, nil
}

// DeleteSession deletes a session by id. Success is solely the HTTP
// status — no body contract is assumed.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	path := "/session/" + url.PathEscape(sessionID)
	if _, err := c.doRequest(ctx, http.MethodDelete, path, nil, c.requestTimeout); err != nil {
		return false, err
	}
	return true, nil
}

// SendMessageRequest is the input to SendMessage.
type SendMessageRequest struct {
	SessionID  string
	Text       string
	ProviderID string
	ModelID    string
	// Agent is the optional agent profile.
	Agent string
}

// sendMessageBody is the upstream request body, in the internal
// convention — doRequest rewrites it to the upstream convention.
type sendMessageBody struct {
	Model schema.ModelRef `json:"model"`
	Agent string          `json:"agent,omitempty"`
	Parts []schema.Part   `json:"parts"`
}

// SendMessage sends a text message into a session and waits for the
// assistant's completed reply. Runs under the extended message
// timeout: the upstream call blocks on model generation.
func (c *Client) SendMessage(ctx context.Context, request SendMessageRequest) (*schema.Message, error) {
	if request.SessionID == "" {
		return nil, fmt.Errorf("upstream: SessionID is required")
	}

	path := "/session/" + url.PathEscape(request.SessionID) + "/message"
	requestBody := sendMessageBody{
		Model: schema.ModelRef{ProviderID: request.ProviderID, ModelID: request.ModelID},
		Agent: request.Agent,
		Parts: []schema.Part{{Type: "text", Text: request.Text}},
	}

	body, err := c.doRequest(ctx, http.MethodPost, path, requestBody, c.messageTimeout)
	if err != nil {
		return nil, err
	}

	var message schema.Message
	if err := json.Unmarshal(body, &message); err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return &message, nil
}

// Abort cancels the in-flight generation in a session. Success is
// solely the HTTP status.
func (c *Client) Abort(ctx context.Context, sessionID string) (bool, error) {
	path := "/session/" + url.PathEscape(sessionID) + "/abort"
	if _, err := c.doRequest(ctx, http.MethodPost, path, nil, c.requestTimeout); err != nil {
		return false, err
	}
	return true, nil
}

// doRequest performs an HTTP request against the workbench server and
// returns the normalized response body. Request bodies are encoded in
// the internal convention and rewritten to the upstream convention
// before sending; response bodies are rewritten to the internal
// convention before returning. On 4xx/5xx, returns an *HTTPError.
func (c *Client) doRequest(ctx context.Context, method, path string, requestBody any, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("upstream: encoding request body: %w", err)
		}
		denormalized, err := normalize.ReverseJSON(encoded)
		if err != nil {
			return nil, fmt.Errorf("upstream: denormalizing request body: %w", err)
		}
		bodyReader = bytes.NewReader(denormalized)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("upstream: creating request: %w", err)
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.directory != "" {
		request.Header.Set(DirectoryHeader, c.directory)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("upstream: %s %s: %w", method, path, err)
	}
	defer response.Body.Close()

	responseBody, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("upstream: reading %s %s response: %w", method, path, err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, &HTTPError{
			StatusCode: response.StatusCode,
			Method:     method,
			Path:       path,
			Body:       netutil.Excerpt(string(responseBody), errorBodyExcerptLength),
		}
	}

	if len(responseBody) == 0 {
		return nil, nil
	}
	normalized, err := normalize.JSON(responseBody)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return normalized, nil
}
