// Copyright 2026 The Shuttle Authors
// SPDX-License-Identifier: Apache-2.0

package upstream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shuttle-works/shuttle/lib/netutil"
	"github.com/shuttle-works/shuttle/normalize"
	"github.com/shuttle-works/shuttle/schema"
)

// maxEventSize bounds a single SSE event payload. Far above anything
// the workbench emits; exists so a corrupt stream cannot grow the
// scanner buffer without limit.
const maxEventSize = 1024 * 1024

// Events subscribes to the workbench server-sent event stream
// (GET /event). The returned channel delivers normalized events until
// the stream ends or ctx is cancelled, then closes. Malformed events
// are logged and skipped — one bad event must not kill the stream.
//
// The subscription runs without a client-side timeout: the stream is
// expected to live for the whole life of the handle.
func (c *Client) Events(ctx context.Context) (<-chan schema.Event, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/event", nil)
	if err != nil {
		return nil, fmt.Errorf("upstream: creating event request: %w", err)
	}
	request.Header.Set("Accept", "text/event-stream")
	if c.directory != "" {
		request.Header.Set(DirectoryHeader, c.directory)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("upstream: GET /event: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		body := netutil.ErrorBody(response.Body)
		response.Body.Close()
		return nil, &HTTPError{
			StatusCode: response.StatusCode,
			Method:     http.MethodGet,
			Path:       "/event",
			Body:       netutil.Excerpt(body, errorBodyExcerptLength),
		}
	}

	events := make(chan schema.Event, 16)
	go c.readEvents(ctx, response.Body, events)
	return events, nil
}

// readEvents scans the SSE stream, assembles data lines into events,
// and delivers them. Runs as a goroutine for the lifetime of the
// subscription.
func (c *Client) readEvents(ctx context.Context, body io.ReadCloser, events chan<- schema.Event) {
	defer close(events)
	defer body.Close()

	// Closing the body is what unblocks the scanner when the context
	// is cancelled mid-read.
	stopped := make(chan struct{})
	defer close(stopped)
	go func() {
		select {
		case <-ctx.Done():
			body.Close()
		case <-stopped:
		}
	}()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)

	// SSE framing: "data:" lines accumulate (joined by newline) until
	// a blank line terminates the event. "event:", "id:", "retry:" and
	// ":" comment lines carry nothing the bridge uses — the payload's
	// own "type" field discriminates.
	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if len(data) > 0 {
				c.emitEvent(ctx, strings.Join(data, "\n"), events)
				data = data[:0]
			}
			continue
		}
		if chunk, ok := strings.CutPrefix(line, "data:"); ok {
			data = append(data, strings.TrimPrefix(chunk, " "))
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		c.logger.Warn("event stream ended", "server", c.baseURL, "error", err)
	}
}

func (c *Client) emitEvent(ctx context.Context, payload string, events chan<- schema.Event) {
	normalized, err := normalize.JSON([]byte(payload))
	if err != nil {
		c.logger.Warn("skipping malformed event", "server", c.baseURL, "error", err)
		return
	}
	var event schema.Event
	if err := json.Unmarshal(normalized, &event); err != nil {
		c.logger.Warn("skipping undecodable event", "server", c.baseURL, "error", err)
		return
	}

	select {
	case events <- event:
	case <-ctx.Done():
	}
}
