// Copyright 2026 The Shuttle Authors
// SPDX-License-Identifier: Apache-2.0

package state

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shuttle-works/shuttle/upstream"
)

// quietOwner builds an Owner whose clients never touch the network
// fast (bogus URLs) and whose logs are discarded.
func quietOwner(t *testing.T, config OwnerConfig) *Owner {
	t.Helper()
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	owner := NewOwner(config)
	t.Cleanup(owner.Close)
	return owner
}

func TestSetServerAndHandle(t *testing.T) {
	owner := quietOwner(t, OwnerConfig{})

	if owner.Handle() != nil {
		t.Fatal("fresh owner has a handle")
	}

	info := ServerInfo{URL: "http://127.0.0.1:19999", Directory: "/work"}
	if err := owner.SetServer(context.Background(), info); err != nil {
		t.Fatalf("SetServer: %v", err)
	}

	handle := owner.Handle()
	if handle == nil {
		t.Fatal("Handle() = nil after SetServer")
	}
	if handle.BaseURL() != info.URL || handle.Directory() != info.Directory {
		t.Errorf("handle bound to %q/%q, want %q/%q",
			handle.BaseURL(), handle.Directory(), info.URL, info.Directory)
	}
}

func TestClearServer(t *testing.T) {
	owner := quietOwner(t, OwnerConfig{})

	if err := owner.SetServer(context.Background(), ServerInfo{URL: "http://127.0.0.1:19999"}); err != nil {
		t.Fatalf("SetServer: %v", err)
	}
	if err := owner.ClearServer(context.Background()); err != nil {
		t.Fatalf("ClearServer: %v", err)
	}
	if owner.Handle() != nil {
		t.Error("Handle() non-nil after ClearServer")
	}
}

func TestSetServerConstructionFailure(t *testing.T) {
	owner := quietOwner(t, OwnerConfig{
		NewClient: func(info ServerInfo) (*upstream.Client, error) {
			if info.URL == "bad" {
				return nil, fmt.Errorf("refusing %q", info.URL)
			}
			return upstream.NewClient(upstream.ClientConfig{BaseURL: info.URL, Logger: slog.New(slog.DiscardHandler)})
		},
	})

	if err := owner.SetServer(context.Background(), ServerInfo{URL: "http://127.0.0.1:19999"}); err != nil {
		t.Fatalf("SetServer: %v", err)
	}
	previous := owner.Handle()

	if err := owner.SetServer(context.Background(), ServerInfo{URL: "bad"}); err == nil {
		t.Fatal("expected SetServer error for failing constructor")
	}
	if owner.Handle() != previous {
		t.Error("failed SetServer replaced the handle")
	}
}

func TestConcurrentSetServerNeverTearsState(t *testing.T) {
	owner := quietOwner(t, OwnerConfig{})

	a := ServerInfo{URL: "http://127.0.0.1:19990", Directory: "/a"}
	b := ServerInfo{URL: "http://127.0.0.1:19991", Directory: "/b"}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		info := a
		if i%2 == 1 {
			info = b
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := owner.SetServer(context.Background(), info); err != nil {
				t.Errorf("SetServer: %v", err)
			}
		}()
	}

	// Concurrent readers must always observe a complete handle or nil,
	// never a hybrid of A and B.
	stop := make(chan struct{})
	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			handle := owner.Handle()
			if handle == nil {
				continue
			}
			switch handle.BaseURL() {
			case a.URL:
				if handle.Directory() != a.Directory {
					t.Errorf("torn state: url %q with directory %q", handle.BaseURL(), handle.Directory())
				}
			case b.URL:
				if handle.Directory() != b.Directory {
					t.Errorf("torn state: url %q with directory %q", handle.BaseURL(), handle.Directory())
				}
			default:
				t.Errorf("unknown handle url %q", handle.BaseURL())
			}
		}
	}()

	wg.Wait()
	close(stop)
	readers.Wait()

	final := owner.Handle()
	if final == nil {
		t.Fatal("no handle after all sets completed")
	}
	if final.BaseURL() != a.URL && final.BaseURL() != b.URL {
		t.Errorf("final handle url %q is neither A nor B", final.BaseURL())
	}
}

func TestEventsForwarding(t *testing.T) {
	stream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/event" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, "data: {\"type\":\"session.updated\",\"properties\":{\"sessionID\":\"s1\"}}\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer stream.Close()
	// The SSE handler blocks until its client disconnects, and the
	// watcher is only stopped by a t.Cleanup that runs after this
	// defer; drop the connection first so Close can finish waiting.
	defer stream.CloseClientConnections()

	owner := quietOwner(t, OwnerConfig{})
	if err := owner.SetServer(context.Background(), ServerInfo{URL: stream.URL}); err != nil {
		t.Fatalf("SetServer: %v", err)
	}

	select {
	case event := <-owner.Events():
		if event.Type != "session.updated" {
			t.Errorf("event type = %q, want session.updated", event.Type)
		}
		if event.Properties["session_id"] != "s1" {
			t.Errorf("event properties not normalized: %v", event.Properties)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for forwarded event")
	}
}

func TestCloseClosesEvents(t *testing.T) {
	owner := NewOwner(OwnerConfig{Logger: slog.New(slog.DiscardHandler)})
	owner.Close()

	if _, ok := <-owner.Events(); ok {
		t.Error("Events channel still open after Close")
	}
	if err := owner.SetServer(context.Background(), ServerInfo{URL: "http://127.0.0.1:1"}); err == nil {
		t.Error("SetServer succeeded on closed owner")
	}
}
