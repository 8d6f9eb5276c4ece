// Copyright 2026 The Shuttle Authors
// SPDX-License-Identifier: Apache-2.0

// Package state owns the bridge's single piece of shared mutable
// state: which upstream workbench server is currently active.
//
// Owner is an actor: one worker goroutine is the only code that ever
// mutates the active handle, consuming SetServer/ClearServer ops
// strictly in arrival order. Everyone else reads immutable snapshots
// through Handle(), a lock-free atomic load that never contends with
// writers. A set and a concurrent clear can therefore never interleave
// into a half-state, and readers always see a complete handle or none.
//
// Setting a server also starts an event watcher bound to the new
// handle; replacing or clearing the server cancels the previous
// watcher. Superseded handles keep serving in-flight calls — they are
// simply no longer handed out.
package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/shuttle-works/shuttle/schema"
	"github.com/shuttle-works/shuttle/upstream"
)

// watchRetryDelay is the pause before re-subscribing after the event
// stream drops while its server is still the active one.
const watchRetryDelay = time.Second

// ServerInfo identifies a workbench server to connect to.
type ServerInfo struct {
	// URL is the server base URL.
	URL string
	// Directory is the optional working-directory context for all
	// calls through the resulting handle.
	Directory string
}

// OwnerConfig holds configuration for creating an Owner.
type OwnerConfig struct {
	// NewClient constructs the upstream handle for a server. If nil, a
	// default constructor using upstream.NewClient is used. Injectable
	// for testing.
	NewClient func(info ServerInfo) (*upstream.Client, error)

	// EventBuffer is the capacity of the Events channel. Zero means 64.
	// When the consumer falls behind, events are dropped (and logged)
	// rather than stalling the watcher.
	EventBuffer int

	// Logger is used for structured logging. If nil, slog.Default().
	Logger *slog.Logger
}

// ownerOp is one serialized mutation: a set (info != nil) or a clear.
type ownerOp struct {
	info  *ServerInfo
	reply chan error
}

// Owner is the single owner of the active upstream handle.
type Owner struct {
	ops       chan ownerOp
	handle    atomic.Pointer[upstream.Client]
	events    chan schema.Event
	newClient func(info ServerInfo) (*upstream.Client, error)
	logger    *slog.Logger

	// cancel stops the worker and any active watcher; done closes when
	// the worker exits.
	cancel context.CancelFunc
	done   chan struct{}
}

// NewOwner creates an Owner and starts its worker goroutine. Call
// Close to stop it.
func NewOwner(config OwnerConfig) *Owner {
	newClient := config.NewClient
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if newClient == nil {
		newClient = func(info ServerInfo) (*upstream.Client, error) {
			return upstream.NewClient(upstream.ClientConfig{
				BaseURL:   info.URL,
				Directory: info.Directory,
				Logger:    logger,
			})
		}
	}
	eventBuffer := config.EventBuffer
	if eventBuffer == 0 {
		eventBuffer = 64
	}

	ctx, cancel := context.WithCancel(context.Background())
	owner := &Owner{
		ops:       make(chan ownerOp),
		events:    make(chan schema.Event, eventBuffer),
		newClient: newClient,
		logger:    logger,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go owner.run(ctx)
	return owner
}

// SetServer atomically replaces the active upstream handle with one
// bound to info. The previous handle keeps running for in-flight calls
// but is no longer handed out.
func (o *Owner) SetServer(ctx context.Context, info ServerInfo) error {
	return o.submit(ctx, ownerOp{info: &info, reply: make(chan error, 1)})
}

// ClearServer atomically drops the active handle; subsequent Handle
// calls observe no server.
func (o *Owner) ClearServer(ctx context.Context) error {
	return o.submit(ctx, ownerOp{reply: make(chan error, 1)})
}

func (o *Owner) submit(ctx context.Context, op ownerOp) error {
	select {
	case o.ops <- op:
	case <-o.done:
		return fmt.Errorf("state: owner is closed")
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-op.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handle returns a read-only snapshot of the active upstream handle,
// or nil when no server is set. Never blocks on writers.
func (o *Owner) Handle() *upstream.Client {
	return o.handle.Load()
}

// Events returns the channel on which upstream server-sent events are
// delivered while a server is active. The channel closes when the
// owner is closed.
func (o *Owner) Events() <-chan schema.Event {
	return o.events
}

// Close stops the worker and any active event watcher, waits for the
// worker to exit, and closes the Events channel. The active handle is
// left in place for in-flight calls.
func (o *Owner) Close() {
	o.cancel()
	<-o.done
}

// run is the worker goroutine: the only mutator of o.handle.
func (o *Owner) run(ctx context.Context) {
	defer close(o.done)
	defer close(o.events)

	// watchCancel stops the watcher bound to the current handle;
	// watchDone closes when that watcher has fully exited. Waiting on
	// it before closing o.events is what makes the close safe — the
	// watcher is the only sender. Only the worker touches either.
	var watchCancel context.CancelFunc
	var watchDone chan struct{}
	stopWatch := func() {
		if watchCancel == nil {
			return
		}
		watchCancel()
		<-watchDone
		watchCancel = nil
	}
	defer stopWatch()

	for {
		select {
		case <-ctx.Done():
			return
		case op := <-o.ops:
			stopWatch()

			if op.info == nil {
				o.handle.Store(nil)
				o.logger.Info("upstream server cleared")
				op.reply <- nil
				continue
			}

			client, err := o.newClient(*op.info)
			if err != nil {
				// Construction failed: the previous handle stays
				// active (its watcher was already cancelled above, so
				// restore nothing — a handle without a watcher still
				// serves requests).
				op.reply <- fmt.Errorf("state: constructing upstream client: %w", err)
				continue
			}

			o.handle.Store(client)
			o.logger.Info("upstream server set", "url", op.info.URL, "directory", op.info.Directory)

			var watchCtx context.Context
			watchCtx, watchCancel = context.WithCancel(ctx)
			watchDone = make(chan struct{})
			go func(done chan struct{}) {
				defer close(done)
				o.watch(watchCtx, client)
			}(watchDone)

			op.reply <- nil
		}
	}
}

// watch subscribes to the client's event stream and forwards events to
// the owner's Events channel, re-subscribing with a delay if the
// stream drops. Exits when its context is cancelled (server replaced
// or cleared, or owner closed).
func (o *Owner) watch(ctx context.Context, client *upstream.Client) {
	for ctx.Err() == nil {
		events, err := client.Events(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			o.logger.Warn("event subscription failed", "server", client.BaseURL(), "error", err)
			select {
			case <-time.After(watchRetryDelay):
				continue
			case <-ctx.Done():
				return
			}
		}

		for event := range events {
			select {
			case o.events <- event:
			default:
				o.logger.Warn("event consumer lagging; dropping event", "type", event.Type)
			}
		}
		// Stream ended. Loop re-subscribes unless we were cancelled.
	}
}
