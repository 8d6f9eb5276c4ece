// Copyright 2026 The Shuttle Authors
// SPDX-License-Identifier: Apache-2.0

package bridge

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shuttle-works/shuttle/state"
	"github.com/shuttle-works/shuttle/upstream"
	"github.com/shuttle-works/shuttle/wire"
)

// errorResponse builds a failure response for the given correlation id.
func errorResponse(id uint64, code, message string) wire.Response {
	return wire.Response{ID: id, Error: &wire.Error{Code: code, Message: message}}
}

// dispatch routes one request to its handler and returns the response.
// Runs on a per-request goroutine; everything it touches is either
// immutable, owned by the state owner, or local.
func (s *Server) dispatch(ctx context.Context, logger *slog.Logger, request wire.Request) wire.Response {
	switch request.Op {
	case wire.OpPing:
		return wire.Response{ID: request.ID, Pong: &wire.Pong{Protocol: wire.ProtocolVersion}}

	case wire.OpConnect:
		return s.handleConnect(ctx, request)

	case wire.OpDisconnect:
		return s.handleDisconnect(ctx, request)

	case wire.OpServerStatus:
		return s.serverStatus(request.ID)

	case wire.OpListSessions:
		return s.withClient(request, func(client *upstream.Client) (wire.Response, error) {
			sessions, err := client.ListSessions(ctx)
			if err != nil {
				return wire.Response{}, err
			}
			return wire.Response{ID: request.ID, Sessions: sessions}, nil
		}, logger)

	case wire.OpCreateSession:
		return s.withClient(request, func(client *upstream.Client) (wire.Response, error) {
			session, err := client.CreateSession(ctx, request.Title)
			if err != nil {
				return wire.Response{}, err
			}
			return wire.Response{ID: request.ID, Session: session}, nil
		}, logger)

	case wire.OpDeleteSession:
		if request.SessionID == "" {
			return errorResponse(request.ID, wire.ErrCodeProtocol, "delete_session requires session_id")
		}
		return s.withClient(request, func(client *upstream.Client) (wire.Response, error) {
			deleted, err := client.DeleteSession(ctx, request.SessionID)
			if err != nil {
				return wire.Response{}, err
			}
			return wire.Response{ID: request.ID, Deleted: &deleted}, nil
		}, logger)

	case wire.OpSendMessage:
		if request.SessionID == "" {
			return errorResponse(request.ID, wire.ErrCodeProtocol, "send_message requires session_id")
		}
		return s.withClient(request, func(client *upstream.Client) (wire.Response, error) {
			message, err := client.SendMessage(ctx, upstream.SendMessageRequest{
				SessionID:  request.SessionID,
				Text:       request.Text,
				ProviderID: request.ProviderID,
				ModelID:    request.ModelID,
				Agent:      request.Agent,
			})
			if err != nil {
				return wire.Response{}, err
			}
			return wire.Response{ID: request.ID, Message: message}, nil
		}, logger)

	case wire.OpAbort:
		if request.SessionID == "" {
			return errorResponse(request.ID, wire.ErrCodeProtocol, "abort requires session_id")
		}
		return s.withClient(request, func(client *upstream.Client) (wire.Response, error) {
			aborted, err := client.Abort(ctx, request.SessionID)
			if err != nil {
				return wire.Response{}, err
			}
			return wire.Response{ID: request.ID, Aborted: &aborted}, nil
		}, logger)

	default:
		return errorResponse(request.ID, wire.ErrCodeProtocol, "unknown operation: "+request.Op)
	}
}

// handleConnect binds the bridge to a workbench server.
func (s *Server) handleConnect(ctx context.Context, request wire.Request) wire.Response {
	if request.URL == "" {
		return errorResponse(request.ID, wire.ErrCodeProtocol, "connect requires url")
	}
	err := s.owner.SetServer(ctx, state.ServerInfo{
		URL:       request.URL,
		Directory: request.Directory,
	})
	if err != nil {
		return errorResponse(request.ID, wire.ErrCodeProtocol, "connect failed: "+err.Error())
	}
	return s.serverStatus(request.ID)
}

// handleDisconnect clears the active workbench server.
func (s *Server) handleDisconnect(ctx context.Context, request wire.Request) wire.Response {
	if err := s.owner.ClearServer(ctx); err != nil {
		return errorResponse(request.ID, wire.ErrCodeProtocol, "disconnect failed: "+err.Error())
	}
	return s.serverStatus(request.ID)
}

// serverStatus reports the current binding from a lock-free snapshot
// read.
func (s *Server) serverStatus(id uint64) wire.Response {
	client := s.owner.Handle()
	if client == nil {
		return wire.Response{ID: id, Server: &wire.ServerStatus{Connected: false}}
	}
	return wire.Response{ID: id, Server: &wire.ServerStatus{
		Connected: true,
		URL:       client.BaseURL(),
		Directory: client.Directory(),
	}}
}

// withClient runs fn against the current upstream handle, answering
// not_connected when no server is bound and mapping upstream failures
// to wire error codes.
func (s *Server) withClient(request wire.Request, fn func(*upstream.Client) (wire.Response, error), logger *slog.Logger) wire.Response {
	client := s.owner.Handle()
	if client == nil {
		return errorResponse(request.ID, wire.ErrCodeNotConnected, "no workbench server is connected")
	}
	response, err := fn(client)
	if err != nil {
		return mapUpstreamError(request, err, logger)
	}
	return response
}

// mapUpstreamError turns an upstream failure into the wire error
// taxonomy. Decode failures signal schema drift between the bridge and
// the workbench server and are logged at error level.
func mapUpstreamError(request wire.Request, err error, logger *slog.Logger) wire.Response {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return errorResponse(request.ID, wire.ErrCodeTimeout, "upstream call timed out")
	case errors.Is(err, context.Canceled):
		return errorResponse(request.ID, wire.ErrCodeCancelled, "upstream call cancelled")
	}

	var decodeErr *upstream.DecodeError
	if errors.As(err, &decodeErr) {
		logger.Error("upstream response failed to decode", "op", request.Op, "error", err)
		return errorResponse(request.ID, wire.ErrCodeUpstreamDecode, err.Error())
	}

	var httpErr *upstream.HTTPError
	if errors.As(err, &httpErr) {
		return errorResponse(request.ID, wire.ErrCodeUpstreamHTTP, err.Error())
	}

	// Transport-level failures (connection refused, DNS) surface the
	// same way an error status would.
	return errorResponse(request.ID, wire.ErrCodeUpstreamHTTP, err.Error())
}
