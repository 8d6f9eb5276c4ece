// Copyright 2026 The Shuttle Authors
// SPDX-License-Identifier: Apache-2.0

// shuttle-call is a one-shot client for the bridge protocol, used to
// poke a running shuttle-bridge from the command line:
//
//	SHUTTLE_TOKEN=... shuttle-call ping
//	SHUTTLE_TOKEN=... shuttle-call connect --url http://127.0.0.1:4747
//	SHUTTLE_TOKEN=... shuttle-call create_session --title "Demo"
//	SHUTTLE_TOKEN=... shuttle-call send_message --session ses_1 \
//	    --provider anthropic --model claude-sonnet --text "hello"
//
// The response envelope is printed as indented JSON. With --follow,
// event frames are printed as they arrive after the response. With
// --diagnose, raw frames are dumped in CBOR diagnostic notation
// instead, which is the quickest way to inspect what is actually on
// the wire.
package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/shuttle-works/shuttle/lib/codec"
	"github.com/shuttle-works/shuttle/wire"
)

func main() {
	code, err := run()
	if err != nil {
		if err == pflag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(code)
}

func run() (int, error) {
	var address string
	var tokenFile string
	var timeout time.Duration
	var follow bool
	var diagnose bool
	request := wire.Request{ID: 1}

	flagSet := pflag.NewFlagSet("shuttle-call", pflag.ContinueOnError)
	flagSet.StringVar(&address, "address", "127.0.0.1:4096", "bridge address")
	flagSet.StringVar(&tokenFile, "token-file", "", "read the shared token from this file (default: SHUTTLE_TOKEN)")
	flagSet.DurationVar(&timeout, "timeout", 5*time.Minute, "overall deadline for the call")
	flagSet.BoolVar(&follow, "follow", false, "keep printing event frames after the response")
	flagSet.BoolVar(&diagnose, "diagnose", false, "print raw frames in CBOR diagnostic notation")
	flagSet.Uint64Var(&request.ID, "id", 1, "request correlation id")
	flagSet.StringVar(&request.URL, "url", "", "workbench server URL (connect)")
	flagSet.StringVar(&request.Directory, "directory", "", "working directory context (connect)")
	flagSet.StringVar(&request.Title, "title", "", "session title (create_session)")
	flagSet.StringVar(&request.SessionID, "session", "", "session id (delete_session, send_message, abort)")
	flagSet.StringVar(&request.Text, "text", "", "message text (send_message)")
	flagSet.StringVar(&request.ProviderID, "provider", "", "provider id (send_message)")
	flagSet.StringVar(&request.ModelID, "model", "", "model id (send_message)")
	flagSet.StringVar(&request.Agent, "agent", "", "agent profile (send_message)")
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: shuttle-call [flags] <op>\n")
		fmt.Fprintf(os.Stderr, "ops: ping, connect, disconnect, server_status, list_sessions,\n")
		fmt.Fprintf(os.Stderr, "     create_session, delete_session, send_message, abort\n\n")
		fmt.Fprint(os.Stderr, flagSet.FlagUsages())
	}
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return 1, err
	}

	args := flagSet.Args()
	if len(args) != 1 {
		flagSet.Usage()
		return 1, fmt.Errorf("exactly one operation is required")
	}
	request.Op = args[0]

	token, err := readToken(tokenFile)
	if err != nil {
		return 1, err
	}

	conn, err := net.Dial("tcp", address)
	if err != nil {
		return 1, fmt.Errorf("connecting to bridge at %s: %w", address, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(timeout))

	if err := wire.WriteEnvelope(conn, wire.FrameHandshake, wire.Handshake{Token: token}); err != nil {
		return 1, fmt.Errorf("sending handshake: %w", err)
	}
	frame, err := wire.ReadFrame(conn)
	if err != nil {
		return 1, fmt.Errorf("reading handshake reply: %w", err)
	}
	var reply wire.HandshakeReply
	if err := codec.Unmarshal(frame.Payload, &reply); err != nil {
		return 1, fmt.Errorf("decoding handshake reply: %w", err)
	}
	if !reply.Success {
		return 1, fmt.Errorf("handshake rejected: %s", reply.Error)
	}

	if err := wire.WriteEnvelope(conn, wire.FrameRequest, request); err != nil {
		return 1, fmt.Errorf("sending request: %w", err)
	}

	for {
		frame, err := wire.ReadFrame(conn)
		if err != nil {
			return 1, fmt.Errorf("reading frame: %w", err)
		}
		switch frame.Type {
		case wire.FrameEvent:
			if follow || diagnose {
				if err := printFrame(frame, diagnose); err != nil {
					return 1, err
				}
			}
		case wire.FrameResponse:
			if err := printFrame(frame, diagnose); err != nil {
				return 1, err
			}
			var response wire.Response
			if err := codec.Unmarshal(frame.Payload, &response); err != nil {
				return 1, fmt.Errorf("decoding response: %w", err)
			}
			code := 0
			if response.Error != nil {
				code = 1
			}
			if !follow {
				return code, nil
			}
			// Keep streaming events until the deadline or ^C.
		default:
			return 1, fmt.Errorf("unexpected frame type %#x", frame.Type)
		}
	}
}

// printFrame renders one frame: CBOR diagnostic notation with
// --diagnose, indented JSON otherwise.
func printFrame(frame wire.Frame, diagnose bool) error {
	if diagnose {
		notation, err := codec.Diagnose(frame.Payload)
		if err != nil {
			return fmt.Errorf("diagnosing frame: %w", err)
		}
		fmt.Printf("frame %#x: %s\n", frame.Type, notation)
		return nil
	}
	var decoded any
	if err := codec.Unmarshal(frame.Payload, &decoded); err != nil {
		return fmt.Errorf("decoding frame: %w", err)
	}
	rendered, err := json.MarshalIndent(decoded, "", "  ")
	if err != nil {
		return fmt.Errorf("rendering frame: %w", err)
	}
	fmt.Println(string(rendered))
	return nil
}

func readToken(tokenFile string) (string, error) {
	if tokenFile != "" {
		data, err := os.ReadFile(tokenFile)
		if err != nil {
			return "", fmt.Errorf("reading token file: %w", err)
		}
		token := strings.TrimSpace(string(data))
		if token == "" {
			return "", fmt.Errorf("token file %s is empty", tokenFile)
		}
		return token, nil
	}
	if token := os.Getenv("SHUTTLE_TOKEN"); token != "" {
		return token, nil
	}
	return "", fmt.Errorf("no token: pass --token-file or set SHUTTLE_TOKEN")
}
