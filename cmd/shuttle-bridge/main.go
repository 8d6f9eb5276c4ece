// Copyright 2026 The Shuttle Authors
// SPDX-License-Identifier: Apache-2.0

// shuttle-bridge is the local bridge daemon between a Shuttle UI and a
// workbench server. It listens on loopback, authenticates UI
// connections with a shared token, and proxies session operations and
// the server's event stream over an authenticated binary protocol.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/shuttle-works/shuttle/bridge"
	"github.com/shuttle-works/shuttle/state"
	"github.com/shuttle-works/shuttle/transport"
)

func main() {
	if err := run(); err != nil {
		if err == pflag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var listenFlag string
	var logLevelFlag string

	flagSet := pflag.NewFlagSet("shuttle-bridge", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to shuttle.yaml (default: SHUTTLE_CONFIG)")
	flagSet.StringVar(&listenFlag, "listen", "", "TCP listen address, overrides the config file")
	flagSet.StringVar(&logLevelFlag, "log-level", "", "log level: debug, info, warn, error")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	if configPath == "" {
		configPath = os.Getenv("SHUTTLE_CONFIG")
	}
	config, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	if listenFlag != "" {
		config.Listen = listenFlag
	}
	if logLevelFlag != "" {
		config.LogLevel = logLevelFlag
		if err := config.Validate(); err != nil {
			return err
		}
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(config.LogLevel),
	}))

	token, err := config.ReadToken()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	owner := state.NewOwner(state.OwnerConfig{Logger: logger})
	defer owner.Close()

	if config.Upstream.URL != "" {
		err := owner.SetServer(ctx, state.ServerInfo{
			URL:       config.Upstream.URL,
			Directory: config.Upstream.Directory,
		})
		if err != nil {
			return fmt.Errorf("binding workbench server %s: %w", config.Upstream.URL, err)
		}
		logger.Info("bound workbench server", "url", config.Upstream.URL, "directory", config.Upstream.Directory)
	}

	server, err := bridge.NewServer(bridge.ServerConfig{
		Owner:  owner,
		Token:  token,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	var listeners []net.Listener
	tcpListener, err := transport.NewTCPListener(config.Listen)
	if err != nil {
		return err
	}
	listeners = append(listeners, tcpListener)

	if config.WebSocketListen != "" {
		wsListener, err := transport.NewWebSocketListener(config.WebSocketListen)
		if err != nil {
			return err
		}
		listeners = append(listeners, wsListener)
	}

	return server.Run(ctx, listeners...)
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
