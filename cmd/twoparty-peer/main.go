// Command twoparty-peer runs one end of a two-party connection.
//
// One peer listens and accepts exactly one connection, the other dials it.
// Both build a VatNetwork over the TCP stream and then either echo every
// message back or, with -interactive, offer a command prompt to send and
// receive messages by hand.
//
// Usage:
//
//	twoparty-peer [flags]
//
// Flags:
//
//	-config string        YAML configuration file
//	-listen string        Address to listen on (server side)
//	-connect string       Address to dial (client side)
//	-interactive          Enable interactive command mode
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-protocol-log string  Write protocol events to this file
//
// Examples:
//
//	# Echo server
//	twoparty-peer -listen 127.0.0.1:7400
//
//	# Interactive client with a protocol log
//	twoparty-peer -connect 127.0.0.1:7400 -interactive -protocol-log client.tplog
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/mash-protocol/twoparty-go/cmd/twoparty-peer/interactive"
	"github.com/mash-protocol/twoparty-go/pkg/log"
	"github.com/mash-protocol/twoparty-go/pkg/transport"
	"github.com/mash-protocol/twoparty-go/pkg/twoparty"
	"github.com/mash-protocol/twoparty-go/pkg/wire"
)

func main() {
	cfg, err := configure(os.Args[1:])
	if err != nil {
		fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		stop()
		fatal(err)
	}
}

// configure builds the configuration from the optional config file and
// the command-line flags, which take precedence.
func configure(args []string) (Config, error) {
	fs := flag.NewFlagSet("twoparty-peer", flag.ContinueOnError)
	configFile := fs.String("config", "", "YAML configuration file")
	listen := fs.String("listen", "", "Address to listen on (server side)")
	connect := fs.String("connect", "", "Address to dial (client side)")
	interactiveMode := fs.Bool("interactive", false, "Enable interactive command mode")
	logLevel := fs.String("log-level", "", "Log level: debug, info, warn, error")
	protocolLog := fs.String("protocol-log", "", "Write protocol events to this file")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	if *configFile != "" {
		var err error
		if cfg, err = LoadConfig(*configFile); err != nil {
			return Config{}, err
		}
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *connect != "" {
		cfg.Connect = *connect
	}
	if *interactiveMode {
		cfg.Interactive = true
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *protocolLog != "" {
		cfg.ProtocolLog = *protocolLog
	}
	if cfg.Listen != "" {
		cfg.Network.Side = wire.SideServer
	} else {
		cfg.Network.Side = wire.SideClient
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// run opens the stream, takes the connection and serves it until ctx is
// done or the peer disconnects. Everything it opens is closed on return.
func run(ctx context.Context, cfg Config) error {
	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ic *interactive.Peer
	var out io.Writer = os.Stderr
	if cfg.Interactive {
		if ic, err = interactive.New(cfg.Network.Side); err != nil {
			return err
		}
		defer ic.Close()
		out = ic.Stdout()
	}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	cfg.Network.Logger = logger
	cfg.Dial.Logger = logger

	if cfg.ProtocolLog != "" {
		fileLogger, err := log.NewFileLogger(cfg.ProtocolLog)
		if err != nil {
			return fmt.Errorf("failed to create protocol logger: %w", err)
		}
		defer func() {
			if err := fileLogger.Close(); err != nil {
				logger.Warn("protocol log incomplete", "path", fileLogger.Path(), "error", err)
			}
		}()

		var plog log.Logger = fileLogger
		if level == slog.LevelDebug {
			plog = log.NewMultiLogger(fileLogger, log.NewSlogAdapter(logger))
		}
		cfg.Network.ProtocolLogger = plog
		logger.Info("protocol logging enabled", "path", cfg.ProtocolLog)
	}

	stream, err := openStream(ctx, cfg, logger)
	if err != nil {
		return err
	}

	network := twoparty.NewVatNetwork(stream, stream, cfg.Network)
	defer network.Close()

	var conn *twoparty.Connection
	if cfg.Network.Side == wire.SideServer {
		if conn, err = network.Accept().Wait(ctx); err != nil {
			return err
		}
	} else {
		conn = network.Connect(wire.SideServer)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Debug("close", "error", err)
		}
	}()
	logger.Info("connected", "conn_id", conn.ID(), "peer", conn.PeerVatID().String(), "remote", stream.RemoteAddr().String())

	go func() {
		<-network.OnDisconnect().Done()
		cancel()
	}()

	if ic != nil {
		go ic.Run(ctx, cancel, conn)
	} else {
		go func() {
			if err := echo(ctx, conn, logger); err != nil && ctx.Err() == nil {
				logger.Error("echo stopped", "error", err)
			}
			cancel()
		}()
	}

	<-ctx.Done()
	logger.Info("goodbye")
	return nil
}

func openStream(ctx context.Context, cfg Config, logger *slog.Logger) (net.Conn, error) {
	if cfg.Listen != "" {
		ln, err := net.Listen("tcp", cfg.Listen)
		if err != nil {
			return nil, fmt.Errorf("listen: %w", err)
		}
		logger.Info("waiting for peer", "addr", ln.Addr().String())
		return transport.AcceptOne(ctx, ln)
	}
	logger.Info("dialing peer", "addr", cfg.Connect)
	return transport.Dial(ctx, cfg.Connect, cfg.Dial)
}

// echo sends every received message back until the peer ends the stream,
// then shuts down the write side.
func echo(ctx context.Context, conn *twoparty.Connection, logger *slog.Logger) error {
	for {
		in, err := conn.ReceiveIncomingMessage().Wait(ctx)
		if err != nil {
			return err
		}
		if in == nil {
			logger.Info("peer ended stream")
			_, err := conn.Shutdown().Wait(ctx)
			return err
		}

		body, err := in.Body()
		if err != nil {
			logger.Warn("dropping malformed message", "error", err)
			continue
		}
		out := conn.NewOutgoingMessage(uint32(in.SizeInWords()))
		root, err := out.Body()
		if err != nil {
			return err
		}
		if err := root.SetRaw(body.Raw()); err != nil {
			return err
		}
		// Sends are ordered; completion is observed through later failures.
		out.Send()
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
