// Package log provides structured protocol logging for the two-party transport.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at multiple layers (transport, connection, network).
// It is separate from operational logging (slog) - protocol capture provides
// a complete machine-readable event trace for debugging and analysis.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	opts.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	opts.ProtocolLogger, _ = log.NewFileLogger("/var/log/twoparty/peer.tplog")
//
//	// Both: use MultiLogger
//	opts.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	)
//
// # Event Types
//
// Events are captured at multiple layers:
//   - Transport: Raw frame bytes (FrameEvent)
//   - Connection: Messages sent and received (MessageEvent)
//   - Connection and network: Lifecycle changes (StateChangeEvent)
//
// Stream failures at any layer are recorded as ErrorEventData.
//
// # File Format
//
// Log files are a stream of CBOR-encoded events with the .tplog extension.
// The twoparty-log CLI tool provides viewing and statistics.
package log
