// Package log records protocol events for certchat connections.
//
// A protocol event is one of: a frame crossing the wire, a state change of
// the channel, handshake or session, or an error attributed to a layer.
// This trace is separate from operational logging (slog) and is meant for
// offline inspection with the certchat-log tool.
//
// # Basic Usage
//
//	// console, at debug level
//	var l log.Logger = log.NewSlogAdapter(slog.Default())
//
//	// file
//	fl, err := log.NewFileLogger("/var/log/certchat/alice.clog")
//
//	// both
//	l = log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// Components accept a nil Logger and treat it as NoopLogger.
//
// # File Format
//
// Log files are a sequence of CBOR-encoded Event values with integer map
// keys, conventionally with the .clog extension.
package log
