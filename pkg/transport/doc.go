// Package transport carries certchat frames over a raw TCP connection.
//
// A connection is either accepted by a passive peer (Listen, Accept) or
// dialed by an active peer (Connect). Exactly one peer is served per
// process; there is no pooling, multiplexing or reconnection.
//
// # Wire Format
//
// Two frame shapes share the stream:
//
//	certificate frame   [u32 BE length][DER bytes]
//	text frame          [u16 BE length][UTF-8 bytes]
//
// The handshake exchanges one certificate frame in each direction followed
// by one text frame carrying the verdict token. Every later frame is a text
// frame. No TLS is layered underneath and chat text travels in the clear.
//
// Reads always consume exactly the declared length, looping over short
// reads; the read side is never buffered, so frames of both shapes can be
// read from the same connection in sequence.
package transport
