// Package session runs an authenticated certchat conversation.
//
// A Session carries the connection, the local role and the peer
// certificate. Once the handshake has validated it, a Pump moves text in
// both directions concurrently:
//
//	local input ─▶ RunLoop ─▶ Queue ─▶ outbound worker ─▶ wire
//	wire ─▶ inbound worker ─▶ Observer
//
// The inbound worker owns the read half of the connection and the outbound
// worker the write half. Lines leave in the order they were queued, one
// text frame per line. A peer closing its side is reported to the Observer
// and is not an error; any other I/O failure in either worker ends the pump
// with a *WorkerError.
package session
