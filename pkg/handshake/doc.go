// Package handshake authenticates the two ends of a certchat connection.
//
// Each side sends its certificate before reading the peer's, validates the
// received certificate against the shared CA and answers with a verdict
// token in a text frame:
//
//	INIT ──send cert──▶ CERT_SENT ──recv cert──▶ CERT_RECEIVED ──▶ VALIDATING
//	                                                                  │
//	                              "Certificate Accepted" ◀── ok ──────┤
//	                                     AUTHENTICATED                │
//	                              "Invalid Certificate"  ◀── fail ────┘
//	                                     REJECTED
//
// After reaching AUTHENTICATED the coordinator also reads the peer's
// verdict, so a side whose certificate was refused learns about it instead
// of treating the token as a chat line.
//
// The exchange proves only that the peer holds a CA-signed certificate,
// not that it holds the matching private key.
package handshake
