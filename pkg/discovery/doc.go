// Package discovery announces and locates certchat peers over mDNS/DNS-SD.
//
// A passive peer registers one instance of _certchat._tcp.local named
// certchat-<account>. Its TXT records carry:
//
//	acct  the account (certificate common name)
//	fp    the first 16 hex characters of the SHA-256 certificate fingerprint
//
// The fingerprint prefix is a hint for humans picking a peer. It is never
// used for authentication; the handshake validates the full certificate.
package discovery
