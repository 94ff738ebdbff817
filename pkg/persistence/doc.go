// Package persistence records which peers this installation has chatted with.
//
// The record lives in a single JSON file (peers.json) under the state
// directory. It is informational: authentication never consults it.
// Identities and keys are kept separately by the cert package's Keystore.
package persistence
