// Command certchat-keygen manages the certchat certificate authority and
// account identities.
//
// Usage:
//
//	certchat-keygen init-ca [--name NAME] [--force]
//	certchat-keygen issue <account> [--cert-out FILE] [--force]
//	certchat-keygen show [account] [-o text|yaml]
//
// The CA lives in --ca-dir (ca.pem, ca.key). Hand peers ca.pem only; ca.key
// stays on the issuing host. Issued identities are sealed into
// <keystore-dir>/<account>.keystore under the passphrase given with
// --passphrase or CERTCHAT_PASSPHRASE.
package main

func main() {
	Execute()
}
