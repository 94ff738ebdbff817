// Package version reports the build and wire protocol versions.
package version

import "fmt"

// Protocol is the revision of the wire format: 4-byte length-prefixed
// certificate frames followed by 2-byte length-prefixed UTF-8 text frames.
// Peers do not exchange it; it is reported so operators can match builds.
const Protocol = "1.0"

// Build is set at build time via
// -ldflags "-X github.com/certchat/certchat-go/pkg/version.Build=x.y.z".
var Build = "dev"

// String returns the version line printed by the commands.
func String(command string) string {
	return fmt.Sprintf("%s version %s (wire protocol %s)", command, Build, Protocol)
}
