package discovery

import (
	"errors"
	"net"
	"strconv"
	"time"
)

const (
	// ServiceType is the DNS-SD service type for certchat peers.
	ServiceType = "_certchat._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// InstancePrefix precedes the account in instance names.
	InstancePrefix = "certchat-"

	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// FingerprintPrefixLen is the number of hex characters published in fp.
	FingerprintPrefixLen = 16
)

// TXT record keys.
const (
	TXTKeyAccount     = "acct"
	TXTKeyFingerprint = "fp"
)

var (
	ErrInstanceNameTooLong = errors.New("instance name too long")
	ErrMissingRequired     = errors.New("missing required TXT record")
	ErrInvalidFingerprint  = errors.New("invalid fingerprint prefix")
	ErrNotFound            = errors.New("peer not found")
)

// PeerInfo is what a peer announces about itself.
type PeerInfo struct {
	Account     string
	Fingerprint string // full or prefix; truncated to FingerprintPrefixLen
	Port        uint16
}

// PeerService is a discovered peer.
type PeerService struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string

	Account           string
	FingerprintPrefix string
}

// DialAddress returns host:port for the first resolved address, falling
// back to the advertised host name.
func (s *PeerService) DialAddress() string {
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	return net.JoinHostPort(host, strconv.Itoa(int(s.Port)))
}

// AdvertiserConfig configures the advertiser.
type AdvertiserConfig struct {
	// Interface restricts advertising to one network interface.
	// Empty means all interfaces.
	Interface string

	// TTL for announced records. Zero keeps the zeroconf default.
	TTL time.Duration
}

// BrowserConfig configures the browser.
type BrowserConfig struct {
	Interface string

	// BrowseTimeout bounds FindPeer when the context has no deadline.
	// Default: 10 seconds.
	BrowseTimeout time.Duration
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		BrowseTimeout: 10 * time.Second,
	}
}
