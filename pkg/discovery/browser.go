package discovery

import (
	"context"
	"net"

	"github.com/enbility/zeroconf/v3"
)

// Browser finds certchat peers on the local network.
type Browser struct {
	config BrowserConfig
}

// NewBrowser creates a browser. Zero config fields take defaults.
func NewBrowser(config BrowserConfig) *Browser {
	if config.BrowseTimeout == 0 {
		config.BrowseTimeout = DefaultBrowserConfig().BrowseTimeout
	}
	return &Browser{config: config}
}

// Browse streams discovered peers until ctx is done. Entries seen on several
// interfaces are merged by instance name and emitted once.
func (b *Browser) Browse(ctx context.Context) (<-chan *PeerService, error) {
	out := make(chan *PeerService)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	go func() {
		defer close(out)

		services := make(map[string]*PeerService)

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				svc := entryToPeer(entry)
				if svc == nil {
					continue
				}

				if existing, found := services[svc.InstanceName]; found {
					existing.Addresses = mergeAddresses(existing.Addresses, svc.Addresses)
					continue
				}
				services[svc.InstanceName] = svc
				select {
				case out <- svc:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				delete(services, entry.Instance)

			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, b.browserOptions()...)
	}()

	return out, nil
}

// FindPeer returns the first peer announcing account. Without a deadline on
// ctx the search is bounded by BrowseTimeout.
func (b *Browser) FindPeer(ctx context.Context, account string) (*PeerService, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.BrowseTimeout)
		defer cancel()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	for svc := range results {
		if svc.Account == account {
			return svc, nil
		}
	}
	return nil, ErrNotFound
}

func (b *Browser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	return opts
}

func entryToPeer(entry *zeroconf.ServiceEntry) *PeerService {
	ips := make([]net.IP, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	ips = append(ips, entry.AddrIPv4...)
	ips = append(ips, entry.AddrIPv6...)
	return peerFromRecord(entry.Instance, entry.HostName, entry.Port, entry.Text, ips)
}

// peerFromRecord builds a PeerService from resolved record data, returning
// nil for entries without valid certchat TXT records.
func peerFromRecord(instance, host string, port int, text []string, ips []net.IP) *PeerService {
	account, fp, err := DecodePeerTXT(StringsToTXTRecords(text))
	if err != nil {
		return nil
	}
	if port <= 0 || port > 65535 {
		return nil
	}

	addrs := make([]string, 0, len(ips))
	for _, ip := range ips {
		addrs = append(addrs, ip.String())
	}

	return &PeerService{
		InstanceName:      instance,
		Host:              host,
		Port:              uint16(port),
		Addresses:         addrs,
		Account:           account,
		FingerprintPrefix: fp,
	}
}

// mergeAddresses adds new addresses to existing list, avoiding duplicates.
func mergeAddresses(existing, added []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}

	for _, addr := range added {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}
