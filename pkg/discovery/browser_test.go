package discovery

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

func TestPeerFromRecord(t *testing.T) {
	text := []string{"acct=alice", "fp=0011223344556677"}
	ips := []net.IP{net.ParseIP("192.168.1.20"), net.ParseIP("fe80::1")}

	svc := peerFromRecord("certchat-alice", "alice-laptop.local.", 9000, text, ips)
	if svc == nil {
		t.Fatal("expected service")
	}
	if svc.Account != "alice" {
		t.Errorf("Account = %q", svc.Account)
	}
	if svc.FingerprintPrefix != "0011223344556677" {
		t.Errorf("FingerprintPrefix = %q", svc.FingerprintPrefix)
	}
	if svc.Port != 9000 {
		t.Errorf("Port = %d", svc.Port)
	}
	if len(svc.Addresses) != 2 || svc.Addresses[0] != "192.168.1.20" || svc.Addresses[1] != "fe80::1" {
		t.Errorf("Addresses = %v", svc.Addresses)
	}
	if got := svc.DialAddress(); got != "192.168.1.20:9000" {
		t.Errorf("DialAddress = %q", got)
	}
}

func TestPeerFromRecordRejects(t *testing.T) {
	tests := []struct {
		name string
		text []string
		port int
	}{
		{"NoTXT", nil, 9000},
		{"ForeignService", []string{"D=1234", "cat=3"}, 9000},
		{"ZeroPort", []string{"acct=alice", "fp=0011223344556677"}, 0},
		{"PortOutOfRange", []string{"acct=alice", "fp=0011223344556677"}, 70000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if svc := peerFromRecord("x", "h.local.", tt.port, tt.text, nil); svc != nil {
				t.Errorf("expected nil, got %+v", svc)
			}
		})
	}
}

func TestDialAddressFallsBackToHost(t *testing.T) {
	svc := &PeerService{Host: "bob.local.", Port: 9100}
	if got := svc.DialAddress(); got != "bob.local.:9100" {
		t.Errorf("DialAddress = %q", got)
	}

	v6 := &PeerService{Addresses: []string{"fe80::2"}, Port: 9000}
	if got := v6.DialAddress(); got != "[fe80::2]:9000" {
		t.Errorf("DialAddress = %q", got)
	}
}

func TestMergeAddresses(t *testing.T) {
	got := mergeAddresses([]string{"10.0.0.1", "fe80::1"}, []string{"fe80::1", "10.0.0.2"})
	want := []string{"10.0.0.1", "fe80::1", "10.0.0.2"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNewBrowserDefaults(t *testing.T) {
	b := NewBrowser(BrowserConfig{})
	if b.config.BrowseTimeout != 10*time.Second {
		t.Errorf("BrowseTimeout = %v", b.config.BrowseTimeout)
	}
}

func TestAdvertiseRejectsBadInput(t *testing.T) {
	a := NewAdvertiser(AdvertiserConfig{})
	defer a.Stop()

	if err := a.Advertise(&PeerInfo{Account: "alice"}); !errors.Is(err, ErrInvalidPort) {
		t.Errorf("zero port: err = %v", err)
	}
	long := &PeerInfo{Account: string(make([]byte, 64)), Port: 9000}
	if err := a.Advertise(long); !errors.Is(err, ErrInstanceNameTooLong) {
		t.Errorf("long name: err = %v", err)
	}
}

func TestFindPeerNotFoundOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewBrowser(BrowserConfig{})
	if _, err := b.FindPeer(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
