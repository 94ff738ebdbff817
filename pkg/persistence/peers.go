package persistence

import (
	"crypto/x509"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/certchat/certchat-go/pkg/cert"
)

// StateVersion is the current version of the peers file format.
const StateVersion = 1

// PeersFile is the file name used inside a state directory.
const PeersFile = "peers.json"

// ErrUnsupportedVersion is returned for peers files written by a newer release.
var ErrUnsupportedVersion = errors.New("unsupported peers file version")

// PeerState is the on-disk document.
type PeerState struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	Peers []KnownPeer `json:"peers,omitempty"`
}

// KnownPeer describes a peer that completed a handshake.
type KnownPeer struct {
	// Fingerprint is the SHA-256 of the peer certificate DER, hex encoded.
	Fingerprint string `json:"fingerprint"`

	Subject string `json:"subject"`
	Issuer  string `json:"issuer"`

	// NotAfter is the certificate expiry as seen at the last session.
	NotAfter time.Time `json:"not_after"`

	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`

	// Sessions counts authenticated sessions.
	Sessions int `json:"sessions"`
}

// PeerStore manages the peers file.
type PeerStore struct {
	mu   sync.Mutex
	path string
}

// NewPeerStore creates a store for the file at path.
func NewPeerStore(path string) *PeerStore {
	return &PeerStore{path: path}
}

// NewPeerStoreInDir creates a store for peers.json inside dir.
func NewPeerStoreInDir(dir string) *PeerStore {
	return NewPeerStore(filepath.Join(dir, PeersFile))
}

// Path returns the file path.
func (s *PeerStore) Path() string {
	return s.path
}

// Load reads the peers file.
// Returns nil, nil if the file doesn't exist.
func (s *PeerStore) Load() (*PeerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *PeerStore) load() (*PeerState, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	state := &PeerState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, err
	}
	if state.Version > StateVersion {
		return nil, ErrUnsupportedVersion
	}
	return state, nil
}

func (s *PeerStore) save(state *PeerState) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	state.Version = StateVersion
	state.SavedAt = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0644)
}

// RecordAuthenticated notes a successful handshake with the peer holding c.
// The returned entry reflects the updated counters.
func (s *PeerStore) RecordAuthenticated(c *x509.Certificate, at time.Time) (*KnownPeer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.load()
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = &PeerState{}
	}

	fp := cert.Fingerprint(c)
	var entry *KnownPeer
	for i := range state.Peers {
		if state.Peers[i].Fingerprint == fp {
			entry = &state.Peers[i]
			break
		}
	}
	if entry == nil {
		state.Peers = append(state.Peers, KnownPeer{
			Fingerprint: fp,
			FirstSeen:   at,
		})
		entry = &state.Peers[len(state.Peers)-1]
	}

	entry.Subject = c.Subject.CommonName
	entry.Issuer = c.Issuer.CommonName
	entry.NotAfter = c.NotAfter
	entry.LastSeen = at
	entry.Sessions++

	result := *entry

	sort.Slice(state.Peers, func(i, j int) bool {
		return state.Peers[i].LastSeen.After(state.Peers[j].LastSeen)
	})

	if err := s.save(state); err != nil {
		return nil, err
	}
	return &result, nil
}

// Lookup returns the entry for a fingerprint, or nil if unknown.
func (s *PeerStore) Lookup(fingerprint string) (*KnownPeer, error) {
	state, err := s.Load()
	if err != nil || state == nil {
		return nil, err
	}
	for i := range state.Peers {
		if state.Peers[i].Fingerprint == fingerprint {
			p := state.Peers[i]
			return &p, nil
		}
	}
	return nil, nil
}

// Clear removes the peers file.
func (s *PeerStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
