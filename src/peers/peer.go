package peers

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/ugorji/go/codec"
)

// Peer is a remote node registered for pulling.
type Peer struct {
	// ID is the local identifier of the peer. It is also recorded as the
	// SourceNode of every incident ingested from this peer.
	ID string `json:"id"`

	// BaseURL is the root address of the peer.
	BaseURL string `json:"baseUrl"`

	// Outbox is the URL of the peer's publication feed entry point. It can
	// be absolute, or relative to BaseURL.
	Outbox string `json:"outbox"`

	// Moniker is a non-unique user-friendly name for the peer.
	Moniker string `json:"moniker,omitempty"`
}

// NewPeer ...
func NewPeer(id, baseURL, outbox string) *Peer {
	peer := &Peer{
		ID:      id,
		BaseURL: baseURL,
		Outbox:  outbox,
	}

	if peer.ID == "" {
		peer.ID = deriveID(baseURL)
	}

	return peer
}

// Check verifies the registration invariant: BaseURL and Outbox are present
// and non-empty.
func (p *Peer) Check() error {
	if p.ID == "" {
		return fmt.Errorf("peer has no id")
	}
	if p.BaseURL == "" {
		return fmt.Errorf("peer %s has no baseUrl", p.ID)
	}
	if p.Outbox == "" {
		return fmt.Errorf("peer %s has no outbox", p.ID)
	}
	return nil
}

// OutboxURL resolves the outbox address against BaseURL when it is relative.
func (p *Peer) OutboxURL() (string, error) {
	return ResolveURL(p.BaseURL, p.Outbox)
}

// ResolveURL resolves ref against base. An absolute ref is returned as is.
func ResolveURL(base, ref string) (string, error) {
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	if r.IsAbs() {
		return ref, nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}

// deriveID extracts a stable identifier from a base URL: the host, or the
// raw string when it does not parse.
func deriveID(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(baseURL, "/")
	}
	return u.Host
}

// Marshal - canonical json encoding of Peer
func (p *Peer) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(p); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal ...
func (p *Peer) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	if err := dec.Decode(p); err != nil {
		return err
	}

	return nil
}

// ExcludePeer is used to exclude a single peer from a list of peers.
func ExcludePeer(peers []*Peer, id string) (int, []*Peer) {
	index := -1
	otherPeers := make([]*Peer, 0, len(peers))
	for i, p := range peers {
		if p.ID != id {
			otherPeers = append(otherPeers, p)
		} else {
			index = i
		}
	}
	return index, otherPeers
}
