package peers

import (
	"reflect"
	"testing"
)

func TestNewPeerDerivesID(t *testing.T) {
	peer := NewPeer("", "http://node.example.org:8000", "/outbox")
	if peer.ID != "node.example.org:8000" {
		t.Fatalf("ID should default to the host, got %q", peer.ID)
	}

	peer = NewPeer("custom", "http://node.example.org:8000", "/outbox")
	if peer.ID != "custom" {
		t.Fatalf("explicit ID should be kept, got %q", peer.ID)
	}
}

func TestPeerCheck(t *testing.T) {
	good := NewPeer("alpha", "http://alpha.example.org", "/outbox")
	if err := good.Check(); err != nil {
		t.Fatalf("err: %v", err)
	}

	bad := []*Peer{
		{ID: "x", BaseURL: "", Outbox: "/outbox"},
		{ID: "x", BaseURL: "http://x.example.org", Outbox: ""},
	}
	for _, p := range bad {
		if err := p.Check(); err == nil {
			t.Fatalf("Check should fail for %+v", p)
		}
	}
}

func TestOutboxURL(t *testing.T) {
	relative := NewPeer("alpha", "http://alpha.example.org:8000", "/outbox")
	u, err := relative.OutboxURL()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if u != "http://alpha.example.org:8000/outbox" {
		t.Fatalf("outbox url: %s", u)
	}

	absolute := NewPeer("bravo", "http://bravo.example.org", "http://feeds.example.org/outbox")
	u, err = absolute.OutboxURL()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if u != "http://feeds.example.org/outbox" {
		t.Fatalf("absolute outbox should be untouched: %s", u)
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		base     string
		ref      string
		expected string
	}{
		{"http://node.example.org/outbox", "?page=2", "http://node.example.org/outbox?page=2"},
		{"http://node.example.org/outbox?page=2", "?page=3", "http://node.example.org/outbox?page=3"},
		{"http://node.example.org/outbox", "/feed/page/2", "http://node.example.org/feed/page/2"},
		{"http://node.example.org/outbox", "http://other.example.org/outbox?page=2", "http://other.example.org/outbox?page=2"},
	}

	for _, tt := range tests {
		got, err := ResolveURL(tt.base, tt.ref)
		if err != nil {
			t.Fatalf("err: %v", err)
		}
		if got != tt.expected {
			t.Fatalf("ResolveURL(%s, %s) = %s, expected %s", tt.base, tt.ref, got, tt.expected)
		}
	}
}

func TestPeerMarshal(t *testing.T) {
	peer := NewPeer("alpha", "http://alpha.example.org", "/outbox")
	peer.Moniker = "Alpha Node"

	raw, err := peer.Marshal()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	decoded := new(Peer)
	if err := decoded.Unmarshal(raw); err != nil {
		t.Fatalf("err: %v", err)
	}

	if !reflect.DeepEqual(peer, decoded) {
		t.Fatalf("peers mismatch: %v %v", peer, decoded)
	}
}

func TestExcludePeer(t *testing.T) {
	ps := []*Peer{
		NewPeer("alpha", "http://alpha.example.org", "/outbox"),
		NewPeer("bravo", "http://bravo.example.org", "/outbox"),
		NewPeer("charlie", "http://charlie.example.org", "/outbox"),
	}

	index, others := ExcludePeer(ps, "bravo")
	if index != 1 {
		t.Fatalf("index: %d", index)
	}
	if len(others) != 2 || others[0].ID != "alpha" || others[1].ID != "charlie" {
		t.Fatalf("others: %v", others)
	}
}
