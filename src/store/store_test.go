package store

import (
	"fmt"
	"testing"
	"time"

	cm "github.com/openincident/beacon/src/common"
	"github.com/openincident/beacon/src/incident"
	"github.com/openincident/beacon/src/peers"
	"github.com/openincident/beacon/src/pull"
	"github.com/openincident/beacon/src/schema"
)

// The same behavior is expected of every Store implementation, so the checks
// are shared between the in-memory and Badger tests.

func testIncident(n int, createdAt time.Time) *incident.Incident {
	uri := fmt.Sprintf("http://peer.example.org/incidents/%d", n)
	inc := incident.New(incident.Document{
		"@context": "http://peer.example.org/local/context/v1",
		"@id":      uri,
		"@type":    "Incident",
		"title":    fmt.Sprintf("incident %d", n),
	}, "peer.example.org")
	inc.CreatedAt = createdAt
	return inc
}

func checkIncidentOps(t *testing.T, s Store) {
	base := time.Now()

	if _, err := s.GetIncident("http://peer.example.org/incidents/0"); !cm.IsStore(err, cm.KeyNotFound) {
		t.Fatalf("expected KeyNotFound, got %v", err)
	}

	incidents := []*incident.Incident{}
	for n := 0; n < 5; n++ {
		inc := testIncident(n, base.Add(time.Duration(n)*time.Millisecond))
		incidents = append(incidents, inc)
		if err := s.SetIncident(inc); err != nil {
			t.Fatalf("err: %v", err)
		}
	}

	// First write wins
	dup := testIncident(0, base.Add(time.Second))
	dup.Data["title"] = "rewritten"
	if err := s.SetIncident(dup); !cm.IsStore(err, cm.KeyAlreadyExists) {
		t.Fatalf("expected KeyAlreadyExists, got %v", err)
	}
	stored, err := s.GetIncident(incidents[0].URI)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if stored.Data["title"] != "incident 0" {
		t.Fatalf("first write should win, got title %v", stored.Data["title"])
	}
	if stored.SourceNode != "peer.example.org" {
		t.Fatalf("sourceNode: %s", stored.SourceNode)
	}

	count, err := s.IncidentCount()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if count != 5 {
		t.Fatalf("count: %d", count)
	}

	// Newest first
	window, err := s.Incidents(0, 10)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(window) != 5 {
		t.Fatalf("window: %d items", len(window))
	}
	for i, inc := range window {
		if inc.URI != incidents[4-i].URI {
			t.Fatalf("window[%d] = %s, expected %s", i, inc.URI, incidents[4-i].URI)
		}
	}

	// Offset and limit
	window, err = s.Incidents(2, 2)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(window) != 2 || window[0].URI != incidents[2].URI || window[1].URI != incidents[1].URI {
		t.Fatalf("window: %v", window)
	}

	// Offset past the end
	window, err = s.Incidents(10, 2)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(window) != 0 {
		t.Fatalf("window past the end: %v", window)
	}
}

func checkPeerOps(t *testing.T, s Store) {
	if _, err := s.GetPeer("alpha"); !cm.IsStore(err, cm.KeyNotFound) {
		t.Fatalf("expected KeyNotFound, got %v", err)
	}

	alpha := peers.NewPeer("alpha", "http://alpha.example.org", "/outbox")
	bravo := peers.NewPeer("bravo", "http://bravo.example.org", "/outbox")

	for _, p := range []*peers.Peer{alpha, bravo} {
		if err := s.SetPeer(p); err != nil {
			t.Fatalf("err: %v", err)
		}
	}

	stored, err := s.GetPeer("alpha")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if stored.BaseURL != alpha.BaseURL || stored.Outbox != alpha.Outbox {
		t.Fatalf("peer mismatch: %v %v", stored, alpha)
	}

	ps, err := s.Peers()
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(ps) != 2 {
		t.Fatalf("peers: %v", ps)
	}

	if err := s.DeletePeer("alpha"); err != nil {
		t.Fatalf("err: %v", err)
	}
	if _, err := s.GetPeer("alpha"); !cm.IsStore(err, cm.KeyNotFound) {
		t.Fatalf("expected KeyNotFound after delete, got %v", err)
	}
	if err := s.DeletePeer("alpha"); !cm.IsStore(err, cm.KeyNotFound) {
		t.Fatalf("expected KeyNotFound, got %v", err)
	}
}

func checkPullOps(t *testing.T, s Store) {
	if _, err := s.GetPull("nope"); !cm.IsStore(err, cm.KeyNotFound) {
		t.Fatalf("expected KeyNotFound, got %v", err)
	}

	base := time.Now()
	runs := []*pull.Run{}
	for n := 0; n < 3; n++ {
		run := &pull.Run{
			ID:        fmt.Sprintf("run-%d", n),
			PeerID:    "alpha",
			StartedAt: base.Add(time.Duration(n) * time.Millisecond),
			Status:    pull.Running,
		}
		runs = append(runs, run)
		if err := s.SetPull(run); err != nil {
			t.Fatalf("err: %v", err)
		}
	}

	// Update in place: the run keeps its slot in the history
	runs[1].Status = pull.Succeeded
	runs[1].Fetched = 7
	runs[1].Ingested = 5
	runs[1].Rejected = 2
	if err := s.SetPull(runs[1]); err != nil {
		t.Fatalf("err: %v", err)
	}

	stored, err := s.GetPull("run-1")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if stored.Status != pull.Succeeded || stored.Fetched != 7 || stored.Ingested != 5 || stored.Rejected != 2 {
		t.Fatalf("run mismatch: %+v", stored)
	}

	history, err := s.PeerPulls("alpha", 0)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("history: %d runs", len(history))
	}
	for i, run := range history {
		if run.ID != runs[2-i].ID {
			t.Fatalf("history[%d] = %s, expected %s", i, run.ID, runs[2-i].ID)
		}
	}

	history, err = s.PeerPulls("alpha", 2)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(history) != 2 || history[0].ID != "run-2" {
		t.Fatalf("limited history: %v", history)
	}

	history, err = s.PeerPulls("unknown", 0)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("history of unknown peer: %v", history)
	}
}

func checkRawSchemaOps(t *testing.T, s Store) {
	if _, err := s.GetRawSchema("core"); !cm.IsStore(err, cm.KeyNotFound) {
		t.Fatalf("expected KeyNotFound, got %v", err)
	}

	def := schema.CoreDefinition("https://schemas.example.org")
	if err := s.SetRawSchema(def); err != nil {
		t.Fatalf("err: %v", err)
	}

	stored, err := s.GetRawSchema("core")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if stored.Namespace != "core" || len(stored.Terms) != len(def.Terms) {
		t.Fatalf("definition mismatch: %+v", stored)
	}

	// Replace is allowed for schemas
	def.Terms = def.Terms[:2]
	if err := s.SetRawSchema(def); err != nil {
		t.Fatalf("err: %v", err)
	}
	stored, err = s.GetRawSchema("core")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(stored.Terms) != 2 {
		t.Fatalf("terms: %d", len(stored.Terms))
	}
}
