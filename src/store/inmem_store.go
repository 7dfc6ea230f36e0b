package store

import (
	"sync"

	cm "github.com/openincident/beacon/src/common"
	"github.com/openincident/beacon/src/incident"
	"github.com/openincident/beacon/src/peers"
	"github.com/openincident/beacon/src/pull"
	"github.com/openincident/beacon/src/schema"
)

// InmemStore implements the Store interface with in-memory maps. All data is
// lost on shutdown, so it is only suitable for tests and ephemeral nodes.
type InmemStore struct {
	l sync.RWMutex

	incidents     map[string]*incident.Incident
	incidentOrder []string // URIs in insertion order, oldest first

	peerSet map[string]*peers.Peer

	pulls     map[string]*pull.Run
	pullOrder map[string][]string // peer id => run ids, oldest first

	rawSchemas map[string]*schema.RawDefinition
}

// NewInmemStore ...
func NewInmemStore() *InmemStore {
	return &InmemStore{
		incidents:  make(map[string]*incident.Incident),
		peerSet:    make(map[string]*peers.Peer),
		pulls:      make(map[string]*pull.Run),
		pullOrder:  make(map[string][]string),
		rawSchemas: make(map[string]*schema.RawDefinition),
	}
}

// GetIncident implements the Store interface.
func (s *InmemStore) GetIncident(uri string) (*incident.Incident, error) {
	s.l.RLock()
	defer s.l.RUnlock()

	inc, ok := s.incidents[uri]
	if !ok {
		return nil, cm.NewStoreErr("Incident", cm.KeyNotFound, uri)
	}
	return inc, nil
}

// SetIncident implements the Store interface. First write wins.
func (s *InmemStore) SetIncident(inc *incident.Incident) error {
	s.l.Lock()
	defer s.l.Unlock()

	if _, ok := s.incidents[inc.URI]; ok {
		return cm.NewStoreErr("Incident", cm.KeyAlreadyExists, inc.URI)
	}

	s.incidents[inc.URI] = inc
	s.incidentOrder = append(s.incidentOrder, inc.URI)

	return nil
}

// Incidents implements the Store interface; newest first.
func (s *InmemStore) Incidents(offset, limit int) ([]*incident.Incident, error) {
	s.l.RLock()
	defer s.l.RUnlock()

	res := []*incident.Incident{}
	for i := len(s.incidentOrder) - 1 - offset; i >= 0 && len(res) < limit; i-- {
		res = append(res, s.incidents[s.incidentOrder[i]])
	}
	return res, nil
}

// IncidentCount implements the Store interface.
func (s *InmemStore) IncidentCount() (int, error) {
	s.l.RLock()
	defer s.l.RUnlock()

	return len(s.incidents), nil
}

// GetPeer implements the Store interface.
func (s *InmemStore) GetPeer(id string) (*peers.Peer, error) {
	s.l.RLock()
	defer s.l.RUnlock()

	p, ok := s.peerSet[id]
	if !ok {
		return nil, cm.NewStoreErr("Peer", cm.KeyNotFound, id)
	}
	return p, nil
}

// SetPeer implements the Store interface.
func (s *InmemStore) SetPeer(p *peers.Peer) error {
	s.l.Lock()
	defer s.l.Unlock()

	s.peerSet[p.ID] = p

	return nil
}

// DeletePeer implements the Store interface.
func (s *InmemStore) DeletePeer(id string) error {
	s.l.Lock()
	defer s.l.Unlock()

	if _, ok := s.peerSet[id]; !ok {
		return cm.NewStoreErr("Peer", cm.KeyNotFound, id)
	}
	delete(s.peerSet, id)

	return nil
}

// Peers implements the Store interface.
func (s *InmemStore) Peers() ([]*peers.Peer, error) {
	s.l.RLock()
	defer s.l.RUnlock()

	res := make([]*peers.Peer, 0, len(s.peerSet))
	for _, p := range s.peerSet {
		res = append(res, p)
	}
	return res, nil
}

// GetPull implements the Store interface.
func (s *InmemStore) GetPull(id string) (*pull.Run, error) {
	s.l.RLock()
	defer s.l.RUnlock()

	run, ok := s.pulls[id]
	if !ok {
		return nil, cm.NewStoreErr("Pull", cm.KeyNotFound, id)
	}
	return run, nil
}

// SetPull implements the Store interface.
func (s *InmemStore) SetPull(run *pull.Run) error {
	s.l.Lock()
	defer s.l.Unlock()

	if _, ok := s.pulls[run.ID]; !ok {
		s.pullOrder[run.PeerID] = append(s.pullOrder[run.PeerID], run.ID)
	}
	s.pulls[run.ID] = run

	return nil
}

// PeerPulls implements the Store interface; most recent first.
func (s *InmemStore) PeerPulls(peerID string, limit int) ([]*pull.Run, error) {
	s.l.RLock()
	defer s.l.RUnlock()

	order := s.pullOrder[peerID]
	res := []*pull.Run{}
	for i := len(order) - 1; i >= 0; i-- {
		if limit > 0 && len(res) >= limit {
			break
		}
		res = append(res, s.pulls[order[i]])
	}
	return res, nil
}

// GetRawSchema implements the Store interface.
func (s *InmemStore) GetRawSchema(namespace string) (*schema.RawDefinition, error) {
	s.l.RLock()
	defer s.l.RUnlock()

	def, ok := s.rawSchemas[namespace]
	if !ok {
		return nil, cm.NewStoreErr("RawSchema", cm.KeyNotFound, namespace)
	}
	return def, nil
}

// SetRawSchema implements the Store interface.
func (s *InmemStore) SetRawSchema(def *schema.RawDefinition) error {
	s.l.Lock()
	defer s.l.Unlock()

	s.rawSchemas[def.Namespace] = def

	return nil
}

// Close implements the Store interface.
func (s *InmemStore) Close() error {
	return nil
}
