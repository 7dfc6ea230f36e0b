package store

import (
	"github.com/openincident/beacon/src/incident"
	"github.com/openincident/beacon/src/peers"
	"github.com/openincident/beacon/src/pull"
	"github.com/openincident/beacon/src/schema"
)

// Store is an interface for backend stores. Missing keys are signalled with
// a common.StoreErr of code KeyNotFound; a duplicate incident URI with
// KeyAlreadyExists.
type Store interface {
	// GetIncident returns an incident by URI.
	GetIncident(uri string) (*incident.Incident, error)
	// SetIncident inserts an incident if its URI is absent; first write
	// wins, a present URI is an error and the stored record is untouched.
	SetIncident(inc *incident.Incident) error
	// Incidents returns a window of incidents, newest first.
	Incidents(offset, limit int) ([]*incident.Incident, error)
	// IncidentCount returns the total number of incidents.
	IncidentCount() (int, error)

	// GetPeer returns a registered peer by id.
	GetPeer(id string) (*peers.Peer, error)
	// SetPeer inserts or replaces a peer.
	SetPeer(p *peers.Peer) error
	// DeletePeer removes a peer.
	DeletePeer(id string) error
	// Peers returns all registered peers.
	Peers() ([]*peers.Peer, error)

	// GetPull returns a run record by id.
	GetPull(id string) (*pull.Run, error)
	// SetPull inserts or updates a run record.
	SetPull(run *pull.Run) error
	// PeerPulls returns up to limit run records for a peer, most recent
	// first. A non-positive limit means no limit.
	PeerPulls(peerID string, limit int) ([]*pull.Run, error)

	// GetRawSchema returns the raw schema definition of a namespace.
	GetRawSchema(namespace string) (*schema.RawDefinition, error)
	// SetRawSchema inserts or replaces a raw schema definition.
	SetRawSchema(def *schema.RawDefinition) error

	// Close releases the underlying resources.
	Close() error
}
