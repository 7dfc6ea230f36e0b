package store

import (
	"fmt"
	"os"

	"github.com/dgraph-io/badger"
	cm "github.com/openincident/beacon/src/common"
	"github.com/openincident/beacon/src/incident"
	"github.com/openincident/beacon/src/peers"
	"github.com/openincident/beacon/src/pull"
	"github.com/openincident/beacon/src/schema"
)

const (
	incidentPrefix     = "incident"
	incidentTimePrefix = "itime"
	peerPrefix         = "peer"
	pullPrefix         = "pull"
	peerPullPrefix     = "peerpull"
	rawSchemaPrefix    = "rawschema"
)

// BadgerStore implements the Store interface on top of a Badger database.
// The insert-if-absent semantics of SetIncident are enforced inside a single
// transaction, so two concurrent pulls discovering the same URI cannot
// double-insert.
type BadgerStore struct {
	db   *badger.DB
	path string
}

// NewBadgerStore opens a Store backed by the database at path, creating it
// if necessary.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithSyncWrites(false).
		WithLogger(nil)

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	store := &BadgerStore{
		db:   handle,
		path: path,
	}

	return store, nil
}

// LoadBadgerStore opens a Store from an existing database.
func LoadBadgerStore(path string) (*BadgerStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	return NewBadgerStore(path)
}

//==============================================================================
//Keys

func incidentKey(uri string) []byte {
	return []byte(fmt.Sprintf("%s_%s", incidentPrefix, uri))
}

// incidentTimeKey orders incidents by creation time. Iterating the prefix in
// reverse yields newest first; the URI suffix disambiguates identical
// timestamps.
func incidentTimeKey(unixNano int64, uri string) []byte {
	return []byte(fmt.Sprintf("%s_%020d_%s", incidentTimePrefix, unixNano, uri))
}

func peerKey(id string) []byte {
	return []byte(fmt.Sprintf("%s_%s", peerPrefix, id))
}

func pullKey(id string) []byte {
	return []byte(fmt.Sprintf("%s_%s", pullPrefix, id))
}

func peerPullKey(peerID string, unixNano int64, runID string) []byte {
	return []byte(fmt.Sprintf("%s_%s_%020d_%s", peerPullPrefix, peerID, unixNano, runID))
}

func rawSchemaKey(namespace string) []byte {
	return []byte(fmt.Sprintf("%s_%s", rawSchemaPrefix, namespace))
}

//==============================================================================
//Implement the Store interface

// GetIncident implements the Store interface.
func (s *BadgerStore) GetIncident(uri string) (*incident.Incident, error) {
	val, err := s.dbGet(incidentKey(uri))
	if err != nil {
		return nil, mapError(err, "Incident", uri)
	}

	inc := new(incident.Incident)
	if err := inc.Unmarshal(val); err != nil {
		return nil, err
	}

	return inc, nil
}

// SetIncident implements the Store interface. The existence check and the
// insert happen in one transaction; on a conflict with a concurrent insert
// of the same URI the transaction is retried and observes the winner.
func (s *BadgerStore) SetIncident(inc *incident.Incident) error {
	val, err := inc.Marshal()
	if err != nil {
		return err
	}

	key := incidentKey(inc.URI)
	timeKey := incidentTimeKey(inc.CreatedAt.UnixNano(), inc.URI)

	for {
		err := s.db.Update(func(txn *badger.Txn) error {
			_, err := txn.Get(key)
			if err == nil {
				return cm.NewStoreErr("Incident", cm.KeyAlreadyExists, inc.URI)
			}
			if !isDBKeyNotFound(err) {
				return err
			}

			//insert [incident_uri] => [incident bytes]
			if err := txn.Set(key, val); err != nil {
				return err
			}
			//insert [itime_nano_uri] => [uri]
			return txn.Set(timeKey, []byte(inc.URI))
		})

		if err != badger.ErrConflict {
			return err
		}
	}
}

// Incidents implements the Store interface; newest first.
func (s *BadgerStore) Incidents(offset, limit int) ([]*incident.Incident, error) {
	res := []*incident.Incident{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(incidentTimePrefix + "_")
		seek := append(append([]byte{}, prefix...), 0xFF)

		skipped := 0
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if skipped < offset {
				skipped++
				continue
			}
			if limit > 0 && len(res) >= limit {
				break
			}

			uri, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}

			item, err := txn.Get(incidentKey(string(uri)))
			if err != nil {
				return err
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}

			inc := new(incident.Incident)
			if err := inc.Unmarshal(val); err != nil {
				return err
			}
			res = append(res, inc)
		}

		return nil
	})

	return res, err
}

// IncidentCount implements the Store interface.
func (s *BadgerStore) IncidentCount() (int, error) {
	count := 0

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(incidentPrefix + "_")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}

		return nil
	})

	return count, err
}

// GetPeer implements the Store interface.
func (s *BadgerStore) GetPeer(id string) (*peers.Peer, error) {
	val, err := s.dbGet(peerKey(id))
	if err != nil {
		return nil, mapError(err, "Peer", id)
	}

	peer := new(peers.Peer)
	if err := peer.Unmarshal(val); err != nil {
		return nil, err
	}

	return peer, nil
}

// SetPeer implements the Store interface.
func (s *BadgerStore) SetPeer(p *peers.Peer) error {
	val, err := p.Marshal()
	if err != nil {
		return err
	}

	return s.dbSet(peerKey(p.ID), val)
}

// DeletePeer implements the Store interface.
func (s *BadgerStore) DeletePeer(id string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(peerKey(id)); err != nil {
			return err
		}
		return txn.Delete(peerKey(id))
	})

	return mapError(err, "Peer", id)
}

// Peers implements the Store interface.
func (s *BadgerStore) Peers() ([]*peers.Peer, error) {
	res := []*peers.Peer{}

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(peerPrefix + "_")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			peer := new(peers.Peer)
			if err := peer.Unmarshal(val); err != nil {
				return err
			}
			res = append(res, peer)
		}

		return nil
	})

	return res, err
}

// GetPull implements the Store interface.
func (s *BadgerStore) GetPull(id string) (*pull.Run, error) {
	val, err := s.dbGet(pullKey(id))
	if err != nil {
		return nil, mapError(err, "Pull", id)
	}

	run := new(pull.Run)
	if err := run.Unmarshal(val); err != nil {
		return nil, err
	}

	return run, nil
}

// SetPull implements the Store interface. The per-peer index entry is only
// written on the first insert of a run.
func (s *BadgerStore) SetPull(run *pull.Run) error {
	val, err := run.Marshal()
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := pullKey(run.ID)

		isNew := false
		if _, err := txn.Get(key); err != nil {
			if !isDBKeyNotFound(err) {
				return err
			}
			isNew = true
		}

		//insert [pull_id] => [run bytes]
		if err := txn.Set(key, val); err != nil {
			return err
		}

		if isNew {
			//insert [peerpull_peer_nano_id] => [run id]
			idxKey := peerPullKey(run.PeerID, run.StartedAt.UnixNano(), run.ID)
			return txn.Set(idxKey, []byte(run.ID))
		}

		return nil
	})
}

// PeerPulls implements the Store interface; most recent first.
func (s *BadgerStore) PeerPulls(peerID string, limit int) ([]*pull.Run, error) {
	res := []*pull.Run{}

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(fmt.Sprintf("%s_%s_", peerPullPrefix, peerID))
		seek := append(append([]byte{}, prefix...), 0xFF)

		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(res) >= limit {
				break
			}

			id, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}

			item, err := txn.Get(pullKey(string(id)))
			if err != nil {
				return err
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}

			run := new(pull.Run)
			if err := run.Unmarshal(val); err != nil {
				return err
			}
			res = append(res, run)
		}

		return nil
	})

	return res, err
}

// GetRawSchema implements the Store interface.
func (s *BadgerStore) GetRawSchema(namespace string) (*schema.RawDefinition, error) {
	val, err := s.dbGet(rawSchemaKey(namespace))
	if err != nil {
		return nil, mapError(err, "RawSchema", namespace)
	}

	def := new(schema.RawDefinition)
	if err := def.Unmarshal(val); err != nil {
		return nil, err
	}

	return def, nil
}

// SetRawSchema implements the Store interface.
func (s *BadgerStore) SetRawSchema(def *schema.RawDefinition) error {
	val, err := def.Marshal()
	if err != nil {
		return err
	}

	return s.dbSet(rawSchemaKey(def.Namespace), val)
}

// Close implements the Store interface.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// StorePath returns the directory of the database files.
func (s *BadgerStore) StorePath() string {
	return s.path
}

//++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++
//DB Methods

func (s *BadgerStore) dbGet(key []byte) ([]byte, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})

	if err != nil {
		return nil, err
	}

	return val, nil
}

func (s *BadgerStore) dbSet(key, val []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
}

//++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++++

func isDBKeyNotFound(err error) bool {
	return err == badger.ErrKeyNotFound
}

func mapError(err error, name, key string) error {
	if err != nil {
		if isDBKeyNotFound(err) {
			return cm.NewStoreErr(name, cm.KeyNotFound, key)
		}
	}
	return err
}
