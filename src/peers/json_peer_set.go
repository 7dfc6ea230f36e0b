package peers

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"
)

const jsonPeerSetPath = "peers.json"

// JSONPeerSet is used to provide peer persistence on disk in the form of a
// JSON file. It seeds the peer registry at startup.
type JSONPeerSet struct {
	l    sync.Mutex
	path string
}

// NewJSONPeerSet creates a new JSONPeerSet with reference to a base directory
// where the JSON file resides.
func NewJSONPeerSet(base string) *JSONPeerSet {
	store := &JSONPeerSet{
		path: filepath.Join(base, jsonPeerSetPath),
	}
	return store
}

// Peers parses the underlying JSON file and returns the corresponding list
// of peers. A missing file yields an empty list, not an error.
func (j *JSONPeerSet) Peers() ([]*Peer, error) {
	j.l.Lock()
	defer j.l.Unlock()

	buf, err := ioutil.ReadFile(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Peer{}, nil
		}
		return nil, err
	}

	// Check for no peers
	if len(buf) == 0 {
		return []*Peer{}, nil
	}

	var peers []*Peer
	dec := json.NewDecoder(bytes.NewReader(buf))
	if err := dec.Decode(&peers); err != nil {
		return nil, err
	}

	for _, p := range peers {
		if p.ID == "" {
			p.ID = deriveID(p.BaseURL)
		}
	}

	return peers, nil
}

// Write persists a list of peers to the JSON file.
func (j *JSONPeerSet) Write(peers []*Peer) error {
	j.l.Lock()
	defer j.l.Unlock()

	b, err := json.MarshalIndent(peers, "", "  ")
	if err != nil {
		return err
	}

	return ioutil.WriteFile(j.path, b, 0644)
}
