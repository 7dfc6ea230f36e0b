package pull

import (
	"bytes"
	"time"

	"github.com/ugorji/go/codec"
)

// Status is the lifecycle state of a pull run. Exactly one terminal status
// is reached per run.
type Status string

const (
	// Running is the only non-terminal status. A record stuck in Running is
	// the sign of an interrupted run, not ground truth of ongoing work.
	Running Status = "running"

	// Succeeded means traversal completed to the end of the collection,
	// even if individual items were rejected.
	Succeeded Status = "succeeded"

	// Failed means a page fetch failed or an unrecoverable error occurred
	// mid-traversal. Counters accumulated before the failure are preserved.
	Failed Status = "failed"
)

// Run is the audit record of one synchronization attempt against one peer.
type Run struct {
	ID         string    `json:"id"`
	PeerID     string    `json:"peerId"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt,omitempty"`
	Status     Status    `json:"status"`

	// Fetched counts every candidate item seen, Ingested the actual
	// insertions, Rejected the items dropped by validation. Statistics only
	// grow while the run is Running.
	Fetched  int `json:"fetched"`
	Ingested int `json:"ingested"`
	Rejected int `json:"rejected"`

	// Error describes the failure of a Failed run.
	Error string `json:"error,omitempty"`

	// ItemErrors logs each rejected item, so that the Rejected counter is
	// independently auditable.
	ItemErrors []string `json:"itemErrors,omitempty"`
}

// Marshal - canonical json encoding of Run
func (r *Run) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(r); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal ...
func (r *Run) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	if err := dec.Decode(r); err != nil {
		return err
	}

	return nil
}
