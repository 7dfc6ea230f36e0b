package pull

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openincident/beacon/src/common"
	"github.com/openincident/beacon/src/feed"
	"github.com/openincident/beacon/src/incident"
	"github.com/openincident/beacon/src/peers"
	"github.com/sirupsen/logrus"
)

// Store is the slice of the content store the puller relies on.
type Store interface {
	// GetPeer returns a registered peer; a missing id is signalled with a
	// KeyNotFound store error.
	GetPeer(id string) (*peers.Peer, error)

	// SetIncident inserts a record if its URI is absent, and returns a
	// KeyAlreadyExists store error otherwise. First write wins.
	SetIncident(inc *incident.Incident) error

	// SetPull inserts or updates a run record.
	SetPull(run *Run) error
}

// IncidentValidator accepts or rejects a single candidate document.
type IncidentValidator interface {
	ValidateIncident(payload map[string]interface{}) error
}

// Puller executes synchronization runs against registered peers.
type Puller struct {
	store     Store
	client    *Client
	validator IncidentValidator
	logger    *logrus.Entry
}

// NewPuller ...
func NewPuller(store Store, client *Client, validator IncidentValidator, logger *logrus.Entry) *Puller {
	return &Puller{
		store:     store,
		client:    client,
		validator: validator,
		logger:    logger,
	}
}

// PullFromPeer executes one synchronization pass against one peer: it walks
// the peer's outbox pages in next-link order, validates every candidate
// item, upserts accepted items into the store, and records the outcome in a
// Run.
//
// The returned error is non-nil only when no run was performed at all: an
// unknown peer (KeyNotFound store error) or a failure to create the run
// record. Failures during traversal terminate the run with Status Failed
// and are reported through the run record, which is the durable account of
// what happened.
func (p *Puller) PullFromPeer(peerID string) (*Run, error) {
	peer, err := p.store.GetPeer(peerID)
	if err != nil {
		return nil, err
	}

	run := &Run{
		ID:        uuid.New().String(),
		PeerID:    peer.ID,
		StartedAt: time.Now(),
		Status:    Running,
	}
	if err := p.store.SetPull(run); err != nil {
		return nil, err
	}

	logger := p.logger.WithFields(logrus.Fields{
		"peer": peer.ID,
		"run":  run.ID,
	})
	logger.Debug("Starting pull")

	pageURL, err := peer.OutboxURL()
	if err != nil {
		return p.finalize(run, &TransportError{URL: peer.Outbox, Err: err}), nil
	}

	// Forward-only traversal. Pages already processed in this run are never
	// refetched; a next link pointing back would loop forever.
	visited := map[string]bool{}

	for pageURL != "" {
		if visited[pageURL] {
			return p.finalize(run, fmt.Errorf("next-link cycle at %s", pageURL)), nil
		}
		visited[pageURL] = true

		page, err := p.client.Page(pageURL)
		if err != nil {
			return p.finalize(run, err), nil
		}

		for i, item := range page.OrderedItems {
			run.Fetched++

			doc, err := acceptItem(p.validator, item)
			if err != nil {
				// a bad item from an unsynchronized or buggy peer rejects
				// only itself, never the page or the run
				run.Rejected++
				run.ItemErrors = append(run.ItemErrors, itemError(pageURL, i, item.Object, err))
				continue
			}

			err = p.store.SetIncident(incident.New(doc, peer.ID))
			if common.IsStore(err, common.KeyAlreadyExists) {
				// seen in a prior run, or authored locally: skip
				continue
			}
			if err != nil {
				return p.finalize(run, err), nil
			}

			run.Ingested++
		}

		// persist progress so that an interrupted run still accounts for
		// the pages it processed
		if err := p.store.SetPull(run); err != nil {
			return p.finalize(run, err), nil
		}

		next := page.Next
		if next != "" {
			next, err = peers.ResolveURL(pageURL, next)
			if err != nil {
				return p.finalize(run, &TransportError{URL: page.Next, Err: err}), nil
			}
		}
		pageURL = next
	}

	run.Status = Succeeded
	run.FinishedAt = time.Now()
	if err := p.store.SetPull(run); err != nil {
		logger.WithError(err).Error("Recording run outcome")
	}

	logger.WithFields(logrus.Fields{
		"fetched":  run.Fetched,
		"ingested": run.Ingested,
		"rejected": run.Rejected,
	}).Debug("Pull succeeded")

	return run, nil
}

// acceptItem extracts and validates the object document of a Create
// activity. It has no side effects; a non-nil error rejects the single item.
func acceptItem(validator IncidentValidator, item feed.Activity) (incident.Document, error) {
	if item.Type != "" && item.Type != "Create" {
		return nil, fmt.Errorf("unexpected activity type %q", item.Type)
	}

	if item.Object == nil {
		return nil, fmt.Errorf("activity has no object")
	}

	if err := validator.ValidateIncident(item.Object); err != nil {
		return nil, err
	}

	doc := incident.Document(item.Object)
	if doc.ID() == "" {
		return nil, fmt.Errorf("document has no @id")
	}

	return doc, nil
}

// finalize terminates a run as Failed, preserving the counters accumulated
// so far.
func (p *Puller) finalize(run *Run, cause error) *Run {
	run.Status = Failed
	run.Error = cause.Error()
	run.FinishedAt = time.Now()

	if err := p.store.SetPull(run); err != nil {
		p.logger.WithError(err).Error("Recording run outcome")
	}

	p.logger.WithFields(logrus.Fields{
		"run":      run.ID,
		"fetched":  run.Fetched,
		"ingested": run.Ingested,
		"rejected": run.Rejected,
	}).WithError(cause).Error("Pull failed")

	return run
}

func itemError(pageURL string, index int, object map[string]interface{}, err error) string {
	id := incident.Document(object).ID()
	if id == "" {
		id = fmt.Sprintf("%s#%d", pageURL, index)
	}
	return fmt.Sprintf("%s: %v", id, err)
}
