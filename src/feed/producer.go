package feed

import (
	"fmt"

	"github.com/openincident/beacon/src/incident"
)

// IncidentSource is the slice of the store the producer reads from.
type IncidentSource interface {
	// Incidents returns a window of records ordered newest first.
	Incidents(offset, limit int) ([]*incident.Incident, error)

	// IncidentCount returns the total number of records.
	IncidentCount() (int, error)
}

// Producer serves this node's own outbox: the actor document and the
// paginated feed of Create activities wrapping local incidents.
type Producer struct {
	source   IncidentSource
	baseURL  string
	moniker  string
	pageSize int
}

// NewProducer ...
func NewProducer(source IncidentSource, baseURL, moniker string, pageSize int) *Producer {
	return &Producer{
		source:   source,
		baseURL:  baseURL,
		moniker:  moniker,
		pageSize: pageSize,
	}
}

// ActorURL ...
func (p *Producer) ActorURL() string {
	return p.baseURL + "/"
}

// OutboxURL ...
func (p *Producer) OutboxURL() string {
	return p.baseURL + "/outbox"
}

// Actor returns the feed entry document.
func (p *Producer) Actor() *Actor {
	return &Actor{
		Context:           ActivityStreamsContext,
		ID:                p.ActorURL(),
		Type:              "Service",
		Outbox:            p.OutboxURL(),
		PreferredUsername: p.moniker,
	}
}

// Page builds outbox page n (1-based). Items are ordered newest first and
// the Next link is set while more items remain. Page 1 of an empty store is
// a valid, empty final page.
func (p *Producer) Page(n int) (*OrderedCollectionPage, error) {
	if n < 1 {
		return nil, fmt.Errorf("outbox page numbering starts at 1, got %d", n)
	}

	offset := (n - 1) * p.pageSize

	items, err := p.source.Incidents(offset, p.pageSize)
	if err != nil {
		return nil, err
	}

	total, err := p.source.IncidentCount()
	if err != nil {
		return nil, err
	}

	page := &OrderedCollectionPage{
		Context:      ActivityStreamsContext,
		ID:           p.pageURL(n),
		Type:         "OrderedCollectionPage",
		PartOf:       p.OutboxURL(),
		OrderedItems: make([]Activity, 0, len(items)),
	}

	for _, inc := range items {
		page.OrderedItems = append(page.OrderedItems, Activity{
			ID:     fmt.Sprintf("%s/activity/%s", p.OutboxURL(), inc.URI),
			Type:   "Create",
			Actor:  p.ActorURL(),
			Object: inc.Data,
		})
	}

	if offset+len(items) < total {
		page.Next = p.pageURL(n + 1)
	}

	return page, nil
}

func (p *Producer) pageURL(n int) string {
	if n == 1 {
		return p.OutboxURL()
	}
	return fmt.Sprintf("%s?page=%d", p.OutboxURL(), n)
}
