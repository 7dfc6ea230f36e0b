package feed

// ActivityStreamsContext identifies the ActivityStreams vocabulary that
// frames every feed document.
const ActivityStreamsContext = "https://www.w3.org/ns/activitystreams"

// Actor is the entry document of a node's publication feed.
type Actor struct {
	Context           string `json:"@context"`
	ID                string `json:"id"`
	Type              string `json:"type"`
	Outbox            string `json:"outbox"`
	PreferredUsername string `json:"preferredUsername"`
}

// Activity wraps a published incident document. Only Create activities are
// emitted and consumed.
type Activity struct {
	ID     string                 `json:"id"`
	Type   string                 `json:"type"`
	Actor  string                 `json:"actor,omitempty"`
	Object map[string]interface{} `json:"object"`
}

// OrderedCollectionPage is one page of an outbox: items ordered newest
// first, with an optional link to the next page. Absence of Next signals
// the final page.
type OrderedCollectionPage struct {
	Context      interface{} `json:"@context"`
	ID           string      `json:"id"`
	Type         string      `json:"type"`
	PartOf       string      `json:"partOf,omitempty"`
	Next         string      `json:"next,omitempty"`
	OrderedItems []Activity  `json:"orderedItems"`
}
